package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

type cfgStub struct {
	redisURL string
	queue    string
}

func (c cfgStub) GetRedisURL() string                    { return c.redisURL }
func (c cfgStub) GetRedisTLSInsecure() bool              { return false }
func (c cfgStub) GetAsynqQueueName() string              { return c.queue }
func (c cfgStub) GetAsynqConcurrency() int               { return 1 }
func (c cfgStub) GetGeneralSweepInterval() time.Duration { return time.Hour }
func (c cfgStub) GetUrgentSweepInterval() time.Duration  { return 15 * time.Minute }

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(cfgStub{}); err == nil {
		t.Fatal("expected error for empty redis url")
	}
}

func TestEnqueueSweepWritesTask(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(cfgStub{redisURL: "redis://" + mr.Addr(), queue: "sweeps"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	if err := client.EnqueueSweep(context.Background(), 15*time.Minute); err != nil {
		t.Fatalf("EnqueueSweep: %v", err)
	}

	if len(mr.Keys()) == 0 {
		t.Fatal("expected enqueued task data in redis")
	}
}

func TestNilClientIsNoop(t *testing.T) {
	var client *Client
	if err := client.EnqueueSweep(context.Background(), time.Hour); err != nil {
		t.Fatalf("nil client enqueue: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("nil client close: %v", err)
	}
}

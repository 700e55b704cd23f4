package scheduler

import (
	"context"
	"fmt"
	"time"

	"plantao_backend/platform/config"
	"plantao_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// SweepDispatcher enqueues the periodic sweep ticks: a general tick for
// slow rules and a tighter urgent tick so short-delay rules fire close to
// their due time.
type SweepDispatcher struct {
	client       *asynq.Client
	queue        string
	generalEvery time.Duration
	urgentEvery  time.Duration
	log          *logger.Logger
}

func NewSweepDispatcher(cfg config.SchedulerConfig, log *logger.Logger) (*SweepDispatcher, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	generalEvery := cfg.GetGeneralSweepInterval()
	if generalEvery <= 0 {
		generalEvery = time.Hour
	}
	urgentEvery := cfg.GetUrgentSweepInterval()
	if urgentEvery <= 0 {
		urgentEvery = 15 * time.Minute
	}

	return &SweepDispatcher{
		client:       asynq.NewClient(opt),
		queue:        queue,
		generalEvery: generalEvery,
		urgentEvery:  urgentEvery,
		log:          log,
	}, nil
}

func (d *SweepDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *SweepDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil {
		return
	}

	general := time.NewTicker(d.generalEvery)
	defer general.Stop()
	urgent := time.NewTicker(d.urgentEvery)
	defer urgent.Stop()

	for {
		var cadence time.Duration
		select {
		case <-ctx.Done():
			return
		case <-general.C:
			cadence = d.generalEvery
		case <-urgent.C:
			cadence = d.urgentEvery
		}

		task, err := NewSweepTask(cadence)
		if err != nil {
			d.log.Warn("sweep task build failed", "cadence", cadence.String(), "error", err)
			continue
		}

		if _, err := d.client.EnqueueContext(ctx, task, asynq.Queue(d.queue)); err != nil {
			d.log.Warn("sweep enqueue failed", "cadence", cadence.String(), "error", err)
		}
	}
}

package scheduler

import (
	"context"
	"fmt"
	"time"

	"plantao_backend/platform/config"
	"plantao_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Sweeper is the slice of the automation engine the worker drives.
type Sweeper interface {
	Sweep(ctx context.Context, windowID string, now time.Time) error
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	sweeper Sweeper
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, sweeper Sweeper, log *logger.Logger) (*Worker, error) {
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

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		sweeper: sweeper,
		log:     log,
	}

	mux.HandleFunc(TaskAutomationSweep, w.handleSweep)

	return w, nil
}

func (w *Worker) handleSweep(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSweepPayload(task)
	if err != nil {
		return err
	}

	cadence := time.Duration(payload.CadenceSeconds) * time.Second
	now := time.Now().UTC()
	windowID := WindowID(cadence, now)

	if err := w.sweeper.Sweep(ctx, windowID, now); err != nil {
		w.log.Error("sweep failed", "windowId", windowID, "error", err)
		return err
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("sweep worker stopped", "error", err)
	}
}

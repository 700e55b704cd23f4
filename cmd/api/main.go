package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"plantao_backend/internal/automation"
	"plantao_backend/internal/brokers"
	"plantao_backend/internal/distribution"
	distrepo "plantao_backend/internal/distribution/repository"
	"plantao_backend/internal/dutyroster"
	"plantao_backend/internal/email"
	"plantao_backend/internal/events"
	"plantao_backend/internal/followups"
	apphttp "plantao_backend/internal/http"
	"plantao_backend/internal/http/router"
	"plantao_backend/internal/leads"
	leadrepo "plantao_backend/internal/leads/repository"
	"plantao_backend/internal/regions"
	"plantao_backend/internal/whatsapp"
	"plantao_backend/migrations"
	"plantao_backend/platform/config"
	"plantao_backend/platform/db"
	"plantao_backend/platform/logger"
	"plantao_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS, ".")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}
	whatsappClient := whatsapp.NewClient(cfg, log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	brokersModule := brokers.NewModule(pool, val)
	regionsModule := regions.NewModule(pool, val)
	rosterModule := dutyroster.NewModule(pool, brokersModule.Repository(), eventBus, val)
	followupsModule := followups.NewModule(pool, val)

	// The distribution engine shares the leads repository for its fairness
	// counters, so the repository is built here and injected into both.
	leadsRepo := leadrepo.New(pool)
	distEngine := distribution.New(
		rosterModule.Service(),
		brokersModule.Repository(),
		leadsRepo,
		distrepo.New(pool),
	)

	leadsModule := leads.NewModule(
		leadsRepo,
		regionsModule.Service(),
		regionsModule.Repository(),
		distEngine,
		eventBus,
		log,
		val,
	)

	automationModule := automation.NewModule(
		pool,
		leadsModule.Service(),
		leadsRepo,
		sender,
		whatsappClient,
		followupsModule.Service(),
		eventBus,
		log,
		val,
	)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			brokersModule,
			regionsModule,
			rosterModule,
			leadsModule,
			followupsModule,
			automationModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}

// regionctl imports region definitions from a YAML seed file. Creation goes
// through the regions service so area-code ownership checks apply exactly as
// they do on the API path.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"plantao_backend/internal/regions"
	"plantao_backend/platform/config"
	"plantao_backend/platform/db"
	"plantao_backend/platform/logger"
	"plantao_backend/platform/validator"
)

func main() {
	file := flag.String("file", "", "path to the YAML region seed file")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: regionctl -file regions.yaml")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	regionsModule := regions.NewModule(pool, validator.New())

	created, err := regions.ImportSeedFile(ctx, regionsModule.Service(), *file)
	if err != nil {
		log.Error("region import failed", "created", created, "error", err)
		os.Exit(1)
	}

	log.Info("region import complete", "created", created, "file", *file)
}

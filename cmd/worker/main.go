package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/ignite/graphmail/internal/app"
	"github.com/ignite/graphmail/internal/config"
	"github.com/ignite/graphmail/internal/pkg/logger"
	"github.com/ignite/graphmail/internal/worker"
)

func main() {
	configPath := flag.String("config", os.Getenv("GRAPHMAIL_CONFIG"), "path to config.yaml (env GRAPHMAIL_CONFIG)")
	flag.Parse()

	log.Println("Starting graphmail notification worker...")
	if err := run(*configPath); err != nil {
		logger.Error("worker exited", "error", err)
		os.Exit(1)
	}
	log.Println("Worker stopped")
}

func run(configPath string) error {
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Redis.URL == "" {
		return errors.New("worker requires REDIS_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	pool := worker.NewPool(a.Queue, a.Notifications, cfg.Worker.Concurrency, cfg.Worker.PollInterval())
	pool.DrainTimeout = cfg.Worker.DrainTimeout()
	pool.Start(ctx)
	log.Printf("Worker running (%d goroutines, queue %s)", cfg.Worker.Concurrency, cfg.Redis.QueueKey)

	<-ctx.Done()
	log.Println("Shutting down worker, draining in-flight jobs...")
	pool.Stop()
	return nil
}

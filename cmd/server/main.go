package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/ignite/graphmail/internal/api"
	"github.com/ignite/graphmail/internal/app"
	"github.com/ignite/graphmail/internal/config"
	"github.com/ignite/graphmail/internal/pkg/logger"
	"github.com/ignite/graphmail/internal/service/profile"
)

func main() {
	configPath := flag.String("config", os.Getenv("GRAPHMAIL_CONFIG"), "path to config.yaml (env GRAPHMAIL_CONFIG)")
	flag.Parse()

	log.Println("Starting graphmail API server...")
	if err := run(*configPath); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Println("Server stopped")
}

func run(configPath string) error {
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// Make sure the default profile exists so administrators can fill it in.
	if _, err := a.Profiles.EnsureDefault(ctx); err != nil {
		if !errors.Is(err, profile.ErrBootstrapLocked) {
			return fmt.Errorf("default profile bootstrap: %w", err)
		}
		logger.Info("default profile bootstrap running elsewhere")
	}

	var origins []string
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins = strings.Split(v, ",")
	}
	server := api.NewServer(
		api.NewHandlers(a.Profiles, a.Notifications),
		api.NewHealthChecker(a.DB, a.Redis),
		origins,
	)

	addr := cfg.Server.Addr()
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		serveErr <- server.ListenAndServe(addr)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

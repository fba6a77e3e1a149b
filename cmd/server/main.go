package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docinsight/internal/api"
	"github.com/dgallion1/docinsight/internal/app"
	"github.com/dgallion1/docinsight/internal/config"
	"github.com/dgallion1/docinsight/internal/pipeline"
	"github.com/dgallion1/docinsight/internal/store"
	"github.com/dgallion1/docinsight/internal/version"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	stack, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("build analyzer", "error", err)
		os.Exit(1)
	}
	results, err := store.Open(cfg.ResultsDB)
	if err != nil {
		log.Error("open results store", "path", cfg.ResultsDB, "error", err)
		os.Exit(1)
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, stack.Analyzer, results, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, stack.Stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		stack.Close()
		results.Close()
	}()

	log.Info("starting docinsight", "port", cfg.Port, "version", version.Version, "results_db", cfg.ResultsDB)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// Command api serves the topic graph builder over HTTP.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"curriculum-graph/internal/config"
	"curriculum-graph/internal/di"
	"curriculum-graph/internal/interfaces/http/rest"
	"curriculum-graph/internal/topicgraph"

	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loader, err := config.LoaderFromEnvironment()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg, err := loader.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	logger := container.Logger

	// The catalogue can be reloaded at runtime; handlers read the current
	// builder on every request.
	var current atomic.Pointer[topicgraph.Builder]
	current.Store(container.Builder)

	watcher, err := config.NewWatcher(loader, cfg, logger, config.DefaultDebounce)
	if err != nil {
		logger.Fatal("Failed to start configuration watcher", zap.Error(err))
	}
	watcher.OnChange(func(next *config.Config) {
		b, err := container.Rebuild(next)
		if err != nil {
			logger.Error("Reloaded configuration rejected, keeping current catalogue", zap.Error(err))
			return
		}
		current.Store(b)
		logger.Info("Class catalogue reloaded", zap.Int("classes", b.Catalog().Len()))
	})

	router := rest.NewRouter(
		func() rest.GraphBuilder { return current.Load() },
		logger,
		rest.Options{AllowedOrigins: cfg.Server.AllowedOrigins, Collector: container.Metrics},
	)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.Server.Address),
			zap.Strings("config_sources", cfg.LoadedFrom),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	watcher.Stop()
	if err := container.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to release resources", zap.Error(err))
	}

	log.Println("Server stopped")
}

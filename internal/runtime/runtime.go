// Package runtime wires the alouette-host services together.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alouette-audio/alouette-host/internal/bus"
	"github.com/alouette-audio/alouette-host/internal/calllog"
	"github.com/alouette-audio/alouette-host/internal/capability"
	"github.com/alouette-audio/alouette-host/internal/config"
	"github.com/alouette-audio/alouette-host/internal/dispatch"
	"github.com/alouette-audio/alouette-host/internal/engine"
	"github.com/alouette-audio/alouette-host/internal/natsserver"
)

type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	embedded, err := natsserver.Start(r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("failed to start embedded bus: %w", err)
	}
	defer embedded.Shutdown()

	busClient, err := bus.Connect(ctx, r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to bus: %w", err)
	}
	defer busClient.Close()

	catalog, err := engine.NewCatalog(r.cfg.Engines)
	if err != nil {
		return fmt.Errorf("failed to build engine catalog: %w", err)
	}

	audit, err := calllog.Open(ctx, r.cfg.CallLog, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open call log: %w", err)
	}
	defer audit.Close()

	dispatcher := dispatch.NewDispatcher(catalog, audit, r.logger)
	channel := dispatch.NewService(ctx, r.cfg.Channel, busClient, dispatcher, r.logger)
	if err := channel.Start(); err != nil {
		return fmt.Errorf("failed to open method channel: %w", err)
	}
	defer channel.Close()

	registry, err := capability.NewRegistry(ctx, r.cfg.Node, catalog, busClient, r.logger)
	if err != nil {
		return fmt.Errorf("failed to start capability registry: %w", err)
	}
	defer registry.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("alouette-host started",
		slog.String("addr", addr),
		slog.String("channel", r.cfg.Channel.Subject))

	<-ctx.Done()
	r.ready.Store(false)
	r.logger.Info("alouette-host stopping")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

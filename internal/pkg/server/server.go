package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/anicoll/foxess-integration/internal/pkg/handler"
)

type Server struct {
	addr     string
	devices  *handler.Devices
	store    handler.HistoryStore
	live     http.Handler
	gatherer prometheus.Gatherer
}

// New builds the api server. store, live and gatherer are optional; their routes are left out or report disabled.
func New(addr string, devices *handler.Devices, store handler.HistoryStore, live http.Handler, gatherer prometheus.Gatherer) *Server {
	return &Server{
		addr:     addr,
		devices:  devices,
		store:    store,
		live:     live,
		gatherer: gatherer,
	}
}

func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/devices", handler.ListDevices(s.devices))
	api.HandleFunc("GET /api/devices/{id}/snapshot", handler.Snapshot(s.devices))
	api.HandleFunc("GET /api/devices/{id}/sensors", handler.Sensors(s.devices))
	api.HandleFunc("GET /api/devices/{id}/history", handler.History(s.devices, s.store))
	api.HandleFunc("POST /api/devices/{id}/refresh", handler.Refresh(s.devices))

	mux := http.NewServeMux()
	mux.Handle("/api/", handler.Compress(api))
	mux.HandleFunc("GET /healthz", handler.Health(s.devices))
	if s.live != nil {
		mux.Handle("GET /ws", s.live)
	}
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return LoggingMiddleware(mux)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		zap.L().Info("starting http server", zap.String("addr", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		zap.L().Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/detreview/internal/config"
	"github.com/lehigh-university-libraries/detreview/internal/detector"
	"github.com/lehigh-university-libraries/detreview/internal/handlers"
	"github.com/lehigh-university-libraries/detreview/internal/storage"
	"github.com/lehigh-university-libraries/detreview/internal/telemetry"
)

func newServeCmd(cfgFn func() *config.Config) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the review HTTP API",
		Long: `Starts the detreview HTTP API on the specified port.

POST /api/compare scores a JSON request without storing anything.
POST /api/sessions accepts a multipart upload (gt, detections or image) and
keeps the result as a review session until it expires.
Prometheus metrics are served on /metrics.`,
		Example: `  # Start server on default port 8888
  detreview serve

  # Start server on custom port
  detreview serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cfgFn()
			if !cmd.Flags().Changed("port") {
				port = cfg.Server.Port
			}

			handler, metricsHandler, err := newHandler(cfg)
			if err != nil {
				return err
			}

			mux := newMux(handler, metricsHandler)

			addr := ":" + strconv.Itoa(port)
			server := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("detreview API available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8888, "Port to listen on")

	return cmd
}

// newHandler wires the session store, metrics and optional detector
func newHandler(cfg *config.Config) (*handlers.Handler, http.Handler, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	comparisonMetrics, err := telemetry.NewComparisonMetrics(registry)
	if err != nil {
		return nil, nil, err
	}

	opts := handlers.Options{
		Sessions:       storage.New(cfg.Server.SessionTTL),
		Metrics:        comparisonMetrics,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		IoUThreshold:   cfg.Matching.IoUThreshold,
	}
	if cfg.Detector.URL != "" {
		slog.Info("Detector enabled", "url", cfg.Detector.URL, "timeout", cfg.Detector.Timeout)
		opts.Detector = detector.New(cfg.Detector.URL, cfg.Detector.Timeout)
	}

	return handlers.New(opts), comparisonMetrics.Handler(), nil
}

func newMux(handler *handlers.Handler, metricsHandler http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/compare", handler.HandleCompare)
	mux.HandleFunc("/api/sessions", handler.HandleSessions)
	mux.HandleFunc("/api/sessions/", handler.HandleSessionDetail)
	mux.Handle("/metrics", metricsHandler)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}

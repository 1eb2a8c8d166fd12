package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/detreview/internal/annotations"
	"github.com/lehigh-university-libraries/detreview/internal/eval/metrics"
	"github.com/lehigh-university-libraries/detreview/internal/models"
	"github.com/lehigh-university-libraries/detreview/internal/review"
	"github.com/lehigh-university-libraries/detreview/internal/storage"
	"github.com/lehigh-university-libraries/detreview/internal/telemetry"
)

// Detector produces detections for an image. It is optional; without one,
// sessions must be created with uploaded detections.
type Detector interface {
	Detect(ctx context.Context, image []byte, filename string) ([]annotations.RawDetection, error)
}

type Handler struct {
	sessionStore   *storage.SessionStore
	metrics        *telemetry.ComparisonMetrics
	detector       Detector
	maxUploadBytes int64
	iouThreshold   float64
}

// Options configures a Handler. Metrics and Detector may be nil.
type Options struct {
	Sessions       *storage.SessionStore
	Metrics        *telemetry.ComparisonMetrics
	Detector       Detector
	MaxUploadBytes int64
	IoUThreshold   float64
}

func New(opts Options) *Handler {
	if opts.Sessions == nil {
		opts.Sessions = storage.New(2 * time.Hour)
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.IoUThreshold == 0 {
		opts.IoUThreshold = 0.5
	}
	return &Handler{
		sessionStore:   opts.Sessions,
		metrics:        opts.Metrics,
		detector:       opts.Detector,
		maxUploadBytes: opts.MaxUploadBytes,
		iouThreshold:   opts.IoUThreshold,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, code int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Unable to write JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message)
	} else {
		slog.Debug(message, "status", code)
	}
	http.Error(w, message, code)
}

// writeRunError maps comparison errors to status codes
func (h *Handler) writeRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, annotations.ErrUnreadablePayload),
		errors.Is(err, annotations.ErrUnsupportedFormat),
		errors.Is(err, annotations.ErrInvalidImageSize),
		errors.Is(err, review.ErrInvalidThreshold):
		h.writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, metrics.ErrInvariantViolation):
		h.writeError(w, "Internal error while scoring: "+err.Error(), http.StatusInternalServerError)
	default:
		h.writeError(w, err.Error(), http.StatusInternalServerError)
	}
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, sessionID string) (*models.ReviewSession, bool) {
	session, exists := h.sessionStore.Get(sessionID)
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

// runReview runs one comparison and records it. parseDiags are detection
// records already rejected while decoding the payload.
func (h *Handler) runReview(req review.Request, parseDiags []string) (*review.Report, error) {
	start := time.Now()
	report, err := review.Run(req)
	if err == nil && len(parseDiags) > 0 {
		report.DetectionDiagnostics = append(parseDiags, report.DetectionDiagnostics...)
	}
	if h.metrics != nil {
		h.metrics.RecordComparison(report, err, time.Since(start))
	}
	return report, err
}

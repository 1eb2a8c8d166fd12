package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/detreview/internal/annotations"
	"github.com/lehigh-university-libraries/detreview/internal/models"
	"github.com/lehigh-university-libraries/detreview/internal/review"
	"github.com/lehigh-university-libraries/detreview/internal/storage"
)

// handleCreateSession reads a multipart upload, runs the comparison and
// stores the result as a new session.
//
// Form fields: gt (file, required), gt_format, detections (file or field),
// image (file), image_width, image_height, iou_threshold, classes (file).
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		if isTooLarge(err) {
			h.writeError(w, "Upload too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.writeError(w, "Failed to parse multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	gt, err := readFormFile(r, "gt")
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if gt == nil {
		h.writeError(w, "gt file is required", http.StatusBadRequest)
		return
	}

	formatName := r.FormValue("gt_format")
	if formatName == "" {
		formatName = gt.Filename
	}
	format, err := annotations.ParseFormat(formatName)
	if err != nil {
		h.writeError(w, "Cannot determine GT format: "+err.Error(), http.StatusBadRequest)
		return
	}

	img, err := readFormFile(r, "image")
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	width, height, err := resolveDimensions(r, img)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	threshold, err := parseThreshold(r.FormValue("iou_threshold"), h.iouThreshold)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var classNames []string
	classes, err := readFormFile(r, "classes")
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if classes != nil {
		classNames = annotations.ParseClassNames(classes.Data)
	}

	raw, parseDiags, status, err := h.sessionDetections(r, img)
	if err != nil {
		h.writeError(w, err.Error(), status)
		return
	}

	report, err := h.runReview(review.Request{
		GTPayload:    gt.Data,
		Format:       format,
		Width:        width,
		Height:       height,
		Detections:   raw,
		ClassNames:   classNames,
		IoUThreshold: threshold,
	}, parseDiags)
	if err != nil {
		h.writeRunError(w, err)
		return
	}

	imageName := gt.Filename
	if img != nil {
		imageName = img.Filename
	}

	session := &models.ReviewSession{
		ID:                   storage.NewID(),
		ImageName:            imageName,
		ImageWidth:           width,
		ImageHeight:          height,
		GTFormat:             string(format),
		IoUThreshold:         threshold,
		Result:               report.Result,
		GTDiagnostics:        report.GTDiagnostics,
		DetectionDiagnostics: report.DetectionDiagnostics,
		CreatedAt:            time.Now(),
	}
	h.sessionStore.Set(session.ID, session)

	slog.Info("Review session created",
		"session_id", session.ID,
		"image", imageName,
		"tp", report.Result.Metrics.TP,
		"fp", report.Result.Metrics.FP,
		"fn", report.Result.Metrics.FN,
		"diagnostics", report.Diagnostics())

	response := map[string]any{
		"session_id": session.ID,
		"result":     report.Result,
		"diagnostics": map[string][]string{
			"gt":         report.GTDiagnostics,
			"detections": report.DetectionDiagnostics,
		},
	}

	h.writeJSON(w, http.StatusCreated, response)
}

// sessionDetections reads detections from the upload, or asks the detector
// when none were uploaded but an image was.
func (h *Handler) sessionDetections(r *http.Request, img *uploadedFile) ([]annotations.RawDetection, []string, int, error) {
	file, err := readFormFile(r, "detections")
	if err != nil {
		return nil, nil, http.StatusBadRequest, err
	}

	var payload []byte
	switch {
	case file != nil:
		payload = file.Data
	case r.FormValue("detections") != "":
		payload = []byte(r.FormValue("detections"))
	case img != nil && h.detector != nil:
		raw, err := h.detector.Detect(r.Context(), img.Data, img.Filename)
		if err != nil {
			return nil, nil, http.StatusBadGateway, err
		}
		return raw, nil, http.StatusOK, nil
	default:
		// no detections at all: every GT box is a false negative
		return nil, nil, http.StatusOK, nil
	}

	raw, diags, err := annotations.ParseDetections(payload)
	if err != nil {
		return nil, nil, http.StatusBadRequest, err
	}
	return raw, diags, http.StatusOK, nil
}

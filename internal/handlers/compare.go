package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/lehigh-university-libraries/detreview/internal/annotations"
	"github.com/lehigh-university-libraries/detreview/internal/review"
)

// CompareRequest is the body of POST /api/compare
type CompareRequest struct {
	Detections   json.RawMessage `json:"detections"`
	GT           string          `json:"gt"`
	GTFormat     string          `json:"gt_format"`
	ImageWidth   int             `json:"image_width"`
	ImageHeight  int             `json:"image_height"`
	IoUThreshold *float64        `json:"iou_threshold,omitempty"`
	ClassNames   []string        `json:"class_names,omitempty"`
}

// HandleCompare scores a detection set against a ground-truth payload
// without creating a session.
func (h *Handler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	var request CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		if isTooLarge(err) {
			h.writeError(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	format, err := annotations.ParseFormat(request.GTFormat)
	if err != nil {
		h.writeError(w, "Invalid gt_format: "+err.Error(), http.StatusBadRequest)
		return
	}

	var raw []annotations.RawDetection
	var parseDiags []string
	if len(request.Detections) > 0 && string(request.Detections) != "null" {
		raw, parseDiags, err = annotations.ParseDetections(request.Detections)
		if err != nil {
			h.writeError(w, "Invalid detections: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	threshold := h.iouThreshold
	if request.IoUThreshold != nil {
		threshold = *request.IoUThreshold
	}

	report, err := h.runReview(review.Request{
		GTPayload:    []byte(request.GT),
		Format:       format,
		Width:        request.ImageWidth,
		Height:       request.ImageHeight,
		Detections:   raw,
		ClassNames:   request.ClassNames,
		IoUThreshold: threshold,
	}, parseDiags)
	if err != nil {
		h.writeRunError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, report)
}

package models

import (
	"time"

	"github.com/lehigh-university-libraries/detreview/internal/eval/metrics"
)

// ReviewSession represents one reviewed drawing held by the server
type ReviewSession struct {
	ID                   string                    `json:"id"`
	ImageName            string                    `json:"image_name,omitempty"`
	ImageWidth           int                       `json:"image_width"`
	ImageHeight          int                       `json:"image_height"`
	GTFormat             string                    `json:"gt_format"`
	IoUThreshold         float64                   `json:"iou_threshold"`
	Result               *metrics.ComparisonResult `json:"result"`
	GTDiagnostics        []string                  `json:"gt_diagnostics"`
	DetectionDiagnostics []string                  `json:"detection_diagnostics"`
	CreatedAt            time.Time                 `json:"created_at"`
}

// Summary is the short form used when listing sessions
type Summary struct {
	ID        string         `json:"id"`
	ImageName string         `json:"image_name,omitempty"`
	Metrics   metrics.Scores `json:"metrics"`
	CreatedAt time.Time      `json:"created_at"`
}

// Summary returns the listing form of the session
func (s *ReviewSession) Summary() Summary {
	sum := Summary{ID: s.ID, ImageName: s.ImageName, CreatedAt: s.CreatedAt}
	if s.Result != nil {
		sum.Metrics = s.Result.Metrics
	}
	return sum
}

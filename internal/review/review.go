// Package review runs the full comparison pipeline: normalize the ground
// truth and detections, match them greedily and score the verdicts.
package review

import (
	"errors"
	"fmt"
	"math"

	"github.com/lehigh-university-libraries/detreview/internal/annotations"
	"github.com/lehigh-university-libraries/detreview/internal/eval/metrics"
	"github.com/lehigh-university-libraries/detreview/internal/matching"
)

// ErrInvalidThreshold is returned for an IoU threshold outside (0, 1].
var ErrInvalidThreshold = errors.New("iou threshold must be in (0, 1]")

// ValidateThreshold reports whether t can be used as an IoU threshold.
func ValidateThreshold(t float64) error {
	if math.IsNaN(t) || t <= 0 || t > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, t)
	}
	return nil
}

// Compare matches normalized detections against normalized ground truth.
func Compare(detections []annotations.Detection, gts []annotations.GTLabel, threshold float64) (*metrics.ComparisonResult, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	verdicts := matching.Match(detections, gts, threshold)
	return metrics.Aggregate(verdicts, len(gts), len(detections))
}

// Request carries the raw inputs for one drawing.
type Request struct {
	GTPayload  []byte
	Format     annotations.Format
	Width      int
	Height     int
	Detections []annotations.RawDetection
	// ClassNames maps YOLO class ids to names. Optional.
	ClassNames   []string
	IoUThreshold float64
}

// Report is the outcome of Run.
type Report struct {
	Result               *metrics.ComparisonResult `json:"result" yaml:"result"`
	GTDiagnostics        []string                  `json:"gt_diagnostics" yaml:"gt_diagnostics"`
	DetectionDiagnostics []string                  `json:"detection_diagnostics" yaml:"detection_diagnostics"`
}

// Diagnostics returns the number of records skipped or flagged on either side.
func (r *Report) Diagnostics() int {
	return len(r.GTDiagnostics) + len(r.DetectionDiagnostics)
}

// Run normalizes the raw inputs and compares them. A ground-truth payload that
// cannot be read at all is returned as an error; individual bad records only
// show up in the report's diagnostics.
func Run(req Request) (*Report, error) {
	if err := ValidateThreshold(req.IoUThreshold); err != nil {
		return nil, err
	}

	normalizer := annotations.Normalizer{ClassNames: req.ClassNames}
	gts, gtDiags, err := normalizer.NormalizeGT(req.GTPayload, req.Format, req.Width, req.Height)
	if err != nil {
		return nil, fmt.Errorf("could not read GT file: %w", err)
	}

	detections, detDiags := annotations.NormalizeDetections(req.Detections)

	result, err := Compare(detections, gts, req.IoUThreshold)
	if err != nil {
		return nil, err
	}

	return &Report{
		Result:               result,
		GTDiagnostics:        nonNil(gtDiags),
		DetectionDiagnostics: nonNil(detDiags),
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

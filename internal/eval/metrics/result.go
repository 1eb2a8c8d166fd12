package metrics

import (
	"errors"
	"fmt"

	"github.com/lehigh-university-libraries/detreview/internal/matching"
)

// ErrInvariantViolation means the verdicts do not account for every detection
// and every ground-truth box exactly once. It indicates a matcher defect.
var ErrInvariantViolation = errors.New("verdicts violate the TP/FP/FN invariant")

// TruePositive is a detection assigned to a ground-truth box.
type TruePositive struct {
	DetectionID    string  `json:"detection_id" yaml:"detection_id"`
	DetectionIndex int     `json:"detection_index" yaml:"detection_index"`
	GTIndex        int     `json:"gt_index" yaml:"gt_index"`
	IoU            float64 `json:"iou" yaml:"iou"`
	ClassMatch     bool    `json:"class_match" yaml:"class_match"`
}

// FalsePositive is a detection no ground-truth box was assigned to.
type FalsePositive struct {
	DetectionID    string `json:"detection_id" yaml:"detection_id"`
	DetectionIndex int    `json:"detection_index" yaml:"detection_index"`
}

// FalseNegative is a ground-truth box no detection claimed.
type FalseNegative struct {
	GTIndex int `json:"gt_index" yaml:"gt_index"`
}

// Scores holds counts and the rates derived from them.
type Scores struct {
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
	F1        float64 `json:"f1" yaml:"f1"`
	TP        int     `json:"tp" yaml:"tp"`
	FP        int     `json:"fp" yaml:"fp"`
	FN        int     `json:"fn" yaml:"fn"`
}

// ComparisonResult is the outcome of scoring one detection set against one
// ground-truth set.
type ComparisonResult struct {
	GTCount        int             `json:"gt_count" yaml:"gt_count"`
	DetectionCount int             `json:"detection_count" yaml:"detection_count"`
	TP             []TruePositive  `json:"tp" yaml:"tp"`
	FP             []FalsePositive `json:"fp" yaml:"fp"`
	FN             []FalseNegative `json:"fn" yaml:"fn"`
	Metrics        Scores          `json:"metrics" yaml:"metrics"`

	// MeanIoU is the average IoU over true positives, 0 when there are none.
	MeanIoU float64 `json:"mean_iou" yaml:"mean_iou"`
	// ClassMismatches counts true positives whose class names disagree.
	ClassMismatches int `json:"class_mismatches" yaml:"class_mismatches"`
	// PerClass buckets TP and FN by ground-truth class and FP by detection class.
	PerClass map[string]Scores `json:"per_class" yaml:"per_class"`
}

// NewScores computes precision, recall and F1 from counts. Every rate with
// an empty denominator is 0, never NaN.
func NewScores(tp, fp, fn int) Scores {
	s := Scores{TP: tp, FP: fp, FN: fn}
	if tp+fp > 0 {
		s.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		s.Recall = float64(tp) / float64(tp+fn)
	}
	if s.Precision+s.Recall > 0 {
		s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
	}
	return s
}

// Aggregate partitions verdicts into TP/FP/FN and computes the metrics.
//
// It returns ErrInvariantViolation when a detection or ground-truth index is
// missing, repeated or out of range. The verdicts are never corrected.
func Aggregate(verdicts []matching.Verdict, gtCount, detectionCount int) (*ComparisonResult, error) {
	result := &ComparisonResult{
		GTCount:        gtCount,
		DetectionCount: detectionCount,
		TP:             []TruePositive{},
		FP:             []FalsePositive{},
		FN:             []FalseNegative{},
		PerClass:       map[string]Scores{},
	}

	detSeen := make([]int, detectionCount)
	gtSeen := make([]int, gtCount)
	var problems []string

	markDet := func(i int) {
		if i < 0 || i >= detectionCount {
			problems = append(problems, fmt.Sprintf("detection index %d out of range", i))
			return
		}
		detSeen[i]++
	}
	markGT := func(i int) {
		if i < 0 || i >= gtCount {
			problems = append(problems, fmt.Sprintf("gt index %d out of range", i))
			return
		}
		gtSeen[i]++
	}

	type counts struct{ tp, fp, fn int }
	perClass := map[string]*counts{}
	bucket := func(class string) *counts {
		c, ok := perClass[class]
		if !ok {
			c = &counts{}
			perClass[class] = c
		}
		return c
	}

	var iouSum float64
	for _, v := range verdicts {
		switch v.Kind {
		case matching.TruePositive:
			markDet(v.DetectionIndex)
			markGT(v.GTIndex)
			result.TP = append(result.TP, TruePositive{
				DetectionID:    v.DetectionID,
				DetectionIndex: v.DetectionIndex,
				GTIndex:        v.GTIndex,
				IoU:            v.IoU,
				ClassMatch:     v.ClassMatch,
			})
			iouSum += v.IoU
			if !v.ClassMatch {
				result.ClassMismatches++
			}
			bucket(v.GTClass).tp++
		case matching.FalsePositive:
			markDet(v.DetectionIndex)
			result.FP = append(result.FP, FalsePositive{
				DetectionID:    v.DetectionID,
				DetectionIndex: v.DetectionIndex,
			})
			bucket(v.DetectionClass).fp++
		case matching.FalseNegative:
			markGT(v.GTIndex)
			result.FN = append(result.FN, FalseNegative{GTIndex: v.GTIndex})
			bucket(v.GTClass).fn++
		default:
			problems = append(problems, fmt.Sprintf("unknown verdict kind %q", v.Kind))
		}
	}

	for i, n := range detSeen {
		if n != 1 {
			problems = append(problems, fmt.Sprintf("detection %d counted %d times", i, n))
		}
	}
	for i, n := range gtSeen {
		if n != 1 {
			problems = append(problems, fmt.Sprintf("gt %d counted %d times", i, n))
		}
	}
	if len(result.TP)+len(result.FP) != detectionCount || len(result.TP)+len(result.FN) != gtCount {
		problems = append(problems, fmt.Sprintf("tp=%d fp=%d fn=%d do not add up to %d detections and %d gt",
			len(result.TP), len(result.FP), len(result.FN), detectionCount, gtCount))
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvariantViolation, problems)
	}

	result.Metrics = NewScores(len(result.TP), len(result.FP), len(result.FN))
	if len(result.TP) > 0 {
		result.MeanIoU = iouSum / float64(len(result.TP))
	}
	for class, c := range perClass {
		result.PerClass[class] = NewScores(c.tp, c.fp, c.fn)
	}

	return result, nil
}

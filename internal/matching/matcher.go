// Package matching assigns detections to ground-truth boxes.
//
// Assignment is greedy by confidence: detections are visited from most to
// least confident and each one claims the best still-unclaimed ground-truth
// box whose IoU reaches the threshold. This is not a maximum-weight matching;
// a confident detection never loses its best box to a later one.
package matching

import (
	"sort"

	"github.com/lehigh-university-libraries/detreview/internal/annotations"
	"github.com/lehigh-university-libraries/detreview/internal/geometry"
)

// DefaultIoUThreshold is the IoU a detection needs to count as a hit.
const DefaultIoUThreshold = 0.5

// Kind is the bucket a verdict falls into.
type Kind string

const (
	TruePositive  Kind = "tp"
	FalsePositive Kind = "fp"
	FalseNegative Kind = "fn"
)

// Verdict is the outcome for one detection (TP or FP) or one unclaimed
// ground-truth box (FN). Index fields that do not apply are -1.
type Verdict struct {
	Kind           Kind    `json:"kind"`
	DetectionIndex int     `json:"detection_index"`
	DetectionID    string  `json:"detection_id,omitempty"`
	DetectionClass string  `json:"detection_class,omitempty"`
	Confidence     float64 `json:"confidence,omitempty"`
	GTIndex        int     `json:"gt_index"`
	GTClass        string  `json:"gt_class,omitempty"`
	IoU            float64 `json:"iou,omitempty"`
	// ClassMatch is advisory; it never moves a verdict between buckets.
	ClassMatch bool `json:"class_match,omitempty"`
}

// Match pairs detections with ground-truth labels. Detection and GT indices in
// the verdicts are positions in the given slices. Detections are reported in
// processing order, followed by false negatives in ascending GT order.
//
// Match is deterministic and runs in O(D*G).
func Match(detections []annotations.Detection, gts []annotations.GTLabel, iouThreshold float64) []Verdict {
	order := make([]int, len(detections))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return detections[order[a]].Confidence > detections[order[b]].Confidence
	})

	claimed := make([]bool, len(gts))
	verdicts := make([]Verdict, 0, len(detections)+len(gts))

	for _, di := range order {
		det := detections[di]

		best, bestIoU := -1, 0.0
		for gi, gt := range gts {
			if claimed[gi] {
				continue
			}
			iou := geometry.IoU(det.BBox, gt.BBox)
			// strict comparison keeps the lowest index on ties
			if best == -1 || iou > bestIoU {
				best, bestIoU = gi, iou
			}
		}

		if best == -1 || bestIoU < iouThreshold {
			verdicts = append(verdicts, Verdict{
				Kind:           FalsePositive,
				DetectionIndex: di,
				DetectionID:    det.ID,
				DetectionClass: det.ClassName,
				Confidence:     det.Confidence,
				GTIndex:        -1,
			})
			continue
		}

		claimed[best] = true
		gt := gts[best]
		verdicts = append(verdicts, Verdict{
			Kind:           TruePositive,
			DetectionIndex: di,
			DetectionID:    det.ID,
			DetectionClass: det.ClassName,
			Confidence:     det.Confidence,
			GTIndex:        best,
			GTClass:        gt.ClassName,
			IoU:            bestIoU,
			ClassMatch:     det.ClassName == gt.ClassName,
		})
	}

	for gi, gt := range gts {
		if claimed[gi] {
			continue
		}
		verdicts = append(verdicts, Verdict{
			Kind:           FalseNegative,
			DetectionIndex: -1,
			GTIndex:        gi,
			GTClass:        gt.ClassName,
		})
	}

	return verdicts
}

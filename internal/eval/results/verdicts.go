package results

import (
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/lehigh-university-libraries/detreview/internal/eval/metrics"
)

// VerdictRow is one TP, FP or FN in the flat Parquet export. Indices that
// do not apply are -1.
type VerdictRow struct {
	DrawingID      string  `parquet:"drawing_id"`
	Kind           string  `parquet:"kind"`
	DetectionID    string  `parquet:"detection_id"`
	DetectionIndex int     `parquet:"detection_index"`
	GTIndex        int     `parquet:"gt_index"`
	IoU            float64 `parquet:"iou"`
	ClassMatch     bool    `parquet:"class_match"`
}

// BuildVerdictRows flattens successful results, in result order and within
// each result TP, then FP, then FN
func BuildVerdictRows(results []metrics.EvaluationResult) []VerdictRow {
	var rows []VerdictRow
	for _, r := range results {
		if r.Result == nil {
			continue
		}
		for _, tp := range r.Result.TP {
			rows = append(rows, VerdictRow{
				DrawingID:      r.ID,
				Kind:           "tp",
				DetectionID:    tp.DetectionID,
				DetectionIndex: tp.DetectionIndex,
				GTIndex:        tp.GTIndex,
				IoU:            tp.IoU,
				ClassMatch:     tp.ClassMatch,
			})
		}
		for _, fp := range r.Result.FP {
			rows = append(rows, VerdictRow{
				DrawingID:      r.ID,
				Kind:           "fp",
				DetectionID:    fp.DetectionID,
				DetectionIndex: fp.DetectionIndex,
				GTIndex:        -1,
			})
		}
		for _, fn := range r.Result.FN {
			rows = append(rows, VerdictRow{
				DrawingID:      r.ID,
				Kind:           "fn",
				DetectionIndex: -1,
				GTIndex:        fn.GTIndex,
			})
		}
	}
	return rows
}

// SaveVerdictsParquet writes every verdict of results to path
func SaveVerdictsParquet(path string, results []metrics.EvaluationResult) error {
	rows := BuildVerdictRows(results)
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("failed to write verdicts parquet: %w", err)
	}
	return nil
}

// LoadVerdictsParquet reads rows written by SaveVerdictsParquet
func LoadVerdictsParquet(path string) ([]VerdictRow, error) {
	rows, err := parquet.ReadFile[VerdictRow](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read verdicts parquet: %w", err)
	}
	return rows, nil
}

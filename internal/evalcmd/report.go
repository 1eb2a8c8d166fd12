package evalcmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/lehigh-university-libraries/detreview/internal/eval/metrics"
)

func executeReport(w io.Writer, resultsDir, format string) error {
	results, err := metrics.LoadFromJSON(filepath.Join(resultsDir, ResultsFile))
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}

	switch format {
	case "text":
		return printTextReport(w, results)
	case "json":
		return printJSONReport(w, results)
	case "csv":
		return printCSVReport(w, results)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printTextReport(w io.Writer, results *metrics.AggregateResults) error {
	results.WriteSummary(w)
	fmt.Fprintln(w)
	results.WriteDetailedReport(w)
	return nil
}

func printJSONReport(w io.Writer, results *metrics.AggregateResults) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

func printCSVReport(w io.Writer, results *metrics.AggregateResults) error {
	writer := csv.NewWriter(w)

	header := []string{"id", "gt_format", "tp", "fp", "fn", "precision", "recall", "f1", "mean_iou", "class_mismatches", "diagnostics", "error"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, result := range results.Results {
		diagnostics := strconv.Itoa(len(result.GTDiagnostics) + len(result.DetectionDiagnostics))
		row := []string{result.ID, result.GTFormat}

		if r := result.Result; result.Error == "" && r != nil {
			row = append(row,
				strconv.Itoa(r.Metrics.TP),
				strconv.Itoa(r.Metrics.FP),
				strconv.Itoa(r.Metrics.FN),
				fmt.Sprintf("%.4f", r.Metrics.Precision),
				fmt.Sprintf("%.4f", r.Metrics.Recall),
				fmt.Sprintf("%.4f", r.Metrics.F1),
				fmt.Sprintf("%.4f", r.MeanIoU),
				strconv.Itoa(r.ClassMismatches),
				diagnostics,
				"",
			)
		} else {
			row = append(row, "", "", "", "", "", "", "", "", diagnostics, result.Error)
		}

		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

// EvaluationResult represents the outcome for a single drawing in a batch evaluation
type EvaluationResult struct {
	ID                   string            `json:"id"`
	ImageWidth           int               `json:"image_width"`
	ImageHeight          int               `json:"image_height"`
	GTFormat             string            `json:"gt_format"`
	Result               *ComparisonResult `json:"result,omitempty"`
	GTDiagnostics        []string          `json:"gt_diagnostics,omitempty"`
	DetectionDiagnostics []string          `json:"detection_diagnostics,omitempty"`
	ProcessingTime       time.Duration     `json:"processing_time"`
	Error                string            `json:"error,omitempty"` // If the comparison could not run
}

// AggregateResults represents aggregated evaluation metrics
type AggregateResults struct {
	TotalRecords int `json:"total_records"`
	SuccessCount int `json:"success_count"`
	FailureCount int `json:"failure_count"`

	// Micro scores sum TP/FP/FN over all drawings before computing rates
	Micro Scores `json:"micro"`

	// Macro scores average per-drawing rates
	MacroPrecision float64 `json:"macro_precision"`
	MacroRecall    float64 `json:"macro_recall"`
	MacroF1        float64 `json:"macro_f1"`

	MeanIoU         float64           `json:"mean_iou"`
	ClassMismatches int               `json:"class_mismatches"`
	PerClass        map[string]Scores `json:"per_class"`
	DiagnosticCount int               `json:"diagnostic_count"`

	// Timing
	AverageProcessingTime time.Duration `json:"average_processing_time"`
	TotalProcessingTime   time.Duration `json:"total_processing_time"`

	// Detailed results
	Results []EvaluationResult `json:"results"`

	// Metadata
	EvaluationDate time.Time `json:"evaluation_date"`
	Dataset        string    `json:"dataset"`
	IoUThreshold   float64   `json:"iou_threshold"`
}

// AggregateEvaluationResults aggregates multiple evaluation results
func AggregateEvaluationResults(results []EvaluationResult, dataset string, iouThreshold float64) *AggregateResults {
	agg := &AggregateResults{
		TotalRecords:   len(results),
		Results:        results,
		PerClass:       map[string]Scores{},
		EvaluationDate: time.Now(),
		Dataset:        dataset,
		IoUThreshold:   iouThreshold,
	}

	var precisions, recalls, f1s []float64
	var tp, fp, fn int
	var iouSum float64
	var totalDuration, successDuration time.Duration

	for _, result := range results {
		totalDuration += result.ProcessingTime
		agg.DiagnosticCount += len(result.GTDiagnostics) + len(result.DetectionDiagnostics)

		if result.Error != "" || result.Result == nil {
			agg.FailureCount++
			continue
		}

		agg.SuccessCount++
		successDuration += result.ProcessingTime

		r := result.Result
		tp += r.Metrics.TP
		fp += r.Metrics.FP
		fn += r.Metrics.FN
		iouSum += r.MeanIoU * float64(r.Metrics.TP)
		agg.ClassMismatches += r.ClassMismatches

		precisions = append(precisions, r.Metrics.Precision)
		recalls = append(recalls, r.Metrics.Recall)
		f1s = append(f1s, r.Metrics.F1)

		for class, s := range r.PerClass {
			agg.PerClass[class] = addScores(agg.PerClass[class], s)
		}
	}

	agg.Micro = NewScores(tp, fp, fn)
	agg.MacroPrecision = calculateAverage(precisions)
	agg.MacroRecall = calculateAverage(recalls)
	agg.MacroF1 = calculateAverage(f1s)
	if tp > 0 {
		agg.MeanIoU = iouSum / float64(tp)
	}
	if agg.SuccessCount > 0 {
		agg.AverageProcessingTime = successDuration / time.Duration(agg.SuccessCount)
	}
	agg.TotalProcessingTime = totalDuration

	return agg
}

// addScores sums the counts of a and b and recomputes the rates
func addScores(a, b Scores) Scores {
	return NewScores(a.TP+b.TP, a.FP+b.FP, a.FN+b.FN)
}

// calculateAverage calculates the average of a slice of scores
func calculateAverage(scores []float64) float64 {
	if len(scores) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, score := range scores {
		sum += score
	}

	return sum / float64(len(scores))
}

// WriteSummary writes a human-readable summary of the evaluation
func (a *AggregateResults) WriteSummary(w io.Writer) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 70))
	fmt.Fprintln(w, "DETECTION REVIEW EVALUATION SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "Evaluation Date: %s\n", a.EvaluationDate.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Dataset: %s\n", a.Dataset)
	fmt.Fprintf(w, "IoU Threshold: %.2f\n", a.IoUThreshold)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "PROCESSING STATISTICS")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	fmt.Fprintf(w, "Total Drawings: %d\n", a.TotalRecords)
	fmt.Fprintf(w, "Successful: %d (%.1f%%)\n", a.SuccessCount, percent(a.SuccessCount, a.TotalRecords))
	fmt.Fprintf(w, "Failed: %d (%.1f%%)\n", a.FailureCount, percent(a.FailureCount, a.TotalRecords))
	fmt.Fprintf(w, "Parse Diagnostics: %d\n", a.DiagnosticCount)
	fmt.Fprintf(w, "Average Processing Time: %s\n", a.AverageProcessingTime)
	fmt.Fprintf(w, "Total Processing Time: %s\n", a.TotalProcessingTime)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "PER-CLASS SCORES")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	classes := make([]string, 0, len(a.PerClass))
	for class := range a.PerClass {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	for _, class := range classes {
		printScores(w, class, a.PerClass[class])
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "OVERALL")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	printScores(w, "Micro", a.Micro)
	fmt.Fprintf(w, "  Macro Precision: %.3f  Macro Recall: %.3f  Macro F1: %.3f\n", a.MacroPrecision, a.MacroRecall, a.MacroF1)
	fmt.Fprintf(w, "  Mean IoU (TP): %.3f\n", a.MeanIoU)
	fmt.Fprintf(w, "  Class Mismatches: %d\n", a.ClassMismatches)
	fmt.Fprintln(w, strings.Repeat("=", 70))
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// printScores prints counts and rates for a single class
func printScores(w io.Writer, name string, s Scores) {
	fmt.Fprintf(w, "%s:\n", name)
	fmt.Fprintf(w, "  TP: %d  FP: %d  FN: %d\n", s.TP, s.FP, s.FN)
	fmt.Fprintf(w, "  Precision: %.3f  Recall: %.3f  F1: %.3f\n", s.Precision, s.Recall, s.F1)
}

// SaveToJSON saves the aggregate results to a JSON file
func (a *AggregateResults) SaveToJSON(filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(a); err != nil {
		return fmt.Errorf("failed to encode results to JSON: %w", err)
	}

	return nil
}

// LoadFromJSON reads aggregate results written by SaveToJSON
func LoadFromJSON(filepath string) (*AggregateResults, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}
	defer file.Close()

	var agg AggregateResults
	if err := json.NewDecoder(file).Decode(&agg); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}

	return &agg, nil
}

// SaveDetailedReport saves a detailed report with individual results
func (a *AggregateResults) SaveDetailedReport(filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	a.WriteDetailedReport(file)
	return nil
}

// WriteDetailedReport writes one section per drawing
func (a *AggregateResults) WriteDetailedReport(w io.Writer) {
	fmt.Fprintf(w, "DETECTION REVIEW DETAILED REPORT\n")
	fmt.Fprintf(w, "Generated: %s\n", a.EvaluationDate.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Dataset: %s, IoU Threshold: %.2f\n", a.Dataset, a.IoUThreshold)
	separator := strings.Repeat("=", 80)
	fmt.Fprintf(w, "%s\n\n", separator)

	dash := strings.Repeat("-", 80)
	for i, result := range a.Results {
		fmt.Fprintf(w, "DRAWING %d: %s\n", i+1, result.ID)
		fmt.Fprintf(w, "%s\n", dash)
		fmt.Fprintf(w, "Image Size: %dx%d\n", result.ImageWidth, result.ImageHeight)
		fmt.Fprintf(w, "GT Format: %s\n", result.GTFormat)
		fmt.Fprintf(w, "Processing Time: %s\n", result.ProcessingTime)

		for _, d := range result.GTDiagnostics {
			fmt.Fprintf(w, "GT diagnostic: %s\n", d)
		}
		for _, d := range result.DetectionDiagnostics {
			fmt.Fprintf(w, "Detection diagnostic: %s\n", d)
		}

		if result.Error != "" {
			fmt.Fprintf(w, "ERROR: %s\n", result.Error)
		} else if r := result.Result; r != nil {
			fmt.Fprintf(w, "\nGT boxes: %d, Detections: %d\n", r.GTCount, r.DetectionCount)
			fmt.Fprintf(w, "TP: %d  FP: %d  FN: %d\n", r.Metrics.TP, r.Metrics.FP, r.Metrics.FN)
			fmt.Fprintf(w, "Precision: %.3f  Recall: %.3f  F1: %.3f\n", r.Metrics.Precision, r.Metrics.Recall, r.Metrics.F1)

			for _, tp := range r.TP {
				mark := ""
				if !tp.ClassMatch {
					mark = " (class mismatch)"
				}
				fmt.Fprintf(w, "  TP  %s -> gt %d  IoU %.3f%s\n", tp.DetectionID, tp.GTIndex, tp.IoU, mark)
			}
			for _, fp := range r.FP {
				fmt.Fprintf(w, "  FP  %s\n", fp.DetectionID)
			}
			for _, fn := range r.FN {
				fmt.Fprintf(w, "  FN  gt %d\n", fn.GTIndex)
			}
		}

		fmt.Fprintf(w, "\n%s\n\n", separator)
	}
}

package evalcmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/detreview/internal/annotations"
	"github.com/lehigh-university-libraries/detreview/internal/eval/dataset"
	"github.com/lehigh-university-libraries/detreview/internal/eval/metrics"
	"github.com/lehigh-university-libraries/detreview/internal/eval/results"
	"github.com/lehigh-university-libraries/detreview/internal/review"
)

// Output file names inside the results directory
const (
	ResultsFile  = "results.json"
	ReportFile   = "report.txt"
	VerdictsFile = "verdicts.parquet"
)

// RunOptions configures a batch evaluation
type RunOptions struct {
	DatasetPath  string
	OutputDir    string
	Concurrency  int
	IoUThreshold float64
	Limit        int
}

// executeRun evaluates every manifest row and writes the result files
func executeRun(ctx context.Context, w io.Writer, opts RunOptions) (*metrics.AggregateResults, error) {
	if err := review.ValidateThreshold(opts.IoUThreshold); err != nil {
		return nil, err
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	slog.Info("Starting evaluation run", "dataset", opts.DatasetPath, "iou_threshold", opts.IoUThreshold, "concurrency", opts.Concurrency)

	rows, err := dataset.NewLoader(opts.DatasetPath).LoadSample(opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	slog.Info("Dataset loaded", "items", len(rows))

	evalResults, err := evaluateRows(ctx, rows, opts.IoUThreshold, opts.Concurrency)
	if err != nil {
		return nil, err
	}

	agg := metrics.AggregateEvaluationResults(evalResults, opts.DatasetPath, opts.IoUThreshold)

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	slog.Info("Saving results", "output", opts.OutputDir)
	if err := agg.SaveToJSON(filepath.Join(opts.OutputDir, ResultsFile)); err != nil {
		return nil, err
	}
	if err := agg.SaveDetailedReport(filepath.Join(opts.OutputDir, ReportFile)); err != nil {
		return nil, err
	}
	if err := results.SaveVerdictsParquet(filepath.Join(opts.OutputDir, VerdictsFile), evalResults); err != nil {
		return nil, err
	}
	yamlPath, err := results.SaveToYAML(opts.OutputDir, results.EvalConfig{
		DatasetPath:  opts.DatasetPath,
		IoUThreshold: opts.IoUThreshold,
		Concurrency:  opts.Concurrency,
	}, evalResults)
	if err != nil {
		return nil, err
	}

	agg.WriteSummary(w)

	fmt.Fprintf(w, "\nResults saved to: %s\n", opts.OutputDir)
	fmt.Fprintf(w, "Run record: %s\n", yamlPath)
	fmt.Fprintf(w, "\nGenerate a report with:\n")
	fmt.Fprintf(w, "  detreview eval report --results %s\n", opts.OutputDir)

	return agg, nil
}

// evaluateRows processes rows with at most concurrency workers. Results keep
// manifest order. Per-row failures are recorded on the row's result; only
// cancellation aborts the run.
func evaluateRows(ctx context.Context, rows []dataset.ManifestRow, threshold float64, concurrency int) ([]metrics.EvaluationResult, error) {
	out := make([]metrics.EvaluationResult, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, row := range rows {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slog.Debug("Processing item", "id", row.ID, "progress", fmt.Sprintf("%d/%d", i+1, len(rows)))
			out[i] = processRow(row, threshold)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluation interrupted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluation interrupted: %w", err)
	}

	return out, nil
}

// processRow reads the files of one manifest row and compares them
func processRow(row dataset.ManifestRow, threshold float64) (result metrics.EvaluationResult) {
	start := time.Now()
	result = metrics.EvaluationResult{
		ID:          row.ID,
		ImageWidth:  row.ImageWidth,
		ImageHeight: row.ImageHeight,
		GTFormat:    row.GTFormat,
	}
	defer func() {
		result.ProcessingTime = time.Since(start)
	}()

	report, detDiags, err := compareRow(row, threshold)
	if err != nil {
		result.Error = err.Error()
		slog.Warn("Evaluation failed", "id", row.ID, "err", err)
		return result
	}

	format, _ := row.Format()
	result.GTFormat = string(format)
	result.Result = report.Result
	result.GTDiagnostics = report.GTDiagnostics
	result.DetectionDiagnostics = append(detDiags, report.DetectionDiagnostics...)

	return result
}

func compareRow(row dataset.ManifestRow, threshold float64) (*review.Report, []string, error) {
	format, err := row.Format()
	if err != nil {
		return nil, nil, err
	}

	gt, err := os.ReadFile(row.GTPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read GT file: %w", err)
	}

	var raw []annotations.RawDetection
	var detDiags []string
	if row.DetectionsPath != "" {
		payload, err := os.ReadFile(row.DetectionsPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read detections file: %w", err)
		}
		raw, detDiags, err = annotations.ParseDetections(payload)
		if err != nil {
			return nil, nil, err
		}
	}

	var classNames []string
	if row.ClassesPath != "" {
		data, err := os.ReadFile(row.ClassesPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read classes file: %w", err)
		}
		classNames = annotations.ParseClassNames(data)
	}

	report, err := review.Run(review.Request{
		GTPayload:    gt,
		Format:       format,
		Width:        row.ImageWidth,
		Height:       row.ImageHeight,
		Detections:   raw,
		ClassNames:   classNames,
		IoUThreshold: threshold,
	})
	if err != nil {
		return nil, nil, err
	}

	return report, detDiags, nil
}

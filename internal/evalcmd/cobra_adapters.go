package evalcmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/detreview/internal/config"
)

// ConfigFunc returns the loaded configuration. Commands call it at run time,
// after the root command has read it.
type ConfigFunc func() *config.Config

// NewRunCmd creates the run command for batch evaluation of a manifest
func NewRunCmd(cfg ConfigFunc) *cobra.Command {
	var opts RunOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Score detections for every drawing in a dataset manifest",
		Long: `Evaluate detections against ground truth for every row of a manifest.

The manifest is a .jsonl, .json or .parquet file whose rows name an id, the
image size, a ground-truth file (YOLO .txt, Pascal VOC .xml or COCO .json) and
a detections file. Paths are relative to the manifest's directory.

Writes results.json, report.txt, verdicts.parquet and a YAML run record to the
output directory.`,
		Example: `  # Evaluate a manifest with the configured IoU threshold
  detreview eval run --dataset ./data/manifest.jsonl --output ./eval-out

  # Stricter matching, 8 workers, first 100 rows only
  detreview eval run --dataset ./data/manifest.parquet --output ./eval-out --iou 0.75 --concurrency 8 --limit 100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(opts.DatasetPath); err != nil {
				return fmt.Errorf("dataset file not found: %s", opts.DatasetPath)
			}

			c := cfg()
			if !cmd.Flags().Changed("iou") {
				opts.IoUThreshold = c.Matching.IoUThreshold
			}
			if !cmd.Flags().Changed("concurrency") {
				opts.Concurrency = c.Eval.Concurrency
			}

			_, err := executeRun(cmd.Context(), cmd.OutOrStdout(), opts)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.DatasetPath, "dataset", "", "Path to manifest file (.jsonl, .json or .parquet)")
	cmd.Flags().StringVar(&opts.OutputDir, "output", "eval_results", "Output directory for results")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 4, "Number of drawings evaluated in parallel")
	cmd.Flags().Float64Var(&opts.IoUThreshold, "iou", 0.5, "IoU threshold for a match")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Evaluate only the first N rows (0 for all)")

	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

// NewReportCmd creates the report command
func NewReportCmd() *cobra.Command {
	var resultsDir string
	var format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a report from a previous evaluation run",
		Example: `  detreview eval report --results ./eval-out
  detreview eval report --results ./eval-out --format csv > scores.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeReport(cmd.OutOrStdout(), resultsDir, format)
		},
	}

	cmd.Flags().StringVar(&resultsDir, "results", "", "Directory written by eval run")
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json, csv)")

	_ = cmd.MarkFlagRequired("results")

	return cmd
}

// NewInspectCmd creates the inspect command
func NewInspectCmd() *cobra.Command {
	var datasetPath string
	var limit int
	var interactive bool
	var showBoxes bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show how each manifest row's annotations parse",
		Long: `Inspect rows from a manifest without matching.

For every row the ground truth and detections are normalized and the box
counts and parse diagnostics are printed. Useful for finding broken label
files before a run.`,
		Example: `  # Inspect first 5 rows interactively
  detreview eval inspect --dataset ./data/manifest.jsonl --limit 5 --interactive

  # Print every normalized box
  detreview eval inspect --dataset ./data/manifest.jsonl --boxes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeInspect(cmd.Context(), cmd.OutOrStdout(), cmd.InOrStdin(), datasetPath, limit, interactive, showBoxes)
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "Path to manifest file (required)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of rows to inspect (0 for all)")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "Pause after each row (press Enter to continue)")
	cmd.Flags().BoolVar(&showBoxes, "boxes", false, "Print normalized boxes")

	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

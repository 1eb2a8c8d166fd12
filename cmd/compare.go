package cmd

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/detreview/internal/annotations"
	"github.com/lehigh-university-libraries/detreview/internal/config"
	"github.com/lehigh-university-libraries/detreview/internal/review"
)

type compareOptions struct {
	gtPath         string
	format         string
	detectionsPath string
	imagePath      string
	classesPath    string
	width          int
	height         int
	iou            float64
	output         string
}

func newCompareCmd(cfgFn func() *config.Config) *cobra.Command {
	opts := compareOptions{}

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare one detection file against one ground-truth file",
		Long: `Match detections to ground truth for a single drawing and print the
TP/FP/FN verdicts and precision, recall and F1.

The image size is needed to place YOLO boxes and clamp every box. Pass
--width/--height, or --image to read it from the image header.`,
		Example: `  # YOLO labels, size given explicitly
  detreview compare --gt drawing.txt --detections drawing.json --width 1280 --height 960

  # Pascal VOC labels, size read from the image, YAML output
  detreview compare --gt drawing.xml --detections drawing.json --image drawing.png --output yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("iou") {
				opts.iou = cfgFn().Matching.IoUThreshold
			}
			return runCompare(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.gtPath, "gt", "", "Ground-truth file (.txt, .xml or .json)")
	cmd.Flags().StringVar(&opts.format, "format", "", "Ground-truth format (yolo, voc, coco); defaults to the file extension")
	cmd.Flags().StringVar(&opts.detectionsPath, "detections", "", "Detections JSON file")
	cmd.Flags().StringVar(&opts.imagePath, "image", "", "Image the detections were computed on (for its size)")
	cmd.Flags().StringVar(&opts.classesPath, "classes", "", "YOLO class names, one per line")
	cmd.Flags().IntVar(&opts.width, "width", 0, "Image width in pixels")
	cmd.Flags().IntVar(&opts.height, "height", 0, "Image height in pixels")
	cmd.Flags().Float64Var(&opts.iou, "iou", 0.5, "IoU threshold for a match")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "Output format (text, json, yaml)")

	_ = cmd.MarkFlagRequired("gt")

	return cmd
}

func runCompare(w io.Writer, opts compareOptions) error {
	formatName := opts.format
	if formatName == "" {
		formatName = opts.gtPath
	}
	format, err := annotations.ParseFormat(formatName)
	if err != nil {
		return err
	}

	width, height := opts.width, opts.height
	if opts.imagePath != "" && (width == 0 || height == 0) {
		width, height, err = getImageDimensions(opts.imagePath)
		if err != nil {
			return fmt.Errorf("failed to read image size: %w", err)
		}
	}

	gt, err := os.ReadFile(opts.gtPath)
	if err != nil {
		return fmt.Errorf("failed to read GT file: %w", err)
	}

	var raw []annotations.RawDetection
	var parseDiags []string
	if opts.detectionsPath != "" {
		payload, err := os.ReadFile(opts.detectionsPath)
		if err != nil {
			return fmt.Errorf("failed to read detections file: %w", err)
		}
		raw, parseDiags, err = annotations.ParseDetections(payload)
		if err != nil {
			return err
		}
	}

	var classNames []string
	if opts.classesPath != "" {
		data, err := os.ReadFile(opts.classesPath)
		if err != nil {
			return fmt.Errorf("failed to read classes file: %w", err)
		}
		classNames = annotations.ParseClassNames(data)
	}

	report, err := review.Run(review.Request{
		GTPayload:    gt,
		Format:       format,
		Width:        width,
		Height:       height,
		Detections:   raw,
		ClassNames:   classNames,
		IoUThreshold: opts.iou,
	})
	if err != nil {
		return err
	}
	if len(parseDiags) > 0 {
		report.DetectionDiagnostics = append(parseDiags, report.DetectionDiagnostics...)
	}

	switch opts.output {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(report)
	case "text":
		printReport(w, report)
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", opts.output)
	}
}

func printReport(w io.Writer, report *review.Report) {
	r := report.Result
	fmt.Fprintf(w, "GT boxes: %d  Detections: %d\n", r.GTCount, r.DetectionCount)
	fmt.Fprintf(w, "TP: %d  FP: %d  FN: %d\n", r.Metrics.TP, r.Metrics.FP, r.Metrics.FN)
	fmt.Fprintf(w, "Precision: %.3f  Recall: %.3f  F1: %.3f  Mean IoU: %.3f\n", r.Metrics.Precision, r.Metrics.Recall, r.Metrics.F1, r.MeanIoU)

	if len(r.PerClass) > 0 {
		classes := make([]string, 0, len(r.PerClass))
		for class := range r.PerClass {
			classes = append(classes, class)
		}
		sort.Strings(classes)
		fmt.Fprintln(w, "\nPer class:")
		for _, class := range classes {
			s := r.PerClass[class]
			fmt.Fprintf(w, "  %-16s TP %d  FP %d  FN %d  P %.3f  R %.3f  F1 %.3f\n", class, s.TP, s.FP, s.FN, s.Precision, s.Recall, s.F1)
		}
	}

	fmt.Fprintln(w, "\nVerdicts:")
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

	if n := report.Diagnostics(); n > 0 {
		fmt.Fprintf(w, "\nDiagnostics (%d):\n", n)
		for _, d := range report.GTDiagnostics {
			fmt.Fprintf(w, "  gt: %s\n", d)
		}
		for _, d := range report.DetectionDiagnostics {
			fmt.Fprintf(w, "  detections: %s\n", d)
		}
	}
}

func getImageDimensions(imagePath string) (int, int, error) {
	file, err := os.Open(imagePath)
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()

	img, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, err
	}

	return img.Width, img.Height, nil
}

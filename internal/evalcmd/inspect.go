package evalcmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/detreview/internal/annotations"
	"github.com/lehigh-university-libraries/detreview/internal/eval/dataset"
)

// executeInspect prints what the normalizer makes of each manifest row
// without matching anything
func executeInspect(ctx context.Context, w io.Writer, in io.Reader, datasetPath string, limit int, interactive, showBoxes bool) error {
	rows, err := dataset.NewLoader(datasetPath).LoadSample(limit)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	fmt.Fprintf(w, "Loaded %d rows from %s\n", len(rows), datasetPath)
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w)

	reader := bufio.NewReader(in)

	for i, row := range rows {
		select {
		case <-ctx.Done():
			fmt.Fprintln(w, "\nInspection interrupted.")
			return nil
		default:
		}

		fmt.Fprintf(w, "ROW %d/%d: %s\n", i+1, len(rows), row.ID)
		fmt.Fprintln(w, strings.Repeat("-", 80))
		fmt.Fprintf(w, "Image Size:     %dx%d\n", row.ImageWidth, row.ImageHeight)
		fmt.Fprintf(w, "GT File:        %s\n", row.GTPath)
		fmt.Fprintf(w, "Detections:     %s\n", row.DetectionsPath)

		inspectGT(w, row, showBoxes)
		inspectDetections(w, row, showBoxes)

		fmt.Fprintln(w)

		if interactive {
			fmt.Fprint(w, "Press Enter to continue to next row (or Ctrl+C to quit)...")

			inputCh := make(chan struct{})
			go func() {
				_, _ = reader.ReadString('\n')
				close(inputCh)
			}()

			select {
			case <-ctx.Done():
				fmt.Fprintln(w, "\nInspection interrupted.")
				return nil
			case <-inputCh:
				fmt.Fprintln(w)
			}
		}
	}

	return nil
}

func inspectGT(w io.Writer, row dataset.ManifestRow, showBoxes bool) {
	format, err := row.Format()
	if err != nil {
		fmt.Fprintf(w, "GT:             %v\n", err)
		return
	}
	data, err := os.ReadFile(row.GTPath)
	if err != nil {
		fmt.Fprintf(w, "GT:             %v\n", err)
		return
	}

	var normalizer annotations.Normalizer
	if row.ClassesPath != "" {
		if classes, err := os.ReadFile(row.ClassesPath); err == nil {
			normalizer.ClassNames = annotations.ParseClassNames(classes)
		}
	}

	labels, diags, err := normalizer.NormalizeGT(data, format, row.ImageWidth, row.ImageHeight)
	if err != nil {
		fmt.Fprintf(w, "GT (%s):       %v\n", format, err)
		return
	}

	fmt.Fprintf(w, "GT (%s):       %d boxes, %d diagnostics\n", format, len(labels), len(diags))
	for _, d := range diags {
		fmt.Fprintf(w, "  ! %s\n", d)
	}
	if showBoxes {
		for _, l := range labels {
			fmt.Fprintf(w, "  [%d] %-12s (%.1f, %.1f, %.1f, %.1f)\n", l.Index, l.ClassName, l.BBox.X1, l.BBox.Y1, l.BBox.X2, l.BBox.Y2)
		}
	}
}

func inspectDetections(w io.Writer, row dataset.ManifestRow, showBoxes bool) {
	if row.DetectionsPath == "" {
		fmt.Fprintln(w, "Detections:     none")
		return
	}
	data, err := os.ReadFile(row.DetectionsPath)
	if err != nil {
		fmt.Fprintf(w, "Detections:     %v\n", err)
		return
	}

	raw, parseDiags, err := annotations.ParseDetections(data)
	if err != nil {
		fmt.Fprintf(w, "Detections:     %v\n", err)
		return
	}
	dets, diags := annotations.NormalizeDetections(raw)
	diags = append(parseDiags, diags...)

	fmt.Fprintf(w, "Detections:     %d boxes, %d diagnostics\n", len(dets), len(diags))
	for _, d := range diags {
		fmt.Fprintf(w, "  ! %s\n", d)
	}
	if showBoxes {
		for _, d := range dets {
			fmt.Fprintf(w, "  %-8s %-12s %.2f (%.1f, %.1f, %.1f, %.1f)\n", d.ID, d.ClassName, d.Confidence, d.BBox.X1, d.BBox.Y1, d.BBox.X2, d.BBox.Y2)
		}
	}
}

package dataset

import (
	"path/filepath"

	"github.com/lehigh-university-libraries/detreview/internal/annotations"
)

// ManifestRow describes one drawing in an evaluation dataset. Paths are
// relative to the manifest's directory unless absolute.
type ManifestRow struct {
	ID             string `json:"id" parquet:"id"`
	ImageWidth     int    `json:"image_width" parquet:"image_width"`
	ImageHeight    int    `json:"image_height" parquet:"image_height"`
	GTPath         string `json:"gt_path" parquet:"gt_path"`
	GTFormat       string `json:"gt_format,omitempty" parquet:"gt_format,optional"` // defaults to the gt_path extension
	DetectionsPath string `json:"detections_path" parquet:"detections_path"`
	ClassesPath    string `json:"classes_path,omitempty" parquet:"classes_path,optional"` // YOLO class names, one per line
}

// Format returns the ground-truth format of the row
func (r *ManifestRow) Format() (annotations.Format, error) {
	if r.GTFormat != "" {
		return annotations.ParseFormat(r.GTFormat)
	}
	return annotations.ParseFormat(r.GTPath)
}

// Resolve returns a copy of r with relative paths joined to dir
func (r ManifestRow) Resolve(dir string) ManifestRow {
	r.GTPath = resolvePath(dir, r.GTPath)
	r.DetectionsPath = resolvePath(dir, r.DetectionsPath)
	r.ClassesPath = resolvePath(dir, r.ClassesPath)
	return r
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Package annotations turns detector output and uploaded ground-truth files
// into canonical pixel-space records.
//
// Ground truth can arrive as YOLO text, Pascal VOC XML or COCO-style JSON.
// Malformed individual records are reported as diagnostics and skipped; only
// a payload that cannot be decoded as its declared container fails outright.
package annotations

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/detreview/internal/geometry"
)

var (
	// ErrUnsupportedFormat is returned for an unknown format tag.
	ErrUnsupportedFormat = errors.New("unsupported annotation format")

	// ErrUnreadablePayload is returned when the payload is not valid in its
	// declared container syntax.
	ErrUnreadablePayload = errors.New("could not read annotation payload")

	// ErrInvalidImageSize is returned when the image width or height is not positive.
	ErrInvalidImageSize = errors.New("image width and height must be positive")
)

// Format identifies a ground-truth encoding.
type Format string

const (
	FormatYOLO Format = "txt"
	FormatVOC  Format = "xml"
	FormatCOCO Format = "json"
)

// ParseFormat accepts a format tag ("txt"), a long name ("yolo") or a file
// name/extension ("labels.txt", ".txt").
func ParseFormat(s string) (Format, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if ext := filepath.Ext(v); ext != "" {
		v = ext
	}
	v = strings.TrimPrefix(v, ".")

	switch v {
	case "txt", "yolo":
		return FormatYOLO, nil
	case "xml", "voc", "pascal", "pascal-voc":
		return FormatVOC, nil
	case "json", "coco":
		return FormatCOCO, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// String returns the long name of the format.
func (f Format) String() string {
	switch f {
	case FormatYOLO:
		return "yolo"
	case FormatVOC:
		return "voc"
	case FormatCOCO:
		return "coco"
	default:
		return string(f)
	}
}

// GTLabel is one ground-truth annotation in pixel space.
type GTLabel struct {
	// Index is the label's position in the slice returned by NormalizeGT.
	Index        int           `json:"index" yaml:"index"`
	ClassName    string        `json:"class_name" yaml:"class_name"`
	BBox         geometry.Rect `json:"bbox" yaml:"bbox"`
	SourceFormat Format        `json:"source_format" yaml:"source_format"` // diagnostics only
}

// Detection is one canonical detector output record.
type Detection struct {
	ID         string        `json:"id" yaml:"id"`
	ClassName  string        `json:"class_name" yaml:"class_name"`
	Confidence float64       `json:"confidence" yaml:"confidence"`
	BBox       geometry.Rect `json:"bbox" yaml:"bbox"`
}

// RawDetection is a detection as received from the detector integration,
// before validation.
type RawDetection struct {
	ID         string        `json:"id,omitempty"`
	ClassName  string        `json:"class_name"`
	Confidence float64       `json:"confidence"`
	BBox       geometry.Rect `json:"bbox"`
}

// Raw converts a canonical detection back to its boundary form.
func (d Detection) Raw() RawDetection {
	return RawDetection(d)
}

package annotations

import "fmt"

// Normalizer converts ground-truth payloads into GTLabels.
// The zero value is ready to use.
type Normalizer struct {
	// ClassNames maps YOLO class ids to names (the contents of a classes.txt).
	// When empty, YOLO class ids are used as class names.
	ClassNames []string
}

// NormalizeGT parses raw in the given format against an image of
// width x height pixels using a zero Normalizer.
func NormalizeGT(raw []byte, format Format, width, height int) ([]GTLabel, []string, error) {
	var n Normalizer
	return n.NormalizeGT(raw, format, width, height)
}

// NormalizeGT parses raw in the given format against an image of
// width x height pixels.
//
// Malformed records are skipped and described in the returned diagnostics.
// An error is returned only when the payload as a whole cannot be decoded.
//
// The caller must supply the dimensions of the image the detections were
// computed on. Wrong dimensions produce geometrically wrong boxes and cannot
// be detected here.
func (n *Normalizer) NormalizeGT(raw []byte, format Format, width, height int) ([]GTLabel, []string, error) {
	if width <= 0 || height <= 0 {
		return nil, nil, fmt.Errorf("%w: got %dx%d", ErrInvalidImageSize, width, height)
	}

	var (
		labels []GTLabel
		diags  []string
		err    error
	)

	switch format {
	case FormatYOLO:
		labels, diags, err = n.parseYOLO(raw, width, height)
	case FormatVOC:
		labels, diags, err = parseVOC(raw, width, height)
	case FormatCOCO:
		labels, diags, err = parseCOCO(raw, width, height)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(format))
	}
	if err != nil {
		return nil, nil, err
	}

	for i := range labels {
		labels[i].Index = i
		labels[i].SourceFormat = format
	}

	return labels, diags, nil
}

func unreadable(format Format, err error) error {
	return fmt.Errorf("%w as %s: %v", ErrUnreadablePayload, format, err)
}

package annotations

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/detreview/internal/geometry"
)

type vocAnnotation struct {
	XMLName  xml.Name    `xml:"annotation"`
	Filename string      `xml:"filename"`
	Size     vocSize     `xml:"size"`
	Objects  []vocObject `xml:"object"`
}

type vocSize struct {
	Width  string `xml:"width"`
	Height string `xml:"height"`
}

type vocObject struct {
	Name   string  `xml:"name"`
	BndBox *vocBox `xml:"bndbox"`
}

// Coordinates are kept as text so one bad object does not fail the document.
type vocBox struct {
	XMin string `xml:"xmin"`
	YMin string `xml:"ymin"`
	XMax string `xml:"xmax"`
	YMax string `xml:"ymax"`
}

// parseVOC reads a Pascal VOC annotation document with absolute pixel boxes.
func parseVOC(raw []byte, width, height int) ([]GTLabel, []string, error) {
	var doc vocAnnotation
	if err := xml.NewDecoder(bytes.NewReader(raw)).Decode(&doc); err != nil {
		return nil, nil, unreadable(FormatVOC, err)
	}

	var labels []GTLabel
	var diags []string

	if msg := checkVOCSize(doc.Size, width, height); msg != "" {
		diags = append(diags, msg)
	}

	for i, obj := range doc.Objects {
		label, err := parseVOCObject(obj, width, height)
		if err != nil {
			diags = append(diags, fmt.Sprintf("object %d: %v", i+1, err))
			continue
		}
		labels = append(labels, label)
	}

	return labels, diags, nil
}

func parseVOCObject(obj vocObject, width, height int) (GTLabel, error) {
	name := strings.TrimSpace(obj.Name)
	if name == "" {
		return GTLabel{}, fmt.Errorf("missing <name>")
	}
	if obj.BndBox == nil {
		return GTLabel{}, fmt.Errorf("missing <bndbox>")
	}

	coords := []struct {
		tag   string
		value string
	}{
		{"xmin", obj.BndBox.XMin},
		{"ymin", obj.BndBox.YMin},
		{"xmax", obj.BndBox.XMax},
		{"ymax", obj.BndBox.YMax},
	}

	var v [4]float64
	for i, c := range coords {
		s := strings.TrimSpace(c.value)
		if s == "" {
			return GTLabel{}, fmt.Errorf("missing <%s>", c.tag)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return GTLabel{}, fmt.Errorf("<%s> %q is not a finite number", c.tag, s)
		}
		v[i] = f
	}

	box := geometry.Rect{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}
	if !box.Valid() {
		return GTLabel{}, fmt.Errorf("inverted box (%g,%g,%g,%g)", box.X1, box.Y1, box.X2, box.Y2)
	}

	return GTLabel{
		ClassName: name,
		BBox:      box.Clamp(width, height),
	}, nil
}

// checkVOCSize warns when the document's <size> disagrees with the caller's
// image size. The caller's size is used either way.
func checkVOCSize(size vocSize, width, height int) string {
	w, errW := strconv.Atoi(strings.TrimSpace(size.Width))
	h, errH := strconv.Atoi(strings.TrimSpace(size.Height))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return ""
	}
	if w != width || h != height {
		return fmt.Sprintf("warning: document size %dx%d differs from image size %dx%d", w, h, width, height)
	}
	return ""
}

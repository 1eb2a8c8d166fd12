package annotations

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/lehigh-university-libraries/detreview/internal/geometry"
)

// parseYOLO reads "class_id cx cy w h" lines with coordinates normalized to [0,1].
func (n *Normalizer) parseYOLO(raw []byte, width, height int) ([]GTLabel, []string, error) {
	if !utf8.Valid(raw) {
		return nil, nil, unreadable(FormatYOLO, fmt.Errorf("payload is not UTF-8 text"))
	}

	var labels []GTLabel
	var diags []string

	for i, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		label, err := n.parseYOLOLine(line, width, height)
		if err != nil {
			diags = append(diags, fmt.Sprintf("line %d: %v", i+1, err))
			continue
		}
		labels = append(labels, label)
	}

	return labels, diags, nil
}

func (n *Normalizer) parseYOLOLine(line string, width, height int) (GTLabel, error) {
	fields := strings.Fields(line)
	if len(fields) != 5 {
		return GTLabel{}, fmt.Errorf("expected 5 fields, got %d", len(fields))
	}

	var values [5]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return GTLabel{}, fmt.Errorf("field %d: %q is not a finite number", i+1, f)
		}
		values[i] = v
	}

	classID := values[0]
	if classID < 0 || classID != math.Trunc(classID) {
		return GTLabel{}, fmt.Errorf("class id %q is not a non-negative integer", fields[0])
	}
	if classID > math.MaxInt32 {
		return GTLabel{}, fmt.Errorf("class id %q is too large", fields[0])
	}
	cx, cy, w, h := values[1], values[2], values[3], values[4]
	if w < 0 || h < 0 {
		return GTLabel{}, fmt.Errorf("negative box size %gx%g", w, h)
	}

	className, err := n.className(int(classID))
	if err != nil {
		return GTLabel{}, err
	}

	return GTLabel{
		ClassName: className,
		BBox:      geometry.FromCenter(cx, cy, w, h, width, height).Clamp(width, height),
	}, nil
}

func (n *Normalizer) className(id int) (string, error) {
	if len(n.ClassNames) == 0 {
		return strconv.Itoa(id), nil
	}
	if id < 0 || id >= len(n.ClassNames) {
		return "", fmt.Errorf("class id %d out of range for %d class names", id, len(n.ClassNames))
	}
	if n.ClassNames[id] == "" {
		return strconv.Itoa(id), nil
	}
	return n.ClassNames[id], nil
}

// ParseClassNames reads a YOLO classes.txt: one class name per line. Line n
// names class n-1, so blank lines inside the list keep their slot; trailing
// blank lines are dropped.
func ParseClassNames(raw []byte) []string {
	lines := strings.Split(string(raw), "\n")
	names := make([]string, len(lines))
	for i, line := range lines {
		names[i] = strings.TrimSpace(line)
	}
	for len(names) > 0 && names[len(names)-1] == "" {
		names = names[:len(names)-1]
	}
	if len(names) == 0 {
		return nil
	}
	return names
}

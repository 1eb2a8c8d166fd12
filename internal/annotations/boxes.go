package annotations

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/antonholmquist/jason"
	"github.com/lehigh-university-libraries/detreview/internal/geometry"
)

// arrayLayout says how a 4-element bbox array is read.
type arrayLayout int

const (
	layoutXYWH arrayLayout = iota // COCO: [x, y, width, height]
	layoutXYXY                    // detector output: [x1, y1, x2, y2]
)

// recordBox extracts a box from a loosely typed record. The box may be a
// "bbox" array, a "bbox" object, or fields on the record itself; objects are
// read as x1,y1,x2,y2 unless width/height are present.
func recordBox(obj *jason.Object, layout arrayLayout) (geometry.Rect, error) {
	v, err := obj.GetValue("bbox")
	if err != nil {
		return boxFromFields(obj)
	}

	if arr, err := v.Array(); err == nil {
		if len(arr) != 4 {
			return geometry.Rect{}, fmt.Errorf("bbox: expected 4 numbers, got %d", len(arr))
		}
		var n [4]float64
		for i, e := range arr {
			if n[i], err = number(e); err != nil {
				return geometry.Rect{}, fmt.Errorf("bbox[%d]: %v", i, err)
			}
		}
		if layout == layoutXYXY {
			return geometry.Rect{X1: n[0], Y1: n[1], X2: n[2], Y2: n[3]}, nil
		}
		if n[2] < 0 || n[3] < 0 {
			return geometry.Rect{}, fmt.Errorf("bbox: negative size %gx%g", n[2], n[3])
		}
		return geometry.FromXYWH(n[0], n[1], n[2], n[3]), nil
	}

	if inner, err := v.Object(); err == nil {
		box, err := boxFromFields(inner)
		if err != nil {
			return geometry.Rect{}, fmt.Errorf("bbox: %v", err)
		}
		return box, nil
	}

	return geometry.Rect{}, fmt.Errorf("bbox must be an array or an object")
}

func boxFromFields(obj *jason.Object) (geometry.Rect, error) {
	fields := obj.Map()
	_, hasW := fields["width"]
	_, hasH := fields["height"]

	if hasW || hasH {
		var n [4]float64
		for i, keys := range [][]string{{"x", "x1"}, {"y", "y1"}, {"width"}, {"height"}} {
			f, err := firstNumber(fields, keys...)
			if err != nil {
				return geometry.Rect{}, err
			}
			n[i] = f
		}
		if n[2] < 0 || n[3] < 0 {
			return geometry.Rect{}, fmt.Errorf("negative size %gx%g", n[2], n[3])
		}
		return geometry.FromXYWH(n[0], n[1], n[2], n[3]), nil
	}

	var n [4]float64
	for i, key := range []string{"x1", "y1", "x2", "y2"} {
		f, err := firstNumber(fields, key)
		if err != nil {
			return geometry.Rect{}, err
		}
		n[i] = f
	}
	return geometry.Rect{X1: n[0], Y1: n[1], X2: n[2], Y2: n[3]}, nil
}

func firstNumber(fields map[string]*jason.Value, keys ...string) (float64, error) {
	for _, key := range keys {
		if v, ok := fields[key]; ok {
			f, err := number(v)
			if err != nil {
				return 0, fmt.Errorf("%s: %v", key, err)
			}
			return f, nil
		}
	}
	return 0, fmt.Errorf("missing %s", strings.Join(keys, " or "))
}

// number accepts JSON numbers and numeric strings. Non-finite values are rejected.
func number(v *jason.Value) (float64, error) {
	f, err := v.Float64()
	if err != nil {
		s, serr := v.String()
		if serr != nil {
			return 0, fmt.Errorf("not a number")
		}
		f, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", s)
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return f, nil
}

// scalar renders a JSON string or number as text. ok is false for null,
// booleans, arrays and objects.
func scalar(v *jason.Value) (string, bool) {
	if s, err := v.String(); err == nil {
		return strings.TrimSpace(s), true
	}
	if n, err := v.Number(); err == nil {
		return n.String(), true
	}
	return "", false
}

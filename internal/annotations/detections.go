package annotations

import (
	"fmt"
	"math"
	"strings"

	"github.com/antonholmquist/jason"
)

var (
	detectionClassKeys      = []string{"class_name", "label", "class", "name"}
	detectionConfidenceKeys = []string{"confidence", "score", "conf"}
)

// NormalizeDetections validates detector output. Records with a non-finite or
// inverted box or a confidence outside [0,1] are dropped with a diagnostic.
// Records without an id get "det_<n>", n being the 1-based input position,
// moved past any id already present in the input. Repeated ids are kept with a
// warning since matching goes by position. Normalizing an already canonical
// list returns it unchanged.
func NormalizeDetections(raw []RawDetection) ([]Detection, []string) {
	taken := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		if r.ID != "" {
			taken[r.ID] = struct{}{}
		}
	}

	dets := make([]Detection, 0, len(raw))
	var diags []string
	seen := make(map[string]struct{}, len(raw))

	for i, r := range raw {
		d := Detection(r)
		if d.ID == "" {
			d.ID = freeID(taken, i+1)
		}

		if err := validateDetection(d); err != nil {
			diags = append(diags, fmt.Sprintf("detection %d (%s): %v", i+1, d.ID, err))
			continue
		}
		if _, dup := seen[d.ID]; dup {
			diags = append(diags, fmt.Sprintf("warning: detection %d: duplicate id %q", i+1, d.ID))
		}
		seen[d.ID] = struct{}{}

		dets = append(dets, d)
	}

	return dets, diags
}

// freeID returns the first "det_<n>" at or after n that is not taken, and
// marks it taken.
func freeID(taken map[string]struct{}, n int) string {
	for ; ; n++ {
		id := fmt.Sprintf("det_%d", n)
		if _, ok := taken[id]; !ok {
			taken[id] = struct{}{}
			return id
		}
	}
}

func validateDetection(d Detection) error {
	if !d.BBox.Valid() {
		return fmt.Errorf("invalid box (%g,%g,%g,%g)", d.BBox.X1, d.BBox.Y1, d.BBox.X2, d.BBox.Y2)
	}
	if math.IsNaN(d.Confidence) || d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence %g outside [0,1]", d.Confidence)
	}
	return nil
}

// ParseDetections decodes a loosely typed detection payload: either a bare
// array of records or an object with a "detections" array. Each record needs
// a class label, a confidence and a box; bbox arrays are read as
// [x1, y1, x2, y2]. Records that do not fit are reported and skipped.
//
// The returned records still need NormalizeDetections.
func ParseDetections(raw []byte) ([]RawDetection, []string, error) {
	root, err := jason.NewValueFromBytes(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%w as detections: %v", ErrUnreadablePayload, err)
	}

	records, err := root.Array()
	if err != nil {
		obj, oerr := root.Object()
		if oerr != nil {
			return nil, nil, fmt.Errorf("%w as detections: expected an array or an object", ErrUnreadablePayload)
		}
		records, err = obj.GetValueArray("detections")
		if err != nil {
			return nil, nil, fmt.Errorf("%w as detections: object has no \"detections\" array", ErrUnreadablePayload)
		}
	}

	out := make([]RawDetection, 0, len(records))
	var diags []string
	for i, rec := range records {
		d, err := parseDetectionRecord(rec)
		if err != nil {
			diags = append(diags, fmt.Sprintf("detection %d: %v", i+1, err))
			continue
		}
		out = append(out, d)
	}

	return out, diags, nil
}

func parseDetectionRecord(rec *jason.Value) (RawDetection, error) {
	obj, err := rec.Object()
	if err != nil {
		return RawDetection{}, fmt.Errorf("not an object")
	}
	fields := obj.Map()

	var d RawDetection
	if v, ok := fields["id"]; ok {
		if id, ok := scalar(v); ok {
			d.ID = id
		}
	}

	for _, key := range detectionClassKeys {
		if s, err := obj.GetString(key); err == nil {
			d.ClassName = strings.TrimSpace(s)
			break
		}
	}

	d.Confidence, err = firstNumber(fields, detectionConfidenceKeys...)
	if err != nil {
		return RawDetection{}, err
	}

	d.BBox, err = recordBox(obj, layoutXYXY)
	if err != nil {
		return RawDetection{}, err
	}

	return d, nil
}

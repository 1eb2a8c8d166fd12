package annotations

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/antonholmquist/jason"
)

// classKeys are tried in order for a record's class label.
var classKeys = []string{"class_name", "label", "category", "category_name", "name"}

// parseCOCO reads either a bare array of annotation records or a COCO
// dataset object with "annotations" and optional "categories".
func parseCOCO(raw []byte, width, height int) ([]GTLabel, []string, error) {
	root, err := jason.NewValueFromBytes(raw)
	if err != nil {
		return nil, nil, unreadable(FormatCOCO, err)
	}

	var (
		records    []*jason.Value
		categories map[int64]string
		diags      []string
	)

	if arr, err := root.Array(); err == nil {
		records = arr
	} else if obj, err := root.Object(); err == nil {
		records, err = obj.GetValueArray("annotations")
		if err != nil {
			return nil, nil, unreadable(FormatCOCO, fmt.Errorf("object has no \"annotations\" array"))
		}
		categories, diags = cocoCategories(obj)
		if msg := checkCOCOImages(records); msg != "" {
			diags = append(diags, msg)
		}
	} else {
		return nil, nil, unreadable(FormatCOCO, fmt.Errorf("expected an array or an object"))
	}

	var labels []GTLabel
	for i, rec := range records {
		label, err := parseCOCORecord(rec, categories, width, height)
		if err != nil {
			diags = append(diags, fmt.Sprintf("annotation %d: %v", i+1, err))
			continue
		}
		labels = append(labels, label)
	}

	return labels, diags, nil
}

func parseCOCORecord(rec *jason.Value, categories map[int64]string, width, height int) (GTLabel, error) {
	obj, err := rec.Object()
	if err != nil {
		return GTLabel{}, fmt.Errorf("not an object")
	}

	name, err := recordClass(obj, categories)
	if err != nil {
		return GTLabel{}, err
	}

	box, err := recordBox(obj, layoutXYWH)
	if err != nil {
		return GTLabel{}, err
	}
	if !box.Valid() {
		return GTLabel{}, fmt.Errorf("invalid box (%g,%g,%g,%g)", box.X1, box.Y1, box.X2, box.Y2)
	}

	return GTLabel{
		ClassName: name,
		BBox:      box.Clamp(width, height),
	}, nil
}

func recordClass(obj *jason.Object, categories map[int64]string) (string, error) {
	for _, key := range classKeys {
		if s, err := obj.GetString(key); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), nil
		}
	}

	if v, err := obj.GetValue("category_id"); err == nil {
		f, err := number(v)
		if err != nil {
			return "", fmt.Errorf("category_id: %v", err)
		}
		id := int64(f)
		if name, ok := categories[id]; ok {
			return name, nil
		}
		return strconv.FormatInt(id, 10), nil
	}

	return "", fmt.Errorf("missing class label (one of %s or category_id)", strings.Join(classKeys, ", "))
}

func cocoCategories(obj *jason.Object) (map[int64]string, []string) {
	cats, err := obj.GetObjectArray("categories")
	if err != nil {
		return nil, nil
	}

	var diags []string
	names := make(map[int64]string, len(cats))
	for i, c := range cats {
		idVal, err := c.GetValue("id")
		if err != nil {
			diags = append(diags, fmt.Sprintf("category %d: missing id", i+1))
			continue
		}
		id, err := number(idVal)
		if err != nil {
			diags = append(diags, fmt.Sprintf("category %d: id: %v", i+1, err))
			continue
		}
		name, err := c.GetString("name")
		if err != nil {
			diags = append(diags, fmt.Sprintf("category %d: missing name", i+1))
			continue
		}
		names[int64(id)] = name
	}
	return names, diags
}

// checkCOCOImages warns when annotations reference more than one image.
func checkCOCOImages(records []*jason.Value) string {
	seen := map[string]struct{}{}
	for _, rec := range records {
		obj, err := rec.Object()
		if err != nil {
			continue
		}
		if v, err := obj.GetValue("image_id"); err == nil {
			if id, ok := scalar(v); ok {
				seen[id] = struct{}{}
			}
		}
	}
	if len(seen) > 1 {
		return fmt.Sprintf("warning: annotations reference %d different images; all are compared against this image", len(seen))
	}
	return ""
}

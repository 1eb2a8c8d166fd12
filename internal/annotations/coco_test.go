package annotations

import (
	"testing"

	"github.com/lehigh-university-libraries/detreview/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCOCORecordArray(t *testing.T) {
	raw := `[
		{"class_name": "bolt", "bbox": [0, 0, 10, 10]},
		{"label": "nut", "bbox": {"x1": 50, "y1": 50, "x2": 60, "y2": 60}},
		{"category": "washer", "bbox": {"x": 20, "y": 30, "width": 5, "height": 6}},
		{"class_name": "pin", "x1": "1", "y1": "2", "x2": "3", "y2": "4"}
	]`

	labels, diags, err := NormalizeGT([]byte(raw), FormatCOCO, 100, 100)
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, labels, 4)

	assert.Equal(t, "bolt", labels[0].ClassName)
	assert.Equal(t, geometry.Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}, labels[0].BBox)
	assert.Equal(t, "nut", labels[1].ClassName)
	assert.Equal(t, geometry.Rect{X1: 50, Y1: 50, X2: 60, Y2: 60}, labels[1].BBox)
	assert.Equal(t, "washer", labels[2].ClassName)
	assert.Equal(t, geometry.Rect{X1: 20, Y1: 30, X2: 25, Y2: 36}, labels[2].BBox)
	assert.Equal(t, "pin", labels[3].ClassName)
	assert.Equal(t, geometry.Rect{X1: 1, Y1: 2, X2: 3, Y2: 4}, labels[3].BBox)

	for i, l := range labels {
		assert.Equal(t, i, l.Index)
		assert.Equal(t, FormatCOCO, l.SourceFormat)
	}
}

func TestNormalizeCOCODataset(t *testing.T) {
	raw := `{
		"images": [{"id": 1, "width": 100, "height": 100}],
		"categories": [{"id": 1, "name": "bolt"}, {"id": 2, "name": "nut"}],
		"annotations": [
			{"id": 10, "image_id": 1, "category_id": 1, "bbox": [0, 0, 10, 10]},
			{"id": 11, "image_id": 1, "category_id": 2, "bbox": [90, 90, 20, 20]},
			{"id": 12, "image_id": 1, "category_id": 7, "bbox": [5, 5, 1, 1]}
		]
	}`

	labels, diags, err := NormalizeGT([]byte(raw), FormatCOCO, 100, 100)
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, labels, 3)
	assert.Equal(t, "bolt", labels[0].ClassName)
	assert.Equal(t, "nut", labels[1].ClassName)
	assert.Equal(t, geometry.Rect{X1: 90, Y1: 90, X2: 100, Y2: 100}, labels[1].BBox)
	assert.Equal(t, "7", labels[2].ClassName, "unknown category ids fall back to the id")
}

func TestNormalizeCOCORecoverableErrors(t *testing.T) {
	raw := `[
		{"bbox": [0, 0, 1, 1]},
		{"class_name": "a"},
		{"class_name": "b", "bbox": [0, 0, 1]},
		{"class_name": "c", "bbox": [0, 0, -1, 1]},
		{"class_name": "d", "bbox": {"x1": 5, "y1": 0, "x2": 1, "y2": 1}},
		{"class_name": "e", "bbox": "0,0,1,1"},
		"not an object",
		{"class_name": "ok", "bbox": [1, 1, 1, 1]}
	]`

	labels, diags, err := NormalizeGT([]byte(raw), FormatCOCO, 10, 10)
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Equal(t, "ok", labels[0].ClassName)
	require.Len(t, diags, 7)
	assert.Contains(t, diags[0], "annotation 1: missing class label")
	assert.Contains(t, diags[1], "annotation 2: missing x1")
	assert.Contains(t, diags[2], "expected 4 numbers, got 3")
	assert.Contains(t, diags[3], "negative size")
	assert.Contains(t, diags[4], "invalid box")
	assert.Contains(t, diags[5], "array or an object")
	assert.Contains(t, diags[6], "not an object")
}

func TestNormalizeCOCOImageIDs(t *testing.T) {
	tests := []struct {
		name      string
		ids       [2]string
		wantDiags int
	}{
		{"same numeric id", [2]string{`1`, `1`}, 0},
		{"numeric and string ids", [2]string{`1`, `"2"`}, 1},
		{"different numeric ids", [2]string{`3`, `4`}, 1},
		{"null ids ignored", [2]string{`null`, `5`}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `{"annotations": [
				{"image_id": ` + tt.ids[0] + `, "label": "a", "bbox": [0, 0, 1, 1]},
				{"image_id": ` + tt.ids[1] + `, "label": "b", "bbox": [0, 0, 1, 1]}
			]}`
			labels, diags, err := NormalizeGT([]byte(raw), FormatCOCO, 10, 10)
			require.NoError(t, err)
			assert.Len(t, labels, 2)
			require.Len(t, diags, tt.wantDiags)
			if tt.wantDiags > 0 {
				assert.Contains(t, diags[0], "2 different images")
			}
		})
	}
}

func TestNormalizeCOCOFatal(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"syntax", `[{"label": "a", `},
		{"scalar", `42`},
		{"object without annotations", `{"images": []}`},
		{"empty", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NormalizeGT([]byte(tt.raw), FormatCOCO, 10, 10)
			assert.ErrorIs(t, err, ErrUnreadablePayload)
		})
	}
}

package annotations

import (
	"testing"

	"github.com/lehigh-university-libraries/detreview/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vocSample = `<?xml version="1.0"?>
<annotation>
  <filename>sheet-07.png</filename>
  <size><width>100</width><height>100</height><depth>3</depth></size>
  <object>
    <name>bolt</name>
    <bndbox><xmin>0</xmin><ymin>0</ymin><xmax>10</xmax><ymax>10</ymax></bndbox>
  </object>
  <object>
    <name>nut</name>
    <bndbox><xmin>50.5</xmin><ymin>50</ymin><xmax>160</xmax><ymax>60</ymax></bndbox>
  </object>
</annotation>`

func TestNormalizeVOC(t *testing.T) {
	labels, diags, err := NormalizeGT([]byte(vocSample), FormatVOC, 100, 100)
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, labels, 2)

	assert.Equal(t, "bolt", labels[0].ClassName)
	assert.Equal(t, geometry.Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}, labels[0].BBox)
	assert.Equal(t, FormatVOC, labels[0].SourceFormat)

	assert.Equal(t, "nut", labels[1].ClassName)
	assert.Equal(t, 1, labels[1].Index)
	assert.Equal(t, geometry.Rect{X1: 50.5, Y1: 50, X2: 100, Y2: 60}, labels[1].BBox, "xmax clamped to image width")
}

func TestNormalizeVOCRecoverableErrors(t *testing.T) {
	raw := `<annotation>
  <object><bndbox><xmin>0</xmin><ymin>0</ymin><xmax>1</xmax><ymax>1</ymax></bndbox></object>
  <object><name>a</name></object>
  <object><name>b</name><bndbox><xmin>x</xmin><ymin>0</ymin><xmax>1</xmax><ymax>1</ymax></bndbox></object>
  <object><name>c</name><bndbox><xmin>5</xmin><ymin>0</ymin><xmax>1</xmax><ymax>1</ymax></bndbox></object>
  <object><name>d</name><bndbox><xmin>0</xmin><ymin>0</ymin><xmax>1</xmax></bndbox></object>
  <object><name>ok</name><bndbox><xmin>1</xmin><ymin>1</ymin><xmax>2</xmax><ymax>2</ymax></bndbox></object>
</annotation>`

	labels, diags, err := NormalizeGT([]byte(raw), FormatVOC, 10, 10)
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Equal(t, "ok", labels[0].ClassName)
	assert.Equal(t, 0, labels[0].Index)

	require.Len(t, diags, 5)
	assert.Contains(t, diags[0], "object 1: missing <name>")
	assert.Contains(t, diags[1], "object 2: missing <bndbox>")
	assert.Contains(t, diags[2], "<xmin>")
	assert.Contains(t, diags[3], "inverted box")
	assert.Contains(t, diags[4], "missing <ymax>")
}

func TestNormalizeVOCSizeMismatchWarns(t *testing.T) {
	labels, diags, err := NormalizeGT([]byte(vocSample), FormatVOC, 200, 100)
	require.NoError(t, err)
	assert.Len(t, labels, 2)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0], "differs from image size")
}

func TestNormalizeVOCFatal(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"truncated", "<annotation><object><name>bolt</name>"},
		{"wrong root", "<labels><object/></labels>"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NormalizeGT([]byte(tt.raw), FormatVOC, 10, 10)
			assert.ErrorIs(t, err, ErrUnreadablePayload)
		})
	}
}

package annotations

import (
	"testing"

	"github.com/lehigh-university-libraries/detreview/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeYOLO(t *testing.T) {
	raw := []byte("0 0.5 0.5 0.2 0.4\n1 0.05 0.05 0.1 0.1\n")

	labels, diags, err := NormalizeGT(raw, FormatYOLO, 100, 200)
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, labels, 2)

	assert.Equal(t, 0, labels[0].Index)
	assert.Equal(t, "0", labels[0].ClassName)
	assert.Equal(t, FormatYOLO, labels[0].SourceFormat)
	assert.InDelta(t, 40.0, labels[0].BBox.X1, 1e-9)
	assert.InDelta(t, 60.0, labels[0].BBox.Y1, 1e-9)
	assert.InDelta(t, 60.0, labels[0].BBox.X2, 1e-9)
	assert.InDelta(t, 140.0, labels[0].BBox.Y2, 1e-9)

	assert.Equal(t, 1, labels[1].Index)
	assert.Equal(t, "1", labels[1].ClassName)
}

func TestNormalizeYOLOMalformedLine(t *testing.T) {
	raw := []byte("0 0.5 0.5 0.2 0.2\n1 0.5 0.5\n")

	labels, diags, err := NormalizeGT(raw, FormatYOLO, 100, 100)
	require.NoError(t, err)
	require.Len(t, labels, 1)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0], "line 2")
	assert.Contains(t, diags[0], "expected 5 fields, got 3")
}

func TestNormalizeYOLORecoverableErrors(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantMsg string
	}{
		{"non numeric", "0 0.5 abc 0.2 0.2", "not a finite number"},
		{"nan", "0 0.5 NaN 0.2 0.2", "not a finite number"},
		{"fractional class", "1.5 0.5 0.5 0.2 0.2", "non-negative integer"},
		{"negative class", "-1 0.5 0.5 0.2 0.2", "non-negative integer"},
		{"negative size", "0 0.5 0.5 -0.2 0.2", "negative box size"},
		{"too many fields", "0 0.5 0.5 0.2 0.2 0.9", "expected 5 fields, got 6"},
		{"huge class", "1e20 0.5 0.5 0.2 0.2", "too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels, diags, err := NormalizeGT([]byte(tt.line), FormatYOLO, 100, 100)
			require.NoError(t, err)
			assert.Empty(t, labels)
			require.Len(t, diags, 1)
			assert.Contains(t, diags[0], tt.wantMsg)
		})
	}
}

func TestNormalizeYOLOClampsToImage(t *testing.T) {
	labels, _, err := NormalizeGT([]byte("0 0.0 1.0 0.5 0.5"), FormatYOLO, 100, 100)
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Equal(t, geometry.Rect{X1: 0, Y1: 75, X2: 25, Y2: 100}, labels[0].BBox)
}

func TestNormalizeYOLOSkipsBlankAndComments(t *testing.T) {
	raw := []byte("# exported labels\n\n0 0.5 0.5 0.1 0.1\r\n   \n")
	labels, diags, err := NormalizeGT(raw, FormatYOLO, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Len(t, labels, 1)
}

func TestNormalizeYOLOEmptyFile(t *testing.T) {
	labels, diags, err := NormalizeGT(nil, FormatYOLO, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, labels)
	assert.Empty(t, diags)
}

func TestNormalizeYOLOBinaryPayload(t *testing.T) {
	_, _, err := NormalizeGT([]byte{0xff, 0xfe, 0x00, 0x31}, FormatYOLO, 10, 10)
	assert.ErrorIs(t, err, ErrUnreadablePayload)
}

func TestNormalizeYOLOClassNames(t *testing.T) {
	n := Normalizer{ClassNames: ParseClassNames([]byte("bolt\nnut\n\n"))}

	labels, diags, err := n.NormalizeGT([]byte("1 0.5 0.5 0.1 0.1\n2 0.5 0.5 0.1 0.1"), FormatYOLO, 10, 10)
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Equal(t, "nut", labels[0].ClassName)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0], "out of range")
}

func TestNormalizeYOLOHugeClassIDWithClassNames(t *testing.T) {
	n := Normalizer{ClassNames: []string{"bolt", "nut"}}

	labels, diags, err := n.NormalizeGT([]byte("1e20 0.5 0.5 0.1 0.1\n0 0.5 0.5 0.1 0.1"), FormatYOLO, 10, 10)
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Equal(t, "bolt", labels[0].ClassName)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0], "line 1: class id \"1e20\" is too large")
}

func TestParseClassNames(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"plain", "bolt\nnut", []string{"bolt", "nut"}},
		{"trailing blanks dropped", "bolt\nnut\n\n  \n", []string{"bolt", "nut"}},
		{"interior blank keeps its slot", "bolt\n\nwasher\n", []string{"bolt", "", "washer"}},
		{"crlf", "bolt\r\nnut\r\n", []string{"bolt", "nut"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseClassNames([]byte(tt.raw)))
		})
	}
}

func TestNormalizeYOLOBlankClassNameSlot(t *testing.T) {
	n := Normalizer{ClassNames: ParseClassNames([]byte("bolt\n\nwasher\n"))}

	labels, diags, err := n.NormalizeGT([]byte("2 0.5 0.5 0.1 0.1\n1 0.5 0.5 0.1 0.1"), FormatYOLO, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, labels, 2)
	assert.Equal(t, "washer", labels[0].ClassName)
	assert.Equal(t, "1", labels[1].ClassName)
}

package binspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaultsOnBareBin(t *testing.T) {
	got, err := Parse("bin")
	require.NoError(t, err)
	assert.Equal(t, Int32, got.PixelKind)
	assert.Equal(t, 2, got.HAxis)
}

func TestParsePixelKindLetter(t *testing.T) {
	for _, tc := range []struct {
		spec string
		want PixelKind
	}{
		{"bini", Int16},
		{"binj", Int32},
		{"binb", Byte},
		{"binr", Float32},
		{"bind", Float64},
	} {
		got, err := Parse(tc.spec)
		require.NoError(t, err, tc.spec)
		assert.Equal(t, tc.want, got.PixelKind, tc.spec)
	}
}

func TestParseMissingBinPrefixErrors(t *testing.T) {
	_, err := Parse("xyz")
	assert.ErrorIs(t, err, ErrBinSpec)
}

func TestParseAxisList(t *testing.T) {
	got, err := Parse("bin x,y")
	require.NoError(t, err)
	assert.Equal(t, 2, got.HAxis)
	assert.Equal(t, "x", got.Columns[0])
	assert.Equal(t, "y", got.Columns[1])
}

func TestParseColumnListWithRange(t *testing.T) {
	got, err := Parse("bin (x,y)=0:10:1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.HAxis)
	assert.Equal(t, "x", got.Columns[0])
	assert.Equal(t, "y", got.Columns[1])
	for i := 0; i < 2; i++ {
		assert.Equal(t, 0.0, got.Min[i])
		assert.Equal(t, 10.0, got.Max[i])
		assert.Equal(t, 1.0, got.BinSize[i])
	}
}

// This pins the exact token-grammar behavior: a range of the form
// ":10:1" (blank before the first colon) leaves Min undefined rather
// than defaulting it to zero, matching fits_get_token's "empty token"
// handling in the original source.
func TestParseColumnListBlankMinDefaultsToUndefined(t *testing.T) {
	got, err := Parse("bini (X,Y)=:10:1")
	require.NoError(t, err)
	assert.Equal(t, Int16, got.PixelKind)
	assert.Equal(t, 2, got.HAxis)
	assert.Equal(t, "X", got.Columns[0])
	assert.Equal(t, "Y", got.Columns[1])
	assert.Equal(t, Undefined, got.Min[0])
	assert.Equal(t, 10.0, got.Max[0])
	assert.Equal(t, 1.0, got.BinSize[0])
}

func TestParseWeightClause(t *testing.T) {
	got, err := Parse("bin x,y;5")
	require.NoError(t, err)
	assert.Equal(t, 5.0, got.Weight)
	assert.False(t, got.Reciprocal)
}

func TestParseWeightClauseReciprocal(t *testing.T) {
	got, err := Parse("bin x,y;/5")
	require.NoError(t, err)
	assert.Equal(t, 5.0, got.Weight)
	assert.True(t, got.Reciprocal)
}

func TestParseWeightClauseKeyword(t *testing.T) {
	got, err := Parse("bin x,y;EXPOSURE")
	require.NoError(t, err)
	assert.Equal(t, "EXPOSURE", got.WeightKw)
}

func TestParseSingleBareBinsizeDefaultsToXYAxes(t *testing.T) {
	got, err := Parse("bin 4")
	require.NoError(t, err)
	assert.Equal(t, 2, got.HAxis)
	assert.Equal(t, 4.0, got.BinSize[0])
	assert.Equal(t, 4.0, got.BinSize[1])
}

func TestParseTooManyColumnsErrors(t *testing.T) {
	_, err := Parse("bin a,b,c,d,e")
	assert.ErrorIs(t, err, ErrBinSpec)
}

func TestGetTokenBareDashIsZero(t *testing.T) {
	cursor := "-"
	token, isNumber := getToken(&cursor, " ,=:;")
	assert.Equal(t, "-", token)
	assert.True(t, isNumber)
	assert.Equal(t, 0.0, parseFloat(token))
}

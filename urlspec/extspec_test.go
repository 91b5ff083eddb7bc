package urlspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExtSpecIndexForm(t *testing.T) {
	got, err := ParseExtSpec("2")
	require.NoError(t, err)
	assert.True(t, got.IsIndex)
	assert.Equal(t, 2, got.Index)
}

func TestParseExtSpecIndexFormSkipsLeadingSpaces(t *testing.T) {
	got, err := ParseExtSpec("  3")
	require.NoError(t, err)
	assert.True(t, got.IsIndex)
	assert.Equal(t, 3, got.Index)
}

func TestParseExtSpecIndexOutOfRangeErrors(t *testing.T) {
	_, err := ParseExtSpec("10000")
	assert.ErrorIs(t, err, ErrURLParse)
}

func TestParseExtSpecBareNameForm(t *testing.T) {
	got, err := ParseExtSpec("EVENTS")
	require.NoError(t, err)
	assert.False(t, got.IsIndex)
	assert.Equal(t, "EVENTS", got.Name)
	assert.Equal(t, 0, got.Version)
	assert.Equal(t, AnyHDU, got.Kind)
}

func TestParseExtSpecNameWithVersion(t *testing.T) {
	got, err := ParseExtSpec("EVENTS,2")
	require.NoError(t, err)
	assert.Equal(t, "EVENTS", got.Name)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, AnyHDU, got.Kind)
}

func TestParseExtSpecNameVersionAndKind(t *testing.T) {
	got, err := ParseExtSpec("EVENTS,2,b")
	require.NoError(t, err)
	assert.Equal(t, "EVENTS", got.Name)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, BinaryTableHDU, got.Kind)
}

// A kind letter with no version requires a doubled delimiter (",," or
// "::") since a single delimiter after the name is always consumed by
// the version clause first.
func TestParseExtSpecNameKindWithoutVersion(t *testing.T) {
	got, err := ParseExtSpec("EVENTS,,b")
	require.NoError(t, err)
	assert.Equal(t, "EVENTS", got.Name)
	assert.Equal(t, 0, got.Version)
	assert.Equal(t, BinaryTableHDU, got.Kind)
}

func TestParseExtSpecKindLetters(t *testing.T) {
	for _, tc := range []struct {
		letter string
		want   HDUKind
	}{
		{"b", BinaryTableHDU},
		{"B", BinaryTableHDU},
		{"t", AsciiTableHDU},
		{"T", AsciiTableHDU},
		{"a", AsciiTableHDU},
		{"A", AsciiTableHDU},
		{"i", ImageHDU},
		{"I", ImageHDU},
	} {
		got, err := ParseExtSpec("EVENTS,," + tc.letter)
		require.NoError(t, err, tc.letter)
		assert.Equal(t, tc.want, got.Kind, tc.letter)
	}
}

func TestParseExtSpecEmptyErrors(t *testing.T) {
	_, err := ParseExtSpec("")
	assert.ErrorIs(t, err, ErrURLParse)

	_, err = ParseExtSpec("   ")
	assert.ErrorIs(t, err, ErrURLParse)
}

func TestParseExtSpecMissingNameErrors(t *testing.T) {
	_, err := ParseExtSpec(",")
	assert.ErrorIs(t, err, ErrURLParse)
}

func TestParseExtSpecMalformedVersionErrors(t *testing.T) {
	_, err := ParseExtSpec("EVENTS,abc")
	assert.ErrorIs(t, err, ErrURLParse)
}

func TestParseExtSpecUnknownKindLetterErrors(t *testing.T) {
	_, err := ParseExtSpec("EVENTS,,x")
	assert.ErrorIs(t, err, ErrURLParse)
}

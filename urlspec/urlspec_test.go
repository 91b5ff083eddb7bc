package urlspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInputPrefixes(t *testing.T) {
	for _, tc := range []struct {
		name, in, wantType, wantInfile string
	}{
		{"explicit file", "file://foo.fits", "file://", "foo.fits"},
		{"explicit http", "http://example.com/a.fits", "http://", "example.com/a.fits"},
		{"bare scheme token", "ftp:host/a.fits", "ftp://", "host/a.fits"},
		{"default to file", "plain.fits", "file://", "plain.fits"},
		{"leading dash is stdin", "-extra", "stdin://", "extra"},
		{"generic scheme detection", "custom://thing", "custom://", "thing"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseInput(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.wantType, got.URLType)
			assert.Equal(t, tc.wantInfile, got.InFile)
		})
	}
}

func TestParseInputEmpty(t *testing.T) {
	got, err := ParseInput("   ")
	require.NoError(t, err)
	assert.Equal(t, ParsedURL{}, got)
}

func TestParseInputOutfileParen(t *testing.T) {
	got, err := ParseInput("file://in.fits(out.fits)")
	require.NoError(t, err)
	assert.Equal(t, "in.fits", got.InFile)
	assert.Equal(t, "out.fits", got.OutFile)
}

func TestParseInputOutfileWildcard(t *testing.T) {
	got, err := ParseInput("file://dir/in.fits(*)")
	require.NoError(t, err)
	assert.Equal(t, "in.fits", got.OutFile)
}

func TestParseInputPlusExtensionShortcut(t *testing.T) {
	got, err := ParseInput("file://data.fits+2")
	require.NoError(t, err)
	assert.Equal(t, "data.fits", got.InFile)
	assert.Equal(t, "2", got.ExtSpec)
}

func TestParseInputPlusExtensionTooLongIsLiteral(t *testing.T) {
	// A run of 4+ digits is past the short-circuit window and is kept as
	// plain filename text, matching the original source's off-by-one
	// length check (see urlspec.go's comment on the quick length filter).
	got, err := ParseInput("file://data.fits+1234")
	require.NoError(t, err)
	assert.Equal(t, "data.fits+1234", got.InFile)
	assert.Equal(t, "", got.ExtSpec)
}

func TestParseInputBracketExtAndRowFilter(t *testing.T) {
	got, err := ParseInput("file://evt.fits[2][PHA>100]")
	require.NoError(t, err)
	assert.Equal(t, "2", got.ExtSpec)
	// RowFilter keeps its surrounding brackets; callers (e.g.
	// fitsfile's select_and_replace orchestration) trim them off.
	assert.Equal(t, "[pha>100]", got.RowFilter)
}

func TestParseInputBinAndColExtraction(t *testing.T) {
	got, err := ParseInput("file://evt.fits[1][X>0][bin x,y][col x;y]")
	require.NoError(t, err)
	assert.Equal(t, "1", got.ExtSpec)
	assert.Equal(t, "x,y", got.BinSpec)
	assert.Equal(t, "x;y", got.ColSpec)
	assert.Equal(t, "[x>0]", got.RowFilter)
}

func TestParseInputMissingCloseBracketErrors(t *testing.T) {
	_, err := ParseInput("file://evt.fits[1")
	assert.ErrorIs(t, err, ErrURLParse)
}

func TestParseInputMissingCloseParenErrors(t *testing.T) {
	_, err := ParseInput("file://evt.fits(out")
	assert.ErrorIs(t, err, ErrURLParse)
}

func TestParseOutputStdout(t *testing.T) {
	urltype, outfile, err := ParseOutput("-")
	require.NoError(t, err)
	assert.Equal(t, "stdout://", urltype)
	assert.Equal(t, "", outfile)
}

func TestParseOutputFile(t *testing.T) {
	// Create() strips a leading '!' clobber flag before calling
	// ParseOutput; ParseOutput itself only understands the prefix/path
	// grammar.
	urltype, outfile, err := ParseOutput("file://out.fits")
	require.NoError(t, err)
	assert.Equal(t, "file://", urltype)
	assert.Equal(t, "out.fits", outfile)
}

func TestParseRootStripsExtrasAndFilter(t *testing.T) {
	root, err := ParseRoot("file://evt.fits[1][X>0]")
	require.NoError(t, err)
	assert.Equal(t, "file://evt.fits", root)
}

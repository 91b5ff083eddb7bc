package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackendPrimaryHDU(t *testing.T) {
	m := NewMemoryBackend()
	require.NoError(t, m.LoadFirstRecord())

	typ, err := m.ReadPrimaryHDU()
	require.NoError(t, err)
	assert.Equal(t, ImageHDU, typ)
	assert.Equal(t, 1, m.CurrentHDUNumber())
}

func TestMemoryBackendMoveNamedHDU(t *testing.T) {
	m := NewMemoryBackend()
	require.NoError(t, m.CreateHDU())
	_, _, err := m.ParseTemplateCard("EXTNAME = SCIENCE")
	require.NoError(t, err)
	_, _, err = m.ParseTemplateCard("EXTVER = 2")
	require.NoError(t, err)

	typ, err := m.MoveNamedHDU(-1, "science", 2)
	require.NoError(t, err)
	assert.Equal(t, ImageHDU, typ)
	assert.Equal(t, 2, m.CurrentHDUNumber())

	_, err = m.MoveNamedHDU(-1, "missing", 0)
	assert.ErrorIs(t, err, ErrEndOfFile)
}

func TestMemoryBackendCopyAndSelectRows(t *testing.T) {
	src := NewMemoryBackend()
	src.active().rows = 10
	src.active().setKeyword(Card{Keyword: "NAXIS2", Value: "10"})

	dst := NewMemoryBackend()
	require.NoError(t, src.CopyHeader(dst))
	require.NoError(t, dst.SetNaxis2Zero())
	require.NoError(t, src.SelectRows(dst, "X > 0"))

	assert.Equal(t, 10, dst.active().rows)

	require.NoError(t, dst.SetNaxis2Zero())
	require.NoError(t, src.SelectRows(dst, ""))
	assert.Equal(t, 0, dst.active().rows)
}

func TestMemoryBackendMakeHistogram(t *testing.T) {
	src := NewMemoryBackend()
	dst := NewMemoryBackend()

	spec := HistogramSpec{HAxis: 2}
	require.NoError(t, src.MakeHistogram(dst, spec))

	c, ok := dst.active().keyword("NAXIS")
	require.True(t, ok)
	assert.Equal(t, "2", c.Value)
}

func TestMemoryBackendParseTemplateCardEnd(t *testing.T) {
	m := NewMemoryBackend()
	_, kind, err := m.ParseTemplateCard("END")
	require.NoError(t, err)
	assert.Equal(t, KeyEnd, kind)
}

package fitsfile

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfits/fitsfile/driver"
	"github.com/nfits/fitsfile/drivers"
	"github.com/nfits/fitsfile/format"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	reg := driver.NewRegistry()
	log := logrus.NewEntry(logrus.New())
	require.NoError(t, drivers.Init(reg, log, drivers.Options{}))
	return NewSession(reg, format.NewMemoryBackend, log)
}

func TestCreateThenCloseReleasesHandle(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	h, err := s.Create(ctx, "mem://scratch")
	require.NoError(t, err)
	require.NoError(t, s.Close(ctx, h))
	assert.False(t, h.sf.valid())
}

func TestReopenSharesSharedFileAndDefersTeardown(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	h1, err := s.Create(ctx, "mem://shared")
	require.NoError(t, err)

	h2, err := s.Reopen(h1)
	require.NoError(t, err)
	assert.Same(t, h1.sf, h2.sf)

	require.NoError(t, s.Close(ctx, h1))
	assert.True(t, h1.sf.valid(), "shared file must survive while h2 still references it")

	require.NoError(t, s.Close(ctx, h2))
	assert.False(t, h1.sf.valid())
}

func TestCreateFromTemplateReplaysTextTemplate(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	template := "TESTKEY = 42 / a test card\nEND\nOTHERKEY = 7\n"
	h, err := s.CreateFromTemplate(ctx, "mem://out", template)
	require.NoError(t, err)
	defer s.Close(ctx, h)

	assert.Equal(t, 1, h.hduPosition)
	mb := h.sf.backend.(*format.MemoryBackend)
	typ, err := mb.MoveAbsHDU(1)
	require.NoError(t, err)
	assert.Equal(t, format.ImageHDU, typ)

	// A second HDU should exist after the END marker.
	_, err = mb.MoveAbsHDU(2)
	assert.NoError(t, err)
}

func TestCreateFromTemplateCopiesAnotherFITSFile(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	tmpl, err := s.Create(ctx, "mem://template")
	require.NoError(t, err)
	_, _, tErr := tmpl.sf.backend.ParseTemplateCard("TEMPLATED = 1")
	require.NoError(t, tErr)
	require.NoError(t, s.Close(ctx, tmpl))

	// mem:// is a toy byte-buffer store: the handle layer's in-memory
	// HDU state is never serialized through it, so reopening by name
	// yields a fresh empty backend. This exercises the template-copy
	// control flow (open template, iterate its HDUs, copy headers,
	// reposition), not byte-level content persistence.
	h, err := s.CreateFromTemplate(ctx, "mem://out2", "mem://template")
	require.NoError(t, err)
	defer s.Close(ctx, h)
	assert.Equal(t, 1, h.hduPosition)
}

func TestOpenReuseDetection(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	h1, err := s.Create(ctx, "mem://reuse")
	require.NoError(t, err)
	defer s.Close(ctx, h1)

	// Opening the identical bare name (no row filter / bin / col / ext
	// extras on either side) must reuse the same SharedFile rather than
	// asking the driver for a second handle.
	h2, err := s.Open(ctx, "mem://reuse", ReadOnly)
	require.NoError(t, err)
	defer s.Close(ctx, h2)

	assert.Same(t, h1.sf, h2.sf)
}

func TestOpenMemoryStagesCallerBuffer(t *testing.T) {
	reg := driver.NewRegistry()
	log := logrus.NewEntry(logrus.New())
	require.NoError(t, drivers.Init(reg, log, drivers.Options{}))
	memDrv := drivers.NewMemDrivers(log)
	require.NoError(t, reg.Register(memDrv.MemKeep))
	s := NewSession(reg, format.NewMemoryBackend, log)

	var external []byte
	data := []byte{1, 2, 3, 4}
	h, err := s.OpenMemory(context.Background(), func(name string) {
		memDrv.StageBuffer(true, name, data, false, &external)
	}, ReadWrite)
	require.NoError(t, err)
	defer s.Close(context.Background(), h)

	assert.Equal(t, int64(len(data)), h.sf.filesize)
}

func TestApplyBinSpecAppendsHistogramHDU(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	tmpl, err := s.Create(ctx, "mem://binsrc")
	require.NoError(t, err)
	require.NoError(t, s.Close(ctx, tmpl))

	// "[0]" selects the primary HDU before the bin spec, matching the
	// grammar's requirement that a bin/col sub-specification always
	// follows an extension selector bracket.
	h, err := s.Open(ctx, "mem://binsrc[0][bin x,y]", ReadOnly)
	require.NoError(t, err)
	defer s.Close(ctx, h)

	// Binning replaces the handle's view entirely (ffhist: "this will
	// close the table that was used to create the histogram"), landing
	// on HDU 1 of a fresh scratch file, matching ExtensionOf's rule that
	// a binspec always resolves to HDU 1.
	assert.Equal(t, 1, h.hduPosition)
	mb := h.sf.backend.(*format.MemoryBackend)
	assert.Equal(t, 1, mb.CurrentHDUNumber())
}

func TestOpenReuseAfterBinSpecClearsStaleExtSpec(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	src, err := s.Create(ctx, "mem://binreuse")
	require.NoError(t, err)
	require.NoError(t, src.sf.backend.CreateHDU()) // HDU 2, selected below via "[1]"
	require.NoError(t, s.Close(ctx, src))

	url := "mem://binreuse[1][bin x,y]"
	h1, err := s.Open(ctx, url, ReadOnly)
	require.NoError(t, err)
	assert.Equal(t, 1, h1.hduPosition)

	// Reopening the identical URL must reuse the already-materialized
	// histogram: its stale "[1]" extension selector no longer resolves
	// (the result has only one HDU), so the reuse path must drop it
	// rather than fail trying to re-navigate.
	h2, err := s.Open(ctx, url, ReadOnly)
	require.NoError(t, err)
	defer s.Close(ctx, h2)
	assert.Same(t, h1.sf, h2.sf)
	assert.Equal(t, 1, h2.hduPosition)

	require.NoError(t, s.Close(ctx, h1))
}

package fitsfile

import (
	"context"

	"github.com/nfits/fitsfile/driver"
	"github.com/nfits/fitsfile/urlspec"
)

// Reopen allocates a new Handle sharing h's SharedFile, incrementing
// open_count and resetting the HDU position, without touching the
// driver handle.
func (s *Session) Reopen(h *Handle) (*Handle, error) {
	if !h.sf.valid() {
		return nil, newError(BadFilePtr, nil, "reopen of invalid handle")
	}
	h.sf.retain()
	return &Handle{sf: h.sf, hduPosition: 0}, nil
}

// OpenMemory mounts a caller-owned in-memory buffer at "memkeep://" via
// the staged-buffer mechanism the mem driver exposes, then proceeds
// through the same allocate/parse steps as Open from step 9 onward.
func (s *Session) OpenMemory(ctx context.Context, stage func(name string), mode WriteMode) (*Handle, error) {
	const name = "memkeep://"
	stage(name)

	drv, err := s.lookupDriver(ctx, "memkeep://")
	if err != nil {
		return nil, err
	}
	disp := driver.NewDispatch(drv)

	dh, err := disp.Open(ctx, name, mode)
	if err != nil {
		return nil, newError(FileNotOpened, err, "open_memory failed")
	}
	size, err := disp.Size(ctx, dh)
	if err != nil {
		disp.Close(ctx, dh)
		return nil, newError(FileNotOpened, err, "open_memory size failed")
	}

	sf := &SharedFile{
		validcode:   validMagic,
		drv:         drv,
		dh:          dh,
		filename:    name,
		filesize:    size,
		logfilesize: size,
		writemode:   mode,
		datastart:   undefined,
		openCount:   1,
		backend:     s.NewBackend(),
	}
	if err := sf.backend.LoadFirstRecord(); err != nil {
		disp.Close(ctx, dh)
		return nil, newError(FileNotOpened, err, "load first record failed")
	}
	if _, err := sf.backend.ReadPrimaryHDU(); err != nil {
		disp.Close(ctx, dh)
		return nil, newError(FileNotOpened, err, "failed to parse primary HDU from memory")
	}

	s.track(sf)
	return &Handle{sf: sf, hduPosition: 1}, nil
}

// Close implements §4.F's close: finalize, flush, decrement, and tear
// down the SharedFile only once open_count reaches zero.
func (s *Session) Close(ctx context.Context, h *Handle) error {
	if !h.sf.valid() {
		return newError(BadFilePtr, nil, "close of invalid handle")
	}

	if err := h.sf.backend.FinalizeHDU(); err != nil {
		return newError(FileNotClosed, err, "finalize failed")
	}

	disp := driver.NewDispatch(h.sf.drv)
	_ = disp.Flush(ctx, h.sf.dh)

	if !h.sf.release() {
		return nil
	}

	s.untrack(h.sf)
	closeErr := disp.Close(ctx, h.sf.dh)
	h.sf.poison()
	if closeErr != nil {
		return newError(FileNotClosed, closeErr, "driver close failed")
	}
	return nil
}

// Delete behaves like Close, additionally asking the driver to remove
// the underlying resource after the handle count reaches zero.
func (s *Session) Delete(ctx context.Context, h *Handle) error {
	parsed, err := urlspec.ParseInput(h.sf.filename)
	if err != nil {
		return newError(URLParseError, err, h.sf.filename)
	}

	sf := h.sf
	if err := s.Close(ctx, h); err != nil {
		return err
	}
	if sf.valid() {
		return nil // still referenced by another Handle; do not delete yet
	}

	disp := driver.NewDispatch(sf.drv)
	return disp.Remove(ctx, parsed.InFile)
}

// Truncate implements §4.F's truncate: flush then ask the driver to
// resize, silently succeeding when the driver does not support it.
func (s *Session) Truncate(ctx context.Context, h *Handle, newSize int64) error {
	if h.sf.writemode != ReadWrite {
		return newError(WriteError, nil, "truncate requires a read-write handle")
	}
	disp := driver.NewDispatch(h.sf.drv)
	if err := disp.Flush(ctx, h.sf.dh); err != nil {
		return newError(WriteError, err, "flush before truncate failed")
	}
	if err := disp.Truncate(ctx, h.sf.dh, newSize); err != nil {
		return newError(WriteError, err, "truncate failed")
	}
	// Dispatch.Truncate silently no-ops when the driver has no Ops.Truncate
	// (e.g. root://); bookkeeping must track that rather than claim a
	// resize that never happened.
	if h.sf.drv.Ops.Truncate != nil {
		h.sf.filesize = newSize
		h.sf.logfilesize = newSize
	}
	return nil
}

// Seek, Read, Write, Flush are the raw byte primitives of §4.G, routed
// straight through the driver dispatcher.
func (s *Session) Seek(ctx context.Context, h *Handle, offset int64) error {
	disp := driver.NewDispatch(h.sf.drv)
	return disp.Seek(ctx, h.sf.dh, offset)
}

func (s *Session) Read(ctx context.Context, h *Handle, buf []byte) error {
	disp := driver.NewDispatch(h.sf.drv)
	if err := disp.Read(ctx, h.sf.dh, buf); err != nil {
		return newError(ReadError, err, "read failed")
	}
	return nil
}

func (s *Session) Write(ctx context.Context, h *Handle, buf []byte) error {
	if h.sf.writemode != ReadWrite {
		return newError(WriteError, nil, "write requires a read-write handle")
	}
	disp := driver.NewDispatch(h.sf.drv)
	if err := disp.Write(ctx, h.sf.dh, buf); err != nil {
		return newError(WriteError, err, "write failed")
	}
	return nil
}

func (s *Session) Flush(ctx context.Context, h *Handle) error {
	disp := driver.NewDispatch(h.sf.drv)
	return disp.Flush(ctx, h.sf.dh)
}

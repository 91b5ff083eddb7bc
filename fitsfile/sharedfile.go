package fitsfile

import (
	"sync/atomic"

	"github.com/nfits/fitsfile/driver"
	"github.com/nfits/fitsfile/format"
)

// undefined mirrors the format library's UNDEFINED sentinel for offsets
// that have not yet been established.
const undefined = int64(-1)

const validMagic = 0x46495453 // "FITS" read as a validity token

// WriteMode selects read-only or read-write access, re-exported at the
// fitsfile boundary so callers never need to import package driver
// directly for this one enum.
type WriteMode = driver.RWMode

// Re-exported for callers.
const (
	ReadOnly  = driver.ReadOnly
	ReadWrite = driver.ReadWrite
)

// SharedFile is the open-file state a Handle refers to, reference
// counted across reopen/reuse so the underlying driver handle is
// closed exactly once. openCount and validcode are mutated through the
// atomic helpers below; datastart is written once at construction and
// never mutated afterward, so it needs no lock of its own.
type SharedFile struct {
	validcode int32 // validMagic while alive, 0 once poisoned

	driverIdx int
	drv       *driver.Driver
	dh        driver.Handle

	filename string // canonical, original URL this SharedFile was opened from

	filesize    int64
	logfilesize int64
	writemode   WriteMode
	datastart   int64

	openCount int32

	backend format.Backend
}

func (sf *SharedFile) valid() bool {
	return atomic.LoadInt32(&sf.validcode) == validMagic
}

func (sf *SharedFile) retain() {
	atomic.AddInt32(&sf.openCount, 1)
}

// release decrements the reference count and reports whether this call
// brought it to zero (the caller performing the final teardown).
func (sf *SharedFile) release() bool {
	return atomic.AddInt32(&sf.openCount, -1) == 0
}

func (sf *SharedFile) poison() {
	atomic.StoreInt32(&sf.validcode, 0)
}

// Handle is a user-visible cursor: a SharedFile plus its own HDU
// position, matching §3's "multiple Handles may share one SharedFile".
type Handle struct {
	sf          *SharedFile
	hduPosition int
}

// Filename returns the canonical URL this handle's SharedFile was
// opened from.
func (h *Handle) Filename() string {
	return h.sf.filename
}

// WriteMode reports whether the underlying SharedFile was opened
// read-write.
func (h *Handle) WriteMode() WriteMode {
	return h.sf.writemode
}

// Package driver implements the pluggable transport table: the ordered
// registry of named drivers keyed by URL prefix (§4.D) and the typed
// dispatcher that forwards lifecycle operations to a driver's optional
// operation set (§4.E), reporting a typed error when an operation is
// absent rather than panicking.
package driver

import (
	"context"
	"fmt"
)

// Handle is an opaque token minted by a driver and passed back on every
// subsequent call into that same driver. The dispatcher never interprets
// it.
type Handle int64

// RWMode selects read-only or read-write access on Open/Create.
type RWMode int

// Access modes, matching the format library's 0/1 convention.
const (
	ReadOnly RWMode = iota
	ReadWrite
)

func (m RWMode) String() string {
	if m == ReadWrite {
		return "rw"
	}
	return "ro"
}

// Ops is a driver's virtual table. Every field is optional; a nil field
// means the operation is unsupported and the dispatcher must report a
// typed error rather than invoke it. Mirrors cfileio.c's fitsdriver
// struct of function pointers.
type Ops struct {
	Init       func() error
	Shutdown   func() error
	SetOptions func(options int) error
	GetOptions func() (int, error)
	Version    func() (int, error)

	// CheckFile may rewrite urltype/infile/outfile in place (e.g. gzip
	// sniffing, HTTP HEAD probing) before Open is attempted.
	CheckFile func(ctx context.Context, urltype, infile, outfile *string) error

	Open     func(ctx context.Context, filename string, mode RWMode) (Handle, error)
	Create   func(ctx context.Context, filename string) (Handle, error)
	Truncate func(ctx context.Context, h Handle, newSize int64) error
	Close    func(ctx context.Context, h Handle) error
	Remove   func(ctx context.Context, filename string) error
	Size     func(ctx context.Context, h Handle) (int64, error)
	Flush    func(ctx context.Context, h Handle) error
	Seek     func(ctx context.Context, h Handle, offset int64) error
	Read     func(ctx context.Context, h Handle, buf []byte) error
	Write    func(ctx context.Context, h Handle, buf []byte) error
}

// Driver is a named transport registered against a URL prefix.
type Driver struct {
	Prefix string // e.g. "file://", must end in "://"
	Ops    Ops
}

// ErrorKind discriminates the typed error conditions the dispatcher and
// registry can produce, per §7.
type ErrorKind int

// Error kinds.
const (
	_ ErrorKind = iota
	FileNotOpened
	FileNotCreated
	FileNotClosed
	NoMatchingDriver
	TooManyDrivers
	BadURLPrefix
	WriteError
	ReadError
)

func (k ErrorKind) String() string {
	switch k {
	case FileNotOpened:
		return "FILE_NOT_OPENED"
	case FileNotCreated:
		return "FILE_NOT_CREATED"
	case FileNotClosed:
		return "FILE_NOT_CLOSED"
	case NoMatchingDriver:
		return "NO_MATCHING_DRIVER"
	case TooManyDrivers:
		return "TOO_MANY_DRIVERS"
	case BadURLPrefix:
		return "BAD_URL_PREFIX"
	case WriteError:
		return "WRITE_ERROR"
	case ReadError:
		return "READ_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Error is a typed dispatcher/registry failure.
type Error struct {
	Kind ErrorKind
	Op   string // the operation attempted, e.g. "open", "seek"
	Err  error  // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Op)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind ErrorKind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Package fitsfile implements the file-handle layer: SharedFile/Handle
// lifecycle, reuse-open detection, and the open-time orchestration that
// ties together the URL parser, driver dispatcher and the out-of-scope
// HDU/record collaborators behind a single Open/Create/Close surface.
package fitsfile

import "fmt"

// Kind discriminates the handle layer's own typed error conditions,
// layered on top of driver.ErrorKind and the urlspec/binspec parse
// errors it wraps.
type Kind int

// Error kinds, named to match the library's own vocabulary.
const (
	_ Kind = iota
	FileNotOpened
	FileNotCreated
	FileNotClosed
	URLParseError
	MemoryAllocation
	NullInputPtr
	BadFilePtr
	WriteError
	ReadError
)

func (k Kind) String() string {
	switch k {
	case FileNotOpened:
		return "FILE_NOT_OPENED"
	case FileNotCreated:
		return "FILE_NOT_CREATED"
	case FileNotClosed:
		return "FILE_NOT_CLOSED"
	case URLParseError:
		return "URL_PARSE_ERROR"
	case MemoryAllocation:
		return "MEMORY_ALLOCATION"
	case NullInputPtr:
		return "NULL_INPUT_PTR"
	case BadFilePtr:
		return "BAD_FILEPTR"
	case WriteError:
		return "WRITE_ERROR"
	case ReadError:
		return "READ_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Error is the handle layer's sticky, typed failure, carrying the
// multi-line diagnostic trail §7 calls the message stack.
type Error struct {
	Kind Kind
	Msgs []string
	Err  error
}

func (e *Error) Error() string {
	if len(e.Msgs) > 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msgs[len(e.Msgs)-1])
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, cause error, msgs ...string) *Error {
	return &Error{Kind: kind, Msgs: msgs, Err: cause}
}

// pushMsg appends operator-meaningful context to an existing Error,
// mirroring push_msg's diagnostic stack without introducing a global.
func pushMsg(err *Error, msg string) *Error {
	err.Msgs = append(err.Msgs, msg)
	return err
}

// Status is the sticky status object §7 describes: call sites chain
// five to ten operations back to back, and once one fails the rest are
// no-ops rather than needing an intermediate check after each step,
// mirroring cfileio.c's status-int parameter threaded through nearly
// every call.
type Status struct {
	err error
}

// Chain runs fn only while no error is sticky yet. Once set, further
// Chain calls return immediately without invoking fn.
func (s *Status) Chain(fn func() error) *Status {
	if s.err != nil {
		return s
	}
	if err := fn(); err != nil {
		s.err = err
	}
	return s
}

// Err reports the first error recorded by Chain, or nil if every
// chained step succeeded.
func (s *Status) Err() error { return s.err }

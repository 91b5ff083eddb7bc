// Package format defines the collaborator contract the handle layer
// drives but does not itself implement: record buffering, HDU parsing
// and navigation, row-filter evaluation, histogram generation and
// keyword-template replay (spec §1's explicitly out-of-scope
// operations). It also ships a minimal in-memory Backend sufficient to
// exercise that contract end to end without parsing the real binary
// table/image wire format, which stays out of scope.
package format

import (
	"errors"
	"io"
)

// ErrEndOfFile signals the expected terminal state when iterating HDUs,
// recovered locally by template replay and by copy-trailing-HDUs during
// row selection (§7).
var ErrEndOfFile = errors.New("end of file")

// ErrUnknownRecord signals that the opened stream does not look like a
// recognized file at all -- surfaced by Open as "not a recognized file".
var ErrUnknownRecord = errors.New("unknown record")

// HDUType distinguishes the three kinds of HDU content.
type HDUType int

// HDU types.
const (
	ImageHDU HDUType = iota
	AsciiTableHDU
	BinaryTableHDU
)

// Card is a single header keyword record.
type Card struct {
	Keyword string
	Value   string
	Comment string
}

// KeyType mirrors parse_template_card's classification of a raw template
// line; KeyEnd marks the boundary to a new HDU during template replay.
type KeyType int

const (
	KeyNormal KeyType = iota
	KeyEnd
)

// Backend is the record/HDU/row-filter/histogram collaborator surface
// the handle layer calls through. Each method corresponds to one of the
// operations spec.md §1 names as an external collaborator.
type Backend interface {
	// LoadFirstRecord reads the first record of the file into the
	// backend's internal buffer state (load_record).
	LoadFirstRecord() error

	// ReadPrimaryHDU parses the primary HDU header (read_hdu), returning
	// its type. Returns an error wrapping ErrUnknownRecord when the
	// stream is not recognizable at all.
	ReadPrimaryHDU() (HDUType, error)

	// MoveAbsHDU moves to the 1-based HDU number n (move_to_abs_hdu).
	MoveAbsHDU(n int) (HDUType, error)

	// MoveNamedHDU moves to the HDU matching name/version/kind
	// (move_to_named_hdu). kind < 0 means "any".
	MoveNamedHDU(kind int, name string, version int) (HDUType, error)

	// CurrentHDUNumber reports the 1-based position of the current HDU
	// (get_hdu_num).
	CurrentHDUNumber() int

	// CreateHDU appends a new, empty HDU after the current one
	// (create_hdu).
	CreateHDU() error

	// CopyHeader copies the current HDU's header cards into dst,
	// creating the destination HDU if necessary.
	CopyHeader(dst Backend) error

	// CopyHDUVerbatim copies the current HDU (header and data) into dst
	// as a new trailing HDU.
	CopyHDUVerbatim(dst Backend) error

	// SetNaxis2Zero rewrites the current HDU's NAXIS2 keyword to 0, used
	// by select_and_replace before row selection populates the scratch
	// copy.
	SetNaxis2Zero() error

	// RefreshHeader re-parses the header after a manual keyword edit.
	RefreshHeader() error

	// SelectRows evaluates a row-filter expression against src's current
	// HDU and writes matching rows into dst's current HDU
	// (select_rows).
	SelectRows(dst Backend, expr string) error

	// MakeHistogram bins the current HDU's rows into a new image HDU on
	// dst according to spec (make_histogram).
	MakeHistogram(dst Backend, spec HistogramSpec) error

	// ParseTemplateCard classifies one raw template line into a Card and
	// a KeyType (parse_template_card).
	ParseTemplateCard(line string) (Card, KeyType, error)

	// FinalizeHDU flushes any pending header/data state for the current
	// HDU (called by Close before the driver is released).
	FinalizeHDU() error
}

// HistogramSpec is the backend-facing projection of a binspec.BinSpec;
// the fitsfile package translates one into the other so format stays
// independent of the URL-grammar package.
type HistogramSpec struct {
	PixelKind  int
	HAxis      int
	Columns    [4]string
	Min, Max   [4]float64
	BinSize    [4]float64
	Weight     float64
	WeightName string
	Reciprocal bool
}

// RecordReaderAt is satisfied by any Backend that can also expose its
// underlying byte stream for raw seek/read/write passthrough, used by
// the handle layer's §4.G raw byte primitives.
type RecordReaderAt interface {
	io.ReaderAt
	io.WriterAt
}

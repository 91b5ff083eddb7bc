package format

import (
	"fmt"
	"strconv"
	"strings"
)

// hdu is one header/data unit in a MemoryBackend's in-memory stack.
// fresh marks an HDU that has never received a copied or replayed
// header, so the first copy into it overwrites in place instead of
// appending another HDU after it.
type hdu struct {
	typ   HDUType
	cards []Card
	rows  int
	fresh bool
}

func (h *hdu) keyword(name string) (Card, bool) {
	for _, c := range h.cards {
		if c.Keyword == name {
			return c, true
		}
	}
	return Card{}, false
}

func (h *hdu) setKeyword(c Card) {
	for i, existing := range h.cards {
		if existing.Keyword == c.Keyword {
			h.cards[i] = c
			return
		}
	}
	h.cards = append(h.cards, c)
}

// MemoryBackend is a minimal, wire-format-free stand-in for the real
// binary table/image parser: enough HDU bookkeeping (header cards,
// NAXIS2/row count, extension name/version lookup) to let the handle
// layer's open/move/select/histogram/template logic be exercised end to
// end without this module owning record-level decoding, which is
// explicitly out of scope.
type MemoryBackend struct {
	hdus    []*hdu
	current int // 0-based index into hdus
}

// NewMemoryBackend returns a backend with a single, empty primary HDU.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		hdus:    []*hdu{{typ: ImageHDU, fresh: true}},
		current: 0,
	}
}

func (m *MemoryBackend) LoadFirstRecord() error { return nil }

func (m *MemoryBackend) ReadPrimaryHDU() (HDUType, error) {
	if len(m.hdus) == 0 {
		return 0, fmt.Errorf("read primary hdu: %w", ErrUnknownRecord)
	}
	m.current = 0
	return m.hdus[0].typ, nil
}

func (m *MemoryBackend) MoveAbsHDU(n int) (HDUType, error) {
	if n < 1 || n > len(m.hdus) {
		return 0, fmt.Errorf("move to hdu %d: %w", n, ErrEndOfFile)
	}
	m.current = n - 1
	return m.hdus[m.current].typ, nil
}

func (m *MemoryBackend) MoveNamedHDU(kind int, name string, version int) (HDUType, error) {
	for i, h := range m.hdus {
		c, ok := h.keyword("EXTNAME")
		if !ok || !strings.EqualFold(strings.TrimSpace(c.Value), name) {
			continue
		}
		if version > 0 {
			if vc, ok := h.keyword("EXTVER"); !ok || vc.Value != strconv.Itoa(version) {
				continue
			}
		}
		if kind >= 0 && int(h.typ) != kind {
			continue
		}
		m.current = i
		return h.typ, nil
	}
	return 0, fmt.Errorf("move to hdu %q: %w", name, ErrEndOfFile)
}

func (m *MemoryBackend) CurrentHDUNumber() int { return m.current + 1 }

func (m *MemoryBackend) CreateHDU() error {
	m.hdus = append(m.hdus, &hdu{typ: ImageHDU, fresh: true})
	m.current = len(m.hdus) - 1
	return nil
}

func (m *MemoryBackend) active() *hdu { return m.hdus[m.current] }

// CopyHeader overwrites dst's current HDU if it is still fresh (the
// common case for the first HDU of a just-created file); otherwise it
// appends a new HDU, matching create_hdu's role in cfileio.c's
// template and row-selection paths.
func (m *MemoryBackend) CopyHeader(dst Backend) error {
	other, ok := dst.(*MemoryBackend)
	if !ok {
		return fmt.Errorf("copy header: incompatible backend")
	}
	if !other.active().fresh {
		if err := other.CreateHDU(); err != nil {
			return err
		}
	}
	src := m.active()
	target := other.active()
	target.typ = src.typ
	target.cards = append([]Card(nil), src.cards...)
	target.fresh = false
	return nil
}

func (m *MemoryBackend) CopyHDUVerbatim(dst Backend) error {
	other, ok := dst.(*MemoryBackend)
	if !ok {
		return fmt.Errorf("copy hdu: incompatible backend")
	}
	if err := m.CopyHeader(other); err != nil {
		return err
	}
	other.active().rows = m.active().rows
	return nil
}

func (m *MemoryBackend) SetNaxis2Zero() error {
	m.active().setKeyword(Card{Keyword: "NAXIS2", Value: "0"})
	m.active().rows = 0
	return nil
}

func (m *MemoryBackend) RefreshHeader() error { return nil }

// SelectRows is a deliberately simplified row filter: any non-empty
// expression keeps every row, matching the handle layer's need to
// exercise the select-and-replace control flow without this package
// owning an expression evaluator (out of scope per spec).
func (m *MemoryBackend) SelectRows(dst Backend, expr string) error {
	other, ok := dst.(*MemoryBackend)
	if !ok {
		return fmt.Errorf("select rows: incompatible backend")
	}
	src := m.active()
	target := other.active()
	if strings.TrimSpace(expr) == "" {
		target.rows = 0
	} else {
		target.rows = src.rows
	}
	target.setKeyword(Card{Keyword: "NAXIS2", Value: strconv.Itoa(target.rows)})
	return nil
}

// MakeHistogram writes a synthetic image HDU on dst sized by the bin
// spec's axis count, enough for the handle layer's Open-time binning
// step to exercise a real backend call. Like CopyHeader, it overwrites
// dst's current HDU if still fresh -- the usual case, since dst is a
// just-created scratch file -- so the histogram lands on HDU 1 rather
// than stacking behind an untouched empty primary HDU.
func (m *MemoryBackend) MakeHistogram(dst Backend, spec HistogramSpec) error {
	other, ok := dst.(*MemoryBackend)
	if !ok {
		return fmt.Errorf("make histogram: incompatible backend")
	}
	if !other.active().fresh {
		if err := other.CreateHDU(); err != nil {
			return err
		}
	}
	target := other.active()
	target.fresh = false
	target.typ = ImageHDU
	target.setKeyword(Card{Keyword: "NAXIS", Value: strconv.Itoa(spec.HAxis)})
	for i := 0; i < spec.HAxis; i++ {
		target.setKeyword(Card{Keyword: fmt.Sprintf("NAXIS%d", i+1), Value: "0"})
	}
	return nil
}

// ParseTemplateCard accepts cfitsio's simplified "KEYWORD = value /
// comment" template grammar plus a bare "END" line marking an HDU
// boundary.
func (m *MemoryBackend) ParseTemplateCard(line string) (Card, KeyType, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Card{}, KeyNormal, nil
	}
	if strings.EqualFold(trimmed, "END") {
		return Card{Keyword: "END"}, KeyEnd, nil
	}

	keyword := trimmed
	rest := ""
	if idx := strings.IndexByte(trimmed, '='); idx >= 0 {
		keyword = strings.TrimSpace(trimmed[:idx])
		rest = strings.TrimSpace(trimmed[idx+1:])
	}

	value := rest
	comment := ""
	if idx := strings.Index(rest, "/"); idx >= 0 {
		value = strings.TrimSpace(rest[:idx])
		comment = strings.TrimSpace(rest[idx+1:])
	}

	card := Card{Keyword: strings.ToUpper(keyword), Value: value, Comment: comment}
	m.active().setKeyword(card)
	return card, KeyNormal, nil
}

func (m *MemoryBackend) FinalizeHDU() error { return nil }

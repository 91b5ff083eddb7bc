package fitsfile

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/nfits/fitsfile/driver"
	"github.com/nfits/fitsfile/format"
	"github.com/nfits/fitsfile/urlspec"
)

// BackendFactory builds the HDU/record collaborator for a freshly
// opened SharedFile. Production callers supply one backed by the real
// wire-format parser; tests use format.NewMemoryBackend.
type BackendFactory func() format.Backend

// Session is the process-wide state the handle layer needs: the driver
// registry and the set of currently open SharedFiles, standing in for
// cfileio.c's global buffer-pool scan during reuse detection
// (current_file_of_buffer).
type Session struct {
	Registry *driver.Registry
	NewBackend BackendFactory
	Log      *logrus.Entry

	mu    sync.Mutex
	files []*SharedFile
}

// NewSession wires a registry and backend factory into a handle-layer
// session. Callers are expected to have already run drivers.Init (or
// their own equivalent) against reg before issuing any Open/Create.
func NewSession(reg *driver.Registry, newBackend BackendFactory, log *logrus.Entry) *Session {
	return &Session{Registry: reg, NewBackend: newBackend, Log: log}
}

func (s *Session) track(sf *SharedFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append(s.files, sf)
}

func (s *Session) untrack(sf *SharedFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.files {
		if f == sf {
			s.files = append(s.files[:i], s.files[i+1:]...)
			return
		}
	}
}

// findReusable implements §4.F step 5: scan every tracked SharedFile,
// re-parse its stored filename, and reuse on a urltype/infile match
// when the rowfilter/binspec/colspec/extspec agree per the (c1)/(c2)
// rule.
func (s *Session) findReusable(parsed urlspec.ParsedURL) *SharedFile {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sf := range s.files {
		if !sf.valid() {
			continue
		}
		other, err := urlspec.ParseInput(sf.filename)
		if err != nil {
			continue
		}
		if other.URLType != parsed.URLType || other.InFile != parsed.InFile {
			continue
		}

		neitherHasExtras := parsed.RowFilter == "" && parsed.BinSpec == "" && parsed.ColSpec == "" &&
			other.RowFilter == "" && other.BinSpec == "" && other.ColSpec == ""
		allMatch := parsed.RowFilter == other.RowFilter &&
			parsed.BinSpec == other.BinSpec &&
			parsed.ColSpec == other.ColSpec &&
			parsed.ExtSpec == other.ExtSpec

		if neitherHasExtras || allMatch {
			return sf
		}
	}
	return nil
}

func (s *Session) lookupDriver(ctx context.Context, urltype string) (*driver.Driver, error) {
	d, err := s.Registry.Lookup(urltype)
	if err != nil {
		return nil, newError(FileNotOpened, err, "no matching driver for "+urltype)
	}
	return d, nil
}

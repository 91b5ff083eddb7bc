package fitsfile

import (
	"context"
	"strings"

	"github.com/nfits/fitsfile/driver"
	"github.com/nfits/fitsfile/format"
	"github.com/nfits/fitsfile/urlspec"
)

// Create implements §4.F's create: parse the output grammar, honor a
// leading '!' clobber flag, drive the driver's create, and allocate a
// fresh, empty SharedFile.
func (s *Session) Create(ctx context.Context, name string) (*Handle, error) {
	trimmed := strings.TrimLeft(name, " ")
	clobber := false
	if strings.HasPrefix(trimmed, "!") {
		clobber = true
		trimmed = trimmed[1:]
	}

	urltype, outfile, err := urlspec.ParseOutput(trimmed)
	if err != nil {
		return nil, newError(URLParseError, err, trimmed)
	}

	drv, err := s.lookupDriver(ctx, urltype)
	if err != nil {
		return nil, err
	}
	disp := driver.NewDispatch(drv)

	if clobber {
		_ = disp.Remove(ctx, outfile) // not-found is not an error here
	}

	dh, err := disp.Create(ctx, outfile)
	if err != nil {
		return nil, newError(FileNotCreated, err, "create failed for "+outfile)
	}

	sf := &SharedFile{
		validcode:   validMagic,
		drv:         drv,
		dh:          dh,
		filename:    urltype + outfile,
		filesize:    0,
		logfilesize: 0,
		writemode:   ReadWrite,
		datastart:   undefined,
		openCount:   1,
		backend:     s.NewBackend(),
	}
	_ = sf.backend.LoadFirstRecord() // initialize first record; no EOF reporting on a fresh file

	s.track(sf)
	return &Handle{sf: sf, hduPosition: 1}, nil
}

// CreateFromTemplate implements §4.F's create_from_template: create the
// output file, then replay header cards from a template -- either
// another format file (copied HDU by HDU) or a plain-text card listing.
func (s *Session) CreateFromTemplate(ctx context.Context, name, template string) (*Handle, error) {
	h, err := s.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	if template == "" {
		return h, nil
	}

	if tmpl, err := s.Open(ctx, template, ReadOnly); err == nil {
		defer s.Close(ctx, tmpl)
		for n := 1; ; n++ {
			if _, err := tmpl.sf.backend.MoveAbsHDU(n); err != nil {
				break // END_OF_FILE is the expected terminal state, swallowed
			}
			if err := tmpl.sf.backend.CopyHeader(h.sf.backend); err != nil {
				return nil, newError(FileNotCreated, err, "could not copy template header")
			}
		}
		_, err := h.sf.backend.MoveAbsHDU(1)
		return h, err
	}

	return h, s.replayTextTemplate(h, template)
}

// replayTextTemplate reads template as a plain-text keyword listing,
// one card per line up to 160 bytes, and feeds each to the backend's
// template-card parser; a KeyEnd card marks an HDU boundary.
func (s *Session) replayTextTemplate(h *Handle, template string) error {
	lines := strings.Split(template, "\n")
	for _, raw := range lines {
		line := raw
		if len(line) > 160 {
			line = line[:160]
		}
		line = strings.TrimRight(line, "\r")

		_, kind, err := h.sf.backend.ParseTemplateCard(line)
		if err != nil {
			return newError(FileNotCreated, err, "could not parse template card: "+line)
		}
		if kind == format.KeyEnd {
			if err := h.sf.backend.CreateHDU(); err != nil {
				return newError(FileNotCreated, err, "could not create HDU from text template")
			}
		}
	}
	_, err := h.sf.backend.MoveAbsHDU(1)
	return err
}

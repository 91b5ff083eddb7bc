package fitsfile

import (
	"context"
	"fmt"
	"strings"

	"github.com/nfits/fitsfile/binspec"
	"github.com/nfits/fitsfile/driver"
	"github.com/nfits/fitsfile/format"
	"github.com/nfits/fitsfile/urlspec"
)

// Open implements §4.F's "open existing" algorithm: parse, attempt
// reuse, otherwise drive the registered driver through open/size,
// allocate a SharedFile, parse the primary HDU, then apply any
// extension move, row filter, and bin spec the URL named.
func (s *Session) Open(ctx context.Context, name string, mode WriteMode) (*Handle, error) {
	trimmed := strings.TrimLeft(name, " ")
	if trimmed == "" {
		return nil, newError(FileNotOpened, nil, "empty filename")
	}

	parsed, err := urlspec.ParseInput(trimmed)
	if err != nil {
		return nil, newError(URLParseError, err, trimmed)
	}

	if sf := s.findReusable(parsed); sf != nil {
		sf.retain()
		h := &Handle{sf: sf, hduPosition: 1}

		reuseSpec := parsed
		if stored, err := urlspec.ParseInput(sf.filename); err == nil && stored.BinSpec != "" {
			// The reused SharedFile is already-materialized histogram
			// output (§4.F step 13's ffhist note: binning replaces the
			// table with a single image HDU), so the original extension
			// selector no longer resolves against it.
			reuseSpec.ExtSpec = ""
		}
		if err := s.moveToExtension(h, reuseSpec); err != nil {
			return nil, err
		}
		return h, nil
	}

	urltype, infile, outfile := parsed.URLType, parsed.InFile, parsed.OutFile
	drv, err := s.lookupDriver(ctx, urltype)
	if err != nil {
		return nil, err
	}

	disp := driver.NewDispatch(drv)
	if drv.Ops.CheckFile != nil {
		if err := disp.CheckFile(ctx, &urltype, &infile, &outfile); err != nil {
			return nil, newError(FileNotOpened, err, "checkfile failed for "+trimmed)
		}
		if urltype != parsed.URLType {
			drv, err = s.lookupDriver(ctx, urltype)
			if err != nil {
				return nil, err
			}
			disp = driver.NewDispatch(drv)
		}
	}

	dh, err := disp.Open(ctx, infile, mode)
	if err != nil {
		return nil, newError(FileNotOpened, err, "open failed for "+infile)
	}

	size, err := disp.Size(ctx, dh)
	if err != nil {
		disp.Close(ctx, dh)
		return nil, newError(FileNotOpened, err, "size failed for "+infile)
	}

	sf := &SharedFile{
		validcode:   validMagic,
		drv:         drv,
		dh:          dh,
		filename:    trimmed,
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
		if isUnknownRecord(err) {
			return nil, newError(FileNotOpened, err, "not a recognized file: "+trimmed)
		}
		return nil, newError(FileNotOpened, err, "failed to parse primary HDU")
	}

	s.track(sf)
	h := &Handle{sf: sf, hduPosition: 1}

	if err := s.moveToExtension(h, parsed); err != nil {
		return nil, err
	}
	if err := s.applyRowFilter(ctx, h, parsed); err != nil {
		return nil, err
	}
	if err := s.applyBinSpec(ctx, h, parsed); err != nil {
		return nil, err
	}

	// Row selection and binning swap h.sf for a mem:// scratch file
	// created internally; restoring the caller-visible URL here keeps
	// findReusable's re-parse of a stored SharedFile's filename
	// accurate for the extspec/rowfilter/binspec it actually holds.
	h.sf.filename = trimmed

	return h, nil
}

func isUnknownRecord(err error) bool {
	return err != nil && (err == format.ErrUnknownRecord || fmtErrIs(err, format.ErrUnknownRecord))
}

func fmtErrIs(err, target error) bool {
	for err != nil {
		if err == target {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// moveToExtension implements §4.F step 11.
func (s *Session) moveToExtension(h *Handle, parsed urlspec.ParsedURL) error {
	if parsed.ExtSpec == "" {
		return nil
	}
	spec, err := urlspec.ParseExtSpec(parsed.ExtSpec)
	if err != nil {
		return newError(URLParseError, err, "bad extension spec: "+parsed.ExtSpec)
	}

	if spec.IsIndex {
		if _, err := h.sf.backend.MoveAbsHDU(spec.Index + 1); err != nil {
			return newError(FileNotOpened, err, fmt.Sprintf("could not move to HDU number %d", spec.Index+1))
		}
		h.hduPosition = spec.Index + 1
		return nil
	}

	if _, err := h.sf.backend.MoveNamedHDU(hduKindToInt(spec.Kind), spec.Name, spec.Version); err != nil {
		return newError(FileNotOpened, err, fmt.Sprintf("could not find extension %q version %d", spec.Name, spec.Version))
	}
	h.hduPosition = h.sf.backend.CurrentHDUNumber()
	return nil
}

func hduKindToInt(k urlspec.HDUKind) int {
	switch k {
	case urlspec.ImageHDU:
		return int(format.ImageHDU)
	case urlspec.AsciiTableHDU:
		return int(format.AsciiTableHDU)
	case urlspec.BinaryTableHDU:
		return int(format.BinaryTableHDU)
	default:
		return -1
	}
}

// applyRowFilter implements select_and_replace: build a mem:// scratch
// copy, evaluate the filter, swap the caller's Handle to point at it.
func (s *Session) applyRowFilter(ctx context.Context, h *Handle, parsed urlspec.ParsedURL) error {
	if parsed.RowFilter == "" {
		return nil
	}
	expr := strings.Trim(parsed.RowFilter, "[]")

	scratch, err := s.Create(ctx, "mem://")
	if err != nil {
		return newError(FileNotOpened, err, "could not create scratch file for row selection")
	}

	selectedHDU := h.hduPosition
	for n := 1; n < selectedHDU; n++ {
		if _, err := h.sf.backend.MoveAbsHDU(n); err != nil {
			break
		}
		if err := h.sf.backend.CopyHDUVerbatim(scratch.sf.backend); err != nil {
			return newError(FileNotOpened, err, "could not copy preceding HDU during row selection")
		}
	}

	var st Status
	st.Chain(func() error {
		_, err := h.sf.backend.MoveAbsHDU(selectedHDU)
		return err
	}).Chain(func() error {
		return h.sf.backend.CopyHeader(scratch.sf.backend)
	}).Chain(func() error {
		return scratch.sf.backend.SetNaxis2Zero()
	}).Chain(func() error {
		return scratch.sf.backend.RefreshHeader()
	}).Chain(func() error {
		return h.sf.backend.SelectRows(scratch.sf.backend, expr)
	})
	if err := st.Err(); err != nil {
		return newError(FileNotOpened, err, "row selection failed for "+expr)
	}

	for {
		next := h.hduPosition + 1
		if _, err := h.sf.backend.MoveAbsHDU(next); err != nil {
			break // END_OF_FILE is the expected terminal state, swallowed
		}
		h.hduPosition = next
		if err := h.sf.backend.CopyHDUVerbatim(scratch.sf.backend); err != nil {
			return newError(FileNotOpened, err, "could not copy trailing HDU during row selection")
		}
	}

	if err := s.Close(ctx, h); err != nil {
		return err
	}

	*h = *scratch
	if _, err := h.sf.backend.MoveAbsHDU(selectedHDU); err != nil {
		return newError(FileNotOpened, err, "could not reposition on selected extension after row selection")
	}
	h.hduPosition = selectedHDU
	return nil
}

// applyBinSpec implements §4.F step 13 (ffhist): create the histogram in
// a scratch file and open it as the current fptr, closing the table that
// was used to create it. Mirrors applyRowFilter's scratch-and-swap shape
// since both replace the caller's Handle with a freshly materialized
// mem:// result rather than mutating the source HDU in place.
func (s *Session) applyBinSpec(ctx context.Context, h *Handle, parsed urlspec.ParsedURL) error {
	if parsed.BinSpec == "" {
		return nil
	}
	spec, err := binspec.Parse(parsed.BinSpec)
	if err != nil {
		return newError(URLParseError, err, "bad bin spec: "+parsed.BinSpec)
	}

	hspec := format.HistogramSpec{
		PixelKind:  int(spec.PixelKind),
		HAxis:      spec.HAxis,
		Columns:    spec.Columns,
		Min:        spec.Min,
		Max:        spec.Max,
		BinSize:    spec.BinSize,
		Weight:     spec.Weight,
		WeightName: spec.WeightKw,
		Reciprocal: spec.Reciprocal,
	}

	scratch, err := s.Create(ctx, "mem://")
	if err != nil {
		return newError(FileNotOpened, err, "could not create scratch file for histogram")
	}

	if err := h.sf.backend.MakeHistogram(scratch.sf.backend, hspec); err != nil {
		s.Close(ctx, scratch)
		return newError(FileNotOpened, err, "histogram binning failed")
	}

	if err := s.Close(ctx, h); err != nil {
		return err
	}

	*h = *scratch
	h.hduPosition = h.sf.backend.CurrentHDUNumber()
	return nil
}

// ExtensionOf implements §4.F's extension_of: parse name, resolve to a
// 1-based HDU number without leaving a handle open, per the rules for
// binspec/index/named/absent.
func (s *Session) ExtensionOf(ctx context.Context, name string) (int, error) {
	parsed, err := urlspec.ParseInput(strings.TrimLeft(name, " "))
	if err != nil {
		return 0, newError(URLParseError, err, name)
	}

	if parsed.BinSpec != "" {
		return 1, nil
	}
	if parsed.ExtSpec == "" {
		return -99, nil
	}

	spec, err := urlspec.ParseExtSpec(parsed.ExtSpec)
	if err != nil {
		return 0, newError(URLParseError, err, parsed.ExtSpec)
	}
	if spec.IsIndex {
		return spec.Index + 1, nil
	}

	if parsed.URLType == "stdin://" {
		return 0, newError(URLParseError, nil, "named extension lookup forbidden on stdin://")
	}

	h, err := s.Open(ctx, name, ReadOnly)
	if err != nil {
		if ferr, ok := err.(*Error); ok {
			return 0, pushMsg(ferr, "extension_of: could not resolve named extension "+spec.Name)
		}
		return 0, err
	}
	defer s.Close(ctx, h)
	return h.hduPosition, nil
}

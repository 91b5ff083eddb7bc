package driver

import "context"

// Dispatch is a thin typed router over a single Driver's Ops. Handle-layer
// code calls through Dispatch rather than touching Ops directly so that
// an absent operation always surfaces as a typed Error instead of a nil
// function panic.
type Dispatch struct {
	D *Driver
}

// NewDispatch wraps a driver for typed forwarding.
func NewDispatch(d *Driver) Dispatch { return Dispatch{D: d} }

func (d Dispatch) CheckFile(ctx context.Context, urltype, infile, outfile *string) error {
	if d.D.Ops.CheckFile == nil {
		return nil // absence means "no rewrite", not an error
	}
	return d.D.Ops.CheckFile(ctx, urltype, infile, outfile)
}

func (d Dispatch) Open(ctx context.Context, filename string, mode RWMode) (Handle, error) {
	if d.D.Ops.Open == nil {
		return 0, newErr(FileNotOpened, "open", nil)
	}
	h, err := d.D.Ops.Open(ctx, filename, mode)
	if err != nil {
		return 0, newErr(FileNotOpened, "open", err)
	}
	return h, nil
}

func (d Dispatch) Create(ctx context.Context, filename string) (Handle, error) {
	if d.D.Ops.Create == nil {
		return 0, newErr(FileNotCreated, "create", nil)
	}
	h, err := d.D.Ops.Create(ctx, filename)
	if err != nil {
		return 0, newErr(FileNotCreated, "create", err)
	}
	return h, nil
}

// Truncate is a legitimately optional operation: absence is a silent
// success, per §4.F's Truncate algorithm.
func (d Dispatch) Truncate(ctx context.Context, h Handle, newSize int64) error {
	if d.D.Ops.Truncate == nil {
		return nil
	}
	return d.D.Ops.Truncate(ctx, h, newSize)
}

func (d Dispatch) Close(ctx context.Context, h Handle) error {
	if d.D.Ops.Close == nil {
		return newErr(FileNotClosed, "close", nil)
	}
	if err := d.D.Ops.Close(ctx, h); err != nil {
		return newErr(FileNotClosed, "close", err)
	}
	return nil
}

func (d Dispatch) Remove(ctx context.Context, filename string) error {
	if d.D.Ops.Remove == nil {
		return nil // drivers without delete support silently no-op
	}
	return d.D.Ops.Remove(ctx, filename)
}

func (d Dispatch) Size(ctx context.Context, h Handle) (int64, error) {
	if d.D.Ops.Size == nil {
		return 0, newErr(FileNotOpened, "size", nil)
	}
	return d.D.Ops.Size(ctx, h)
}

// Flush is legitimately optional; absence is a silent success.
func (d Dispatch) Flush(ctx context.Context, h Handle) error {
	if d.D.Ops.Flush == nil {
		return nil
	}
	return d.D.Ops.Flush(ctx, h)
}

func (d Dispatch) Seek(ctx context.Context, h Handle, offset int64) error {
	if d.D.Ops.Seek == nil {
		return newErr(FileNotOpened, "seek", nil)
	}
	return d.D.Ops.Seek(ctx, h, offset)
}

func (d Dispatch) Read(ctx context.Context, h Handle, buf []byte) error {
	if d.D.Ops.Read == nil {
		return newErr(FileNotOpened, "read", nil)
	}
	if err := d.D.Ops.Read(ctx, h, buf); err != nil {
		return newErr(ReadError, "read", err)
	}
	return nil
}

func (d Dispatch) Write(ctx context.Context, h Handle, buf []byte) error {
	if d.D.Ops.Write == nil {
		return newErr(FileNotOpened, "write", nil)
	}
	if err := d.D.Ops.Write(ctx, h, buf); err != nil {
		return newErr(WriteError, "write", err)
	}
	return nil
}

// Version reports the driver's version, defaulting to 0 when unsupported
// -- absence of this getter is never an error (cfileio.c's vtable carries
// it but no dispatcher table entry names it as a required operation).
func (d Dispatch) Version(ctx context.Context) (int, error) {
	if d.D.Ops.Version == nil {
		return 0, nil
	}
	return d.D.Ops.Version()
}

package drivers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"

	"github.com/nfits/fitsfile/driver"
)

// zstdMagic is the 4-byte frame magic klauspost/compress/zstd writes at
// the start of every stream, used by CheckFile to transparently rewrite
// a "file://" URL to "compress://" the way cfileio.c's checkfile hook
// sniffs gzip's 0x1f 0x8b magic before ffopen commits to a driver.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// compressBuffer decompresses an underlying driver's bytes into memory
// once on open and re-compresses the whole buffer back on close,
// mirroring the all-at-once in-memory transform backend/compress's
// zstdModeHandler performs around a chunked reader.
type compressBuffer struct {
	mu       sync.Mutex
	data     []byte
	pos      int64
	dirty    bool
	filename string
}

type compressOps struct {
	log         *logrus.Entry
	table       *handleTable
	under       *driver.Dispatch
	underPrefix string // the wrapped driver's own prefix, e.g. "file://"
}

// newCompressDriver wraps under (typically the file:// driver) behind
// "compress://", transparently zstd-decoding on read and re-encoding the
// full buffer on close.
func newCompressDriver(log *logrus.Entry, under *driver.Driver) *driver.Driver {
	return newCompressDriverWithPrefix(log, under, "compress://")
}

// newCompressDriverWithPrefix wraps under behind prefix, letting
// ftpcompress:// and httpcompress:// share this decode/encode logic
// over their respective transports the way cfileio.c layers the same
// compression shim on top of any of its network drivers.
func newCompressDriverWithPrefix(log *logrus.Entry, under *driver.Driver, prefix string) *driver.Driver {
	d := driver.NewDispatch(under)
	c := &compressOps{
		log:         log.WithField("driver", prefix),
		table:       newHandleTable(),
		under:       &d,
		underPrefix: under.Prefix,
	}
	return &driver.Driver{
		Prefix: prefix,
		Ops: driver.Ops{
			CheckFile: c.checkFile,
			Open:      c.open,
			Create:    c.create,
			Close:     c.close,
			Remove:    c.remove,
			Size:      c.size,
			Seek:      c.seek,
			Read:      c.read,
			Write:     c.write,
		},
	}
}

// checkFile sniffs the first bytes of infile through the wrapped driver
// and rewrites urltype to "compress://" when they match zstd's magic,
// the same transparent-prefix-rewrite role cfileio.c's checkfile gives
// each driver before ffopen commits.
func (c *compressOps) checkFile(ctx context.Context, urltype, infile, outfile *string) error {
	if *urltype != c.underPrefix {
		return nil
	}
	h, err := c.under.Open(ctx, *infile, driver.ReadOnly)
	if err != nil {
		return nil // unreadable is not this hook's problem to report
	}
	defer c.under.Close(ctx, h)

	head := make([]byte, 4)
	if err := c.under.Read(ctx, h, head); err != nil {
		return nil
	}
	if bytes.Equal(head, zstdMagic) {
		*urltype = "compress://"
	}
	return nil
}

func (c *compressOps) open(ctx context.Context, filename string, mode driver.RWMode) (driver.Handle, error) {
	uh, err := c.under.Open(ctx, filename, driver.ReadOnly)
	if err != nil {
		return 0, err
	}
	size, err := c.under.Size(ctx, uh)
	if err != nil {
		c.under.Close(ctx, uh)
		return 0, err
	}
	raw := make([]byte, size)
	if err := c.under.Read(ctx, uh, raw); err != nil {
		c.under.Close(ctx, uh)
		return 0, err
	}
	if err := c.under.Close(ctx, uh); err != nil {
		return 0, err
	}

	dec, err := zstd.NewReader(bytes.NewReader(raw))
	if err != nil {
		return 0, fmt.Errorf("compress: not a zstd stream: %w", err)
	}
	plain, err := io.ReadAll(dec)
	dec.Close()
	if err != nil {
		return 0, err
	}

	return c.table.put(&compressBuffer{data: plain, filename: filename}), nil
}

func (c *compressOps) create(ctx context.Context, filename string) (driver.Handle, error) {
	return c.table.put(&compressBuffer{filename: filename, dirty: true}), nil
}

func (c *compressOps) close(ctx context.Context, h driver.Handle) error {
	v, err := c.table.drop(h)
	if err != nil {
		return err
	}
	b := v.(*compressBuffer)
	if !b.dirty {
		return nil
	}

	var out bytes.Buffer
	enc, err := zstd.NewWriter(&out)
	if err != nil {
		return err
	}
	if _, err := enc.Write(b.data); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	uh, err := c.under.Create(ctx, b.filename)
	if err != nil {
		return err
	}
	if err := c.under.Write(ctx, uh, out.Bytes()); err != nil {
		c.under.Close(ctx, uh)
		return err
	}
	return c.under.Close(ctx, uh)
}

func (c *compressOps) remove(ctx context.Context, filename string) error {
	return c.under.Remove(ctx, filename)
}

func (c *compressOps) size(ctx context.Context, h driver.Handle) (int64, error) {
	b, err := c.buf(h)
	if err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.data)), nil
}

func (c *compressOps) seek(ctx context.Context, h driver.Handle, offset int64) error {
	b, err := c.buf(h)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pos = offset
	return nil
}

func (c *compressOps) read(ctx context.Context, h driver.Handle, out []byte) error {
	b, err := c.buf(h)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pos+int64(len(out)) > int64(len(b.data)) {
		return fmt.Errorf("compress: read past end of buffer")
	}
	n := copy(out, b.data[b.pos:])
	b.pos += int64(n)
	return nil
}

func (c *compressOps) write(ctx context.Context, h driver.Handle, in []byte) error {
	b, err := c.buf(h)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	end := b.pos + int64(len(in))
	if end > int64(len(b.data)) {
		b.data = append(b.data, make([]byte, end-int64(len(b.data)))...)
	}
	copy(b.data[b.pos:end], in)
	b.pos = end
	b.dirty = true
	return nil
}

func (c *compressOps) buf(h driver.Handle) (*compressBuffer, error) {
	v, err := c.table.lookup(h)
	if err != nil {
		return nil, err
	}
	return v.(*compressBuffer), nil
}

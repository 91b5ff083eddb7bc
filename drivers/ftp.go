package drivers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/sirupsen/logrus"

	"github.com/nfits/fitsfile/driver"
)

// ftpFileBuffer mirrors backend/ftp's read-whole-object-then-serve
// pattern for the simple case this module supports: the handle layer
// never does partial streaming reads mid-transfer, so one Retr/io.Copy
// per Open keeps the driver's state machine trivial.
type ftpFileBuffer struct {
	mu       sync.Mutex
	data     []byte
	pos      int64
	dirty    bool
	filename string
}

type ftpOps struct {
	log *logrus.Entry

	table *handleTable
}

func newFTPDriverWithPrefix(log *logrus.Entry, prefix string) *driver.Driver {
	f := &ftpOps{log: log.WithField("driver", prefix), table: newHandleTable()}
	return &driver.Driver{
		Prefix: prefix,
		Ops: driver.Ops{
			Open:  f.open,
			Close: f.close,
			Size:  f.size,
			Seek:  f.seek,
			Read:  f.read,
			Write: f.write,
		},
	}
}

// newFTPDriver backs plain "ftp://". "ftpfile://" registers the same
// implementation under cfileio.c's alternate alias for a bare-passive
// transfer, kept as a distinct prefix because the registry looks up by
// exact string match (§4.D).
func newFTPDriver(log *logrus.Entry) *driver.Driver {
	return newFTPDriverWithPrefix(log, "ftp://")
}

func newFTPFileDriver(log *logrus.Entry) *driver.Driver {
	return newFTPDriverWithPrefix(log, "ftpfile://")
}

// dial parses "user:pass@host/path" out of an ftp:// filename the way
// ffiurl leaves it after stripping the scheme, and opens a fresh
// connection per call, the way cfileio.c's ftp driver keeps one
// connection per open handle rather than pooling.
func (f *ftpOps) dial(ctx context.Context, filename string) (*ftp.ServerConn, string, error) {
	u, err := url.Parse("ftp://" + filename)
	if err != nil {
		return nil, "", fmt.Errorf("ftp: bad address %q: %w", filename, err)
	}
	addr := u.Host
	if u.Port() == "" {
		addr = addr + ":21"
	}

	c, err := ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return nil, "", err
	}

	user := "anonymous"
	pass := "anonymous@"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}
	if err := c.Login(user, pass); err != nil {
		_ = c.Quit()
		return nil, "", err
	}
	return c, u.Path, nil
}

func (f *ftpOps) open(ctx context.Context, filename string, mode driver.RWMode) (driver.Handle, error) {
	c, path, err := f.dial(ctx, filename)
	if err != nil {
		return 0, err
	}
	defer c.Quit()

	resp, err := c.Retr(path)
	if err != nil {
		return 0, err
	}
	data, err := io.ReadAll(resp)
	resp.Close()
	if err != nil {
		return 0, err
	}

	return f.table.put(&ftpFileBuffer{data: data, filename: filename}), nil
}

// close uploads the buffer back to the server via Stor when write has
// marked it dirty, mirroring backend/ftp's pattern of streaming the
// whole object on close rather than mid-transfer.
func (f *ftpOps) close(ctx context.Context, h driver.Handle) error {
	v, err := f.table.drop(h)
	if err != nil {
		return err
	}
	b := v.(*ftpFileBuffer)
	if !b.dirty {
		return nil
	}

	c, path, err := f.dial(ctx, b.filename)
	if err != nil {
		return err
	}
	defer c.Quit()

	b.mu.Lock()
	data := b.data
	b.mu.Unlock()
	return c.Stor(path, bytes.NewReader(data))
}

func (f *ftpOps) size(ctx context.Context, h driver.Handle) (int64, error) {
	b, err := f.buf(h)
	if err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.data)), nil
}

func (f *ftpOps) seek(ctx context.Context, h driver.Handle, offset int64) error {
	b, err := f.buf(h)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pos = offset
	return nil
}

func (f *ftpOps) read(ctx context.Context, h driver.Handle, out []byte) error {
	b, err := f.buf(h)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pos+int64(len(out)) > int64(len(b.data)) {
		return fmt.Errorf("ftp: read past end of buffer")
	}
	n := copy(out, b.data[b.pos:])
	b.pos += int64(n)
	return nil
}

// write accumulates into the in-memory buffer; the upload to the server
// happens on Close via Stor, matching backend/ftp's pattern of streaming
// a pipe into Stor from a separate goroutine.
func (f *ftpOps) write(ctx context.Context, h driver.Handle, in []byte) error {
	b, err := f.buf(h)
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

func (f *ftpOps) buf(h driver.Handle) (*ftpFileBuffer, error) {
	v, err := f.table.lookup(h)
	if err != nil {
		return nil, err
	}
	return v.(*ftpFileBuffer), nil
}

package drivers

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/nfits/fitsfile/driver"
)

// stdinBuffer slurps the process's stdin into memory on first open, the
// way cfileio.c's stdin driver buffers the stream because it cannot
// seek a pipe.
type stdinBuffer struct {
	once sync.Once
	data []byte
	pos  int64
	mu   sync.Mutex
}

type stdinOps struct {
	log *logrus.Entry
	buf *stdinBuffer
	in  io.Reader
}

// newStdinDriver backs the "stdin://" prefix, always addressing the
// process's own os.Stdin.
func newStdinDriver(log *logrus.Entry) *driver.Driver {
	s := &stdinOps{log: log.WithField("driver", "stdin"), buf: &stdinBuffer{}, in: os.Stdin}
	return &driver.Driver{
		Prefix: "stdin://",
		Ops: driver.Ops{
			Open:  s.open,
			Close: s.close,
			Size:  s.size,
			Seek:  s.seek,
			Read:  s.read,
		},
	}
}

func (s *stdinOps) load() error {
	var loadErr error
	s.buf.once.Do(func() {
		data, err := io.ReadAll(s.in)
		if err != nil {
			loadErr = err
			return
		}
		s.buf.data = data
	})
	return loadErr
}

func (s *stdinOps) open(ctx context.Context, filename string, mode driver.RWMode) (driver.Handle, error) {
	if err := s.load(); err != nil {
		return 0, err
	}
	return 1, nil
}

func (s *stdinOps) close(ctx context.Context, h driver.Handle) error { return nil }

func (s *stdinOps) size(ctx context.Context, h driver.Handle) (int64, error) {
	s.buf.mu.Lock()
	defer s.buf.mu.Unlock()
	return int64(len(s.buf.data)), nil
}

func (s *stdinOps) seek(ctx context.Context, h driver.Handle, offset int64) error {
	s.buf.mu.Lock()
	defer s.buf.mu.Unlock()
	s.buf.pos = offset
	return nil
}

func (s *stdinOps) read(ctx context.Context, h driver.Handle, out []byte) error {
	s.buf.mu.Lock()
	defer s.buf.mu.Unlock()
	if s.buf.pos+int64(len(out)) > int64(len(s.buf.data)) {
		return fmt.Errorf("stdin: read past end of buffer")
	}
	n := copy(out, s.buf.data[s.buf.pos:])
	s.buf.pos += int64(n)
	return nil
}

// stdoutOps backs the "stdout://" prefix: a write-only, non-seekable
// sink over the process's own os.Stdout, matching cfileio.c's
// stdout-driver restriction that it supports Create/Write only.
type stdoutOps struct {
	log *logrus.Entry
	out io.Writer
}

func newStdoutDriver(log *logrus.Entry) *driver.Driver {
	s := &stdoutOps{log: log.WithField("driver", "stdout"), out: os.Stdout}
	return &driver.Driver{
		Prefix: "stdout://",
		Ops: driver.Ops{
			Create: s.create,
			Close:  s.close,
			Write:  s.write,
		},
	}
}

func (s *stdoutOps) create(ctx context.Context, filename string) (driver.Handle, error) { return 1, nil }

func (s *stdoutOps) close(ctx context.Context, h driver.Handle) error { return nil }

func (s *stdoutOps) write(ctx context.Context, h driver.Handle, in []byte) error {
	_, err := s.out.Write(in)
	return err
}

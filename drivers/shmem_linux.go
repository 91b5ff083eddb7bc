//go:build linux

package drivers

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/nfits/fitsfile/driver"
)

// shmSegment wraps a POSIX shared-memory object opened via
// memfd_create, the Linux-native analogue of cfileio.c's System V
// shmget/shmat shared-memory driver.
type shmSegment struct {
	mu   sync.Mutex
	fd   int
	file *os.File
	size int64
}

type shmOps struct {
	log   *logrus.Entry
	table *handleTable
}

func newShmemDriver(log *logrus.Entry) *driver.Driver {
	s := &shmOps{log: log.WithField("driver", "shmem"), table: newHandleTable()}
	return &driver.Driver{
		Prefix: "shmem://",
		Ops: driver.Ops{
			Open:     s.open,
			Create:   s.create,
			Truncate: s.truncate,
			Close:    s.close,
			Size:     s.size,
			Seek:     s.seek,
			Read:     s.read,
			Write:    s.write,
		},
	}
}

func (s *shmOps) create(ctx context.Context, filename string) (driver.Handle, error) {
	fd, err := unix.MemfdCreate(filename, 0)
	if err != nil {
		return 0, fmt.Errorf("shmem: memfd_create %q: %w", filename, err)
	}
	return s.table.put(&shmSegment{fd: fd, file: os.NewFile(uintptr(fd), filename)}), nil
}

// open re-attaches to a segment created earlier in the process; this
// driver does not support cross-process lookup by name, matching the
// Non-goal that shmem:// is a single-process convenience only.
func (s *shmOps) open(ctx context.Context, filename string, mode driver.RWMode) (driver.Handle, error) {
	return 0, fmt.Errorf("shmem: open of existing segment %q not supported, use create", filename)
}

func (s *shmOps) truncate(ctx context.Context, h driver.Handle, newSize int64) error {
	seg, err := s.seg(h)
	if err != nil {
		return err
	}
	seg.mu.Lock()
	defer seg.mu.Unlock()
	if err := seg.file.Truncate(newSize); err != nil {
		return err
	}
	seg.size = newSize
	return nil
}

func (s *shmOps) close(ctx context.Context, h driver.Handle) error {
	v, err := s.table.drop(h)
	if err != nil {
		return err
	}
	return v.(*shmSegment).file.Close()
}

func (s *shmOps) size(ctx context.Context, h driver.Handle) (int64, error) {
	seg, err := s.seg(h)
	if err != nil {
		return 0, err
	}
	seg.mu.Lock()
	defer seg.mu.Unlock()
	return seg.size, nil
}

func (s *shmOps) seek(ctx context.Context, h driver.Handle, offset int64) error {
	seg, err := s.seg(h)
	if err != nil {
		return err
	}
	seg.mu.Lock()
	defer seg.mu.Unlock()
	_, err = seg.file.Seek(offset, io.SeekStart)
	return err
}

func (s *shmOps) read(ctx context.Context, h driver.Handle, out []byte) error {
	seg, err := s.seg(h)
	if err != nil {
		return err
	}
	seg.mu.Lock()
	defer seg.mu.Unlock()
	_, err = seg.file.Read(out)
	return err
}

func (s *shmOps) write(ctx context.Context, h driver.Handle, in []byte) error {
	seg, err := s.seg(h)
	if err != nil {
		return err
	}
	seg.mu.Lock()
	defer seg.mu.Unlock()

	start, err := seg.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	n, err := seg.file.Write(in)
	if err != nil {
		return err
	}
	if end := start + int64(n); end > seg.size {
		seg.size = end
	}
	return nil
}

func (s *shmOps) seg(h driver.Handle) (*shmSegment, error) {
	v, err := s.table.lookup(h)
	if err != nil {
		return nil, err
	}
	return v.(*shmSegment), nil
}

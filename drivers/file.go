package drivers

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"

	"github.com/nfits/fitsfile/driver"
)

// fileOps backs the "file://" prefix with plain os.File handles, the way
// backend/local wraps os.Open/os.Create/os.Stat behind the fs.Fs
// interface. Filenames are normalized to NFC via golang.org/x/text
// before touching the OS, matching backend/local.Fs's own
// norm.NFC.String(filename) call ahead of os.Open/os.Create.
type fileOps struct {
	log   *logrus.Entry
	table *handleTable
}

func newFileDriver(log *logrus.Entry) *driver.Driver {
	f := &fileOps{log: log.WithField("driver", "file"), table: newHandleTable()}
	return &driver.Driver{
		Prefix: "file://",
		Ops: driver.Ops{
			Open:     f.open,
			Create:   f.create,
			Truncate: f.truncate,
			Close:    f.close,
			Remove:   f.remove,
			Size:     f.size,
			Flush:    f.flush,
			Seek:     f.seek,
			Read:     f.read,
			Write:    f.write,
		},
	}
}

func (f *fileOps) open(ctx context.Context, filename string, mode driver.RWMode) (driver.Handle, error) {
	filename = norm.NFC.String(filename)
	flag := os.O_RDONLY
	if mode == driver.ReadWrite {
		flag = os.O_RDWR
	}
	fh, err := os.OpenFile(filename, flag, 0644)
	if err != nil {
		f.log.WithError(err).WithField("file", filename).Debug("open failed")
		return 0, err
	}
	return f.table.put(fh), nil
}

func (f *fileOps) create(ctx context.Context, filename string) (driver.Handle, error) {
	filename = norm.NFC.String(filename)
	fh, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		f.log.WithError(err).WithField("file", filename).Debug("create failed")
		return 0, err
	}
	return f.table.put(fh), nil
}

func (f *fileOps) truncate(ctx context.Context, h driver.Handle, newSize int64) error {
	fh, err := f.file(h)
	if err != nil {
		return err
	}
	return fh.Truncate(newSize)
}

func (f *fileOps) close(ctx context.Context, h driver.Handle) error {
	v, err := f.table.drop(h)
	if err != nil {
		return err
	}
	return v.(*os.File).Close()
}

func (f *fileOps) remove(ctx context.Context, filename string) error {
	return os.Remove(norm.NFC.String(filename))
}

func (f *fileOps) size(ctx context.Context, h driver.Handle) (int64, error) {
	fh, err := f.file(h)
	if err != nil {
		return 0, err
	}
	info, err := fh.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (f *fileOps) flush(ctx context.Context, h driver.Handle) error {
	fh, err := f.file(h)
	if err != nil {
		return err
	}
	return fh.Sync()
}

func (f *fileOps) seek(ctx context.Context, h driver.Handle, offset int64) error {
	fh, err := f.file(h)
	if err != nil {
		return err
	}
	_, err = fh.Seek(offset, io.SeekStart)
	return err
}

func (f *fileOps) read(ctx context.Context, h driver.Handle, buf []byte) error {
	fh, err := f.file(h)
	if err != nil {
		return err
	}
	_, err = io.ReadFull(fh, buf)
	return err
}

func (f *fileOps) write(ctx context.Context, h driver.Handle, buf []byte) error {
	fh, err := f.file(h)
	if err != nil {
		return err
	}
	_, err = fh.Write(buf)
	return err
}

func (f *fileOps) file(h driver.Handle) (*os.File, error) {
	v, err := f.table.lookup(h)
	if err != nil {
		return nil, err
	}
	return v.(*os.File), nil
}

// Package drivers supplies the concrete transports registered against
// driver.Registry: local files, in-memory buffers, standard streams,
// transparent compression, and (when network access is enabled) FTP and
// HTTP, plus a Linux shared-memory driver. Package format's HDU layer
// and package fitsfile's handle layer never import this package
// directly -- callers wire it in via Init, the way cfileio.c's
// init_library populates its driver table before any ffopen call.
package drivers

import (
	"fmt"
	"unsafe"

	"github.com/sirupsen/logrus"

	"github.com/nfits/fitsfile/driver"
)

// Options controls which optional driver families Init registers.
type Options struct {
	Network bool // register ftp/ftpfile/ftpcompress/http/httpfile/httpcompress
	Shmem   bool // register shmem://
}

// Init registers the built-in drivers against reg in the fixed order
// cfileio.c's init_library uses: local, then memory, then the
// standard streams, then compression, then (optionally) network and
// shared memory. Registration order matters because Registry.Lookup
// prefers the most recently registered match for a given prefix.
func Init(reg *driver.Registry, log *logrus.Entry, opt Options) error {
	if err := checkByteOrder(); err != nil {
		return err
	}

	fileDrv := newFileDriver(log)
	ordered := []*driver.Driver{fileDrv}

	mem := NewMemDrivers(log)
	ordered = append(ordered, mem.Mem, mem.MemKeep)

	ordered = append(ordered,
		newStdinDriver(log),
		newStdoutDriver(log),
		newCompressDriver(log, fileDrv),
	)

	if opt.Network {
		root := newRootDriver(log)
		httpDrv := newHTTPDriver(log)
		httpFileDrv := newHTTPFileDriver(log)
		ftpDrv := newFTPDriver(log)
		ftpFileDrv := newFTPFileDriver(log)
		ordered = append(ordered,
			root,
			httpDrv,
			httpFileDrv,
			newCompressDriverWithPrefix(log, httpDrv, "httpcompress://"),
			ftpDrv,
			ftpFileDrv,
			newCompressDriverWithPrefix(log, ftpDrv, "ftpcompress://"),
		)
	}

	if opt.Shmem {
		ordered = append(ordered, newShmemDriver(log))
	}

	for _, d := range ordered {
		if err := reg.Register(d); err != nil {
			return fmt.Errorf("drivers: register %s: %w", d.Prefix, err)
		}
	}
	return nil
}

// wantLittleEndian records which byte order this build was compiled
// for. FITS data on disk is always big-endian; the format package does
// its own byte swapping, but a handful of the raw-memory drivers
// (shmem chief among them) alias process memory directly and must know
// the host's native order up front, the same assumption cfileio.c hard
// codes per supported architecture.
const wantLittleEndian = true

// checkByteOrder verifies the running process's host byte order matches
// wantLittleEndian, catching a binary run on a mismatched architecture
// before any raw-memory driver misinterprets a multi-byte value.
func checkByteOrder() error {
	var probe uint16 = 1
	isLittleEndian := *(*byte)(unsafe.Pointer(&probe)) == 1
	if isLittleEndian != wantLittleEndian {
		return fmt.Errorf("drivers: host byte order mismatch, binary was built for a different architecture")
	}
	return nil
}

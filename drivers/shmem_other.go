//go:build !linux

package drivers

import (
	"github.com/sirupsen/logrus"

	"github.com/nfits/fitsfile/driver"
)

// newShmemDriver is a registered-but-unsupported stand-in on platforms
// without memfd_create, matching cfileio.c's own #ifdef guard around
// the shared-memory driver's registration.
func newShmemDriver(log *logrus.Entry) *driver.Driver {
	return &driver.Driver{
		Prefix: "shmem://",
		Ops:    driver.Ops{},
	}
}

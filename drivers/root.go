package drivers

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/nfits/fitsfile/driver"
)

// newRootDriver backs the "root://" prefix, cfileio.c's hook for
// resolving a leading "root:" network-protocol redirect before handing
// off to the real transport. This module's scope stops at local,
// in-memory, compressed and HTTP/FTP endpoints (§0 Non-goals), so the
// driver is registered -- giving root:// a recognized prefix and a
// defined error -- but deliberately implements no operations, the way
// cfileio.c ships it as a known-but-unsupported build-time option on
// platforms without the ROOT library.
func newRootDriver(log *logrus.Entry) *driver.Driver {
	l := log.WithField("driver", "root")
	return &driver.Driver{
		Prefix: "root://",
		Ops: driver.Ops{
			CheckFile: func(ctx context.Context, urltype, infile, outfile *string) error {
				l.Debug("root:// is a registered but unsupported prefix")
				return nil
			},
		},
	}
}

package driver

import (
	"github.com/hashicorp/go-multierror"
)

// joinErrors combines several shutdown failures into one, the way
// rclone's accounting layer accumulates per-transfer errors rather than
// reporting only the first.
func joinErrors(errs []error) error {
	var result *multierror.Error
	for _, err := range errs {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

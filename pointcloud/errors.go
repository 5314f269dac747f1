package pointcloud

import "github.com/pkg/errors"

// ErrInvalidParameter is returned, wrapped with details, when a filter parameter
// violates its precondition.
var ErrInvalidParameter = errors.New("invalid parameter")

// NewInvalidParameterError returns an error wrapping ErrInvalidParameter with a formatted reason.
func NewInvalidParameterError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidParameter, format, args...)
}

package pointcloud

import (
	"strings"

	"github.com/golang/geo/r3"
)

// Axis names a coordinate axis of a point.
type Axis string

// The axes a cloud can be cropped along.
const (
	AxisX Axis = "x"
	AxisY Axis = "y"
	AxisZ Axis = "z"
)

// ParseAxis parses an axis name, ignoring case.
func ParseAxis(name string) (Axis, error) {
	axis := Axis(strings.ToLower(strings.TrimSpace(name)))
	if err := axis.Validate(); err != nil {
		return "", err
	}
	return axis, nil
}

// Validate ensures the axis is one of x, y or z.
func (a Axis) Validate() error {
	switch a {
	case AxisX, AxisY, AxisZ:
		return nil
	default:
		return NewInvalidParameterError("unknown axis %q, must be one of x, y, z", string(a))
	}
}

// Coordinate returns the component of v along the axis.
func (a Axis) Coordinate(v r3.Vector) float64 {
	switch a {
	case AxisX:
		return v.X
	case AxisY:
		return v.Y
	default:
		return v.Z
	}
}

// Unit returns the unit vector along the axis.
func (a Axis) Unit() r3.Vector {
	switch a {
	case AxisX:
		return r3.Vector{X: 1}
	case AxisY:
		return r3.Vector{Y: 1}
	default:
		return r3.Vector{Z: 1}
	}
}

// ValidateRange checks that min < max.
func ValidateRange(min, max float64) error {
	if !(min < max) {
		return NewInvalidParameterError("range minimum %v must be less than maximum %v", min, max)
	}
	return nil
}

// Crop returns the points of cloud whose coordinate along axis lies in the inclusive
// range [min, max], in their original order.
func Crop(cloud PointCloud, axis Axis, min, max float64) (PointCloud, error) {
	if err := axis.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateRange(min, max); err != nil {
		return nil, err
	}

	out := New()
	var err error
	cloud.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		c := axis.Coordinate(p)
		if c >= min && c <= max {
			err = out.Append(p, d)
		}
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

package segmentation

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Plane is the plane a*x + b*y + c*z + d = 0 where (a, b, c) is the unit normal.
type Plane struct {
	normal r3.Vector
	offset float64
}

// NewPlane returns the plane with the given normal and offset, rescaling both so
// the normal has unit length.
func NewPlane(normal r3.Vector, offset float64) (*Plane, error) {
	norm := normal.Norm()
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, errors.Errorf("plane normal must be a non-zero finite vector, got %v", normal)
	}
	return &Plane{normal: normal.Mul(1 / norm), offset: offset / norm}, nil
}

// newPlaneFromPoints returns the plane through the three points, or false if they
// are collinear or coincident.
func newPlaneFromPoints(p0, p1, p2 r3.Vector) (*Plane, bool) {
	cross := p1.Sub(p0).Cross(p2.Sub(p0))
	norm := cross.Norm()
	if !(norm >= degenerateEpsilon) || math.IsInf(norm, 0) {
		return nil, false
	}
	normal := cross.Mul(1 / norm)
	return &Plane{normal: normal, offset: -normal.Dot(p0)}, true
}

// Normal returns the unit normal (a, b, c) of the plane.
func (p *Plane) Normal() r3.Vector {
	return p.normal
}

// Offset returns d.
func (p *Plane) Offset() float64 {
	return p.offset
}

// Equation returns the coefficients [a, b, c, d] of the plane equation.
func (p *Plane) Equation() [4]float64 {
	return [4]float64{p.normal.X, p.normal.Y, p.normal.Z, p.offset}
}

// Distance returns the signed distance from the plane to pt.
func (p *Plane) Distance(pt r3.Vector) float64 {
	return p.normal.Dot(pt) + p.offset
}

// AngleTo returns the angle in radians between the plane normal and v, ignoring
// the orientation of the normal.
func (p *Plane) AngleTo(v r3.Vector) float64 {
	cos := math.Abs(p.normal.Dot(v.Normalize()))
	return math.Acos(math.Min(cos, 1))
}

func (p *Plane) String() string {
	return fmt.Sprintf("%.4fx + %.4fy + %.4fz + %.4f = 0", p.normal.X, p.normal.Y, p.normal.Z, p.offset)
}

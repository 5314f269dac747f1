package pointcloud

import (
	"image/color"
	"math"

	"github.com/golang/geo/r3"
)

/* Voxel grid downsampling partitions space into a regular grid of cubic cells
(voxels) of edge leafSize and replaces all the points falling in a cell by their
centroid. More information:
- https://en.wikipedia.org/wiki/Voxel
- https://pointclouds.org/documentation/classpcl_1_1_voxel_grid.html
*/

// maxVoxelIndex bounds cell indices so that the float to int64 conversion is exact.
const maxVoxelIndex = 1 << 52

// VoxelCoords stores Voxel coordinates in VoxelGrid axes.
type VoxelCoords struct {
	I, J, K int64
}

// IsEqual tests if two VoxelCoords are the same.
func (c VoxelCoords) IsEqual(c2 VoxelCoords) bool {
	return c.I == c2.I && c.J == c2.J && c.K == c2.K
}

// GetVoxelCoordinates computes the coordinates of the voxel containing pt.
// The second return is false if the cell cannot be represented.
func GetVoxelCoordinates(pt r3.Vector, leafSize float64) (VoxelCoords, bool) {
	i := math.Floor(pt.X / leafSize)
	j := math.Floor(pt.Y / leafSize)
	k := math.Floor(pt.Z / leafSize)
	for _, c := range []float64{i, j, k} {
		if math.IsNaN(c) || math.Abs(c) > maxVoxelIndex {
			return VoxelCoords{}, false
		}
	}
	return VoxelCoords{I: int64(i), J: int64(j), K: int64(k)}, true
}

// voxelAccumulator sums the points of a single cell.
type voxelAccumulator struct {
	sum     r3.Vector
	count   int
	r, g, b int
	colored int
}

func (acc *voxelAccumulator) add(p r3.Vector, d Data) {
	acc.sum = acc.sum.Add(p)
	acc.count++
	if isColored(d) {
		r, g, b := d.RGB255()
		acc.r += int(r)
		acc.g += int(g)
		acc.b += int(b)
		acc.colored++
	}
}

func (acc *voxelAccumulator) centroid() (r3.Vector, Data) {
	center := acc.sum.Mul(1 / float64(acc.count))
	if acc.colored == 0 {
		return center, NewBasicData()
	}
	n := acc.colored
	return center, NewColoredData(color.NRGBA{
		R: uint8((acc.r + n/2) / n),
		G: uint8((acc.g + n/2) / n),
		B: uint8((acc.b + n/2) / n),
		A: 255,
	})
}

// VoxelGridDownsample reduces the density of a cloud by emitting one point, the
// centroid of position and color, per non-empty voxel of edge leafSize. Non-finite
// points are dropped. Cells are emitted in the order they are first seen, though
// callers should not rely on the output order.
func VoxelGridDownsample(cloud PointCloud, leafSize float64) (PointCloud, error) {
	if !(leafSize > 0) || math.IsInf(leafSize, 0) {
		return nil, NewInvalidParameterError("voxel leaf size must be positive and finite, got %v", leafSize)
	}

	cells := make(map[VoxelCoords]*voxelAccumulator)
	order := make([]VoxelCoords, 0)
	cloud.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		if !isFinite(p) {
			return true
		}
		coords, ok := GetVoxelCoordinates(p, leafSize)
		if !ok {
			return true
		}
		acc, seen := cells[coords]
		if !seen {
			acc = &voxelAccumulator{}
			cells[coords] = acc
			order = append(order, coords)
		}
		acc.add(p, d)
		return true
	})

	out := NewWithPrealloc(len(order))
	for _, coords := range order {
		p, d := cells[coords].centroid()
		if err := out.Append(p, d); err != nil {
			return nil, err
		}
	}
	return out, nil
}

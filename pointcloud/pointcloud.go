// Package pointcloud defines an ordered point cloud and the filters that operate on one:
// voxel grid downsampling, axis range cropping and index based partitioning. It also
// reads and writes PCD and LAS files.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
)

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	HasColor bool

	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// NewMetaData creates a new MetaData with empty bounds.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge updates the meta data with the new point. Non-finite positions only
// contribute their color flag.
func (meta *MetaData) Merge(v r3.Vector, data Data) {
	if isColored(data) {
		meta.HasColor = true
	}
	if !isFinite(v) {
		return
	}

	meta.MaxX = math.Max(meta.MaxX, v.X)
	meta.MaxY = math.Max(meta.MaxY, v.Y)
	meta.MaxZ = math.Max(meta.MaxZ, v.Z)

	meta.MinX = math.Min(meta.MinX, v.X)
	meta.MinY = math.Min(meta.MinY, v.Y)
	meta.MinZ = math.Min(meta.MinZ, v.Z)
}

// Empty reports whether no finite point has been merged.
func (meta MetaData) Empty() bool {
	return meta.MinX > meta.MaxX
}

// PointCloud is an ordered, index addressable container of points. The same
// position may appear more than once.
type PointCloud interface {
	// Size returns the number of points in the cloud.
	Size() int

	// MetaData returns meta data
	MetaData() MetaData

	// Append adds the given point to the end of the cloud.
	Append(p r3.Vector, d Data) error

	// At returns the point at the given position in the cloud.
	// It panics if i is out of range.
	At(i int) (r3.Vector, Data)

	// Iterate iterates over all points in the cloud in order and calls the given
	// function for each point. If the supplied function returns false,
	// iteration will stop after the function returns.
	// numBatches lets you divide up he work. 0 means don't divide
	// myBatch is used iff numBatches > 0 and is which batch you want
	Iterate(numBatches, myBatch int, fn func(p r3.Vector, d Data) bool)
}

func isFinite(v r3.Vector) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// CloudPositions returns the positions of every point in cloud, in order.
func CloudPositions(cloud PointCloud) []r3.Vector {
	positions := make([]r3.Vector, 0, cloud.Size())
	cloud.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		positions = append(positions, p)
		return true
	})
	return positions
}

package pointcloud

import (
	"sort"

	"github.com/samber/lo"
)

// IndexSet is a sorted, duplicate free set of positions into a specific cloud. It is
// only meaningful against the cloud it was computed from.
type IndexSet []int

// NewIndexSet sorts and deduplicates the given indices.
func NewIndexSet(indices ...int) IndexSet {
	set := IndexSet(lo.Uniq(indices))
	sort.Ints(set)
	return set
}

// Len returns the number of indices in the set.
func (s IndexSet) Len() int {
	return len(s)
}

// Contains reports whether i is in the set.
func (s IndexSet) Contains(i int) bool {
	at := sort.SearchInts(s, i)
	return at < len(s) && s[at] == i
}

// ValidFor checks that every index addresses a point of a cloud of the given size.
func (s IndexSet) ValidFor(size int) error {
	for _, i := range s {
		if i < 0 || i >= size {
			return NewInvalidParameterError("index %d out of range for cloud of %d points", i, size)
		}
	}
	return nil
}

// Partition splits cloud into the points at the given indices, in ascending index
// order, and every remaining point, in cloud order. Together the two clouds hold
// exactly the points of the input.
func Partition(cloud PointCloud, indices IndexSet) (PointCloud, PointCloud, error) {
	indices = NewIndexSet(indices...)
	if err := indices.ValidFor(cloud.Size()); err != nil {
		return nil, nil, err
	}

	inliers := NewWithPrealloc(len(indices))
	outliers := NewWithPrealloc(cloud.Size() - len(indices))
	next := 0
	for i := 0; i < cloud.Size(); i++ {
		p, d := cloud.At(i)
		target := outliers
		if next < len(indices) && indices[next] == i {
			target = inliers
			next++
		}
		if err := target.Append(p, d); err != nil {
			return nil, nil, err
		}
	}
	return inliers, outliers, nil
}

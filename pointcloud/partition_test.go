package pointcloud

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func sortedPositions(clouds ...PointCloud) []r3.Vector {
	var all []r3.Vector
	for _, c := range clouds {
		all = append(all, CloudPositions(c)...)
	}
	sort.Sort(Vectors(all))
	return all
}

func TestNewIndexSet(t *testing.T) {
	set := NewIndexSet(5, 1, 3, 1, 5)
	test.That(t, []int(set), test.ShouldResemble, []int{1, 3, 5})
	test.That(t, set.Contains(3), test.ShouldBeTrue)
	test.That(t, set.Contains(2), test.ShouldBeFalse)
	test.That(t, NewIndexSet().Len(), test.ShouldEqual, 0)
}

func TestPartition(t *testing.T) {
	cloud := makeCloud(
		NewVector(0, 0, 0),
		NewVector(1, 0, 0),
		NewVector(2, 0, 0),
		NewVector(1, 0, 0),
		NewVector(4, 0, 0),
	)
	in, out, err := Partition(cloud, IndexSet{3, 0, 3})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, CloudPositions(in), test.ShouldResemble, []r3.Vector{NewVector(0, 0, 0), NewVector(1, 0, 0)})
	test.That(t, CloudPositions(out), test.ShouldResemble, []r3.Vector{NewVector(1, 0, 0), NewVector(2, 0, 0), NewVector(4, 0, 0)})

	in, out, err = Partition(cloud, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, in.Size(), test.ShouldEqual, 0)
	test.That(t, out.Size(), test.ShouldEqual, 5)

	_, _, err = Partition(cloud, IndexSet{5})
	test.That(t, errors.Is(err, ErrInvalidParameter), test.ShouldBeTrue)
	_, _, err = Partition(cloud, IndexSet{-1})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPartitionPreservesMultiset(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	cloud := randomCloud(r, 300, 1)
	indices := make([]int, 0)
	for i := 0; i < cloud.Size(); i++ {
		if r.Intn(3) == 0 {
			indices = append(indices, i)
		}
	}
	set := NewIndexSet(indices...)
	in, out, err := Partition(cloud, set)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, in.Size(), test.ShouldEqual, set.Len())
	test.That(t, in.Size()+out.Size(), test.ShouldEqual, cloud.Size())
	test.That(t, sortedPositions(in, out), test.ShouldResemble, sortedPositions(cloud))

	for j, i := range set {
		p, _ := in.At(j)
		q, _ := cloud.At(i)
		test.That(t, p, test.ShouldResemble, q)
	}
}

// Package segmentation implements RANSAC plane segmentation of point clouds.
package segmentation

import (
	"context"
	"math"
	"math/rand"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/tabletop/pointcloud"
)

// ErrInsufficientData is returned, possibly wrapped, when a cloud cannot support a plane fit.
var ErrInsufficientData = errors.New("insufficient data")

const (
	// minPlanePoints is the sample size of a plane model.
	minPlanePoints = 3
	// degenerateEpsilon is the cross product magnitude below which a sample is collinear.
	degenerateEpsilon = 1e-9
	// maxSkipFactor bounds degenerate redraws to maxSkipFactor*MaxIterations.
	maxSkipFactor = 10
)

// PlaneSegmenter fits the dominant plane of a cloud with RANSAC.
type PlaneSegmenter struct {
	// DistanceThreshold is the maximum distance from the plane for a point to be an inlier.
	DistanceThreshold float64
	// MaxIterations is the number of non degenerate samples scored.
	MaxIterations int
	// Probability, if in (0, 1), stops sampling once the best model is found with this
	// probability given its inlier ratio. Zero runs every iteration.
	Probability float64
	// OptimizeCoefficients refits the best plane to its inliers with least squares.
	OptimizeCoefficients bool
}

// Validate ensures the segmenter parameters are usable.
func (s PlaneSegmenter) Validate() error {
	if !(s.DistanceThreshold > 0) || math.IsInf(s.DistanceThreshold, 0) {
		return pointcloud.NewInvalidParameterError("distance threshold must be positive, got %v", s.DistanceThreshold)
	}
	if s.MaxIterations <= 0 || s.MaxIterations > math.MaxInt/maxSkipFactor {
		return pointcloud.NewInvalidParameterError("max iterations must be in [1, %d], got %d", math.MaxInt/maxSkipFactor, s.MaxIterations)
	}
	if !(s.Probability >= 0 && s.Probability < 1) {
		return pointcloud.NewInvalidParameterError("probability must be in [0, 1), got %v", s.Probability)
	}
	return nil
}

// SegmentPlane segments the biggest plane in the cloud.
// nIter to choose? nIter = log(1-p)/log(1-(1-e)^s), where p is prob of success, e is outlier ratio, s is subset size (3 for plane).
// threshold is the maximum allowed distance to the found plane for a point to belong to it.
// It returns the indices of the inliers and the plane. A nil r uses a fixed seed.
func SegmentPlane(
	ctx context.Context,
	cloud pointcloud.PointCloud,
	threshold float64,
	nIterations int,
	r *rand.Rand,
) (pointcloud.IndexSet, *Plane, error) {
	seg := PlaneSegmenter{DistanceThreshold: threshold, MaxIterations: nIterations}
	return seg.Segment(ctx, cloud, r)
}

// Segment runs RANSAC over the cloud using r as its only source of randomness.
func (s PlaneSegmenter) Segment(
	ctx context.Context,
	cloud pointcloud.PointCloud,
	r *rand.Rand,
) (pointcloud.IndexSet, *Plane, error) {
	_, span := trace.StartSpan(ctx, "segmentation::PlaneSegmenter::Segment")
	defer span.End()

	if err := s.Validate(); err != nil {
		return nil, nil, err
	}
	nPoints := cloud.Size()
	if nPoints < minPlanePoints {
		return nil, nil, errors.Wrapf(ErrInsufficientData, "need at least %d points to fit a plane, got %d", minPlanePoints, nPoints)
	}
	if r == nil {
		r = rand.New(rand.NewSource(1))
	}
	pts := pointcloud.CloudPositions(cloud)

	var bestPlane *Plane
	bestInliers := 0
	maxSkip := maxSkipFactor * s.MaxIterations
	needed := math.Inf(1)

	for iter, skipped := 0, 0; iter < s.MaxIterations && float64(iter) < needed; {
		n0, n1, n2 := sampleDistinctTriple(nPoints, r)
		plane, ok := newPlaneFromPoints(pts[n0], pts[n1], pts[n2])
		if !ok {
			// degenerate sample, redraw without spending an iteration
			skipped++
			if skipped >= maxSkip {
				break
			}
			continue
		}
		iter++

		currentInliers := countInliers(pts, plane, s.DistanceThreshold)
		// ties keep the plane found first
		if bestPlane == nil || currentInliers > bestInliers {
			bestPlane = plane
			bestInliers = currentInliers
			if s.Probability > 0 {
				needed = requiredIterations(s.Probability, float64(bestInliers)/float64(nPoints))
			}
		}
	}
	if bestPlane == nil {
		return nil, nil, errors.Wrap(ErrInsufficientData, "no three points of the cloud span a plane")
	}

	inliers := selectInliers(pts, bestPlane, s.DistanceThreshold)
	if s.OptimizeCoefficients {
		if refined, ok := refinePlane(pts, inliers, bestPlane); ok {
			bestPlane = refined
			inliers = selectInliers(pts, bestPlane, s.DistanceThreshold)
		}
	}
	span.AddAttributes(
		trace.Int64Attribute("points", int64(nPoints)),
		trace.Int64Attribute("inliers", int64(len(inliers))),
	)
	return inliers, bestPlane, nil
}

// sampleDistinctTriple draws three distinct indices uniformly from [0, n).
func sampleDistinctTriple(n int, r *rand.Rand) (int, int, int) {
	i0 := r.Intn(n)
	i1 := r.Intn(n - 1)
	if i1 >= i0 {
		i1++
	}
	lo, hi := i0, i1
	if lo > hi {
		lo, hi = hi, lo
	}
	i2 := r.Intn(n - 2)
	if i2 >= lo {
		i2++
	}
	if i2 >= hi {
		i2++
	}
	return i0, i1, i2
}

// requiredIterations is the number of samples needed to draw an all inlier sample
// with the given probability when a fraction w of the points are inliers.
func requiredIterations(probability, w float64) float64 {
	pAllInliers := math.Pow(w, minPlanePoints)
	switch {
	case pAllInliers >= 1:
		return 1
	case pAllInliers <= 0:
		return math.Inf(1)
	}
	return math.Ceil(math.Log(1-probability) / math.Log(1-pAllInliers))
}

func countInliers(pts []r3.Vector, plane *Plane, threshold float64) int {
	count := 0
	for _, pt := range pts {
		if math.Abs(plane.Distance(pt)) <= threshold {
			count++
		}
	}
	return count
}

func selectInliers(pts []r3.Vector, plane *Plane, threshold float64) pointcloud.IndexSet {
	inliers := make(pointcloud.IndexSet, 0)
	for i, pt := range pts {
		if math.Abs(plane.Distance(pt)) <= threshold {
			inliers = append(inliers, i)
		}
	}
	return inliers
}

// refinePlane fits a plane to the inliers with least squares. The normal is the
// eigenvector of the smallest eigenvalue of the inlier covariance, oriented like the
// normal of the original plane.
func refinePlane(pts []r3.Vector, inliers pointcloud.IndexSet, plane *Plane) (*Plane, bool) {
	if len(inliers) < minPlanePoints {
		return nil, false
	}
	var centroid r3.Vector
	for _, i := range inliers {
		centroid = centroid.Add(pts[i])
	}
	centroid = centroid.Mul(1 / float64(len(inliers)))

	var xx, xy, xz, yy, yz, zz float64
	for _, i := range inliers {
		d := pts[i].Sub(centroid)
		xx += d.X * d.X
		xy += d.X * d.Y
		xz += d.X * d.Z
		yy += d.Y * d.Y
		yz += d.Y * d.Z
		zz += d.Z * d.Z
	}
	covariance := mat.NewSymDense(3, []float64{
		xx, xy, xz,
		xy, yy, yz,
		xz, yz, zz,
	})

	var eig mat.EigenSym
	if ok := eig.Factorize(covariance, true); !ok {
		return nil, false
	}
	var vectors mat.Dense
	eig.VectorsTo(&vectors)
	// eigenvalues are in ascending order
	normal := r3.Vector{X: vectors.At(0, 0), Y: vectors.At(1, 0), Z: vectors.At(2, 0)}
	if normal.Dot(plane.Normal()) < 0 {
		normal = normal.Mul(-1)
	}
	refined, err := NewPlane(normal, -normal.Dot(centroid))
	if err != nil {
		return nil, false
	}
	return refined, true
}

// Package pipeline runs the tabletop segmentation stages over one cloud at a time:
// voxel downsample, crop along one axis, fit the dominant plane and split the cloud
// into the plane inliers (the table) and everything else (the objects).
package pipeline

import (
	"context"
	"math/rand"

	"go.opencensus.io/trace"

	"go.viam.com/tabletop/logging"
	"go.viam.com/tabletop/pointcloud"
	"go.viam.com/tabletop/utils"
	"go.viam.com/tabletop/vision/segmentation"
)

// StageSizes records the number of points that left each stage.
type StageSizes struct {
	Input       int
	Downsampled int
	Cropped     int
	Table       int
	Objects     int
}

// Result is the output of one processed frame.
type Result struct {
	Table   pointcloud.PointCloud
	Objects pointcloud.PointCloud
	// Plane is nil when nothing survived cropping.
	Plane *segmentation.Plane
	Sizes StageSizes
}

// Pipeline holds the immutable configuration shared by every frame.
type Pipeline struct {
	cfg       Config
	axis      pointcloud.Axis
	segmenter segmentation.PlaneSegmenter
	logger    logging.Logger
}

// New validates cfg and returns a pipeline ready to process frames.
func New(cfg Config, logger logging.Logger) (*Pipeline, error) {
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	axis, err := pointcloud.ParseAxis(cfg.FilterAxis)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:       cfg,
		axis:      axis,
		segmenter: cfg.segmenter(),
		logger:    logger,
	}, nil
}

// Config returns the configuration of the pipeline.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Process runs every stage over cloud. Any stage error aborts the frame. A cloud that is
// empty after cropping produces an empty table and an empty objects cloud.
func (p *Pipeline) Process(ctx context.Context, cloud pointcloud.PointCloud) (*Result, error) {
	ctx, span := trace.StartSpan(ctx, "pipeline::Process")
	defer span.End()

	sizes := StageSizes{Input: cloud.Size()}

	_, downSpan := trace.StartSpan(ctx, "pipeline::Process::VoxelGridDownsample")
	downsampled, err := pointcloud.VoxelGridDownsample(cloud, p.cfg.LeafSize)
	downSpan.End()
	if err != nil {
		return nil, err
	}
	sizes.Downsampled = downsampled.Size()
	p.logger.Debugw("downsampled cloud", "leaf_size", p.cfg.LeafSize, "points", sizes.Downsampled)

	_, cropSpan := trace.StartSpan(ctx, "pipeline::Process::Crop")
	cropped, err := pointcloud.Crop(downsampled, p.axis, p.cfg.AxisMin, p.cfg.AxisMax)
	cropSpan.End()
	if err != nil {
		return nil, err
	}
	sizes.Cropped = cropped.Size()
	p.logger.Debugw("cropped cloud", "axis", p.axis, "min", p.cfg.AxisMin, "max", p.cfg.AxisMax, "points", sizes.Cropped)

	if sizes.Cropped == 0 {
		p.logger.Debug("nothing left after cropping")
		return &Result{Table: pointcloud.New(), Objects: pointcloud.New(), Sizes: sizes}, nil
	}

	//nolint:gosec
	r := rand.New(rand.NewSource(p.cfg.Seed))
	inliers, plane, err := p.segmenter.Segment(ctx, cropped, r)
	if err != nil {
		return nil, err
	}
	p.logger.Debugw("found plane",
		"plane", plane.String(),
		"inliers", inliers.Len(),
		"offset", plane.Offset(),
		"tilt_deg", utils.RadToDeg(plane.AngleTo(p.axis.Unit())),
	)

	table, objects, err := pointcloud.Partition(cropped, inliers)
	if err != nil {
		return nil, err
	}
	sizes.Table = table.Size()
	sizes.Objects = objects.Size()
	span.AddAttributes(
		trace.Int64Attribute("input", int64(sizes.Input)),
		trace.Int64Attribute("table", int64(sizes.Table)),
		trace.Int64Attribute("objects", int64(sizes.Objects)),
	)
	return &Result{Table: table, Objects: objects, Plane: plane, Sizes: sizes}, nil
}

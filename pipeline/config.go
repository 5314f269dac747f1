package pipeline

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"go.viam.com/tabletop/pointcloud"
	"go.viam.com/tabletop/vision/segmentation"
)

// Config is the filter configuration applied to every frame.
type Config struct {
	LeafSize   float64 `json:"leaf_size"`
	FilterAxis string  `json:"filter_axis"`
	AxisMin    float64 `json:"axis_min"`
	AxisMax    float64 `json:"axis_max"`

	DistanceThreshold float64 `json:"distance_threshold"`
	MaxIterations     int     `json:"max_iterations"`

	// Seed seeds the per-frame RANSAC generator so equal frames give equal results.
	Seed int64 `json:"seed"`
	// Probability enables adaptive termination of RANSAC when in (0, 1).
	Probability          float64 `json:"probability,omitempty"`
	OptimizeCoefficients bool    `json:"optimize_coefficients,omitempty"`
}

// DefaultConfig returns the configuration used for a tabletop scene viewed from about a
// meter above the table.
func DefaultConfig() Config {
	return Config{
		LeafSize:          0.01,
		FilterAxis:        string(pointcloud.AxisZ),
		AxisMin:           0.6,
		AxisMax:           1.1,
		DistanceThreshold: 0.01,
		MaxIterations:     1000,
		Seed:              1,
	}
}

func fieldPath(path, field string) string {
	if path == "" {
		return field
	}
	return fmt.Sprintf("%s.%s", path, field)
}

// Validate ensures all parts of the config are valid. path prefixes the field names
// reported in errors.
func (cfg *Config) Validate(path string) error {
	if !(cfg.LeafSize > 0) || math.IsInf(cfg.LeafSize, 0) {
		return pointcloud.NewInvalidParameterError("%s must be positive, got %v", fieldPath(path, "leaf_size"), cfg.LeafSize)
	}
	if _, err := pointcloud.ParseAxis(cfg.FilterAxis); err != nil {
		return errors.Wrap(err, fieldPath(path, "filter_axis"))
	}
	if err := pointcloud.ValidateRange(cfg.AxisMin, cfg.AxisMax); err != nil {
		return errors.Wrap(err, fieldPath(path, "axis_min"))
	}
	if err := cfg.segmenter().Validate(); err != nil {
		return errors.Wrap(err, fieldPath(path, "ransac"))
	}
	return nil
}

func (cfg *Config) segmenter() segmentation.PlaneSegmenter {
	return segmentation.PlaneSegmenter{
		DistanceThreshold:    cfg.DistanceThreshold,
		MaxIterations:        cfg.MaxIterations,
		Probability:          cfg.Probability,
		OptimizeCoefficients: cfg.OptimizeCoefficients,
	}
}

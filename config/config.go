// Package config defines the configuration file of the tabletop node.
package config

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.viam.com/utils"

	"go.viam.com/tabletop/pipeline"
	"go.viam.com/tabletop/pointcloud"
	"go.viam.com/tabletop/ros"
)

// Output formats.
const (
	FormatPCD  = "pcd"
	FormatLAS  = "las"
	FormatJSON = "json"
)

// Config describes where frames come from, how they are processed and where the
// results go.
type Config struct {
	Pipeline pipeline.Config `json:"pipeline"`
	Input    Input           `json:"input"`
	Output   Output          `json:"output"`
	Debug    bool            `json:"debug,omitempty"`

	ConfigFilePath string `json:"-"`
}

// Input selects exactly one source of frames.
type Input struct {
	Files []string `json:"files,omitempty"`
	Watch string   `json:"watch,omitempty"`
	Bag   string   `json:"bag,omitempty"`
	Topic string   `json:"topic,omitempty"`
	// JSON is a file of PointCloud2 JSON lines.
	JSON string `json:"json,omitempty"`
	// Lossless defaults to true for every input but Watch.
	Lossless *bool `json:"lossless,omitempty"`
}

// Output configures the sink.
type Output struct {
	Dir      string `json:"dir"`
	Format   string `json:"format,omitempty"`
	PCDType  string `json:"pcd_type,omitempty"`
	Colorize bool   `json:"colorize,omitempty"`
}

// Default returns a config with the default pipeline and output settings and no input.
func Default() *Config {
	return &Config{
		Pipeline: pipeline.DefaultConfig(),
		Input:    Input{Topic: ros.DefaultCloudTopic},
		Output:   Output{Format: FormatPCD, PCDType: "binary"},
	}
}

// Ensure validates every part of the config.
func (c *Config) Ensure() error {
	if err := c.Pipeline.Validate("pipeline"); err != nil {
		return err
	}
	if err := c.Input.Validate("input"); err != nil {
		return err
	}
	return c.Output.Validate("output")
}

// Validate ensures exactly one source is configured.
func (in *Input) Validate(path string) error {
	set := lo.Filter([]string{
		lo.Ternary(len(in.Files) > 0, "files", ""),
		lo.Ternary(in.Watch != "", "watch", ""),
		lo.Ternary(in.Bag != "", "bag", ""),
		lo.Ternary(in.JSON != "", "json", ""),
	}, func(name string, _ int) bool { return name != "" })
	switch len(set) {
	case 0:
		return utils.NewConfigValidationFieldRequiredError(path, "files")
	case 1:
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("only one input may be set, got %s", strings.Join(set, ", ")))
	}
	for idx, fn := range in.Files {
		if !pointcloud.IsSupportedFile(fn) {
			return utils.NewConfigValidationError(fmt.Sprintf("%s.files.%d", path, idx), errors.Errorf("unsupported point cloud file %q", fn))
		}
	}
	return nil
}

// IsLossless reports whether the source should wait for the pipeline instead of
// replacing pending frames.
func (in *Input) IsLossless() bool {
	if in.Lossless != nil {
		return *in.Lossless
	}
	return in.Watch == ""
}

// Validate ensures the output can be written.
func (out *Output) Validate(path string) error {
	if out.Dir == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "dir")
	}
	switch out.Format {
	case FormatPCD, FormatLAS, FormatJSON:
	default:
		return utils.NewConfigValidationError(path,
			errors.Errorf("unknown format %q, must be %s, %s or %s", out.Format, FormatPCD, FormatLAS, FormatJSON))
	}
	if _, err := out.ParsePCDType(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if out.Colorize && out.Format == FormatJSON {
		return utils.NewConfigValidationError(path, errors.New("colorize requires the pcd or las format"))
	}
	return nil
}

// ParsePCDType returns the pcd encoding to write.
func (out *Output) ParsePCDType() (pointcloud.PCDType, error) {
	return pointcloud.ParsePCDType(out.PCDType)
}

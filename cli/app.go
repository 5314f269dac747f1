// Package cli contains the tabletop command line tool.
package cli

import (
	"github.com/urfave/cli/v2"

	"go.viam.com/tabletop/ros"
)

const (
	flagConfig     = "config"
	flagDebug      = "debug"
	flagBag        = "bag"
	flagTopic      = "topic"
	flagWatch      = "watch"
	flagJSON       = "json"
	flagLossless   = "lossless"
	flagOut        = "out"
	flagFormat     = "format"
	flagPCDType    = "pcd-type"
	flagColorize   = "colorize"
	flagLeafSize   = "leaf-size"
	flagAxis       = "axis"
	flagAxisMin    = "axis-min"
	flagAxisMax    = "axis-max"
	flagThreshold  = "threshold"
	flagIterations = "iterations"
	flagSeed       = "seed"
)

// NewApp returns the tabletop command line app.
func NewApp() *cli.App {
	return &cli.App{
		Name:            "tabletop",
		Usage:           "split point clouds into the table and the objects on it",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "segment every frame of a source and write the table and objects clouds",
				ArgsUsage: "[FILE.pcd|FILE.las]...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagBag,
						Usage: "read PointCloud2 messages from a rosbag `FILE`",
					},
					&cli.StringFlag{
						Name:  flagTopic,
						Value: ros.DefaultCloudTopic,
						Usage: "rosbag topic to read",
					},
					&cli.StringFlag{
						Name:  flagWatch,
						Usage: "process every point cloud file written to `DIR`",
					},
					&cli.StringFlag{
						Name:  flagJSON,
						Usage: "read PointCloud2 JSON lines from `FILE`",
					},
					&cli.BoolFlag{
						Name:  flagLossless,
						Usage: "never drop a frame while the pipeline is busy",
					},
					&cli.StringFlag{
						Name:  flagOut,
						Usage: "write results under `DIR`",
					},
					&cli.StringFlag{
						Name:  flagFormat,
						Usage: "output format, pcd, las or json",
					},
					&cli.StringFlag{
						Name:  flagPCDType,
						Usage: "pcd data encoding, ascii or binary",
					},
					&cli.BoolFlag{
						Name:  flagColorize,
						Usage: "paint each output cloud a distinct color",
					},
					&cli.Float64Flag{
						Name:  flagLeafSize,
						Usage: "voxel grid leaf size in meters",
					},
					&cli.StringFlag{
						Name:  flagAxis,
						Usage: "axis to crop along, x, y or z",
					},
					&cli.Float64Flag{
						Name:  flagAxisMin,
						Usage: "minimum kept coordinate along the crop axis",
					},
					&cli.Float64Flag{
						Name:  flagAxisMax,
						Usage: "maximum kept coordinate along the crop axis",
					},
					&cli.Float64Flag{
						Name:  flagThreshold,
						Usage: "maximum distance of a table point from the plane",
					},
					&cli.IntFlag{
						Name:  flagIterations,
						Usage: "RANSAC iterations",
					},
					&cli.Int64Flag{
						Name:  flagSeed,
						Usage: "RANSAC random seed",
					},
				},
				Action: RunAction,
			},
		},
	}
}

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/tabletop/config"
	"go.viam.com/tabletop/logging"
	"go.viam.com/tabletop/pipeline"
	"go.viam.com/tabletop/ros"
	"go.viam.com/tabletop/transport"
	"go.viam.com/tabletop/vision"
)

// RunAction is the corresponding Action for 'run'.
func RunAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Ensure(); err != nil {
		return err
	}

	logger := logging.NewLogger("tabletop")
	if cfg.Debug {
		logger.SetLevel(logging.DEBUG)
	}
	defer utils.UncheckedErrorFunc(logger.Sync)

	proc, err := pipeline.New(cfg.Pipeline, logger.Sublogger("pipeline"))
	if err != nil {
		return err
	}
	source, err := newSource(&cfg.Input, logger.Sublogger("source"))
	if err != nil {
		return err
	}
	sink, err := newSink(&cfg.Output)
	if err != nil {
		return multierr.Combine(err, source.Close())
	}

	node := transport.NewNode(source, proc, transport.NodeConfig{Lossless: cfg.Input.IsLossless()}, logger.Sublogger("node"), sink)
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infow("running", "output", cfg.Output.Dir, "format", cfg.Output.Format)
	runErr := utils.FilterOutError(node.Run(ctx), context.Canceled)
	printSummary(c, node.Summary())
	return multierr.Combine(runErr, node.Close())
}

// loadConfig reads the config file, if any, and applies flags on top of it.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if fn := c.String(flagConfig); fn != "" {
		var err error
		if cfg, err = config.Read(fn); err != nil {
			return nil, errors.Wrapf(err, "reading config %q", fn)
		}
	}
	if c.Bool(flagDebug) {
		cfg.Debug = true
	}

	// any input given on the command line replaces the configured one
	if c.IsSet(flagBag) || c.IsSet(flagWatch) || c.IsSet(flagJSON) || c.Args().Present() {
		topic := cfg.Input.Topic
		cfg.Input = config.Input{
			Files: c.Args().Slice(),
			Watch: c.String(flagWatch),
			Bag:   c.String(flagBag),
			JSON:  c.String(flagJSON),
			Topic: topic,
		}
	}
	if c.IsSet(flagTopic) || cfg.Input.Topic == "" {
		cfg.Input.Topic = c.String(flagTopic)
	}
	if c.IsSet(flagLossless) {
		lossless := c.Bool(flagLossless)
		cfg.Input.Lossless = &lossless
	}

	if c.IsSet(flagOut) {
		cfg.Output.Dir = c.String(flagOut)
	}
	if c.IsSet(flagFormat) {
		cfg.Output.Format = c.String(flagFormat)
	}
	if c.IsSet(flagPCDType) {
		cfg.Output.PCDType = c.String(flagPCDType)
	}
	if c.IsSet(flagColorize) {
		cfg.Output.Colorize = c.Bool(flagColorize)
	}

	if c.IsSet(flagLeafSize) {
		cfg.Pipeline.LeafSize = c.Float64(flagLeafSize)
	}
	if c.IsSet(flagAxis) {
		cfg.Pipeline.FilterAxis = c.String(flagAxis)
	}
	if c.IsSet(flagAxisMin) {
		cfg.Pipeline.AxisMin = c.Float64(flagAxisMin)
	}
	if c.IsSet(flagAxisMax) {
		cfg.Pipeline.AxisMax = c.Float64(flagAxisMax)
	}
	if c.IsSet(flagThreshold) {
		cfg.Pipeline.DistanceThreshold = c.Float64(flagThreshold)
	}
	if c.IsSet(flagIterations) {
		cfg.Pipeline.MaxIterations = c.Int(flagIterations)
	}
	if c.IsSet(flagSeed) {
		cfg.Pipeline.Seed = c.Int64(flagSeed)
	}
	return cfg, nil
}

func newSource(in *config.Input, logger logging.Logger) (transport.Source, error) {
	switch {
	case in.Bag != "":
		return ros.NewBagSource(in.Bag, in.Topic)
	case in.JSON != "":
		return ros.NewJSONSource(in.JSON)
	case in.Watch != "":
		return transport.NewWatchSource(in.Watch, logger)
	default:
		return transport.NewFileSource(in.Files...)
	}
}

func newSink(out *config.Output) (transport.Sink, error) {
	if out.Format == config.FormatJSON {
		return ros.NewJSONSink(out.Dir)
	}
	pcdType, err := out.ParsePCDType()
	if err != nil {
		return nil, err
	}
	var palette *vision.Palette
	if out.Colorize {
		palette = vision.NewPalette()
	}
	return transport.NewDirSink(out.Dir, "."+out.Format, pcdType, palette)
}

func printSummary(c *cli.Context, summary transport.Summary) {
	fmt.Fprintf(c.App.Writer, "processed %d frames (%d skipped, %d dropped)\n",
		summary.Processed, summary.Failed, summary.Dropped)
	if summary.Processed > 0 {
		fmt.Fprintf(c.App.Writer, "latency mean %v median %v p95 %v max %v\n",
			summary.Mean, summary.Median, summary.P95, summary.Max)
	}
}

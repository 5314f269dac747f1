package transport

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/tabletop/logging"
	"go.viam.com/tabletop/pipeline"
	"go.viam.com/tabletop/pointcloud"
	"go.viam.com/tabletop/utils"
	"go.viam.com/tabletop/vision/segmentation"
)

// A Processor turns one cloud into a table and objects.
type Processor interface {
	Process(ctx context.Context, cloud pointcloud.PointCloud) (*pipeline.Result, error)
}

// NodeConfig tunes a Node.
type NodeConfig struct {
	// Lossless makes the source wait for the pipeline instead of replacing pending frames.
	// Finite sources such as files and bags usually want this.
	Lossless bool
	// Clock defaults to the wall clock.
	Clock clock.Clock
}

// Summary describes everything a node has processed.
type Summary struct {
	Processed int
	Failed    int
	Dropped   uint64
	Mean      time.Duration
	Median    time.Duration
	P95       time.Duration
	Max       time.Duration
}

// Node pulls frames from a source, processes them one at a time and publishes the
// table and objects clouds to every sink.
type Node struct {
	source  Source
	proc    Processor
	sinks   []Sink
	cfg     NodeConfig
	clock   clock.Clock
	mailbox *Mailbox
	logger  logging.Logger

	mu        sync.Mutex
	latencies []float64
	processed int
	failed    int
	sourceErr error
}

// NewNode wires a source, a processor and sinks together. Nothing runs until Run.
func NewNode(source Source, proc Processor, cfg NodeConfig, logger logging.Logger, sinks ...Sink) *Node {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Node{
		source:  source,
		proc:    proc,
		sinks:   sinks,
		cfg:     cfg,
		clock:   clk,
		mailbox: NewMailbox(),
		logger:  logger,
	}
}

// Run processes frames until the source is exhausted or ctx is done. Failures of a
// single frame, in decoding or processing, are logged and do not stop the node. A
// failing source does.
func (n *Node) Run(ctx context.Context) error {
	workers := utils.NewStoppableWorkersWithContext(ctx, n.pump)
	defer workers.Stop()

	for {
		frame, err := n.mailbox.Get(ctx)
		if err != nil {
			if errors.Is(err, ErrMailboxClosed) {
				n.mu.Lock()
				defer n.mu.Unlock()
				return n.sourceErr
			}
			return err
		}
		n.handle(ctx, frame)
	}
}

// pump feeds the mailbox from the source until either gives up.
func (n *Node) pump(ctx context.Context) {
	defer n.mailbox.Close()
	for {
		frame, err := n.source.Next(ctx)
		if errors.Is(err, ErrFrameDecode) {
			n.mu.Lock()
			n.failed++
			n.mu.Unlock()
			n.logger.Errorw("failed to decode frame", "error", err)
			continue
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				n.mu.Lock()
				n.sourceErr = err
				n.mu.Unlock()
			}
			return
		}
		if n.cfg.Lossless {
			if err := n.mailbox.PutWait(ctx, frame); err != nil {
				return
			}
			continue
		}
		replaced, err := n.mailbox.Put(frame)
		if err != nil {
			return
		}
		if replaced {
			n.logger.Debugw("replaced stale frame", "replaced_by", frame.Seq)
		}
	}
}

func (n *Node) handle(ctx context.Context, frame *Frame) {
	start := n.clock.Now()
	res, err := n.proc.Process(ctx, frame.Cloud)
	elapsed := n.clock.Since(start)
	if err != nil {
		n.mu.Lock()
		n.failed++
		n.mu.Unlock()
		if errors.Is(err, segmentation.ErrInsufficientData) {
			n.logger.Warnw("skipping frame", "id", frame.ID, "seq", frame.Seq, "error", err)
		} else {
			n.logger.Errorw("failed to process frame", "id", frame.ID, "seq", frame.Seq, "error", err)
		}
		return
	}

	n.mu.Lock()
	n.processed++
	n.latencies = append(n.latencies, float64(elapsed))
	n.mu.Unlock()
	n.logger.Debugw("processed frame",
		"id", frame.ID,
		"seq", frame.Seq,
		"table", res.Table.Size(),
		"objects", res.Objects.Size(),
		"took", elapsed,
	)

	for _, sink := range n.sinks {
		err := multierr.Combine(
			sink.Publish(ctx, TopicTable, frame.WithCloud(res.Table)),
			sink.Publish(ctx, TopicObjects, frame.WithCloud(res.Objects)),
		)
		if err != nil {
			n.logger.Errorw("failed to publish frame", "id", frame.ID, "seq", frame.Seq, "error", err)
		}
	}
}

// Summary returns processing counts and latency statistics so far.
func (n *Node) Summary() Summary {
	n.mu.Lock()
	defer n.mu.Unlock()
	summary := Summary{Processed: n.processed, Failed: n.failed, Dropped: n.mailbox.Dropped()}
	if len(n.latencies) == 0 {
		return summary
	}
	data := stats.Float64Data(n.latencies)
	toDuration := func(v float64, err error) time.Duration {
		if err != nil {
			return 0
		}
		return time.Duration(v)
	}
	summary.Mean = toDuration(data.Mean())
	summary.Median = toDuration(data.Median())
	summary.P95 = toDuration(data.Percentile(95))
	summary.Max = toDuration(data.Max())
	return summary
}

// Close closes the source and every sink.
func (n *Node) Close() error {
	errs := []error{n.source.Close()}
	for _, sink := range n.sinks {
		errs = append(errs, sink.Close())
	}
	return multierr.Combine(errs...)
}

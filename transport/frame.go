// Package transport moves point cloud frames from a source through the pipeline and
// out to sinks. Inbound frames pass through a single slot mailbox so a slow pipeline
// always works on the most recent frame.
package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"go.viam.com/tabletop/pointcloud"
)

// The topics every processed frame is published on.
const (
	TopicTable   = "/pcl_table"
	TopicObjects = "/pcl_objects"
)

// Frame is one point cloud along with where and when it came from.
type Frame struct {
	ID     uuid.UUID
	Seq    uint64
	Origin string
	Stamp  time.Time
	Cloud  pointcloud.PointCloud
}

// NewFrame returns a frame with a fresh ID.
func NewFrame(seq uint64, origin string, stamp time.Time, cloud pointcloud.PointCloud) *Frame {
	return &Frame{ID: uuid.New(), Seq: seq, Origin: origin, Stamp: stamp, Cloud: cloud}
}

// WithCloud returns a copy of the frame carrying a different cloud.
func (f *Frame) WithCloud(cloud pointcloud.PointCloud) *Frame {
	cp := *f
	cp.Cloud = cloud
	return &cp
}

// ErrFrameDecode is matched by errors a source returns for a single frame it could not
// decode. The source can still produce the frames after it.
var ErrFrameDecode = errors.New("cannot decode frame")

// FrameDecodeError is the failure to decode one frame of a source.
type FrameDecodeError struct {
	Seq    uint64
	Origin string
	Err    error
}

// NewFrameDecodeError returns an error matching ErrFrameDecode.
func NewFrameDecodeError(seq uint64, origin string, err error) error {
	return &FrameDecodeError{Seq: seq, Origin: origin, Err: err}
}

func (e *FrameDecodeError) Error() string {
	return fmt.Sprintf("%s %d: %v", ErrFrameDecode, e.Seq, e.Err)
}

// Unwrap returns the decode failure.
func (e *FrameDecodeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrFrameDecode.
func (e *FrameDecodeError) Is(target error) bool {
	return target == ErrFrameDecode
}

// A Source produces frames. Next returns io.EOF once no more frames will come, and an
// error matching ErrFrameDecode for a frame that is skipped. Any other error ends the
// source.
type Source interface {
	Next(ctx context.Context) (*Frame, error)
	Close() error
}

// A Sink consumes published frames.
type Sink interface {
	Publish(ctx context.Context, topic string, frame *Frame) error
	Close() error
}

package ros

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/tabletop/transport"
)

// BagSource yields the PointCloud2 messages of one topic as frames, in bag order.
type BagSource struct {
	mu     sync.Mutex
	origin string
	lines  lineReader
	seq    uint64
}

// NewBagSource reads the messages of topic out of the rosbag at filename. An empty
// topic means DefaultCloudTopic.
func NewBagSource(filename, topic string) (*BagSource, error) {
	if topic == "" {
		topic = DefaultCloudTopic
	}
	rb, err := ReadBag(filename)
	if err != nil {
		return nil, err
	}
	lines, err := TopicMessages(rb, topic)
	if err != nil {
		return nil, err
	}
	return &BagSource{origin: topic, lines: lines}, nil
}

// NewJSONSource reads PointCloud2 JSON lines, such as the files JSONSink writes.
func NewJSONSource(filename string) (*BagSource, error) {
	//nolint:gosec
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return &BagSource{origin: filename, lines: bytes.NewBuffer(data)}, nil
}

// Next decodes the next message.
func (bs *BagSource) Next(ctx context.Context) (*transport.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bs.mu.Lock()
	defer bs.mu.Unlock()

	var line []byte
	for len(line) == 0 {
		data, err := bs.lines.ReadBytes('\n')
		line = bytes.TrimSpace(data)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, err
			}
			if len(line) == 0 {
				return nil, io.EOF
			}
		}
	}

	seq := bs.seq
	bs.seq++
	msg, err := ParsePointCloud2Message(line)
	if err != nil {
		return nil, transport.NewFrameDecodeError(seq, bs.origin, errors.Wrapf(err, "message of %s", bs.origin))
	}
	cloud, err := DecodePointCloud2(&msg.Data)
	if err != nil {
		return nil, transport.NewFrameDecodeError(seq, bs.origin, errors.Wrapf(err, "message of %s", bs.origin))
	}
	stamp := msg.Data.Header.Stamp.Time()
	if stamp.IsZero() {
		stamp = msg.Meta.Time()
	}
	return transport.NewFrame(seq, bs.origin, stamp, cloud), nil
}

// Close does nothing; the bag is fully read on creation.
func (bs *BagSource) Close() error {
	return nil
}

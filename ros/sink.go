package ros

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/multierr"

	"go.viam.com/tabletop/transport"
)

// TopicFileName is the name of the JSON lines file a topic is written to.
func TopicFileName(topic string) string {
	return strings.ReplaceAll(strings.Trim(topic, "/"), "/", "-") + ".json"
}

type topicFile struct {
	f *os.File
	w *bufio.Writer
}

// JSONSink writes each published frame as one PointCloud2 JSON line in a file per topic.
type JSONSink struct {
	mu    sync.Mutex
	dir   string
	files map[string]*topicFile
}

// NewJSONSink returns a sink writing under dir.
func NewJSONSink(dir string) (*JSONSink, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	return &JSONSink{dir: dir, files: map[string]*topicFile{}}, nil
}

func (js *JSONSink) fileFor(topic string) (*topicFile, error) {
	if tf, ok := js.files[topic]; ok {
		return tf, nil
	}
	//nolint:gosec
	f, err := os.Create(filepath.Join(js.dir, TopicFileName(topic)))
	if err != nil {
		return nil, err
	}
	tf := &topicFile{f: f, w: bufio.NewWriter(f)}
	js.files[topic] = tf
	return tf, nil
}

// Publish appends the frame to the file of topic.
func (js *JSONSink) Publish(ctx context.Context, topic string, frame *transport.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	header := NewHeader(uint32(frame.Seq), frame.Stamp)
	line, err := json.Marshal(PointCloud2Message{
		Meta: header.Stamp,
		Data: *EncodePointCloud2(frame.Cloud, header),
	})
	if err != nil {
		return err
	}

	js.mu.Lock()
	defer js.mu.Unlock()
	tf, err := js.fileFor(topic)
	if err != nil {
		return err
	}
	if _, err := tf.w.Write(append(line, '\n')); err != nil {
		return err
	}
	return tf.w.Flush()
}

// Close closes every topic file.
func (js *JSONSink) Close() error {
	js.mu.Lock()
	defer js.mu.Unlock()
	var err error
	for topic, tf := range js.files {
		err = multierr.Combine(err, tf.w.Flush(), tf.f.Close())
		delete(js.files, topic)
	}
	return err
}

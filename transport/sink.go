package transport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"go.viam.com/tabletop/pointcloud"
	"go.viam.com/tabletop/vision"
)

const lasExt = ".las"

// DirSink writes every published frame to <dir>/<topic>/<seq><ext>.
type DirSink struct {
	dir     string
	ext     string
	pcdType pointcloud.PCDType
	palette *vision.Palette
}

// NewDirSink returns a sink writing .pcd or .las files, as chosen by ext, under dir.
// pcdType only applies to .pcd files. A non nil palette tints each cloud with the
// color of its topic.
func NewDirSink(dir, ext string, pcdType pointcloud.PCDType, palette *vision.Palette) (*DirSink, error) {
	ext = strings.ToLower(ext)
	if !pointcloud.IsSupportedFile("frame" + ext) {
		return nil, errors.Errorf("cannot write point cloud files with extension %q", ext)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	return &DirSink{dir: dir, ext: ext, pcdType: pcdType, palette: palette}, nil
}

// TopicDir returns the directory frames of topic are written to.
func (ds *DirSink) TopicDir(topic string) string {
	return filepath.Join(ds.dir, strings.Trim(topic, "/"))
}

// Publish writes the frame.
func (ds *DirSink) Publish(ctx context.Context, topic string, frame *Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	topicDir := ds.TopicDir(topic)
	if err := os.MkdirAll(topicDir, 0o750); err != nil {
		return err
	}
	cloud := frame.Cloud
	if ds.ext == lasExt && cloud.Size() == 0 {
		// a LAS file holds at least one point
		return nil
	}
	if ds.palette != nil {
		tinted, err := vision.Tint(cloud, ds.palette.ColorFor(topic))
		if err != nil {
			return err
		}
		cloud = tinted
	}
	return pointcloud.WriteToFile(cloud, filepath.Join(topicDir, fmt.Sprintf("%06d%s", frame.Seq, ds.ext)), ds.pcdType)
}

// Close does nothing.
func (ds *DirSink) Close() error {
	return nil
}

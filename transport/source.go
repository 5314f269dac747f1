package transport

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/tabletop/logging"
	"go.viam.com/tabletop/pointcloud"
)

// FileSource yields one frame per point cloud file, in order.
type FileSource struct {
	mu    sync.Mutex
	paths []string
	next  int
}

// NewFileSource returns a source over the given .pcd or .las files.
func NewFileSource(paths ...string) (*FileSource, error) {
	for _, p := range paths {
		if !pointcloud.IsSupportedFile(p) {
			return nil, errors.Errorf("unsupported point cloud file %q", p)
		}
	}
	return &FileSource{paths: paths}, nil
}

// Next reads the next file.
func (fs *FileSource) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.next >= len(fs.paths) {
		return nil, io.EOF
	}
	path := fs.paths[fs.next]
	seq := uint64(fs.next)
	fs.next++

	cloud, err := pointcloud.NewFromFile(path)
	if err != nil {
		return nil, NewFrameDecodeError(seq, path, err)
	}
	return NewFrame(seq, path, time.Now(), cloud), nil
}

// Close does nothing.
func (fs *FileSource) Close() error {
	return nil
}

// WatchSource yields a frame every time a point cloud file in a directory is created
// or rewritten.
type WatchSource struct {
	dir     string
	watcher *fsnotify.Watcher
	logger  logging.Logger
	seq     uint64
}

// NewWatchSource starts watching dir.
func NewWatchSource(dir string, logger logging.Logger) (*WatchSource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		return nil, errors.Wrapf(multierr.Combine(err, watcher.Close()), "watching %q", dir)
	}
	return &WatchSource{dir: dir, watcher: watcher, logger: logger}, nil
}

// Next waits for the next readable point cloud file. Files that fail to parse are
// assumed to be partially written and are retried on their next write event.
func (ws *WatchSource) Next(ctx context.Context) (*Frame, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case err, ok := <-ws.watcher.Errors:
			if !ok {
				return nil, io.EOF
			}
			return nil, err
		case event, ok := <-ws.watcher.Events:
			if !ok {
				return nil, io.EOF
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !pointcloud.IsSupportedFile(event.Name) {
				continue
			}
			cloud, err := pointcloud.NewFromFile(event.Name)
			if err != nil {
				ws.logger.Debugw("cannot read point cloud yet", "file", filepath.Base(event.Name), "error", err)
				continue
			}
			frame := NewFrame(ws.seq, event.Name, time.Now(), cloud)
			ws.seq++
			return frame, nil
		}
	}
}

// Close stops watching.
func (ws *WatchSource) Close() error {
	return ws.watcher.Close()
}

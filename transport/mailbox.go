package transport

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// ErrMailboxClosed is returned once a closed mailbox has no frame left.
var ErrMailboxClosed = errors.New("mailbox closed")

// Mailbox holds at most one pending frame. Put replaces a frame nobody took yet.
type Mailbox struct {
	mu        sync.Mutex
	slot      chan *Frame
	closed    chan struct{}
	closeOnce sync.Once
	dropped   atomic.Uint64
}

// NewMailbox returns an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{slot: make(chan *Frame, 1), closed: make(chan struct{})}
}

// Put stores frame, dropping any pending one. It reports whether a frame was dropped.
func (m *Mailbox) Put(frame *Frame) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isClosed() {
		return false, ErrMailboxClosed
	}
	replaced := false
	select {
	case <-m.slot:
		m.dropped.Add(1)
		replaced = true
	default:
	}
	// the slot is empty and only holders of mu send
	m.slot <- frame
	return replaced, nil
}

// PutWait stores frame once the slot is empty, never dropping.
func (m *Mailbox) PutWait(ctx context.Context, frame *Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isClosed() {
		return ErrMailboxClosed
	}
	select {
	case m.slot <- frame:
		return nil
	case <-m.closed:
		return ErrMailboxClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get waits for the pending frame. After Close it still hands out the last frame
// before returning ErrMailboxClosed.
func (m *Mailbox) Get(ctx context.Context) (*Frame, error) {
	select {
	case frame := <-m.slot:
		return frame, nil
	default:
	}
	select {
	case frame := <-m.slot:
		return frame, nil
	case <-m.closed:
		select {
		case frame := <-m.slot:
			return frame, nil
		default:
			return nil, ErrMailboxClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the mailbox from accepting frames.
func (m *Mailbox) Close() {
	m.closeOnce.Do(func() { close(m.closed) })
}

// Dropped returns the number of frames replaced before being taken.
func (m *Mailbox) Dropped() uint64 {
	return m.dropped.Load()
}

func (m *Mailbox) isClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

// Package notify provides core.Notifier implementations: a logging notifier,
// a recorder that keeps a bounded history and a fan-out combinator.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/assetflow/core"
	"github.com/hupe1980/assetflow/logging"
)

// LogNotifier writes notifications to a logger. Error notifications are
// logged at error level, everything else at info.
type LogNotifier struct {
	logger logging.Logger
}

// NewLogNotifier returns a notifier logging through logger (NoOpLogger when nil).
func NewLogNotifier(logger logging.Logger) *LogNotifier {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &LogNotifier{logger: logger}
}

// Notify implements core.Notifier.
func (n *LogNotifier) Notify(_ context.Context, note core.Notification) {
	args := []any{"level", string(note.Level), "title", note.Title, "message", note.Message}
	if note.Level == core.NotificationError {
		n.logger.Error("notification", args...)
		return
	}
	n.logger.Info("notification", args...)
}

// DefaultCapacity bounds the history kept by a Recorder.
const DefaultCapacity = 100

// Recorder keeps the most recent notifications in memory. It backs the
// notifications endpoint and is handy in tests.
type Recorder struct {
	mu       sync.RWMutex
	items    []core.Notification
	capacity int
	clock    func() time.Time
}

// NewRecorder returns a Recorder holding at most capacity notifications
// (DefaultCapacity when capacity <= 0).
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Recorder{capacity: capacity, clock: func() time.Time { return time.Now().UTC() }}
}

// Notify implements core.Notifier. A zero timestamp is stamped on arrival.
func (r *Recorder) Notify(_ context.Context, note core.Notification) {
	if note.Timestamp.IsZero() {
		note.Timestamp = r.clock()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, note)
	if over := len(r.items) - r.capacity; over > 0 {
		r.items = append([]core.Notification(nil), r.items[over:]...)
	}
}

// All returns a copy of the recorded notifications, oldest first.
func (r *Recorder) All() []core.Notification {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]core.Notification{}, r.items...)
}

// Last returns the most recent notification.
func (r *Recorder) Last() (core.Notification, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.items) == 0 {
		return core.Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

// Drain returns and clears the recorded notifications.
func (r *Recorder) Drain() []core.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.items
	r.items = nil
	if out == nil {
		out = []core.Notification{}
	}
	return out
}

// Multi fans a notification out to every notifier in order.
type Multi []core.Notifier

// Notify implements core.Notifier.
func (m Multi) Notify(ctx context.Context, note core.Notification) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, note)
		}
	}
}

// Discard drops every notification.
type Discard struct{}

// Notify implements core.Notifier.
func (Discard) Notify(context.Context, core.Notification) {}

package dashboard

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"classline/internal/domain"
)

// Log is the session-scoped activity history. It lives in memory only,
// is bounded, and records user actions before the backend confirms
// them. Each dashboard session owns its own Log so entries cannot leak
// across sessions or tests.
type Log struct {
	capacity int
	now      func() time.Time

	mu    sync.Mutex
	items []domain.ActivityItem
}

const DefaultLogCapacity = 50

// NewLog returns an empty log bounded to capacity entries.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &Log{capacity: capacity, now: time.Now}
}

// Add records a user action, newest first, and truncates the oldest
// entries beyond capacity. It never fails and performs no I/O.
func (l *Log) Add(text, category, details string) domain.ActivityItem {
	if category == "" {
		category = "other"
	}
	item := domain.ActivityItem{
		ID:        "local_" + uuid.New().String(),
		Text:      text,
		Timestamp: l.now().UTC().Format(time.RFC3339),
		Category:  category,
		Details:   details,
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append([]domain.ActivityItem{item}, l.items...)
	if len(l.items) > l.capacity {
		l.items = l.items[:l.capacity]
	}
	return item
}

// Clear resets the log. Session initialization calls this before any
// Add on the same path, so repeated mounts do not stack entries.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
}

// Items returns a defensive copy, most recent first.
func (l *Log) Items() []domain.ActivityItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.ActivityItem, len(l.items))
	copy(out, l.items)
	return out
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

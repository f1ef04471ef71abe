package usecase

import (
	"sync"
	"time"

	"wanderlust/internal/domain"
)

const defaultNotificationTTL = 5 * time.Second

// NotificationQueue holds transient alerts in arrival order. A single expiry
// timer is re-armed on every change while the queue is non-empty; when it
// fires it drops the oldest entry, whichever entry armed it. An entry's real
// lifetime therefore depends on what arrives after it.
type NotificationQueue struct {
	clock Clock
	ttl   time.Duration

	mu      sync.Mutex
	entries []domain.Notification
	timer   Timer
	gen     uint64
	closed  bool
}

func NewNotificationQueue(clock Clock, ttl time.Duration) *NotificationQueue {
	if clock == nil {
		clock = SystemClock{}
	}
	if ttl <= 0 {
		ttl = defaultNotificationTTL
	}
	return &NotificationQueue{clock: clock, ttl: ttl}
}

// Push appends n and returns its id. An empty ID is filled in.
func (q *NotificationQueue) Push(n domain.Notification) string {
	if n.ID == "" {
		n.ID = newUUID()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return n.ID
	}
	q.entries = append(q.entries, n)
	q.rearmLocked()
	return n.ID
}

// Dismiss removes the entry with the given id and reports whether it existed.
func (q *NotificationQueue) Dismiss(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, n := range q.entries {
		if n.ID == id {
			q.entries = append(q.entries[:i:i], q.entries[i+1:]...)
			q.rearmLocked()
			return true
		}
	}
	return false
}

// List returns a snapshot, oldest first.
func (q *NotificationQueue) List() []domain.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.Notification, len(q.entries))
	copy(out, q.entries)
	return out
}

func (q *NotificationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Close cancels the pending expiry and stops accepting entries.
func (q *NotificationQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.stopLocked()
}

func (q *NotificationQueue) rearmLocked() {
	q.stopLocked()
	if len(q.entries) == 0 || q.closed {
		return
	}
	q.gen++
	gen := q.gen
	q.timer = q.clock.AfterFunc(q.ttl, func() { q.expire(gen) })
}

func (q *NotificationQueue) stopLocked() {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
}

func (q *NotificationQueue) expire(gen uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	// A timer that was replaced after it began firing must not drop anything.
	if gen != q.gen || q.closed {
		return
	}
	q.timer = nil
	if len(q.entries) > 0 {
		q.entries = q.entries[1:]
	}
	q.rearmLocked()
}

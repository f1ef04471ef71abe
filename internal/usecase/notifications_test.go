package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wanderlust/internal/domain"
)

func titles(q *NotificationQueue) []string {
	var out []string
	for _, n := range q.List() {
		out = append(out, n.Title)
	}
	return out
}

func TestNotificationQueue_PushAssignsIDs(t *testing.T) {
	q := NewNotificationQueue(&fakeClock{}, time.Second)

	id := q.Push(domain.Notification{Severity: domain.SeverityInfo, Title: "a"})
	require.NotEmpty(t, id)
	require.Equal(t, "fixed", q.Push(domain.Notification{ID: "fixed", Title: "b"}))
	require.Equal(t, []string{"a", "b"}, titles(q))
	require.Equal(t, id, q.List()[0].ID)
}

func TestNotificationQueue_ExpiryDropsOnlyOldest(t *testing.T) {
	clock := &fakeClock{}
	q := NewNotificationQueue(clock, 5*time.Second)
	q.Push(domain.Notification{Title: "a"})
	q.Push(domain.Notification{Title: "b"})
	q.Push(domain.Notification{Title: "c"})

	clock.Advance(5 * time.Second)
	require.Equal(t, []string{"b", "c"}, titles(q))

	clock.Advance(5 * time.Second)
	require.Equal(t, []string{"c"}, titles(q))

	clock.Advance(5 * time.Second)
	require.Zero(t, q.Len())
	require.Zero(t, clock.Pending())
}

func TestNotificationQueue_PushRearmsTimer(t *testing.T) {
	clock := &fakeClock{}
	q := NewNotificationQueue(clock, 5*time.Second)

	q.Push(domain.Notification{Title: "a"})
	clock.Advance(4 * time.Second)
	q.Push(domain.Notification{Title: "b"})

	clock.Advance(4 * time.Second)
	require.Equal(t, []string{"a", "b"}, titles(q))
	require.Equal(t, 1, clock.Pending())

	clock.Advance(time.Second)
	require.Equal(t, []string{"b"}, titles(q))

	clock.Advance(5 * time.Second)
	require.Zero(t, q.Len())
}

func TestNotificationQueue_Dismiss(t *testing.T) {
	clock := &fakeClock{}
	q := NewNotificationQueue(clock, 5*time.Second)
	q.Push(domain.Notification{Title: "a"})
	b := q.Push(domain.Notification{Title: "b"})

	require.True(t, q.Dismiss(b))
	require.False(t, q.Dismiss(b))
	require.False(t, q.Dismiss("unknown"))
	require.Equal(t, []string{"a"}, titles(q))

	clock.Advance(5 * time.Second)
	require.Zero(t, q.Len())
}

func TestNotificationQueue_DismissLastStopsTimer(t *testing.T) {
	clock := &fakeClock{}
	q := NewNotificationQueue(clock, 5*time.Second)
	id := q.Push(domain.Notification{Title: "a"})

	require.True(t, q.Dismiss(id))
	require.Zero(t, clock.Pending())
}

func TestNotificationQueue_Close(t *testing.T) {
	clock := &fakeClock{}
	q := NewNotificationQueue(clock, 5*time.Second)
	q.Push(domain.Notification{Title: "a"})

	q.Close()
	require.Zero(t, clock.Pending())
	clock.Advance(time.Minute)
	require.Equal(t, []string{"a"}, titles(q))

	q.Push(domain.Notification{Title: "b"})
	require.Equal(t, 1, q.Len())
}

func TestNotificationQueue_ListIsSnapshot(t *testing.T) {
	q := NewNotificationQueue(&fakeClock{}, time.Second)
	q.Push(domain.Notification{Title: "a"})

	list := q.List()
	list[0].Title = "changed"
	require.Equal(t, []string{"a"}, titles(q))
}

func TestNotificationQueue_Defaults(t *testing.T) {
	q := NewNotificationQueue(nil, 0)
	require.Equal(t, defaultNotificationTTL, q.ttl)
	require.IsType(t, SystemClock{}, q.clock)
}

func TestNotificationQueue_SystemClock(t *testing.T) {
	q := NewNotificationQueue(SystemClock{}, 20*time.Millisecond)
	q.Push(domain.Notification{Title: "a"})

	require.Eventually(t, func() bool { return q.Len() == 0 }, time.Second, 5*time.Millisecond)
}

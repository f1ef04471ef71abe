package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wanderlust/internal/domain"
)

// fakeClock fires timers only when Advance is called, on the caller's goroutine.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	fired   bool
	stopped bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.fired || t.stopped || t.at > target {
				continue
			}
			if next == nil || t.at < next.at {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		c.now = next.at
		c.mu.Unlock()
		next.f()
	}
}

func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

type bookingCall struct {
	ctx context.Context
	req domain.BookingRequest
	key string
}

// fakeBooking blocks each Book call until a result is sent on results.
type fakeBooking struct {
	mu      sync.Mutex
	calls   []bookingCall
	called  chan struct{}
	results chan error
}

func newFakeBooking() *fakeBooking {
	return &fakeBooking{called: make(chan struct{}, 16), results: make(chan error, 16)}
}

func (f *fakeBooking) Book(ctx context.Context, req domain.BookingRequest, key string) error {
	f.mu.Lock()
	f.calls = append(f.calls, bookingCall{ctx: ctx, req: req, key: key})
	f.mu.Unlock()
	f.called <- struct{}{}
	return <-f.results
}

func (f *fakeBooking) Calls() []bookingCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bookingCall, len(f.calls))
	copy(out, f.calls)
	return out
}

type rejectedErr struct{ reason string }

func (e rejectedErr) Error() string           { return "rejected: " + e.reason }
func (e rejectedErr) RejectionReason() string { return e.reason }

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.OutcomeEvent
	err    error
}

func (f *fakePublisher) PublishOutcome(_ context.Context, ev domain.OutcomeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

type journalCall struct {
	op      string
	index   int
	outcome domain.Outcome
}

type fakeJournal struct {
	mu    sync.Mutex
	calls []journalCall
	err   error
}

func (f *fakeJournal) PutMessage(_ context.Context, _ string, index int, _ domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, journalCall{op: "put", index: index})
	return f.err
}

func (f *fakeJournal) UpdateOutcome(_ context.Context, _ string, index int, outcome domain.Outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, journalCall{op: "outcome", index: index, outcome: outcome})
	return f.err
}

// stageRecorder collects listener callbacks.
type stageRecorder struct {
	mu     sync.Mutex
	stages []domain.SagaStage
}

func (r *stageRecorder) listen(_ string, s domain.SagaStage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, s)
}

func (r *stageRecorder) Stages() []domain.SagaStage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.SagaStage(nil), r.stages...)
}

type sagaFixture struct {
	clock    *fakeClock
	booking  *fakeBooking
	history  *History
	queue    *NotificationQueue
	saga     *SagaController
	recorder *stageRecorder
}

func newSagaFixture(t *testing.T, opts ...SagaOption) *sagaFixture {
	t.Helper()
	f := &sagaFixture{
		clock:    &fakeClock{},
		booking:  newFakeBooking(),
		recorder: &stageRecorder{},
	}
	f.history = NewHistory("session-1", nil, nil)
	f.queue = NewNotificationQueue(f.clock, 5*time.Second)
	opts = append([]SagaOption{
		WithClock(f.clock),
		WithProgressStep(800 * time.Millisecond),
		WithStageListener(f.recorder.listen),
	}, opts...)
	saga, err := NewSagaController(SagaDeps{
		Booking:       f.booking,
		History:       f.history,
		Notifications: f.queue,
		Gate:          NewGate(),
		UserID:        "user-7",
	}, opts...)
	require.NoError(t, err)
	f.saga = saga
	return f
}

// seedOffer appends a user turn and an assistant offer, returning the offer's index.
func (f *sagaFixture) seedOffer(destination string) int {
	ctx := context.Background()
	f.history.Append(ctx, domain.Message{Role: domain.RoleUser, Text: "Find me the best trips to " + destination})
	return f.history.Append(ctx, domain.Message{
		Role:    domain.RoleAssistant,
		Text:    "Here:",
		Offer:   &domain.BookingOffer{FlightRef: "FL1", HotelRef: "HT1", Amount: 500, DestinationLabel: destination},
		Outcome: domain.OutcomePending,
	})
}

func waitDone(t *testing.T, a *Attempt) {
	t.Helper()
	select {
	case <-a.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("attempt did not resolve")
	}
}

func waitCalled(t *testing.T, b *fakeBooking) {
	t.Helper()
	select {
	case <-b.called:
	case <-time.After(2 * time.Second):
		t.Fatal("booking was not dispatched")
	}
}

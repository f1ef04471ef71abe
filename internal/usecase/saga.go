package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"wanderlust/internal/domain"
)

const (
	defaultProgressStep = 800 * time.Millisecond
	publishTimeout      = 5 * time.Second

	confirmedText     = "Booking confirmed! Your trip to %s is all set. Check your email for confirmation details."
	rejectedText      = "Booking issue: %s. Please try again."
	systemErrorText   = "System error: unable to process booking."
	defaultRejection  = "the booking was declined"
	defaultTripTarget = "your destination"
)

type BookingClient interface {
	Book(ctx context.Context, req domain.BookingRequest, idempotencyKey string) error
}

type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, ev domain.OutcomeEvent) error
}

// StageListener observes every visible stage change of an attempt, in order.
type StageListener func(token string, stage domain.SagaStage)

type rejection interface {
	RejectionReason() string
}

// SagaDeps are the collaborators a SagaController cannot work without.
type SagaDeps struct {
	Booking       BookingClient
	History       *History
	Notifications *NotificationQueue
	Gate          *Gate
	UserID        string
}

type SagaOption func(*SagaController)

func WithClock(c Clock) SagaOption {
	return func(s *SagaController) { s.clock = c }
}

func WithProgressStep(d time.Duration) SagaOption {
	return func(s *SagaController) {
		if d > 0 {
			s.step = d
		}
	}
}

func WithStageListener(l StageListener) SagaOption {
	return func(s *SagaController) { s.listener = l }
}

func WithPublisher(p OutcomePublisher) SagaOption {
	return func(s *SagaController) { s.publisher = p }
}

func WithLogger(l *slog.Logger) SagaOption {
	return func(s *SagaController) {
		if l != nil {
			s.logger = l
		}
	}
}

// SagaController runs at most one booking attempt at a time. Each attempt
// dispatches a single idempotent booking request while a cosmetic schedule
// walks the visible stage through flight, hotel and payment; the real outcome
// overrides whatever the schedule has reached.
type SagaController struct {
	booking       BookingClient
	history       *History
	notifications *NotificationQueue
	gate          *Gate
	userID        string

	clock     Clock
	step      time.Duration
	listener  StageListener
	publisher OutcomePublisher
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	current *Attempt
}

func NewSagaController(deps SagaDeps, opts ...SagaOption) (*SagaController, error) {
	if deps.Booking == nil {
		return nil, errors.New("usecase: booking client must not be nil")
	}
	if deps.History == nil {
		return nil, errors.New("usecase: history must not be nil")
	}
	if deps.Notifications == nil {
		return nil, errors.New("usecase: notification queue must not be nil")
	}
	if deps.Gate == nil {
		deps.Gate = NewGate()
	}
	if strings.TrimSpace(deps.UserID) == "" {
		return nil, errors.New("usecase: user id must not be empty")
	}
	s := &SagaController{
		booking:       deps.Booking,
		history:       deps.History,
		notifications: deps.Notifications,
		gate:          deps.Gate,
		userID:        deps.UserID,
		clock:         SystemClock{},
		step:          defaultProgressStep,
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Commit starts a booking attempt for the offer on the message at
// messageIndex. It returns false, doing nothing, when another attempt is in
// flight or the message has no bookable offer. The remote call outlives
// cancellation of ctx.
func (s *SagaController) Commit(ctx context.Context, messageIndex int) (*Attempt, bool) {
	release, ok := s.gate.TryAcquire()
	if !ok {
		s.logger.Debug("saga commit refused, booking in flight", "index", messageIndex)
		return nil, false
	}
	// Read the offer only while holding the gate so a just-finished attempt
	// on the same message is seen.
	msg, ok := s.history.Get(messageIndex)
	if !ok || !msg.HasOffer() || !retryable(msg.Outcome) {
		release()
		return nil, false
	}

	a := &Attempt{
		offer:        *msg.Offer,
		messageIndex: messageIndex,
		token:        newUUID(),
		stage:        domain.StageIdle,
		listener:     s.listener,
		done:         make(chan struct{}),
	}
	s.mu.Lock()
	s.current = a
	s.mu.Unlock()

	s.logger.Info("saga accepted", "token", a.token, "flight", a.offer.FlightRef, "hotel", a.offer.HotelRef)
	a.apply(advance(domain.StageReservingFlight))
	a.schedule(s.clock, s.step)

	go s.dispatch(context.WithoutCancel(ctx), a, release)
	return a, true
}

// Busy reports whether an attempt is in flight.
func (s *SagaController) Busy() bool {
	return s.gate.Busy()
}

// Current returns the latest attempt, or nil before the first commit.
func (s *SagaController) Current() *Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Close cancels pending cosmetic transitions. An in-flight request still
// resolves normally.
func (s *SagaController) Close() {
	if a := s.Current(); a != nil {
		a.stopTimers()
	}
}

func (s *SagaController) dispatch(ctx context.Context, a *Attempt, release func()) {
	defer close(a.done)
	defer release()

	err := s.booking.Book(ctx, domain.BookingRequest{
		FlightRef: a.offer.FlightRef,
		HotelRef:  a.offer.HotelRef,
		UserID:    s.userID,
		Amount:    a.offer.Amount,
	}, a.token)
	s.resolve(ctx, a, err)
}

func (s *SagaController) resolve(ctx context.Context, a *Attempt, err error) {
	target := a.offer.DestinationLabel
	if target == "" {
		target = defaultTripTarget
	}

	ev := domain.OutcomeEvent{
		Token:     a.token,
		FlightRef: a.offer.FlightRef,
		HotelRef:  a.offer.HotelRef,
		UserID:    s.userID,
		Amount:    a.offer.Amount,
		At:        s.now().UTC(),
	}

	if err == nil {
		a.finish(domain.StageComplete, domain.OutcomeSuccess, "")
		s.history.SetOutcome(ctx, a.messageIndex, domain.OutcomeSuccess)
		s.history.Append(ctx, domain.Message{Role: domain.RoleAssistant, Text: fmt.Sprintf(confirmedText, target)})
		s.notifications.Push(domain.Notification{
			Severity: domain.SeveritySuccess,
			Title:    "Booking Confirmed!",
			Body:     fmt.Sprintf("Your trip to %s has been successfully booked.", target),
		})
		ev.Outcome = domain.OutcomeSuccess
		s.logger.Info("saga resolved", "token", a.token, "outcome", ev.Outcome)
		s.publish(ctx, ev)
		return
	}

	var rej rejection
	if errors.As(err, &rej) {
		reason := strings.TrimSpace(rej.RejectionReason())
		if reason == "" {
			reason = defaultRejection
		}
		a.finish(domain.StageFailed, domain.OutcomeError, reason)
		s.history.SetOutcome(ctx, a.messageIndex, domain.OutcomeError)
		s.history.Append(ctx, domain.Message{Role: domain.RoleAssistant, Text: fmt.Sprintf(rejectedText, reason)})
		s.notifications.Push(domain.Notification{
			Severity: domain.SeverityError,
			Title:    "Booking Failed",
			Body:     "There was an issue processing your booking. Please retry.",
		})
		ev.Reason = reason
	} else {
		a.finish(domain.StageFailed, domain.OutcomeError, err.Error())
		s.history.SetOutcome(ctx, a.messageIndex, domain.OutcomeError)
		s.history.Append(ctx, domain.Message{Role: domain.RoleAssistant, Text: systemErrorText})
		s.notifications.Push(domain.Notification{
			Severity: domain.SeverityError,
			Title:    "System Error",
			Body:     "Unable to connect to booking service.",
		})
		ev.Reason = err.Error()
	}
	ev.Outcome = domain.OutcomeError
	s.logger.Warn("saga resolved", "token", a.token, "outcome", ev.Outcome, "err", err)
	s.publish(ctx, ev)
}

func (s *SagaController) publish(ctx context.Context, ev domain.OutcomeEvent) {
	if s.publisher == nil {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.publisher.PublishOutcome(pctx, ev); err != nil {
		s.logger.Warn("publish saga outcome failed", "token", ev.Token, "err", err)
	}
}

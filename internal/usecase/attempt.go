package usecase

import (
	"sync"
	"time"

	"wanderlust/internal/domain"
)

// sagaEvent is one input to the stage reducer: either a cosmetic advance or
// the real outcome forcing a terminal stage.
type sagaEvent struct {
	terminal bool
	stage    domain.SagaStage
}

func advance(stage domain.SagaStage) sagaEvent {
	return sagaEvent{stage: stage}
}

func force(stage domain.SagaStage) sagaEvent {
	return sagaEvent{terminal: true, stage: stage}
}

var stageOrder = map[domain.SagaStage]int{
	domain.StageIdle:              0,
	domain.StageReservingFlight:   1,
	domain.StageReservingHotel:    2,
	domain.StageProcessingPayment: 3,
}

// reduceStage applies ev to cur. Terminal stages absorb everything; cosmetic
// events only ever move forward.
func reduceStage(cur domain.SagaStage, ev sagaEvent) domain.SagaStage {
	if cur.Terminal() {
		return cur
	}
	if ev.terminal {
		return ev.stage
	}
	if ev.stage.Terminal() {
		return cur
	}
	if stageOrder[ev.stage] > stageOrder[cur] {
		return ev.stage
	}
	return cur
}

// Attempt is one booking try of one offer. A retry is a new Attempt with a
// new token.
type Attempt struct {
	offer        domain.BookingOffer
	messageIndex int
	token        string
	listener     StageListener
	done         chan struct{}

	mu      sync.Mutex
	stage   domain.SagaStage
	outcome domain.Outcome
	reason  string
	timers  []Timer

	// emitMu serializes transitions so listeners see them in order.
	emitMu sync.Mutex
}

func (a *Attempt) Token() string {
	return a.token
}

func (a *Attempt) Offer() domain.BookingOffer {
	return a.offer
}

func (a *Attempt) MessageIndex() int {
	return a.messageIndex
}

func (a *Attempt) Stage() domain.SagaStage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stage
}

// Outcome is pending until the attempt is done.
func (a *Attempt) Outcome() (domain.Outcome, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.outcome == domain.OutcomeNone {
		return domain.OutcomePending, ""
	}
	return a.outcome, a.reason
}

// Done is closed once the attempt has resolved and the booking gate is free.
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

func (a *Attempt) schedule(clock Clock, step time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stage.Terminal() {
		return
	}
	a.timers = append(a.timers,
		clock.AfterFunc(step, func() { a.apply(advance(domain.StageReservingHotel)) }),
		clock.AfterFunc(2*step, func() { a.apply(advance(domain.StageProcessingPayment)) }),
	)
}

func (a *Attempt) finish(stage domain.SagaStage, outcome domain.Outcome, reason string) {
	a.mu.Lock()
	a.outcome = outcome
	a.reason = reason
	a.mu.Unlock()
	a.apply(force(stage))
}

func (a *Attempt) apply(ev sagaEvent) {
	a.emitMu.Lock()
	defer a.emitMu.Unlock()

	a.mu.Lock()
	prev := a.stage
	a.stage = reduceStage(prev, ev)
	next := a.stage
	if next.Terminal() {
		a.stopTimersLocked()
	}
	a.mu.Unlock()

	if next != prev && a.listener != nil {
		a.listener(a.token, next)
	}
}

func (a *Attempt) stopTimers() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopTimersLocked()
}

func (a *Attempt) stopTimersLocked() {
	for _, t := range a.timers {
		t.Stop()
	}
	a.timers = nil
}

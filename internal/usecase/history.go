package usecase

import (
	"context"
	"log/slog"
	"sync"

	"wanderlust/internal/domain"
)

// Journal mirrors the session's messages somewhere outside the process.
// Failures are logged and never affect the in-memory history.
type Journal interface {
	PutMessage(ctx context.Context, sessionID string, index int, msg domain.Message) error
	UpdateOutcome(ctx context.Context, sessionID string, index int, outcome domain.Outcome) error
}

// History is the append-only message list of one session. Indexes are stable
// for the life of the session.
type History struct {
	sessionID string
	journal   Journal
	logger    *slog.Logger

	mu       sync.RWMutex
	messages []domain.Message
}

func NewHistory(sessionID string, journal Journal, logger *slog.Logger) *History {
	if sessionID == "" {
		sessionID = newUUID()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &History{sessionID: sessionID, journal: journal, logger: logger}
}

func (h *History) SessionID() string {
	return h.sessionID
}

// Append adds msg and returns its index.
func (h *History) Append(ctx context.Context, msg domain.Message) int {
	h.mu.Lock()
	h.messages = append(h.messages, msg)
	idx := len(h.messages) - 1
	h.mu.Unlock()

	if h.journal != nil {
		if err := h.journal.PutMessage(ctx, h.sessionID, idx, msg); err != nil {
			h.logger.Warn("journal put message failed", "session", h.sessionID, "index", idx, "err", err)
		}
	}
	return idx
}

// Get returns the message at idx.
func (h *History) Get(idx int) (domain.Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if idx < 0 || idx >= len(h.messages) {
		return domain.Message{}, false
	}
	return h.messages[idx], true
}

// Messages returns a copy of the list.
func (h *History) Messages() []domain.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]domain.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// SetOutcome resolves the booking outcome of an offer message. Only pending
// or previously failed offers move, and only to success or error. A failed
// offer moves again only when a retry attempt resolves.
func (h *History) SetOutcome(ctx context.Context, idx int, outcome domain.Outcome) bool {
	if outcome != domain.OutcomeSuccess && outcome != domain.OutcomeError {
		return false
	}
	h.mu.Lock()
	if idx < 0 || idx >= len(h.messages) || !h.messages[idx].HasOffer() || !retryable(h.messages[idx].Outcome) {
		h.mu.Unlock()
		return false
	}
	h.messages[idx].Outcome = outcome
	h.mu.Unlock()

	if h.journal != nil {
		if err := h.journal.UpdateOutcome(ctx, h.sessionID, idx, outcome); err != nil {
			h.logger.Warn("journal update outcome failed", "session", h.sessionID, "index", idx, "err", err)
		}
	}
	return true
}

func retryable(o domain.Outcome) bool {
	return o == domain.OutcomePending || o == domain.OutcomeError
}

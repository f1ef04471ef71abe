package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"wanderlust/internal/domain"
)

type AssistantClient interface {
	Chat(ctx context.Context, text string) (string, error)
}

type turnKind struct {
	name        string
	offerLead   string
	failureText string
}

var (
	searchTurn = turnKind{
		name:        "search",
		offerLead:   searchOfferLead,
		failureText: "I apologize, but I'm having trouble connecting to our travel network. Please try again.",
	}
	followUpTurn = turnKind{
		name:        "follow_up",
		offerLead:   followUpOfferLead,
		failureText: "Connection issue. Please retry.",
	}
)

// ConversationDeps wires a Conversation.
type ConversationDeps struct {
	Assistant AssistantClient
	History   *History
	Saga      *SagaController
	Logger    *slog.Logger
}

// Conversation drives chat turns against the assistant and hands offers the
// user commits to over to the saga controller. Only one turn may be awaiting
// the assistant at a time.
type Conversation struct {
	assistant  AssistantClient
	history    *History
	saga       *SagaController
	logger     *slog.Logger
	responding *Gate

	mu          sync.RWMutex
	destination string
}

func NewConversation(deps ConversationDeps) (*Conversation, error) {
	if deps.Assistant == nil {
		return nil, errors.New("usecase: assistant client must not be nil")
	}
	if deps.History == nil {
		return nil, errors.New("usecase: history must not be nil")
	}
	if deps.Saga == nil {
		return nil, errors.New("usecase: saga controller must not be nil")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Conversation{
		assistant:  deps.Assistant,
		history:    deps.History,
		saga:       deps.Saga,
		logger:     logger,
		responding: NewGate(),
	}, nil
}

// BuildSearchQuery renders q as the opening message of a conversation.
func BuildSearchQuery(q domain.SearchQuery) string {
	travelers := q.Travelers
	if travelers <= 0 {
		travelers = 1
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Find me the best trips to %s", strings.TrimSpace(q.Destination))
	if dates := strings.TrimSpace(q.Dates); dates != "" {
		fmt.Fprintf(&b, " around %s", dates)
	}
	fmt.Fprintf(&b, " for %d traveler", travelers)
	if travelers > 1 {
		b.WriteString("s")
	}
	return b.String()
}

// StartSearch opens the conversation with a trip search. The destination
// labels every offer parsed from this turn on.
func (c *Conversation) StartSearch(ctx context.Context, q domain.SearchQuery) (domain.Message, error) {
	if strings.TrimSpace(q.Destination) == "" {
		return domain.Message{}, newError(ErrorInvalidInput, "empty_destination", nil)
	}
	return c.turn(ctx, BuildSearchQuery(q), searchTurn, strings.TrimSpace(q.Destination))
}

// SendFollowUp sends free text to the assistant.
func (c *Conversation) SendFollowUp(ctx context.Context, text string) (domain.Message, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Message{}, newError(ErrorInvalidInput, "empty_message", nil)
	}
	return c.turn(ctx, text, followUpTurn, "")
}

// turn appends the user message, awaits the assistant and appends its reply.
// Cancelling ctx does not abandon a request already sent.
// Assistant failures become a fixed assistant message; the returned error is
// reserved for calls that were refused before anything was appended.
func (c *Conversation) turn(ctx context.Context, text string, kind turnKind, destination string) (domain.Message, error) {
	release, ok := c.responding.TryAcquire()
	if !ok {
		return domain.Message{}, newError(ErrorBusy, "assistant_responding", nil)
	}
	defer release()

	if destination != "" {
		c.mu.Lock()
		c.destination = destination
		c.mu.Unlock()
	}

	c.history.Append(ctx, domain.Message{Role: domain.RoleUser, Text: text})

	// Once sent, the turn waits for the reply; the HTTP client timeout bounds it.
	raw, err := c.assistant.Chat(context.WithoutCancel(ctx), text)
	if err != nil {
		c.logger.Warn("assistant turn failed", "turn", kind.name, "err", err)
		reply := domain.Message{Role: domain.RoleAssistant, Text: kind.failureText}
		c.history.Append(ctx, reply)
		return reply, nil
	}

	parsed := parseOffer(raw, c.Destination(), kind.offerLead)
	reply := domain.Message{Role: domain.RoleAssistant, Text: parsed.DisplayText, Offer: parsed.Offer}
	if parsed.Offer != nil {
		reply.Outcome = domain.OutcomePending
	}
	c.history.Append(ctx, reply)
	c.logger.Debug("assistant turn complete", "turn", kind.name, "offer", parsed.Offer != nil)
	return reply, nil
}

// Book commits to the offer on the message at index. accepted is false when
// a booking is already in flight; that is not an error.
func (c *Conversation) Book(ctx context.Context, index int) (attempt *Attempt, accepted bool, err error) {
	msg, ok := c.history.Get(index)
	if !ok {
		return nil, false, newError(ErrorNotFound, "unknown_message", nil)
	}
	if !msg.HasOffer() {
		return nil, false, newError(ErrorInvalidInput, "no_offer", nil)
	}
	if msg.Outcome == domain.OutcomeSuccess {
		return nil, false, newError(ErrorInvalidInput, "already_booked", nil)
	}
	attempt, accepted = c.saga.Commit(ctx, index)
	return attempt, accepted, nil
}

func (c *Conversation) Messages() []domain.Message {
	return c.history.Messages()
}

// Responding reports whether a turn is awaiting the assistant.
func (c *Conversation) Responding() bool {
	return c.responding.Busy()
}

func (c *Conversation) Destination() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.destination
}

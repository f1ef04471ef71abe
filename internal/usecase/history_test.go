package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"wanderlust/internal/domain"
)

func offerMessage() domain.Message {
	return domain.Message{
		Role:    domain.RoleAssistant,
		Text:    "Here:",
		Offer:   &domain.BookingOffer{FlightRef: "FL1", HotelRef: "HT1", Amount: 500},
		Outcome: domain.OutcomePending,
	}
}

func TestHistory_AppendIndexesAndJournals(t *testing.T) {
	j := &fakeJournal{}
	h := NewHistory("s-1", j, nil)

	require.Equal(t, 0, h.Append(context.Background(), domain.Message{Role: domain.RoleUser, Text: "hi"}))
	require.Equal(t, 1, h.Append(context.Background(), offerMessage()))
	require.Equal(t, 2, h.Len())
	require.Equal(t, "s-1", h.SessionID())
	require.Equal(t, []journalCall{{op: "put", index: 0}, {op: "put", index: 1}}, j.calls)

	msg, ok := h.Get(1)
	require.True(t, ok)
	require.True(t, msg.HasOffer())
	_, ok = h.Get(2)
	require.False(t, ok)
	_, ok = h.Get(-1)
	require.False(t, ok)
}

func TestHistory_GeneratesSessionID(t *testing.T) {
	h := NewHistory("", nil, nil)
	require.NotEmpty(t, h.SessionID())
}

func TestHistory_JournalFailuresDoNotLoseMessages(t *testing.T) {
	h := NewHistory("s-1", &fakeJournal{err: errors.New("dynamodb down")}, nil)

	idx := h.Append(context.Background(), offerMessage())
	require.True(t, h.SetOutcome(context.Background(), idx, domain.OutcomeError))

	msg, _ := h.Get(idx)
	require.Equal(t, domain.OutcomeError, msg.Outcome)
}

func TestHistory_SetOutcomeTransitions(t *testing.T) {
	ctx := context.Background()
	j := &fakeJournal{}
	h := NewHistory("s-1", j, nil)
	plain := h.Append(ctx, domain.Message{Role: domain.RoleAssistant, Text: "no offer"})
	idx := h.Append(ctx, offerMessage())

	require.False(t, h.SetOutcome(ctx, plain, domain.OutcomeSuccess))
	require.False(t, h.SetOutcome(ctx, 9, domain.OutcomeSuccess))
	require.False(t, h.SetOutcome(ctx, idx, domain.OutcomePending))

	require.True(t, h.SetOutcome(ctx, idx, domain.OutcomeError))
	require.True(t, h.SetOutcome(ctx, idx, domain.OutcomeSuccess))
	require.False(t, h.SetOutcome(ctx, idx, domain.OutcomeError))

	msg, _ := h.Get(idx)
	require.Equal(t, domain.OutcomeSuccess, msg.Outcome)
	require.Equal(t, []journalCall{
		{op: "put", index: 0},
		{op: "put", index: 1},
		{op: "outcome", index: 1, outcome: domain.OutcomeError},
		{op: "outcome", index: 1, outcome: domain.OutcomeSuccess},
	}, j.calls)
}

func TestHistory_MessagesIsCopy(t *testing.T) {
	h := NewHistory("s-1", nil, nil)
	h.Append(context.Background(), domain.Message{Role: domain.RoleUser, Text: "hi"})

	msgs := h.Messages()
	msgs[0].Text = "changed"

	got, _ := h.Get(0)
	require.Equal(t, "hi", got.Text)
}

package domain

// Role identifies who authored a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Outcome is the booking state of a message that carries an offer.
type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomePending Outcome = "pending"
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// Message is a single entry in the session's conversation. Its index in the
// history is its identity.
type Message struct {
	Role    Role          `json:"role"`
	Text    string        `json:"text"`
	Offer   *BookingOffer `json:"offer,omitempty"`
	Outcome Outcome       `json:"outcome,omitempty"`
}

// HasOffer reports whether the message can be booked.
func (m Message) HasOffer() bool {
	return m.Offer != nil
}

package domain

import "time"

// BookingRequest is the body of one booking dispatch.
type BookingRequest struct {
	FlightRef string  `json:"flightId"`
	HotelRef  string  `json:"hotelId"`
	UserID    string  `json:"userId"`
	Amount    float64 `json:"amount"`
}

// OutcomeEvent records how one booking attempt ended.
type OutcomeEvent struct {
	Token     string    `json:"idempotencyToken"`
	FlightRef string    `json:"flightRef"`
	HotelRef  string    `json:"hotelRef"`
	UserID    string    `json:"userId"`
	Amount    float64   `json:"amount"`
	Outcome   Outcome   `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

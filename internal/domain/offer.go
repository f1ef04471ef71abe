package domain

// BookingOffer is a flight and hotel pairing proposed by the assistant.
type BookingOffer struct {
	FlightRef        string  `json:"flightRef"`
	HotelRef         string  `json:"hotelRef"`
	Amount           float64 `json:"amount"`
	DestinationLabel string  `json:"destinationLabel,omitempty"`
}

// SearchQuery is the structured trip search a conversation starts from.
type SearchQuery struct {
	Destination string
	Dates       string
	Travelers   int
}

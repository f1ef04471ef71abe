package usecase

import (
	"encoding/json"
	"strconv"
	"strings"

	"wanderlust/internal/domain"
)

const (
	searchOfferLead   = "I've found a fantastic option for you:"
	followUpOfferLead = "Here's another great option:"
)

// ParsedReply is an assistant reply split into prose and an optional offer.
type ParsedReply struct {
	DisplayText string
	Offer       *domain.BookingOffer
}

// ParseOffer extracts a booking offer embedded in assistant text. The payload
// is the span from the first '{' to the last '}'; if that span is not a single
// JSON object carrying both a flight and a hotel id, the reply is plain prose.
// destination labels the offer; when empty, the payload's own destination is
// used.
func ParseOffer(raw, destination string) ParsedReply {
	return parseOffer(raw, destination, searchOfferLead)
}

func parseOffer(raw, destination, fallback string) ParsedReply {
	plain := ParsedReply{DisplayText: raw}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return plain
	}
	payload := raw[start : end+1]

	var record map[string]any
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return plain
	}
	flightRef := scalarString(record["flightId"])
	hotelRef := scalarString(record["hotelId"])
	if flightRef == "" || hotelRef == "" {
		return plain
	}

	label := strings.TrimSpace(destination)
	if label == "" {
		label = scalarString(record["destination"])
	}

	text := strings.TrimSpace(strings.Replace(raw, payload, "", 1))
	if text == "" {
		text = fallback
	}
	return ParsedReply{
		DisplayText: text,
		Offer: &domain.BookingOffer{
			FlightRef:        flightRef,
			HotelRef:         hotelRef,
			Amount:           coerceAmount(record["amount"]),
			DestinationLabel: label,
		},
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// coerceAmount accepts numbers and numeric strings; anything else is zero.
func coerceAmount(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return n
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return 0
	}
}

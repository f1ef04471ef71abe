package domain

// SagaStage is the visible progress of a booking attempt.
type SagaStage string

const (
	StageIdle              SagaStage = "idle"
	StageReservingFlight   SagaStage = "reserving-flight"
	StageReservingHotel    SagaStage = "reserving-hotel"
	StageProcessingPayment SagaStage = "processing-payment"
	StageComplete          SagaStage = "complete"
	StageFailed            SagaStage = "failed"
)

// Terminal reports whether no further transition is possible for the attempt.
func (s SagaStage) Terminal() bool {
	return s == StageComplete || s == StageFailed
}

// Label is the human readable form shown while the attempt runs.
func (s SagaStage) Label() string {
	switch s {
	case StageReservingFlight:
		return "Reserving flight"
	case StageReservingHotel:
		return "Reserving hotel"
	case StageProcessingPayment:
		return "Processing payment"
	case StageComplete:
		return "Booking complete"
	case StageFailed:
		return "Booking failed"
	default:
		return "Ready to book"
	}
}

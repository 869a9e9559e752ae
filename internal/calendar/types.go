package calendar

import "time"

// BusyPeriod is one busy interval reported by a department calendar
type BusyPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Attendee identifies one event participant
type Attendee struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// EventInput is the payload for creating a department calendar event.
// IdempotencyKey travels as a header, not in the body; callers retrying the
// same logical creation must pass the same key.
type EventInput struct {
	IdempotencyKey string `json:"-"`

	Department  string     `json:"department"`
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	Attendees   []Attendee `json:"attendees"`
}

// Event is a created department calendar event
type Event struct {
	ID        string     `json:"id"`
	Summary   string     `json:"summary"`
	Status    string     `json:"status"`
	Start     time.Time  `json:"start"`
	End       time.Time  `json:"end"`
	Attendees []Attendee `json:"attendees,omitempty"`
}

type freeBusyResponse struct {
	Busy []BusyPeriod `json:"busy"`
}

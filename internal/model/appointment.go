package model

import "time"

type AppointmentStatus string

const (
	AppointmentStatusConfirmed AppointmentStatus = "both_confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Appointment is a confirmed, calendar-backed meeting created from a
// mutually accepted request
type Appointment struct {
	ID              int64             `json:"id"`
	RequestID       int64             `json:"request_id"`
	StudentID       int64             `json:"student_id"`
	CounselorID     int64             `json:"counselor_id"`
	Department      string            `json:"department"`
	Agenda          Agenda            `json:"agenda"`
	StartTime       time.Time         `json:"start_time"`
	EndTime         time.Time         `json:"end_time"`
	CalendarEventID *string           `json:"calendar_event_id"` // nil until the external event is created
	Status          AppointmentStatus `json:"status"`
	CancelledBy     *Role             `json:"cancelled_by"`
	CancelledAt     *time.Time        `json:"cancelled_at"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       *time.Time        `json:"updated_at"`
}

// IsCancelled checks if the appointment no longer occupies its slot
func (a *Appointment) IsCancelled() bool {
	return a.CancelledAt != nil
}

// OwnedBy checks if the given party, in the given role, owns the appointment
func (a *Appointment) OwnedBy(userID int64, role Role) bool {
	if role == RoleStudent {
		return a.StudentID == userID
	}
	return a.CounselorID == userID
}

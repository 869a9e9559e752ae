package model

import "time"

type RequestStatus string

const (
	RequestStatusPending       RequestStatus = "pending"        // Awaiting the counterpart's response
	RequestStatusBothConfirmed RequestStatus = "both_confirmed" // Both sides accepted
	RequestStatusDeclined      RequestStatus = "declined"       // Declined by either side
	RequestStatusExpired       RequestStatus = "expired"        // Expired by the background sweep
)

type Response string

const (
	ResponsePending  Response = "pending"
	ResponseAccepted Response = "accepted"
	ResponseDeclined Response = "declined"
)

type Agenda string

const (
	AgendaCounseling       Agenda = "counseling"
	AgendaMeeting          Agenda = "meeting"
	AgendaRoutineInterview Agenda = "routine_interview"
	AgendaEvent            Agenda = "event"
)

// Valid reports whether the agenda is one of the known values
func (a Agenda) Valid() bool {
	switch a {
	case AgendaCounseling, AgendaMeeting, AgendaRoutineInterview, AgendaEvent:
		return true
	}
	return false
}

// AppointmentRequest is a proposed booking awaiting both parties' agreement
type AppointmentRequest struct {
	ID                int64         `json:"id"`
	StudentID         int64         `json:"student_id"`
	CounselorID       int64         `json:"counselor_id"`
	Department        string        `json:"department"`
	Agenda            Agenda        `json:"agenda"`
	ProposedStart     time.Time     `json:"proposed_start"`
	ProposedEnd       time.Time     `json:"proposed_end"`
	ProposedBy        Role          `json:"proposed_by"`
	CreatedBy         Role          `json:"created_by"`
	StudentResponse   Response      `json:"student_response"`
	CounselorResponse Response      `json:"counselor_response"`
	Status            RequestStatus `json:"status"`
	FinalizedAt       *time.Time    `json:"finalized_at"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         *time.Time    `json:"updated_at"`
}

// IsPending checks if the request is still awaiting a response
func (r *AppointmentRequest) IsPending() bool {
	return r.Status == RequestStatusPending
}

// ResponseFor returns the response field belonging to the given role
func (r *AppointmentRequest) ResponseFor(role Role) Response {
	if role == RoleStudent {
		return r.StudentResponse
	}
	return r.CounselorResponse
}

// SetResponse sets the response field belonging to the given role
func (r *AppointmentRequest) SetResponse(role Role, resp Response) {
	if role == RoleStudent {
		r.StudentResponse = resp
	} else {
		r.CounselorResponse = resp
	}
}

// ParticipantID returns the ID of the party holding the given role
func (r *AppointmentRequest) ParticipantID(role Role) int64 {
	if role == RoleStudent {
		return r.StudentID
	}
	return r.CounselorID
}

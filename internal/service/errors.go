package service

// Error is a typed failure crossing the service boundary. Code is stable
// and machine-routable; Message is for humans. Services wrap underlying
// causes with fmt.Errorf("...: %w", ErrX) so errors.Is still matches.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Validation errors
var (
	ErrInvalidTimeRange    = &Error{Code: "invalid_time_range", Message: "end time must be after start time"}
	ErrPastAppointment     = &Error{Code: "past_appointment", Message: "appointment time must be in the future"}
	ErrInvalidSlotDuration = &Error{Code: "invalid_slot_duration", Message: "slot duration must be positive"}
	ErrInvalidWorkHours    = &Error{Code: "invalid_work_hours", Message: "working hours are out of range"}
	ErrInvalidRole         = &Error{Code: "invalid_role", Message: "role must be student or counselor"}
	ErrInvalidAgenda       = &Error{Code: "invalid_agenda", Message: "unknown agenda"}
	ErrInvalidDecision     = &Error{Code: "invalid_decision", Message: "decision must be accepted or declined"}
)

// Not-found errors
var (
	ErrRequestNotFound     = &Error{Code: "request_not_found", Message: "appointment request not found"}
	ErrAppointmentNotFound = &Error{Code: "appointment_not_found", Message: "appointment not found"}
	ErrStudentNotFound     = &Error{Code: "student_not_found", Message: "student not found or inactive"}
	ErrCounselorNotFound   = &Error{Code: "counselor_not_found", Message: "counselor not found or inactive"}
)

// State-conflict errors
var (
	ErrInvalidRequestStatus = &Error{Code: "invalid_request_status", Message: "request is no longer pending"}
	ErrResponseAlreadyGiven = &Error{Code: "response_already_given", Message: "this side has already responded"}
	ErrDuplicateRequest     = &Error{Code: "duplicate_request", Message: "an identical pending request already exists"}
	ErrDifferentDepartment  = &Error{Code: "different_department", Message: "both parties must belong to the same department"}
	ErrAppointmentNotActive = &Error{Code: "appointment_not_active", Message: "appointment is already cancelled"}
)

// Resource contention
var (
	ErrTimeSlotUnavailable = &Error{Code: "time_slot_unavailable", Message: "the requested time slot is not available"}
)

// Authorization
var (
	ErrUnauthorizedAction = &Error{Code: "unauthorized_action", Message: "caller does not own this resource"}
)

// Integration failures
var (
	ErrExternalEventCreationFailed = &Error{Code: "external_event_creation_failed", Message: "could not create the external calendar event"}
	ErrExternalCalendarQueryFailed = &Error{Code: "external_calendar_query_failed", Message: "could not query the external calendar"}
)

// Internal invariant failures; surfaced to callers without internal detail
var (
	ErrRequestUpdateFailed = &Error{Code: "request_update_failed", Message: "internal error while updating the request"}
	ErrUserDetailsNotFound = &Error{Code: "user_details_not_found", Message: "internal error resolving participant details"}
)

package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrInvalidTimeFormat           = errors.New("invalid time format, expected YYYY-MM-DD HH:MM")
	ErrUnknownTimezone             = errors.New("unknown timezone")
	ErrPrimaryPractitionerNotInSet = errors.New("primary practitioner is not in the practitioner set")
	ErrNoAvailabilityIntersection  = errors.New("no common availability window")
)

// SchedulingConflictError reports the appointments colliding with a proposed
// slot so the caller can render a precise error.
type SchedulingConflictError struct {
	PractitionerID uuid.UUID
	AppointmentIDs []uuid.UUID
}

func (e *SchedulingConflictError) Error() string {
	return fmt.Sprintf("practitioner %s has %d conflicting appointment(s)", e.PractitionerID, len(e.AppointmentIDs))
}

type IllegalTransitionError struct {
	From AppointmentStatus
	To   AppointmentStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}

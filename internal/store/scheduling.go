package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"clinicore/backend/internal/domain"
)

type SchedulingRepository interface {
	GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	GetPractitionerSlots(ctx context.Context, appointmentID uuid.UUID) ([]domain.AppointmentPractitioner, error)
	ListAppointments(ctx context.Context, practitionerID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error)

	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to domain.AppointmentStatus) (domain.Appointment, error)
	SetExternalEventID(ctx context.Context, id uuid.UUID, eventID string) error

	// InPractitionersTransaction runs fn inside one transaction holding an
	// advisory lock per practitioner, so a concurrent booking for any of the
	// same practitioners cannot interleave between conflict check and commit.
	InPractitionersTransaction(ctx context.Context, practitionerIDs []uuid.UUID, fn func(ctx context.Context, tx SchedulingTx) error) error
}

// SchedulingTx is the write surface available inside a practitioner-locked
// transaction.
type SchedulingTx interface {
	// FindConflicts returns the ids of active appointments whose slot for the
	// practitioner overlaps [start, end). Boundary touches are not conflicts.
	FindConflicts(ctx context.Context, practitionerID uuid.UUID, start, end time.Time, excludeAppointmentID *uuid.UUID) ([]uuid.UUID, error)

	GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	InsertPractitionerSlots(ctx context.Context, slots []domain.AppointmentPractitioner) ([]domain.AppointmentPractitioner, error)

	// ReplacePractitionerSlots deletes all of the appointment's slot rows and
	// inserts the given ones, for reschedules.
	ReplacePractitionerSlots(ctx context.Context, appointmentID uuid.UUID, slots []domain.AppointmentPractitioner) ([]domain.AppointmentPractitioner, error)
	UpdateAppointmentSchedule(ctx context.Context, upd ScheduleUpdate) (domain.Appointment, error)
}

// ScheduleUpdate rewrites an appointment's bookable fields during a
// reschedule. StoredTimezone is deliberately not part of it.
type ScheduleUpdate struct {
	AppointmentID      uuid.UUID
	StartTime          time.Time
	EndTime            time.Time
	DateTimePreference string
	ServiceID          *uuid.UUID
	LocationID         *uuid.UUID
}

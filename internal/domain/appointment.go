package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AppointmentStatus string

const (
	StatusRequested      AppointmentStatus = "requested"
	StatusPendingConsent AppointmentStatus = "pending_consent"
	StatusPending        AppointmentStatus = "pending"
	StatusConfirmed      AppointmentStatus = "confirmed"
	StatusCompleted      AppointmentStatus = "completed"
	StatusCancelled      AppointmentStatus = "cancelled"
	StatusDeclined       AppointmentStatus = "declined"
)

// Blocking reports whether an appointment in this status occupies its
// practitioners' time for conflict purposes.
func (s AppointmentStatus) Blocking() bool {
	return s != StatusCancelled && s != StatusDeclined
}

// NonBlockingStatuses are excluded from every conflict query.
func NonBlockingStatuses() []AppointmentStatus {
	return []AppointmentStatus{StatusCancelled, StatusDeclined}
}

type DeliveryMode string

const (
	ModeInPerson DeliveryMode = "in_person"
	ModeVirtual  DeliveryMode = "virtual"
	ModeHybrid   DeliveryMode = "hybrid"
)

type Appointment struct {
	bun.BaseModel `bun:"table:appointments,alias:a"`

	ID           uuid.UUID    `bun:"id,pk,type:uuid"`
	TenantID     string       `bun:"tenant_id,notnull"`
	PatientID    uuid.UUID    `bun:"patient_id,notnull,type:uuid"`
	ServiceID    uuid.UUID    `bun:"service_id,notnull,type:uuid"`
	LocationID   *uuid.UUID   `bun:"location_id,type:uuid"`
	DeliveryMode DeliveryMode `bun:"delivery_mode,notnull"`
	StartTime    time.Time    `bun:"start_time,notnull"`
	EndTime      time.Time    `bun:"end_time,notnull"`

	// StoredTimezone is the tenant timezone in effect at creation. It is
	// immutable so historical times display correctly even after a tenant
	// changes its configured timezone; the UTC instants stay authoritative.
	StoredTimezone string `bun:"stored_timezone,notnull"`

	// DateTimePreference is the local-time string exactly as entered.
	// Audit/debug only; never used for computation.
	DateTimePreference string `bun:"date_time_preference"`

	Status            AppointmentStatus `bun:"status,notnull"`
	RootAppointmentID *uuid.UUID        `bun:"root_appointment_id,type:uuid"`
	ExternalEventID   *string           `bun:"external_event_id"`
	CompletedAt       *time.Time        `bun:"completed_at"`
	CreatedAt         time.Time         `bun:"created_at,notnull"`
	UpdatedAt         time.Time         `bun:"updated_at,notnull"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

// AppointmentPractitioner carries one practitioner's slot within an
// appointment. Slot times may differ per practitioner for advanced bookings,
// so conflict checks run against these rows, not the parent appointment.
type AppointmentPractitioner struct {
	bun.BaseModel `bun:"table:appointment_practitioners,alias:ap"`

	ID             uuid.UUID `bun:"id,pk,type:uuid"`
	AppointmentID  uuid.UUID `bun:"appointment_id,notnull,type:uuid"`
	PractitionerID uuid.UUID `bun:"practitioner_id,notnull,type:uuid"`
	StartTime      time.Time `bun:"start_time,notnull"`
	EndTime        time.Time `bun:"end_time,notnull"`
	IsPrimary      bool      `bun:"is_primary,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
	UpdatedAt      time.Time `bun:"updated_at,notnull"`
}

func (p *AppointmentPractitioner) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if p.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			p.ID = id
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		p.UpdatedAt = now
	}
	return nil
}

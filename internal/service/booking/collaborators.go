package booking

import (
	"context"

	"github.com/google/uuid"

	"clinicore/backend/internal/domain"
)

// PatientDirectory is the patient-registry collaborator.
type PatientDirectory interface {
	FindOrCreatePatient(ctx context.Context, identity domain.PatientIdentity) (uuid.UUID, error)
	IsApproved(ctx context.Context, patientID uuid.UUID) (bool, error)
	Approve(ctx context.Context, patientID, approverID uuid.UUID) error
	AcceptInvitation(ctx context.Context, patientID uuid.UUID) error
}

type ConsentService interface {
	HasAllRequiredConsents(ctx context.Context, patientID uuid.UUID) (bool, error)
	TriggerConsentRequest(ctx context.Context, patientID uuid.UUID, event string) error
}

// InvoicingService must be idempotent per appointment; the orchestrator may
// call it more than once.
type InvoicingService interface {
	GenerateInvoiceForAppointment(ctx context.Context, appointmentID uuid.UUID) error
}

// LedgerService records the practitioner payout split when a session
// completes.
type LedgerService interface {
	RecordAppointmentPayout(ctx context.Context, appointmentID uuid.UUID) error
}

// CalendarSync is best-effort; failures are logged, never raised.
type CalendarSync interface {
	CreateEvent(ctx context.Context, practitionerID uuid.UUID, event domain.CalendarEvent) (string, error)
}

// Notifier is fire-and-forget from the core's perspective.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, notice domain.BookingNotice) error
	SendRescheduleNotice(ctx context.Context, notice domain.RescheduleNotice) error
	SendConsentRequest(ctx context.Context, patientID uuid.UUID) error
}

type AuditLog interface {
	RecordAdminOverride(ctx context.Context, appointmentID uuid.UUID, approverID uuid.UUID, overrideCode string) error
}

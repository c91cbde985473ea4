package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"clinicore/backend/internal/domain"
)

// CalendarRepo mirrors practitioner slots onto the in-house calendar table.
type CalendarRepo struct {
	db *bun.DB
}

func NewCalendarRepo(db *bun.DB) *CalendarRepo {
	return &CalendarRepo{db: db}
}

func (r *CalendarRepo) CreateEvent(ctx context.Context, practitionerID uuid.UUID, event domain.CalendarEvent) (string, error) {
	entry := domain.CalendarEntry{
		PractitionerID: practitionerID,
		AppointmentID:  event.AppointmentID,
		StartTime:      event.StartTime,
		EndTime:        event.EndTime,
		Summary:        event.Summary,
	}
	if _, err := r.db.NewInsert().Model(&entry).Exec(ctx); err != nil {
		return "", err
	}
	return entry.ID.String(), nil
}

// AuditRepo appends privileged-action records.
type AuditRepo struct {
	db *bun.DB
}

func NewAuditRepo(db *bun.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) RecordAdminOverride(ctx context.Context, appointmentID, approverID uuid.UUID, overrideCode string) error {
	ev := domain.AuditEvent{
		AppointmentID: appointmentID,
		ActorID:       approverID,
		Action:        "admin_override",
		Detail:        overrideCode,
	}
	_, err := r.db.NewInsert().Model(&ev).Exec(ctx)
	return err
}

// OutboxNotifier queues notifications for out-of-band delivery instead of
// calling a mail or SMS provider inline.
type OutboxNotifier struct {
	db *bun.DB
}

func NewOutboxNotifier(db *bun.DB) *OutboxNotifier {
	return &OutboxNotifier{db: db}
}

func (n *OutboxNotifier) SendBookingConfirmation(ctx context.Context, notice domain.BookingNotice) error {
	return n.enqueue(ctx, "booking_confirmation", notice)
}

func (n *OutboxNotifier) SendRescheduleNotice(ctx context.Context, notice domain.RescheduleNotice) error {
	return n.enqueue(ctx, "reschedule_notice", notice)
}

func (n *OutboxNotifier) SendConsentRequest(ctx context.Context, patientID uuid.UUID) error {
	return n.enqueue(ctx, "consent_request", map[string]string{
		"patient_id":   patientID.String(),
		"requested_at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (n *OutboxNotifier) enqueue(ctx context.Context, kind string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := domain.OutboxMessage{
		Kind:    kind,
		Payload: raw,
	}
	_, err = n.db.NewInsert().Model(&msg).Exec(ctx)
	return err
}

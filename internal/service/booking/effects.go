package booking

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"clinicore/backend/internal/domain"
)

type effectArgs struct {
	ApproverID   uuid.UUID
	OverrideCode string
}

// runEffects executes post-commit collaborator effects. Failures are logged
// with enough context for out-of-band retry and never propagate to the
// caller; the booking or transition has already committed.
func (s *Service) runEffects(ctx context.Context, appt domain.Appointment, effects []domain.EffectKind, args effectArgs) {
	for _, kind := range effects {
		var err error
		switch kind {
		case domain.EffectApprovePatient:
			err = s.patients.Approve(ctx, appt.PatientID, args.ApproverID)
		case domain.EffectCreateInvoice:
			err = s.invoices.GenerateInvoiceForAppointment(ctx, appt.ID)
		case domain.EffectAcceptInvitation:
			err = s.patients.AcceptInvitation(ctx, appt.PatientID)
		case domain.EffectAuditOverride:
			err = s.audit.RecordAdminOverride(ctx, appt.ID, args.ApproverID, args.OverrideCode)
		case domain.EffectRecordPayout:
			err = s.ledger.RecordAppointmentPayout(ctx, appt.ID)
		case domain.EffectSendConsentRequest:
			err = s.consents.TriggerConsentRequest(ctx, appt.PatientID, "booking_created")
			if err == nil {
				err = s.notifier.SendConsentRequest(ctx, appt.PatientID)
			}
		}
		if err != nil {
			s.log.Error("post-commit effect failed",
				slog.String("appointment_id", appt.ID.String()),
				slog.String("effect", string(kind)),
				slog.Any("err", err),
			)
		}
	}
}

// postBookingEffects runs the booking-specific best-effort work: invoicing
// for virtual sessions, calendar sync, and the confirmation notice.
func (s *Service) postBookingEffects(ctx context.Context, appt domain.Appointment, slots []domain.AppointmentPractitioner) {
	if appt.DeliveryMode == domain.ModeVirtual {
		if err := s.invoices.GenerateInvoiceForAppointment(ctx, appt.ID); err != nil {
			s.log.Error("virtual booking invoice failed",
				slog.String("appointment_id", appt.ID.String()),
				slog.Any("err", err),
			)
		}
	}

	practitionerIDs := make([]uuid.UUID, 0, len(slots))
	for _, slot := range slots {
		practitionerIDs = append(practitionerIDs, slot.PractitionerID)

		eventID, err := s.calendar.CreateEvent(ctx, slot.PractitionerID, domain.CalendarEvent{
			AppointmentID: appt.ID,
			StartTime:     slot.StartTime,
			EndTime:       slot.EndTime,
			Summary:       "Appointment",
		})
		if err != nil {
			s.log.Error("calendar sync failed",
				slog.String("appointment_id", appt.ID.String()),
				slog.String("practitioner_id", slot.PractitionerID.String()),
				slog.Any("err", err),
			)
			continue
		}
		if slot.IsPrimary && eventID != "" {
			if err := s.repo.SetExternalEventID(ctx, appt.ID, eventID); err != nil {
				s.log.Error("store external event id failed",
					slog.String("appointment_id", appt.ID.String()),
					slog.Any("err", err),
				)
			}
		}
	}

	err := s.notifier.SendBookingConfirmation(ctx, domain.BookingNotice{
		AppointmentID:   appt.ID,
		PatientID:       appt.PatientID,
		PractitionerIDs: practitionerIDs,
		StartTime:       appt.StartTime,
		EndTime:         appt.EndTime,
		Timezone:        appt.StoredTimezone,
	})
	if err != nil {
		s.log.Error("booking confirmation failed",
			slog.String("appointment_id", appt.ID.String()),
			slog.Any("err", err),
		)
	}
}

package booking

import (
	"context"

	"github.com/google/uuid"

	"clinicore/backend/internal/domain"
)

// Confirm moves an appointment to confirmed and runs the transition's
// post-commit effects. An override code, when supplied for an unapproved
// booking, additionally fires the admin-override audit event.
func (s *Service) Confirm(ctx context.Context, appointmentID, approverID uuid.UUID, overrideCode string) (domain.Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}

	effects, err := domain.Transition(appt.Status, domain.StatusConfirmed)
	if err != nil {
		return domain.Appointment{}, err
	}
	if appt.Status == domain.StatusRequested && overrideCode != "" {
		effects = append(effects, domain.EffectAuditOverride)
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appointmentID, appt.Status, domain.StatusConfirmed)
	if err != nil {
		return domain.Appointment{}, err
	}

	s.runEffects(ctx, updated, effects, effectArgs{ApproverID: approverID, OverrideCode: overrideCode})
	return updated, nil
}

// Complete marks a confirmed session as finished. The completion timestamp is
// written with the status change; the payout split runs post-commit.
func (s *Service) Complete(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error) {
	return s.transitionTo(ctx, appointmentID, domain.StatusCompleted)
}

func (s *Service) Cancel(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error) {
	return s.transitionTo(ctx, appointmentID, domain.StatusCancelled)
}

func (s *Service) Decline(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error) {
	return s.transitionTo(ctx, appointmentID, domain.StatusDeclined)
}

func (s *Service) transitionTo(ctx context.Context, appointmentID uuid.UUID, to domain.AppointmentStatus) (domain.Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}

	effects, err := domain.Transition(appt.Status, to)
	if err != nil {
		return domain.Appointment{}, err
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appointmentID, appt.Status, to)
	if err != nil {
		return domain.Appointment{}, err
	}

	s.runEffects(ctx, updated, effects, effectArgs{})
	return updated, nil
}

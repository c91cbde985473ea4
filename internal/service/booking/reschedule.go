package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"clinicore/backend/internal/domain"
	"clinicore/backend/internal/store"
)

// ErrRescheduleNotPending is returned when a reschedule targets an
// appointment that has left the pending state.
var ErrRescheduleNotPending = errors.New("appointment can only be rescheduled while pending")

type RescheduleInput struct {
	Tenant                domain.Tenant
	AppointmentID         uuid.UUID
	LocalStart            string
	PractitionerIDs       []uuid.UUID
	PrimaryPractitionerID uuid.UUID
	SlotDivisions         []SlotDivision
	ServiceID             *uuid.UUID
	LocationID            *uuid.UUID
}

// Reschedule rewrites a pending appointment's window and practitioner set.
// The old slot rows are deleted and the new ones inserted inside the same
// transaction as the conflict re-check, so a rejected reschedule leaves the
// original booking untouched.
func (s *Service) Reschedule(ctx context.Context, in RescheduleInput) (domain.Appointment, error) {
	if err := validateTenant(in.Tenant); err != nil {
		return domain.Appointment{}, err
	}
	if in.AppointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}

	start, err := domain.ToUTC(in.LocalStart, in.Tenant.Timezone)
	if err != nil {
		return domain.Appointment{}, err
	}
	end := in.Tenant.SessionEnd(start)

	newSlots, err := buildSlots(in.Tenant, in.PractitionerIDs, in.PrimaryPractitionerID, in.SlotDivisions, start, end)
	if err != nil {
		return domain.Appointment{}, err
	}

	before, err := s.repo.GetAppointment(ctx, in.AppointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if before.Status != domain.StatusPending {
		return domain.Appointment{}, ErrRescheduleNotPending
	}
	oldSlots, err := s.repo.GetPractitionerSlots(ctx, in.AppointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}

	lockIDs := make([]uuid.UUID, 0, len(oldSlots)+len(newSlots))
	for _, slot := range oldSlots {
		lockIDs = append(lockIDs, slot.PractitionerID)
	}
	lockIDs = append(lockIDs, in.PractitionerIDs...)

	var updated domain.Appointment
	err = s.locker.WithBookingLocks(ctx, bookingLockKeys(append(newSlots, oldSlots...)), func(ctx context.Context) error {
		return s.repo.InPractitionersTransaction(ctx, lockIDs, func(ctx context.Context, tx store.SchedulingTx) error {
			appt, err := tx.GetAppointment(ctx, in.AppointmentID)
			if err != nil {
				return err
			}
			if appt.Status != domain.StatusPending {
				return ErrRescheduleNotPending
			}

			excludeID := in.AppointmentID
			for _, slot := range newSlots {
				colliding, err := tx.FindConflicts(ctx, slot.PractitionerID, slot.StartTime, slot.EndTime, &excludeID)
				if err != nil {
					return fmt.Errorf("conflict check: %w", err)
				}
				if len(colliding) > 0 {
					return &domain.SchedulingConflictError{
						PractitionerID: slot.PractitionerID,
						AppointmentIDs: colliding,
					}
				}
			}

			if _, err := tx.ReplacePractitionerSlots(ctx, in.AppointmentID, newSlots); err != nil {
				return fmt.Errorf("replace practitioner slots: %w", err)
			}

			updated, err = tx.UpdateAppointmentSchedule(ctx, store.ScheduleUpdate{
				AppointmentID:      in.AppointmentID,
				StartTime:          start,
				EndTime:            end,
				DateTimePreference: in.LocalStart,
				ServiceID:          in.ServiceID,
				LocationID:         in.LocationID,
			})
			return err
		})
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	s.sendRescheduleNotice(ctx, before, updated, in.PractitionerIDs)
	return updated, nil
}

func (s *Service) sendRescheduleNotice(ctx context.Context, before, after domain.Appointment, practitionerIDs []uuid.UUID) {
	err := s.notifier.SendRescheduleNotice(ctx, domain.RescheduleNotice{
		AppointmentID:   after.ID,
		PatientID:       after.PatientID,
		PractitionerIDs: practitionerIDs,
		OldStartTime:    before.StartTime,
		OldEndTime:      before.EndTime,
		NewStartTime:    after.StartTime,
		NewEndTime:      after.EndTime,
		OldServiceID:    before.ServiceID,
		NewServiceID:    after.ServiceID,
		OldLocationID:   before.LocationID,
		NewLocationID:   after.LocationID,
		Timezone:        after.StoredTimezone,
	})
	if err != nil {
		s.log.Error("reschedule notice failed",
			slog.String("appointment_id", after.ID.String()),
			slog.Any("err", err),
		)
	}
}

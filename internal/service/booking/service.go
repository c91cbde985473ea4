package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"clinicore/backend/internal/domain"
	redisclient "clinicore/backend/internal/redis"
	"clinicore/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// Deps wires the scheduling core to its store and external collaborators.
type Deps struct {
	Repo         store.SchedulingRepository
	Availability store.AvailabilityReader
	Locker       redisclient.Locker
	Patients     PatientDirectory
	Consents     ConsentService
	Invoices     InvoicingService
	Ledger       LedgerService
	Calendar     CalendarSync
	Notifier     Notifier
	Audit        AuditLog
	Log          *slog.Logger
}

type Service struct {
	repo     store.SchedulingRepository
	avail    store.AvailabilityReader
	locker   redisclient.Locker
	patients PatientDirectory
	consents ConsentService
	invoices InvoicingService
	ledger   LedgerService
	calendar CalendarSync
	notifier Notifier
	audit    AuditLog
	log      *slog.Logger
}

func NewService(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:     d.Repo,
		avail:    d.Availability,
		locker:   d.Locker,
		patients: d.Patients,
		consents: d.Consents,
		invoices: d.Invoices,
		ledger:   d.Ledger,
		calendar: d.Calendar,
		notifier: d.Notifier,
		audit:    d.Audit,
		log:      log.With(slog.String("component", "booking")),
	}
}

// SlotDivision overrides one practitioner's window within a multi-practitioner
// appointment. Times are tenant-local strings like the main request.
type SlotDivision struct {
	PractitionerID uuid.UUID
	LocalStart     string
	LocalEnd       string
}

type BookInput struct {
	Tenant                domain.Tenant
	Patient               domain.PatientIdentity
	ServiceID             uuid.UUID
	LocationID            *uuid.UUID
	DeliveryMode          domain.DeliveryMode
	LocalStart            string
	PractitionerIDs       []uuid.UUID
	PrimaryPractitionerID uuid.UUID
	SlotDivisions         []SlotDivision
	RootAppointmentID     *uuid.UUID
}

// Book creates an appointment atomically: every practitioner's slot is
// conflict-checked inside the practitioner-locked transaction before anything
// is written, and collaborator side effects run only after commit.
func (s *Service) Book(ctx context.Context, in BookInput) (domain.Appointment, error) {
	if err := validateTenant(in.Tenant); err != nil {
		return domain.Appointment{}, err
	}
	if in.ServiceID == uuid.Nil {
		return domain.Appointment{}, validationError("service_id is required")
	}
	mode := in.DeliveryMode
	if mode == "" {
		mode = domain.ModeInPerson
	}
	if mode != domain.ModeInPerson && mode != domain.ModeVirtual && mode != domain.ModeHybrid {
		return domain.Appointment{}, validationError("invalid delivery_mode")
	}

	start, err := domain.ToUTC(in.LocalStart, in.Tenant.Timezone)
	if err != nil {
		return domain.Appointment{}, err
	}
	end := in.Tenant.SessionEnd(start)

	slots, err := buildSlots(in.Tenant, in.PractitionerIDs, in.PrimaryPractitionerID, in.SlotDivisions, start, end)
	if err != nil {
		return domain.Appointment{}, err
	}

	patientID, err := s.patients.FindOrCreatePatient(ctx, in.Patient)
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("resolve patient: %w", err)
	}
	approved, err := s.patients.IsApproved(ctx, patientID)
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("read patient approval: %w", err)
	}
	consented, err := s.consents.HasAllRequiredConsents(ctx, patientID)
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("read consent state: %w", err)
	}
	status, entryEffects := domain.EntryStatus(approved, consented, in.Tenant.DefaultEntryStatus)

	var created domain.Appointment
	err = s.locker.WithBookingLocks(ctx, bookingLockKeys(slots), func(ctx context.Context) error {
		return s.repo.InPractitionersTransaction(ctx, in.PractitionerIDs, func(ctx context.Context, tx store.SchedulingTx) error {
			for _, slot := range slots {
				colliding, err := tx.FindConflicts(ctx, slot.PractitionerID, slot.StartTime, slot.EndTime, nil)
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

			appt, err := tx.InsertAppointment(ctx, domain.Appointment{
				TenantID:           in.Tenant.ID,
				PatientID:          patientID,
				ServiceID:          in.ServiceID,
				LocationID:         in.LocationID,
				DeliveryMode:       mode,
				StartTime:          start,
				EndTime:            end,
				StoredTimezone:     in.Tenant.Timezone,
				DateTimePreference: in.LocalStart,
				Status:             status,
				RootAppointmentID:  in.RootAppointmentID,
			})
			if err != nil {
				return fmt.Errorf("insert appointment: %w", err)
			}

			for i := range slots {
				slots[i].AppointmentID = appt.ID
			}
			if _, err := tx.InsertPractitionerSlots(ctx, slots); err != nil {
				return fmt.Errorf("insert practitioner slots: %w", err)
			}

			created = appt
			return nil
		})
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	s.runEffects(ctx, created, entryEffects, effectArgs{})
	s.postBookingEffects(ctx, created, slots)

	return created, nil
}

// ListAppointments returns a practitioner's appointments intersecting the
// window.
func (s *Service) ListAppointments(ctx context.Context, practitionerID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	if practitionerID == uuid.Nil {
		return nil, validationError("practitioner_id is required")
	}
	start := windowStart.UTC()
	end := windowEnd.UTC()
	if end.Equal(start) || end.Before(start) {
		return nil, validationError("window_end must be after window_start")
	}
	return s.repo.ListAppointments(ctx, practitionerID, start, end)
}

// JointAvailability computes the weekly windows during which every requested
// practitioner is simultaneously available.
func (s *Service) JointAvailability(ctx context.Context, practitionerIDs []uuid.UUID, locationID *uuid.UUID) (map[domain.Weekday][]domain.LocalInterval, error) {
	if len(practitionerIDs) < 2 {
		return nil, validationError("joint availability requires at least two practitioners")
	}

	byPractitioner := make([]map[domain.Weekday][]domain.LocalInterval, 0, len(practitionerIDs))
	for _, id := range practitionerIDs {
		avail, err := s.avail.GetAvailability(ctx, id, locationID)
		if err != nil {
			return nil, fmt.Errorf("load availability for %s: %w", id, err)
		}
		byPractitioner = append(byPractitioner, avail)
	}

	joint := domain.IntersectAvailability(byPractitioner)
	if len(joint) == 0 {
		return nil, domain.ErrNoAvailabilityIntersection
	}
	return joint, nil
}

func validateTenant(t domain.Tenant) error {
	if t.ID == "" {
		return validationError("tenant id is required")
	}
	if t.Timezone == "" {
		return validationError("tenant timezone is required")
	}
	if t.SessionDuration <= 0 {
		return validationError("tenant session duration must be positive")
	}
	return nil
}

// buildSlots resolves each practitioner's window: the slot division when one
// is supplied, otherwise the common appointment window.
func buildSlots(tenant domain.Tenant, practitionerIDs []uuid.UUID, primaryID uuid.UUID, divisions []SlotDivision, start, end time.Time) ([]domain.AppointmentPractitioner, error) {
	if len(practitionerIDs) == 0 {
		return nil, validationError("at least one practitioner is required")
	}

	inSet := false
	seen := make(map[uuid.UUID]struct{}, len(practitionerIDs))
	for _, id := range practitionerIDs {
		if id == uuid.Nil {
			return nil, validationError("practitioner_id must not be empty")
		}
		if _, ok := seen[id]; ok {
			return nil, validationError("duplicate practitioner_id")
		}
		seen[id] = struct{}{}
		if id == primaryID {
			inSet = true
		}
	}
	if !inSet {
		return nil, domain.ErrPrimaryPractitionerNotInSet
	}

	byPractitioner := make(map[uuid.UUID]SlotDivision, len(divisions))
	for _, d := range divisions {
		if _, ok := seen[d.PractitionerID]; !ok {
			return nil, validationError("slot division references unknown practitioner")
		}
		byPractitioner[d.PractitionerID] = d
	}

	slots := make([]domain.AppointmentPractitioner, 0, len(practitionerIDs))
	for _, id := range practitionerIDs {
		slotStart, slotEnd := start, end
		if d, ok := byPractitioner[id]; ok {
			var err error
			slotStart, err = domain.ToUTC(d.LocalStart, tenant.Timezone)
			if err != nil {
				return nil, err
			}
			slotEnd, err = domain.ToUTC(d.LocalEnd, tenant.Timezone)
			if err != nil {
				return nil, err
			}
			if !slotStart.Before(slotEnd) {
				return nil, validationError("slot division end must be after start")
			}
		}
		slots = append(slots, domain.AppointmentPractitioner{
			PractitionerID: id,
			StartTime:      slotStart,
			EndTime:        slotEnd,
			IsPrimary:      id == primaryID,
		})
	}

	return slots, nil
}

// bookingLockKeys covers every UTC calendar day each slot touches.
func bookingLockKeys(slots []domain.AppointmentPractitioner) []string {
	var keys []string
	for _, slot := range slots {
		day := slot.StartTime.UTC().Truncate(24 * time.Hour)
		for day.Before(slot.EndTime) {
			keys = append(keys, redisclient.BookingLockKey(slot.PractitionerID, day))
			day = day.AddDate(0, 0, 1)
		}
	}
	return keys
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"clinicore/backend/internal/domain"
	"clinicore/backend/internal/store"
)

type SchedulingRepo struct {
	db *bun.DB
}

func NewSchedulingRepo(db *bun.DB) *SchedulingRepo {
	return &SchedulingRepo{db: db}
}

type schedulingTx struct {
	tx bun.Tx
}

func (r *SchedulingRepo) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var appt domain.Appointment
	err := r.db.NewSelect().
		Model(&appt).
		Where("a.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (r *SchedulingRepo) GetPractitionerSlots(ctx context.Context, appointmentID uuid.UUID) ([]domain.AppointmentPractitioner, error) {
	var rows []domain.AppointmentPractitioner
	err := r.db.NewSelect().
		Model(&rows).
		Where("ap.appointment_id = ?", appointmentID).
		OrderExpr("ap.start_time ASC, ap.practitioner_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SchedulingRepo) ListAppointments(ctx context.Context, practitionerID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Distinct().
		Join("JOIN appointment_practitioners AS ap ON ap.appointment_id = a.id").
		Where("ap.practitioner_id = ?", practitionerID).
		Where("ap.start_time < ?", windowEnd).
		Where("ap.end_time > ?", windowStart).
		OrderExpr("a.start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateAppointmentStatus performs a compare-and-set on status so a concurrent
// transition loses cleanly instead of overwriting.
func (r *SchedulingRepo) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to domain.AppointmentStatus) (domain.Appointment, error) {
	now := time.Now().UTC()
	q := r.db.NewUpdate().
		Model((*domain.Appointment)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", now)
	if to == domain.StatusCompleted {
		q = q.Set("completed_at = ?", now)
	}
	res, err := q.
		Where("id = ?", id).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, err
	}
	if affected == 0 {
		if _, getErr := r.GetAppointment(ctx, id); errors.Is(getErr, store.ErrNotFound) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, store.ErrStaleStatus
	}
	return r.GetAppointment(ctx, id)
}

func (r *SchedulingRepo) SetExternalEventID(ctx context.Context, id uuid.UUID, eventID string) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Appointment)(nil)).
		Set("external_event_id = ?", eventID).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SchedulingRepo) InPractitionersTransaction(ctx context.Context, practitionerIDs []uuid.UUID, fn func(ctx context.Context, tx store.SchedulingTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, id := range sortedLockOrder(practitionerIDs) {
			if err := lockPractitionerCalendar(ctx, tx, id); err != nil {
				return err
			}
		}
		return fn(ctx, schedulingTx{tx: tx})
	})
}

// sortedLockOrder dedupes and orders ids so two transactions locking
// overlapping practitioner sets never deadlock.
func sortedLockOrder(ids []uuid.UUID) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		s := id.String()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func lockPractitionerCalendar(ctx context.Context, tx bun.Tx, practitionerID string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", practitionerID).Exec(ctx)
	return err
}

func (t schedulingTx) FindConflicts(ctx context.Context, practitionerID uuid.UUID, start, end time.Time, excludeAppointmentID *uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	q := t.tx.NewSelect().
		Model((*domain.AppointmentPractitioner)(nil)).
		Column("ap.appointment_id").
		Join("JOIN appointments AS a ON a.id = ap.appointment_id").
		Where("ap.practitioner_id = ?", practitionerID).
		Where("ap.start_time < ?", end).
		Where("ap.end_time > ?", start).
		Where("a.status NOT IN (?)", bun.In(domain.NonBlockingStatuses()))
	if excludeAppointmentID != nil {
		q = q.Where("ap.appointment_id != ?", *excludeAppointmentID)
	}
	err := q.OrderExpr("ap.start_time ASC").Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (t schedulingTx) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var appt domain.Appointment
	err := t.tx.NewSelect().
		Model(&appt).
		Where("a.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (t schedulingTx) InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	_, err := t.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}
	return m, nil
}

func (t schedulingTx) InsertPractitionerSlots(ctx context.Context, slots []domain.AppointmentPractitioner) ([]domain.AppointmentPractitioner, error) {
	if len(slots) == 0 {
		return nil, nil
	}
	rows := make([]domain.AppointmentPractitioner, len(slots))
	copy(rows, slots)
	_, err := t.tx.NewInsert().Model(&rows).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return rows, nil
}

func (t schedulingTx) ReplacePractitionerSlots(ctx context.Context, appointmentID uuid.UUID, slots []domain.AppointmentPractitioner) ([]domain.AppointmentPractitioner, error) {
	_, err := t.tx.NewDelete().
		Model((*domain.AppointmentPractitioner)(nil)).
		Where("appointment_id = ?", appointmentID).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	for i := range slots {
		slots[i].AppointmentID = appointmentID
	}
	return t.InsertPractitionerSlots(ctx, slots)
}

func (t schedulingTx) UpdateAppointmentSchedule(ctx context.Context, upd store.ScheduleUpdate) (domain.Appointment, error) {
	q := t.tx.NewUpdate().
		Model((*domain.Appointment)(nil)).
		Set("start_time = ?", upd.StartTime).
		Set("end_time = ?", upd.EndTime).
		Set("date_time_preference = ?", upd.DateTimePreference).
		Set("updated_at = ?", time.Now().UTC())
	if upd.ServiceID != nil {
		q = q.Set("service_id = ?", *upd.ServiceID)
	}
	if upd.LocationID != nil {
		q = q.Set("location_id = ?", *upd.LocationID)
	}
	res, err := q.Where("id = ?", upd.AppointmentID).Exec(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, err
	}
	if affected == 0 {
		return domain.Appointment{}, store.ErrNotFound
	}
	return t.GetAppointment(ctx, upd.AppointmentID)
}

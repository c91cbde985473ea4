package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"clinicore/backend/internal/domain"
	"clinicore/backend/internal/store"
)

// BillingRepo implements invoicing and the payout ledger on the same
// database as the scheduler.
type BillingRepo struct {
	db *bun.DB

	// Flat session price until per-service pricing lands.
	amountCents int64
	currency    string
}

func NewBillingRepo(db *bun.DB, amountCents int64, currency string) *BillingRepo {
	return &BillingRepo{db: db, amountCents: amountCents, currency: currency}
}

// GenerateInvoiceForAppointment is idempotent: the unique index on
// appointment_id turns a duplicate call into a no-op.
func (r *BillingRepo) GenerateInvoiceForAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	inv := domain.Invoice{
		AppointmentID: appointmentID,
		AmountCents:   r.amountCents,
		Currency:      r.currency,
		Status:        "open",
	}
	_, err := r.db.NewInsert().
		Model(&inv).
		On("CONFLICT (appointment_id) DO NOTHING").
		Exec(ctx)
	return err
}

// RecordAppointmentPayout splits the invoice amount evenly across the
// appointment's practitioners, with the remainder going to the primary.
// Re-running for the same appointment is a no-op.
func (r *BillingRepo) RecordAppointmentPayout(ctx context.Context, appointmentID uuid.UUID) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*domain.LedgerEntry)(nil)).
			Where("le.appointment_id = ?", appointmentID).
			Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		var inv domain.Invoice
		err = tx.NewSelect().
			Model(&inv).
			Where("inv.appointment_id = ?", appointmentID).
			Limit(1).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.ErrNotFound
			}
			return err
		}

		var slots []domain.AppointmentPractitioner
		err = tx.NewSelect().
			Model(&slots).
			Where("ap.appointment_id = ?", appointmentID).
			OrderExpr("ap.practitioner_id ASC").
			Scan(ctx)
		if err != nil {
			return err
		}
		if len(slots) == 0 {
			return errors.New("appointment has no practitioner slots")
		}

		share := inv.AmountCents / int64(len(slots))
		remainder := inv.AmountCents % int64(len(slots))

		entries := make([]domain.LedgerEntry, 0, len(slots))
		for _, slot := range slots {
			amount := share
			if slot.IsPrimary {
				amount += remainder
			}
			entries = append(entries, domain.LedgerEntry{
				AppointmentID:  appointmentID,
				PractitionerID: slot.PractitionerID,
				AmountCents:    amount,
				Currency:       inv.Currency,
			})
		}
		_, err = tx.NewInsert().Model(&entries).Exec(ctx)
		return err
	})
}

package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Invoice is one billing record per appointment. The unique appointment_id
// constraint makes invoice generation idempotent.
type Invoice struct {
	bun.BaseModel `bun:"table:invoices,alias:inv"`

	ID            uuid.UUID `bun:"id,pk,type:uuid"`
	AppointmentID uuid.UUID `bun:"appointment_id,notnull,type:uuid"`
	AmountCents   int64     `bun:"amount_cents,notnull"`
	Currency      string    `bun:"currency,notnull"`
	Status        string    `bun:"status,notnull,default:'open'"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}

func (i *Invoice) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if i.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			i.ID = id
		}
		if i.CreatedAt.IsZero() {
			i.CreatedAt = now
		}
		if i.UpdatedAt.IsZero() {
			i.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		i.UpdatedAt = now
	}
	return nil
}

// LedgerEntry records one practitioner's share of a completed appointment's
// payout.
type LedgerEntry struct {
	bun.BaseModel `bun:"table:ledger_entries,alias:le"`

	ID             uuid.UUID `bun:"id,pk,type:uuid"`
	AppointmentID  uuid.UUID `bun:"appointment_id,notnull,type:uuid"`
	PractitionerID uuid.UUID `bun:"practitioner_id,notnull,type:uuid"`
	AmountCents    int64     `bun:"amount_cents,notnull"`
	Currency       string    `bun:"currency,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
}

func (e *LedgerEntry) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok {
		if e.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			e.ID = id
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now().UTC()
		}
	}
	return nil
}

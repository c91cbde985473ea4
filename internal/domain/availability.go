package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PractitionerAvailability is one row of a practitioner's recurring weekly
// template. Split shifts are stored as separate rows per day; overlapping or
// adjacent rows are preserved as given and only merged on explicit request.
// These rows are written by the scheduling-configuration service; the core
// only reads them.
type PractitionerAvailability struct {
	bun.BaseModel `bun:"table:practitioner_availabilities,alias:pa"`

	ID             uuid.UUID   `bun:"id,pk,type:uuid"`
	PractitionerID uuid.UUID   `bun:"practitioner_id,notnull,type:uuid"`
	Weekday        Weekday     `bun:"weekday,notnull"`
	StartMinute    MinuteOfDay `bun:"start_minute,notnull"`
	EndMinute      MinuteOfDay `bun:"end_minute,notnull"`
	LocationID     *uuid.UUID  `bun:"location_id,type:uuid"`
	CreatedAt      time.Time   `bun:"created_at,notnull"`
	UpdatedAt      time.Time   `bun:"updated_at,notnull"`
}

func (a *PractitionerAvailability) BeforeAppendModel(ctx context.Context, query bun.Query) error {
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

func (a PractitionerAvailability) Interval() LocalInterval {
	return LocalInterval{Start: a.StartMinute, End: a.EndMinute}
}

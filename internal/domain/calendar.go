package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CalendarEntry mirrors one practitioner slot onto the practitioner's
// calendar. Entries are written post-commit and are display-only; conflict
// detection never reads them.
type CalendarEntry struct {
	bun.BaseModel `bun:"table:calendar_entries,alias:ce"`

	ID             uuid.UUID `bun:"id,pk,type:uuid"`
	PractitionerID uuid.UUID `bun:"practitioner_id,notnull,type:uuid"`
	AppointmentID  uuid.UUID `bun:"appointment_id,notnull,type:uuid"`
	StartTime      time.Time `bun:"start_time,notnull"`
	EndTime        time.Time `bun:"end_time,notnull"`
	Summary        string    `bun:"summary"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
}

func (e *CalendarEntry) BeforeAppendModel(ctx context.Context, query bun.Query) error {
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

// AuditEvent is an append-only record of privileged scheduling actions.
type AuditEvent struct {
	bun.BaseModel `bun:"table:audit_events,alias:ae"`

	ID            uuid.UUID `bun:"id,pk,type:uuid"`
	AppointmentID uuid.UUID `bun:"appointment_id,notnull,type:uuid"`
	ActorID       uuid.UUID `bun:"actor_id,notnull,type:uuid"`
	Action        string    `bun:"action,notnull"`
	Detail        string    `bun:"detail"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

func (e *AuditEvent) BeforeAppendModel(ctx context.Context, query bun.Query) error {
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

// OutboxMessage queues one notification for out-of-band delivery.
type OutboxMessage struct {
	bun.BaseModel `bun:"table:outbox_messages,alias:om"`

	ID        uuid.UUID  `bun:"id,pk,type:uuid"`
	Kind      string     `bun:"kind,notnull"`
	Payload   []byte     `bun:"payload,notnull,type:jsonb"`
	SentAt    *time.Time `bun:"sent_at"`
	CreatedAt time.Time  `bun:"created_at,notnull"`
}

func (m *OutboxMessage) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok {
		if m.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			m.ID = id
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now().UTC()
		}
	}
	return nil
}

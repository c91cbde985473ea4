package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PatientIdentity is the dedupe key set for patient resolution. The directory
// matches by ID first, then Email, then HealthIdentifier; first match wins.
type PatientIdentity struct {
	ID               *uuid.UUID
	Email            string
	HealthIdentifier string
	FullName         string
}

// Patient is the minimal registry record the scheduler needs: identity plus
// the approval and invitation flags that drive appointment entry status.
type Patient struct {
	bun.BaseModel `bun:"table:patients,alias:p"`

	ID               uuid.UUID  `bun:"id,pk,type:uuid"`
	TenantID         string     `bun:"tenant_id,notnull"`
	Email            string     `bun:"email"`
	HealthIdentifier string     `bun:"health_identifier"`
	FullName         string     `bun:"full_name"`
	Approved         bool       `bun:"approved,notnull"`
	ApprovedBy       *uuid.UUID `bun:"approved_by,type:uuid"`
	InvitationState  string     `bun:"invitation_state,notnull,default:'none'"`
	CreatedAt        time.Time  `bun:"created_at,notnull"`
	UpdatedAt        time.Time  `bun:"updated_at,notnull"`
}

func (p *Patient) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if p.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			p.ID = id
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		p.UpdatedAt = now
	}
	return nil
}

// PatientConsent tracks one consent document per patient. A patient is
// bookable without restriction once every required consent has granted_at set.
type PatientConsent struct {
	bun.BaseModel `bun:"table:patient_consents,alias:pc"`

	ID          uuid.UUID  `bun:"id,pk,type:uuid"`
	PatientID   uuid.UUID  `bun:"patient_id,notnull,type:uuid"`
	ConsentKind string     `bun:"consent_kind,notnull"`
	Required    bool       `bun:"required,notnull"`
	RequestedAt *time.Time `bun:"requested_at"`
	GrantedAt   *time.Time `bun:"granted_at"`
	CreatedAt   time.Time  `bun:"created_at,notnull"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull"`
}

func (c *PatientConsent) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if c.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			c.ID = id
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		if c.UpdatedAt.IsZero() {
			c.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		c.UpdatedAt = now
	}
	return nil
}

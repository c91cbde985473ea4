package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"clinicore/backend/internal/domain"
	"clinicore/backend/internal/store"
)

// PatientRepo backs both the patient directory and the consent collaborator.
type PatientRepo struct {
	db *bun.DB
}

func NewPatientRepo(db *bun.DB) *PatientRepo {
	return &PatientRepo{db: db}
}

// FindOrCreatePatient resolves the identity by ID, then email, then health
// identifier. No match creates a fresh unapproved record.
func (r *PatientRepo) FindOrCreatePatient(ctx context.Context, identity domain.PatientIdentity) (uuid.UUID, error) {
	if identity.ID != nil && *identity.ID != uuid.Nil {
		var p domain.Patient
		err := r.db.NewSelect().Model(&p).Where("p.id = ?", *identity.ID).Limit(1).Scan(ctx)
		if err == nil {
			return p.ID, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, err
		}
		return uuid.Nil, store.ErrNotFound
	}

	if identity.Email != "" {
		var p domain.Patient
		err := r.db.NewSelect().Model(&p).Where("lower(p.email) = lower(?)", identity.Email).Limit(1).Scan(ctx)
		if err == nil {
			return p.ID, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, err
		}
	}
	if identity.HealthIdentifier != "" {
		var p domain.Patient
		err := r.db.NewSelect().Model(&p).Where("p.health_identifier = ?", identity.HealthIdentifier).Limit(1).Scan(ctx)
		if err == nil {
			return p.ID, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, err
		}
	}

	p := domain.Patient{
		Email:            identity.Email,
		HealthIdentifier: identity.HealthIdentifier,
		FullName:         identity.FullName,
		InvitationState:  "invited",
	}
	if _, err := r.db.NewInsert().Model(&p).Exec(ctx); err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}

func (r *PatientRepo) IsApproved(ctx context.Context, patientID uuid.UUID) (bool, error) {
	var p domain.Patient
	err := r.db.NewSelect().
		Model(&p).
		Column("p.approved").
		Where("p.id = ?", patientID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, store.ErrNotFound
		}
		return false, err
	}
	return p.Approved, nil
}

func (r *PatientRepo) Approve(ctx context.Context, patientID, approverID uuid.UUID) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Patient)(nil)).
		Set("approved = TRUE").
		Set("approved_by = ?", approverID).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", patientID).
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

func (r *PatientRepo) AcceptInvitation(ctx context.Context, patientID uuid.UUID) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Patient)(nil)).
		Set("invitation_state = 'accepted'").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", patientID).
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

// HasAllRequiredConsents is true when no required consent row is missing its
// grant. A patient with no consent rows at all has nothing outstanding.
func (r *PatientRepo) HasAllRequiredConsents(ctx context.Context, patientID uuid.UUID) (bool, error) {
	count, err := r.db.NewSelect().
		Model((*domain.PatientConsent)(nil)).
		Where("pc.patient_id = ?", patientID).
		Where("pc.required").
		Where("pc.granted_at IS NULL").
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

func (r *PatientRepo) TriggerConsentRequest(ctx context.Context, patientID uuid.UUID, event string) error {
	_, err := r.db.NewUpdate().
		Model((*domain.PatientConsent)(nil)).
		Set("requested_at = ?", time.Now().UTC()).
		Set("updated_at = ?", time.Now().UTC()).
		Where("patient_id = ?", patientID).
		Where("required").
		Where("granted_at IS NULL").
		Exec(ctx)
	return err
}

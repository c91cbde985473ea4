package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"clinicore/backend/internal/domain"
)

type AvailabilityRepo struct {
	db *bun.DB
}

func NewAvailabilityRepo(db *bun.DB) *AvailabilityRepo {
	return &AvailabilityRepo{db: db}
}

// GetAvailability returns the practitioner's weekly template grouped by
// weekday. Rows are returned exactly as configured; split shifts stay split.
func (r *AvailabilityRepo) GetAvailability(ctx context.Context, practitionerID uuid.UUID, locationID *uuid.UUID) (map[domain.Weekday][]domain.LocalInterval, error) {
	var rows []domain.PractitionerAvailability
	q := r.db.NewSelect().
		Model(&rows).
		Where("pa.practitioner_id = ?", practitionerID)
	if locationID != nil {
		q = q.Where("pa.location_id = ?", *locationID)
	}
	err := q.OrderExpr("pa.weekday ASC, pa.start_minute ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[domain.Weekday][]domain.LocalInterval)
	for _, row := range rows {
		out[row.Weekday] = append(out[row.Weekday], row.Interval())
	}
	return out, nil
}

package store

import (
	"context"

	"github.com/google/uuid"

	"clinicore/backend/internal/domain"
)

// AvailabilityReader is the read-only view of practitioners' recurring weekly
// templates. Days with no configured availability map to an empty slice, not
// an error. A nil locationID returns rows for every location.
type AvailabilityReader interface {
	GetAvailability(ctx context.Context, practitionerID uuid.UUID, locationID *uuid.UUID) (map[domain.Weekday][]domain.LocalInterval, error)
}

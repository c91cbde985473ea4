package main

import (
	"context"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"clinicore/backend/internal/config"
	"clinicore/backend/internal/domain"
	"clinicore/backend/internal/store/postgres"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := postgres.Open(cfg.DatabaseURL, postgres.PoolConfig{})
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer func() { _ = postgres.Close(db) }()

	gofakeit.Seed(time.Now().UnixNano())

	ctx := context.Background()
	practitionerIDs, err := seedAvailability(ctx, db, 20)
	if err != nil {
		log.Fatalf("seed availability: %v", err)
	}
	if err := seedPatients(ctx, db, 200); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Printf("seed complete: %d practitioners with availability", len(practitionerIDs))
}

// seedAvailability gives each practitioner a weekday template: a morning
// shift, and for most of them an afternoon shift after a lunch break.
func seedAvailability(ctx context.Context, db *bun.DB, count int) ([]uuid.UUID, error) {
	log.Printf("seeding availability for %d practitioners", count)

	ids := make([]uuid.UUID, 0, count)
	var rows []domain.PractitionerAvailability

	for i := 0; i < count; i++ {
		id := uuid.New()
		ids = append(ids, id)

		morningStart := domain.MinuteOfDay(gofakeit.Number(7, 9) * 60)
		lunch := domain.MinuteOfDay(12 * 60)
		afternoonEnd := domain.MinuteOfDay(gofakeit.Number(16, 18) * 60)
		hasAfternoon := gofakeit.Number(0, 9) < 8

		for weekday := domain.Monday; weekday <= domain.Friday; weekday++ {
			rows = append(rows, domain.PractitionerAvailability{
				PractitionerID: id,
				Weekday:        weekday,
				StartMinute:    morningStart,
				EndMinute:      lunch,
			})
			if hasAfternoon {
				rows = append(rows, domain.PractitionerAvailability{
					PractitionerID: id,
					Weekday:        weekday,
					StartMinute:    lunch + 60,
					EndMinute:      afternoonEnd,
				})
			}
		}
	}

	if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return nil, err
	}

	log.Println("availability seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, db *bun.DB, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 100

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		batch := make([]domain.Patient, 0, end-offset)
		for i := offset; i < end; i++ {
			batch = append(batch, domain.Patient{
				Email:           gofakeit.Email(),
				FullName:        gofakeit.Name(),
				Approved:        gofakeit.Number(0, 9) < 7,
				InvitationState: "accepted",
			})
		}
		if _, err := db.NewInsert().Model(&batch).Exec(ctx); err != nil {
			return err
		}
		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}

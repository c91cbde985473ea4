package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"clinicore/backend/internal/domain"
	"clinicore/backend/internal/store"
)

func openIntegrationDB(t *testing.T) (*bun.DB, string) {
	t.Helper()

	databaseURL := strings.TrimSpace(os.Getenv("CLINICORE_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("CLINICORE_TEST_DATABASE_URL not set")
	}

	db, err := Open(databaseURL, PoolConfig{MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})

	schema := "clinicore_test_" + randomHex(t, 8)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = db.NewRaw("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Exec(ctx)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := db.NewRaw("CREATE SCHEMA " + schema).Exec(ctx); err != nil {
		t.Fatalf("create schema error: %v", err)
	}
	// Single connection pool, so the session search_path sticks for the test.
	if _, err := db.NewRaw("SET search_path TO " + schema + ", public").Exec(ctx); err != nil {
		t.Fatalf("set search_path error: %v", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		t.Fatalf("apply migrations error: %v", err)
	}

	return db, schema
}

func TestPostgresIntegration_ConflictPredicateAndSlots(t *testing.T) {
	db, _ := openIntegrationDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	practitioner := uuid.MustParse("00000000-0000-0000-0000-000000000a01")
	other := uuid.MustParse("00000000-0000-0000-0000-000000000a02")
	start := time.Date(2026, 1, 12, 15, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	repo := NewSchedulingRepo(db)
	var booked domain.Appointment
	err := repo.InPractitionersTransaction(ctx, []uuid.UUID{practitioner}, func(ctx context.Context, tx store.SchedulingTx) error {
		appt, err := tx.InsertAppointment(ctx, domain.Appointment{
			TenantID:       "clinic-1",
			PatientID:      uuid.New(),
			ServiceID:      uuid.New(),
			DeliveryMode:   domain.ModeInPerson,
			StartTime:      start,
			EndTime:        end,
			StoredTimezone: "America/New_York",
			Status:         domain.StatusPending,
		})
		if err != nil {
			return err
		}
		_, err = tx.InsertPractitionerSlots(ctx, []domain.AppointmentPractitioner{
			{AppointmentID: appt.ID, PractitionerID: practitioner, StartTime: start, EndTime: end, IsPrimary: true},
		})
		if err != nil {
			return err
		}
		booked = appt
		return nil
	})
	if err != nil {
		t.Fatalf("booking tx error: %v", err)
	}

	err = repo.InPractitionersTransaction(ctx, []uuid.UUID{practitioner, other}, func(ctx context.Context, tx store.SchedulingTx) error {
		ids, err := tx.FindConflicts(ctx, practitioner, start.Add(15*time.Minute), end.Add(15*time.Minute), nil)
		if err != nil {
			return err
		}
		if len(ids) != 1 || ids[0] != booked.ID {
			return fmt.Errorf("overlap ids = %v, want [%s]", ids, booked.ID)
		}

		// Boundary touch is never a conflict.
		ids, err = tx.FindConflicts(ctx, practitioner, end, end.Add(30*time.Minute), nil)
		if err != nil {
			return err
		}
		if len(ids) != 0 {
			return fmt.Errorf("back-to-back ids = %v, want none", ids)
		}

		// Other practitioners are unaffected.
		ids, err = tx.FindConflicts(ctx, other, start, end, nil)
		if err != nil {
			return err
		}
		if len(ids) != 0 {
			return fmt.Errorf("other practitioner ids = %v, want none", ids)
		}

		// The excluded appointment does not conflict with itself.
		ids, err = tx.FindConflicts(ctx, practitioner, start, end, &booked.ID)
		if err != nil {
			return err
		}
		if len(ids) != 0 {
			return fmt.Errorf("self-excluded ids = %v, want none", ids)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("conflict tx error: %v", err)
	}

	// Cancelled appointments stop blocking.
	if _, err := repo.UpdateAppointmentStatus(ctx, booked.ID, domain.StatusPending, domain.StatusCancelled); err != nil {
		t.Fatalf("UpdateAppointmentStatus error: %v", err)
	}
	err = repo.InPractitionersTransaction(ctx, []uuid.UUID{practitioner}, func(ctx context.Context, tx store.SchedulingTx) error {
		ids, err := tx.FindConflicts(ctx, practitioner, start, end, nil)
		if err != nil {
			return err
		}
		if len(ids) != 0 {
			return fmt.Errorf("cancelled still blocks: %v", ids)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("post-cancel tx error: %v", err)
	}

	rows, err := repo.ListAppointments(ctx, practitioner, start.Add(-time.Hour), end.Add(time.Hour))
	if err != nil {
		t.Fatalf("ListAppointments error: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != booked.ID {
		t.Fatalf("listed = %v, want the booking", rows)
	}
}

func TestPostgresIntegration_StatusCASAndStaleDetection(t *testing.T) {
	db, _ := openIntegrationDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo := NewSchedulingRepo(db)
	var appt domain.Appointment
	err := repo.InPractitionersTransaction(ctx, nil, func(ctx context.Context, tx store.SchedulingTx) error {
		var err error
		appt, err = tx.InsertAppointment(ctx, domain.Appointment{
			TenantID:       "clinic-1",
			PatientID:      uuid.New(),
			ServiceID:      uuid.New(),
			DeliveryMode:   domain.ModeVirtual,
			StartTime:      time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC),
			EndTime:        time.Date(2026, 2, 2, 9, 30, 0, 0, time.UTC),
			StoredTimezone: "UTC",
			Status:         domain.StatusPending,
		})
		return err
	})
	if err != nil {
		t.Fatalf("insert tx error: %v", err)
	}

	confirmed, err := repo.UpdateAppointmentStatus(ctx, appt.ID, domain.StatusPending, domain.StatusConfirmed)
	if err != nil {
		t.Fatalf("UpdateAppointmentStatus error: %v", err)
	}
	if confirmed.Status != domain.StatusConfirmed {
		t.Fatalf("status = %s, want confirmed", confirmed.Status)
	}

	if _, err := repo.UpdateAppointmentStatus(ctx, appt.ID, domain.StatusPending, domain.StatusCancelled); err != store.ErrStaleStatus {
		t.Fatalf("stale err = %v, want %v", err, store.ErrStaleStatus)
	}

	done, err := repo.UpdateAppointmentStatus(ctx, appt.ID, domain.StatusConfirmed, domain.StatusCompleted)
	if err != nil {
		t.Fatalf("UpdateAppointmentStatus error: %v", err)
	}
	if done.CompletedAt == nil {
		t.Fatalf("completed_at not set")
	}

	if _, err := repo.UpdateAppointmentStatus(ctx, uuid.New(), domain.StatusPending, domain.StatusCancelled); err != store.ErrNotFound {
		t.Fatalf("missing err = %v, want %v", err, store.ErrNotFound)
	}
}

func TestPostgresIntegration_AvailabilityGroupedByWeekday(t *testing.T) {
	db, _ := openIntegrationDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	practitioner := uuid.New()
	location := uuid.New()
	rows := []domain.PractitionerAvailability{
		{PractitionerID: practitioner, Weekday: domain.Monday, StartMinute: 540, EndMinute: 720},
		{PractitionerID: practitioner, Weekday: domain.Monday, StartMinute: 780, EndMinute: 1020},
		{PractitionerID: practitioner, Weekday: domain.Wednesday, StartMinute: 600, EndMinute: 840, LocationID: &location},
	}
	if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		t.Fatalf("seed availability error: %v", err)
	}

	repo := NewAvailabilityRepo(db)
	all, err := repo.GetAvailability(ctx, practitioner, nil)
	if err != nil {
		t.Fatalf("GetAvailability error: %v", err)
	}
	if len(all[domain.Monday]) != 2 {
		t.Fatalf("monday intervals = %v, want split shift preserved", all[domain.Monday])
	}
	if all[domain.Monday][0] != (domain.LocalInterval{Start: 540, End: 720}) {
		t.Fatalf("first monday interval = %v", all[domain.Monday][0])
	}

	scoped, err := repo.GetAvailability(ctx, practitioner, &location)
	if err != nil {
		t.Fatalf("GetAvailability error: %v", err)
	}
	if len(scoped) != 1 || len(scoped[domain.Wednesday]) != 1 {
		t.Fatalf("location-scoped availability = %v, want wednesday only", scoped)
	}
}

func TestPostgresIntegration_PatientDirectoryAndBilling(t *testing.T) {
	db, _ := openIntegrationDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	patients := NewPatientRepo(db)
	id1, err := patients.FindOrCreatePatient(ctx, domain.PatientIdentity{Email: "pat@example.com", FullName: "Pat"})
	if err != nil {
		t.Fatalf("FindOrCreatePatient error: %v", err)
	}
	id2, err := patients.FindOrCreatePatient(ctx, domain.PatientIdentity{Email: "PAT@example.com"})
	if err != nil {
		t.Fatalf("FindOrCreatePatient error: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("email lookup created a duplicate: %s vs %s", id1, id2)
	}

	approved, err := patients.IsApproved(ctx, id1)
	if err != nil {
		t.Fatalf("IsApproved error: %v", err)
	}
	if approved {
		t.Fatalf("fresh patient should not be approved")
	}
	if err := patients.Approve(ctx, id1, uuid.New()); err != nil {
		t.Fatalf("Approve error: %v", err)
	}
	approved, err = patients.IsApproved(ctx, id1)
	if err != nil {
		t.Fatalf("IsApproved error: %v", err)
	}
	if !approved {
		t.Fatalf("patient should be approved after Approve")
	}

	ok, err := patients.HasAllRequiredConsents(ctx, id1)
	if err != nil {
		t.Fatalf("HasAllRequiredConsents error: %v", err)
	}
	if !ok {
		t.Fatalf("patient with no consent rows should have nothing outstanding")
	}
	consent := domain.PatientConsent{PatientID: id1, ConsentKind: "treatment", Required: true}
	if _, err := db.NewInsert().Model(&consent).Exec(ctx); err != nil {
		t.Fatalf("seed consent error: %v", err)
	}
	ok, err = patients.HasAllRequiredConsents(ctx, id1)
	if err != nil {
		t.Fatalf("HasAllRequiredConsents error: %v", err)
	}
	if ok {
		t.Fatalf("ungranted required consent should block")
	}

	// Billing: idempotent invoice, payout split with remainder to primary.
	repo := NewSchedulingRepo(db)
	p1 := uuid.MustParse("00000000-0000-0000-0000-000000000b01")
	p2 := uuid.MustParse("00000000-0000-0000-0000-000000000b02")
	var appt domain.Appointment
	err = repo.InPractitionersTransaction(ctx, []uuid.UUID{p1, p2}, func(ctx context.Context, tx store.SchedulingTx) error {
		var err error
		appt, err = tx.InsertAppointment(ctx, domain.Appointment{
			TenantID:       "clinic-1",
			PatientID:      id1,
			ServiceID:      uuid.New(),
			DeliveryMode:   domain.ModeInPerson,
			StartTime:      time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
			EndTime:        time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
			StoredTimezone: "UTC",
			Status:         domain.StatusConfirmed,
		})
		if err != nil {
			return err
		}
		_, err = tx.InsertPractitionerSlots(ctx, []domain.AppointmentPractitioner{
			{AppointmentID: appt.ID, PractitionerID: p1, StartTime: appt.StartTime, EndTime: appt.EndTime, IsPrimary: true},
			{AppointmentID: appt.ID, PractitionerID: p2, StartTime: appt.StartTime, EndTime: appt.EndTime},
		})
		return err
	})
	if err != nil {
		t.Fatalf("booking tx error: %v", err)
	}

	billing := NewBillingRepo(db, 10001, "USD")
	if err := billing.GenerateInvoiceForAppointment(ctx, appt.ID); err != nil {
		t.Fatalf("GenerateInvoiceForAppointment error: %v", err)
	}
	if err := billing.GenerateInvoiceForAppointment(ctx, appt.ID); err != nil {
		t.Fatalf("repeat GenerateInvoiceForAppointment error: %v", err)
	}
	count, err := db.NewSelect().Model((*domain.Invoice)(nil)).Where("inv.appointment_id = ?", appt.ID).Count(ctx)
	if err != nil {
		t.Fatalf("count invoices error: %v", err)
	}
	if count != 1 {
		t.Fatalf("invoices = %d, want 1", count)
	}

	if err := billing.RecordAppointmentPayout(ctx, appt.ID); err != nil {
		t.Fatalf("RecordAppointmentPayout error: %v", err)
	}
	if err := billing.RecordAppointmentPayout(ctx, appt.ID); err != nil {
		t.Fatalf("repeat RecordAppointmentPayout error: %v", err)
	}
	var entries []domain.LedgerEntry
	err = db.NewSelect().Model(&entries).Where("le.appointment_id = ?", appt.ID).OrderExpr("le.amount_cents DESC").Scan(ctx)
	if err != nil {
		t.Fatalf("list ledger entries error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("ledger entries = %d, want 2", len(entries))
	}
	if entries[0].AmountCents != 5001 || entries[1].AmountCents != 5000 {
		t.Fatalf("payout split = %d/%d, want 5001/5000", entries[0].AmountCents, entries[1].AmountCents)
	}
	if entries[0].PractitionerID != p1 {
		t.Fatalf("remainder went to %s, want primary %s", entries[0].PractitionerID, p1)
	}
}

func randomHex(t *testing.T, bytesLen int) string {
	t.Helper()
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}
	return hex.EncodeToString(b)
}

type rawExecutor interface {
	NewRaw(query string, args ...any) *bun.RawQuery
}

func applyMigrations(ctx context.Context, exec rawExecutor) error {
	dir, err := migrationsDir()
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	type mig struct {
		name string
		path string
	}
	migs := make([]mig, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		migs = append(migs, mig{name: e.Name(), path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(migs, func(i, j int) bool { return migs[i].name < migs[j].name })

	for _, m := range migs {
		b, err := os.ReadFile(m.path)
		if err != nil {
			return err
		}
		upSQL, err := extractGooseUp(string(b))
		if err != nil {
			return err
		}
		stmts := splitSQLStatements(upSQL)
		for _, stmt := range stmts {
			if normalized, ok := normalizeExtensionStatement(stmt); ok {
				stmt = normalized
			}
			if _, err := exec.NewRaw(stmt).Exec(ctx); err != nil {
				return err
			}
		}
	}

	return nil
}

func migrationsDir() (string, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("runtime.Caller failed")
	}
	base := filepath.Dir(file)
	return filepath.Clean(filepath.Join(base, "..", "..", "..", "migrations")), nil
}

func extractGooseUp(sql string) (string, error) {
	upMarker := "-- +goose Up"
	downMarker := "-- +goose Down"

	upIdx := strings.Index(sql, upMarker)
	if upIdx < 0 {
		return "", fmt.Errorf("missing goose up marker")
	}
	afterUp := sql[upIdx+len(upMarker):]
	afterUp = strings.TrimLeft(afterUp, "\r\n")

	downIdx := strings.Index(afterUp, downMarker)
	if downIdx < 0 {
		return strings.TrimSpace(afterUp), nil
	}
	return strings.TrimSpace(afterUp[:downIdx]), nil
}

func normalizeExtensionStatement(stmt string) (string, bool) {
	s := strings.TrimSpace(stmt)
	upper := strings.ToUpper(s)
	if !strings.HasPrefix(upper, "CREATE EXTENSION") {
		return "", false
	}
	if !strings.Contains(upper, "BTREE_GIST") {
		return "", false
	}
	if strings.Contains(upper, " SCHEMA ") {
		return "", false
	}
	return s + " SCHEMA public", true
}

func splitSQLStatements(sql string) []string {
	parts := strings.Split(sql, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

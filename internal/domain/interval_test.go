package domain

import (
	"errors"
	"testing"
	"time"
)

func TestLocalIntervalOverlaps_SymmetryAndBoundary(t *testing.T) {
	cases := []struct {
		name string
		a, b LocalInterval
		want bool
	}{
		{"disjoint", LocalInterval{540, 600}, LocalInterval{660, 720}, false},
		{"contained", LocalInterval{540, 720}, LocalInterval{600, 660}, true},
		{"partial", LocalInterval{540, 630}, LocalInterval{600, 720}, true},
		{"identical", LocalInterval{540, 600}, LocalInterval{540, 600}, true},
		{"touching", LocalInterval{540, 600}, LocalInterval{600, 660}, false},
	}
	for _, tc := range cases {
		if got := tc.a.Overlaps(tc.b); got != tc.want {
			t.Fatalf("%s: Overlaps = %v, want %v", tc.name, got, tc.want)
		}
		if tc.a.Overlaps(tc.b) != tc.b.Overlaps(tc.a) {
			t.Fatalf("%s: Overlaps is not symmetric", tc.name)
		}
	}
}

func TestOverlaps_InstantBoundaryTouchIsNotAConflict(t *testing.T) {
	s1 := time.Date(2026, 1, 12, 10, 0, 0, 0, time.UTC)
	e1 := s1.Add(30 * time.Minute)
	if Overlaps(s1, e1, e1, e1.Add(30*time.Minute)) {
		t.Fatalf("back-to-back slots must not overlap")
	}
	if !Overlaps(s1, e1, s1.Add(15*time.Minute), e1.Add(15*time.Minute)) {
		t.Fatalf("partially overlapping slots must overlap")
	}
}

func TestLocalIntervalIntersect(t *testing.T) {
	a := LocalInterval{Start: 540, End: 720}  // 09:00-12:00
	b := LocalInterval{Start: 600, End: 840}  // 10:00-14:00
	got, ok := a.Intersect(b)
	if !ok {
		t.Fatalf("expected intersection")
	}
	want := LocalInterval{Start: 600, End: 720}
	if got != want {
		t.Fatalf("Intersect = %v, want %v", got, want)
	}

	if _, ok := a.Intersect(LocalInterval{Start: 720, End: 780}); ok {
		t.Fatalf("touching intervals must not intersect")
	}
}

func TestParseMinuteOfDay(t *testing.T) {
	got, err := ParseMinuteOfDay("09:30")
	if err != nil {
		t.Fatalf("ParseMinuteOfDay error: %v", err)
	}
	if got != 570 {
		t.Fatalf("ParseMinuteOfDay = %d, want 570", got)
	}
	if got.String() != "09:30" {
		t.Fatalf("String = %q, want %q", got.String(), "09:30")
	}

	if _, err := ParseMinuteOfDay("24:00"); !errors.Is(err, ErrInvalidTimeFormat) {
		t.Fatalf("err = %v, want ErrInvalidTimeFormat", err)
	}
}

func TestWeekdayOf_ISOOrdering(t *testing.T) {
	// 2026-01-12 is a Monday, 2026-01-18 a Sunday.
	if got := WeekdayOf(time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)); got != Monday {
		t.Fatalf("WeekdayOf(Monday) = %v, want %v", got, Monday)
	}
	if got := WeekdayOf(time.Date(2026, 1, 18, 0, 0, 0, 0, time.UTC)); got != Sunday {
		t.Fatalf("WeekdayOf(Sunday) = %v, want %v", got, Sunday)
	}
	if Sunday != 7 || Monday != 1 {
		t.Fatalf("weekday numbering is not ISO 8601")
	}
}

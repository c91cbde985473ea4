package domain

import (
	"fmt"
	"time"
)

// Weekday numbering follows ISO 8601: 1 = Monday .. 7 = Sunday.
type Weekday int16

const (
	Monday    Weekday = 1
	Tuesday   Weekday = 2
	Wednesday Weekday = 3
	Thursday  Weekday = 4
	Friday    Weekday = 5
	Saturday  Weekday = 6
	Sunday    Weekday = 7
)

func WeekdayOf(t time.Time) Weekday {
	wd := t.Weekday()
	if wd == time.Sunday {
		return Sunday
	}
	return Weekday(wd)
}

func (w Weekday) Valid() bool {
	return w >= Monday && w <= Sunday
}

func (w Weekday) String() string {
	names := [...]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
	if !w.Valid() {
		return fmt.Sprintf("weekday(%d)", int16(w))
	}
	return names[w-1]
}

// MinuteOfDay is a local wall-clock time expressed as minutes since midnight.
type MinuteOfDay int16

func ParseMinuteOfDay(s string) (MinuteOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	return MinuteOfDay(t.Hour()*60 + t.Minute()), nil
}

func (m MinuteOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// LocalInterval is a half-open [Start, End) window of local wall-clock time
// within a single day.
type LocalInterval struct {
	Start MinuteOfDay
	End   MinuteOfDay
}

func (iv LocalInterval) Valid() bool {
	return iv.Start < iv.End
}

// Overlaps implements the single half-open overlap predicate. Intervals that
// share only a boundary point do not overlap.
func (iv LocalInterval) Overlaps(other LocalInterval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

// Intersect returns the common window of two intervals, reporting false when
// they only touch or do not meet at all.
func (iv LocalInterval) Intersect(other LocalInterval) (LocalInterval, bool) {
	out := LocalInterval{Start: maxMinute(iv.Start, other.Start), End: minMinute(iv.End, other.End)}
	if !out.Valid() {
		return LocalInterval{}, false
	}
	return out, true
}

func (iv LocalInterval) String() string {
	return iv.Start.String() + "-" + iv.End.String()
}

// Overlaps is the instant-level form of the same predicate, used for conflict
// detection on stored UTC slots.
func Overlaps(start1, end1, start2, end2 time.Time) bool {
	return start1.Before(end2) && start2.Before(end1)
}

func maxMinute(a, b MinuteOfDay) MinuteOfDay {
	if a > b {
		return a
	}
	return b
}

func minMinute(a, b MinuteOfDay) MinuteOfDay {
	if a < b {
		return a
	}
	return b
}

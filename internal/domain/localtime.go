package domain

import (
	"fmt"
	"time"
)

// LocalTimeLayout is the only accepted format for human-entered appointment
// times. Seconds are intentionally not representable.
const LocalTimeLayout = "2006-01-02 15:04"

// ToUTC parses a tenant-local "YYYY-MM-DD HH:MM" string and returns the
// canonical UTC instant. All storage and interval arithmetic operates on the
// returned value; the raw string is kept only for audit.
func ToUTC(local string, tz string) (time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownTimezone, tz)
	}
	t, err := time.ParseInLocation(LocalTimeLayout, local, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, local)
	}
	return t.UTC(), nil
}

// ToTenantLocal formats a UTC instant in the tenant's timezone. Display code
// must go through here rather than formatting instants directly.
func ToTenantLocal(utc time.Time, tz string) (string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownTimezone, tz)
	}
	return utc.In(loc).Format(LocalTimeLayout), nil
}

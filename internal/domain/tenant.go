package domain

import "time"

// Tenant carries the per-tenant scheduling configuration. It is passed
// explicitly into every core operation; the core never resolves tenant state
// from ambient process-wide context.
type Tenant struct {
	ID                 string
	Timezone           string
	SessionDuration    time.Duration
	DefaultEntryStatus AppointmentStatus
}

// SessionEnd derives the nominal end of a session starting at the given
// instant.
func (t Tenant) SessionEnd(start time.Time) time.Time {
	return start.Add(t.SessionDuration)
}

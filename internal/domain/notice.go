package domain

import (
	"time"

	"github.com/google/uuid"
)

type CalendarEvent struct {
	AppointmentID uuid.UUID
	StartTime     time.Time
	EndTime       time.Time
	Summary       string
}

type BookingNotice struct {
	AppointmentID   uuid.UUID
	PatientID       uuid.UUID
	PractitionerIDs []uuid.UUID
	StartTime       time.Time
	EndTime         time.Time
	Timezone        string
}

// RescheduleNotice summarizes what changed for all affected parties.
type RescheduleNotice struct {
	AppointmentID   uuid.UUID
	PatientID       uuid.UUID
	PractitionerIDs []uuid.UUID
	OldStartTime    time.Time
	OldEndTime      time.Time
	NewStartTime    time.Time
	NewEndTime      time.Time
	OldServiceID    uuid.UUID
	NewServiceID    uuid.UUID
	OldLocationID   *uuid.UUID
	NewLocationID   *uuid.UUID
	Timezone        string
}

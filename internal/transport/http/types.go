package httptransport

import (
	"time"

	"github.com/google/uuid"

	"clinicore/backend/internal/domain"
)

type SlotDivisionRequest struct {
	PractitionerID string `json:"practitioner_id"`
	LocalStart     string `json:"local_start"`
	LocalEnd       string `json:"local_end"`
}

type BookAppointmentRequest struct {
	PatientID             string                `json:"patient_id,omitempty"`
	PatientEmail          string                `json:"patient_email,omitempty"`
	PatientHealthID       string                `json:"patient_health_identifier,omitempty"`
	PatientFullName       string                `json:"patient_full_name,omitempty"`
	ServiceID             string                `json:"service_id"`
	LocationID            string                `json:"location_id,omitempty"`
	DeliveryMode          string                `json:"delivery_mode,omitempty"`
	LocalStart            string                `json:"local_start"`
	PractitionerIDs       []string              `json:"practitioner_ids"`
	PrimaryPractitionerID string                `json:"primary_practitioner_id"`
	SlotDivisions         []SlotDivisionRequest `json:"slot_divisions,omitempty"`
	RootAppointmentID     string                `json:"root_appointment_id,omitempty"`
}

type ConfirmAppointmentRequest struct {
	ApproverID   string `json:"approver_id"`
	OverrideCode string `json:"override_code,omitempty"`
}

type RescheduleAppointmentRequest struct {
	LocalStart            string                `json:"local_start"`
	PractitionerIDs       []string              `json:"practitioner_ids"`
	PrimaryPractitionerID string                `json:"primary_practitioner_id"`
	SlotDivisions         []SlotDivisionRequest `json:"slot_divisions,omitempty"`
	ServiceID             string                `json:"service_id,omitempty"`
	LocationID            string                `json:"location_id,omitempty"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID  `json:"id"`
	TenantID           string     `json:"tenant_id"`
	PatientID          uuid.UUID  `json:"patient_id"`
	ServiceID          uuid.UUID  `json:"service_id"`
	LocationID         *uuid.UUID `json:"location_id,omitempty"`
	DeliveryMode       string     `json:"delivery_mode"`
	StartTime          time.Time  `json:"start_time"`
	EndTime            time.Time  `json:"end_time"`
	Timezone           string     `json:"timezone"`
	DateTimePreference string     `json:"date_time_preference,omitempty"`
	Status             string     `json:"status"`
	RootAppointmentID  *uuid.UUID `json:"root_appointment_id,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
}

type IntervalResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type JointAvailabilityResponse struct {
	// Keyed by ISO weekday name, Monday through Sunday.
	Days map[string][]IntervalResponse `json:"days"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a domain.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                 a.ID,
		TenantID:           a.TenantID,
		PatientID:          a.PatientID,
		ServiceID:          a.ServiceID,
		LocationID:         a.LocationID,
		DeliveryMode:       string(a.DeliveryMode),
		StartTime:          a.StartTime,
		EndTime:            a.EndTime,
		Timezone:           a.StoredTimezone,
		DateTimePreference: a.DateTimePreference,
		Status:             string(a.Status),
		RootAppointmentID:  a.RootAppointmentID,
		CompletedAt:        a.CompletedAt,
	}
}

func toJointAvailabilityResponse(joint map[domain.Weekday][]domain.LocalInterval) JointAvailabilityResponse {
	days := make(map[string][]IntervalResponse, len(joint))
	for weekday, intervals := range joint {
		out := make([]IntervalResponse, 0, len(intervals))
		for _, iv := range intervals {
			out = append(out, IntervalResponse{Start: iv.Start.String(), End: iv.End.String()})
		}
		days[weekday.String()] = out
	}
	return JointAvailabilityResponse{Days: days}
}

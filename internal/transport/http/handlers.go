package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clinicore/backend/internal/domain"
	redisclient "clinicore/backend/internal/redis"
	"clinicore/backend/internal/service/booking"
	"clinicore/backend/internal/store"
)

type bookingService interface {
	Book(ctx context.Context, in booking.BookInput) (domain.Appointment, error)
	Confirm(ctx context.Context, appointmentID, approverID uuid.UUID, overrideCode string) (domain.Appointment, error)
	Complete(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error)
	Cancel(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error)
	Decline(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error)
	Reschedule(ctx context.Context, in booking.RescheduleInput) (domain.Appointment, error)
	ListAppointments(ctx context.Context, practitionerID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
	JointAvailability(ctx context.Context, practitionerIDs []uuid.UUID, locationID *uuid.UUID) (map[domain.Weekday][]domain.LocalInterval, error)
}

// TenantDefaults fills the per-tenant configuration that does not travel with
// the request. The tenant id itself comes from the X-Tenant-ID header.
type TenantDefaults struct {
	Timezone           string
	SessionDuration    time.Duration
	DefaultEntryStatus domain.AppointmentStatus
}

type Handler struct {
	svc    bookingService
	tenant TenantDefaults
	log    *slog.Logger
}

func NewHandler(svc bookingService, tenant TenantDefaults, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		svc:    svc,
		tenant: tenant,
		log:    log.With(slog.String("component", "http.booking")),
	}
}

func (h *Handler) tenantFromRequest(r *http.Request) (domain.Tenant, bool) {
	id := r.Header.Get("X-Tenant-ID")
	if id == "" {
		return domain.Tenant{}, false
	}
	return domain.Tenant{
		ID:                 id,
		Timezone:           h.tenant.Timezone,
		SessionDuration:    h.tenant.SessionDuration,
		DefaultEntryStatus: h.tenant.DefaultEntryStatus,
	}, true
}

func (h *Handler) bookAppointment(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenantFromRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing_tenant", "X-Tenant-ID header is required")
		return
	}

	var req BookAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
		return
	}
	primaryID, err := uuid.Parse(req.PrimaryPractitionerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_primary_practitioner_id", "primary_practitioner_id must be a valid UUID")
		return
	}
	practitionerIDs, err := parseUUIDs(req.PractitionerIDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_practitioner_ids", err.Error())
		return
	}
	locationID, err := parseOptionalUUID(req.LocationID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_location_id", "location_id must be a valid UUID")
		return
	}
	rootID, err := parseOptionalUUID(req.RootAppointmentID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_root_appointment_id", "root_appointment_id must be a valid UUID")
		return
	}
	divisions, err := parseSlotDivisions(req.SlotDivisions)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_slot_divisions", err.Error())
		return
	}

	patient := domain.PatientIdentity{
		Email:            req.PatientEmail,
		HealthIdentifier: req.PatientHealthID,
		FullName:         req.PatientFullName,
	}
	if req.PatientID != "" {
		pid, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		patient.ID = &pid
	}

	appt, err := h.svc.Book(r.Context(), booking.BookInput{
		Tenant:                tenant,
		Patient:               patient,
		ServiceID:             serviceID,
		LocationID:            locationID,
		DeliveryMode:          domain.DeliveryMode(req.DeliveryMode),
		LocalStart:            req.LocalStart,
		PractitionerIDs:       practitionerIDs,
		PrimaryPractitionerID: primaryID,
		SlotDivisions:         divisions,
		RootAppointmentID:     rootID,
	})
	if err != nil {
		h.writeServiceError(w, r, "book", err)
		return
	}

	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *Handler) confirmAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	var req ConfirmAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	approverID, err := uuid.Parse(req.ApproverID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_approver_id", "approver_id must be a valid UUID")
		return
	}

	appt, err := h.svc.Confirm(r.Context(), id, approverID, req.OverrideCode)
	if err != nil {
		h.writeServiceError(w, r, "confirm", err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) completeAppointment(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, "complete", h.svc.Complete)
}

func (h *Handler) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, "cancel", h.svc.Cancel)
}

func (h *Handler) declineAppointment(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, "decline", h.svc.Decline)
}

func (h *Handler) simpleTransition(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, id uuid.UUID) (domain.Appointment, error)) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}
	appt, err := fn(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) rescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenantFromRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing_tenant", "X-Tenant-ID header is required")
		return
	}
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	var req RescheduleAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	primaryID, err := uuid.Parse(req.PrimaryPractitionerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_primary_practitioner_id", "primary_practitioner_id must be a valid UUID")
		return
	}
	practitionerIDs, err := parseUUIDs(req.PractitionerIDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_practitioner_ids", err.Error())
		return
	}
	serviceID, err := parseOptionalUUID(req.ServiceID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
		return
	}
	locationID, err := parseOptionalUUID(req.LocationID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_location_id", "location_id must be a valid UUID")
		return
	}
	divisions, err := parseSlotDivisions(req.SlotDivisions)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_slot_divisions", err.Error())
		return
	}

	appt, err := h.svc.Reschedule(r.Context(), booking.RescheduleInput{
		Tenant:                tenant,
		AppointmentID:         id,
		LocalStart:            req.LocalStart,
		PractitionerIDs:       practitionerIDs,
		PrimaryPractitionerID: primaryID,
		SlotDivisions:         divisions,
		ServiceID:             serviceID,
		LocationID:            locationID,
	})
	if err != nil {
		h.writeServiceError(w, r, "reschedule", err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) listPractitionerAppointments(w http.ResponseWriter, r *http.Request) {
	practitionerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "id must be a valid UUID")
		return
	}

	windowStart, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_from", "from must be an RFC 3339 timestamp")
		return
	}
	windowEnd, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_to", "to must be an RFC 3339 timestamp")
		return
	}

	appts, err := h.svc.ListAppointments(r.Context(), practitionerID, windowStart, windowEnd)
	if err != nil {
		h.writeServiceError(w, r, "list", err)
		return
	}

	resp := AppointmentListResponse{Appointments: make([]AppointmentResponse, 0, len(appts))}
	for _, a := range appts {
		resp.Appointments = append(resp.Appointments, toAppointmentResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) jointAvailability(w http.ResponseWriter, r *http.Request) {
	practitionerIDs, err := parseUUIDs(r.URL.Query()["practitioner_id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_practitioner_id", err.Error())
		return
	}
	locationID, err := parseOptionalUUID(r.URL.Query().Get("location_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_location_id", "location_id must be a valid UUID")
		return
	}

	joint, err := h.svc.JointAvailability(r.Context(), practitionerIDs, locationID)
	if err != nil {
		h.writeServiceError(w, r, "joint_availability", err)
		return
	}
	writeJSON(w, http.StatusOK, toJointAvailabilityResponse(joint))
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var validationErr *booking.ValidationError
	var conflictErr *domain.SchedulingConflictError
	var transitionErr *domain.IllegalTransitionError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, "invalid_request", validationErr.Error())
	case errors.Is(err, domain.ErrInvalidTimeFormat),
		errors.Is(err, domain.ErrUnknownTimezone),
		errors.Is(err, domain.ErrPrimaryPractitionerNotInSet):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.As(err, &conflictErr):
		writeError(w, http.StatusConflict, "scheduling_conflict", conflictErr.Error())
	case errors.As(err, &transitionErr):
		writeError(w, http.StatusConflict, "illegal_transition", transitionErr.Error())
	case errors.Is(err, store.ErrStaleStatus):
		writeError(w, http.StatusConflict, "stale_status", "appointment status changed; re-read and retry")
	case errors.Is(err, booking.ErrRescheduleNotPending):
		writeError(w, http.StatusConflict, "not_pending", err.Error())
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "calendar_busy", "calendar is being modified, please retry shortly")
	case errors.Is(err, domain.ErrNoAvailabilityIntersection):
		writeError(w, http.StatusNotFound, "no_joint_availability", err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", "appointment not found")
	default:
		h.log.Error("request failed",
			slog.String("op", op),
			slog.String("request_id", GetRequestID(r.Context())),
			slog.Any("err", err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func appointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, errors.New("practitioner ids must be valid UUIDs")
		}
		out = append(out, id)
	}
	return out, nil
}

func parseOptionalUUID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseSlotDivisions(raw []SlotDivisionRequest) ([]booking.SlotDivision, error) {
	out := make([]booking.SlotDivision, 0, len(raw))
	for _, d := range raw {
		id, err := uuid.Parse(d.PractitionerID)
		if err != nil {
			return nil, errors.New("slot division practitioner_id must be a valid UUID")
		}
		out = append(out, booking.SlotDivision{
			PractitionerID: id,
			LocalStart:     d.LocalStart,
			LocalEnd:       d.LocalEnd,
		})
	}
	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

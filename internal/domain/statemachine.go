package domain

// EffectKind names a collaborator call the orchestrator must perform after the
// owning transaction commits. The state machine only declares effects; it
// never executes them.
type EffectKind string

const (
	EffectApprovePatient     EffectKind = "approve_patient"
	EffectCreateInvoice      EffectKind = "create_invoice"
	EffectAcceptInvitation   EffectKind = "accept_invitation"
	EffectAuditOverride      EffectKind = "audit_override"
	EffectRecordPayout       EffectKind = "record_payout"
	EffectSendConsentRequest EffectKind = "send_consent_request"
)

type transitionKey struct {
	from AppointmentStatus
	to   AppointmentStatus
}

// transitions is the full set of legal status moves. Anything absent is
// illegal; in particular a confirmed appointment can never be cancelled or
// declined, because an invoice may already exist for it.
var transitions = map[transitionKey][]EffectKind{
	{StatusRequested, StatusConfirmed}: {EffectApprovePatient, EffectCreateInvoice, EffectAcceptInvitation},
	{StatusPending, StatusConfirmed}:   {EffectCreateInvoice, EffectAcceptInvitation},
	{StatusConfirmed, StatusCompleted}: {EffectRecordPayout},

	{StatusRequested, StatusCancelled}:      {},
	{StatusRequested, StatusDeclined}:       {},
	{StatusPending, StatusCancelled}:        {},
	{StatusPending, StatusDeclined}:         {},
	{StatusPendingConsent, StatusCancelled}: {},
	{StatusPendingConsent, StatusDeclined}:  {},
}

// Transition validates a status move and returns the post-commit effects it
// requires.
func Transition(from, to AppointmentStatus) ([]EffectKind, error) {
	effects, ok := transitions[transitionKey{from, to}]
	if !ok {
		return nil, &IllegalTransitionError{From: from, To: to}
	}
	out := make([]EffectKind, len(effects))
	copy(out, effects)
	return out, nil
}

// EntryStatus picks the initial status for a new booking from the patient's
// approval and consent state. defaultStatus overrides the entry state for
// fully-consented bookings when a tenant configures one.
func EntryStatus(approved, consented bool, defaultStatus AppointmentStatus) (AppointmentStatus, []EffectKind) {
	if !approved {
		return StatusRequested, nil
	}
	if !consented {
		return StatusPendingConsent, []EffectKind{EffectSendConsentRequest}
	}
	if defaultStatus != "" {
		return defaultStatus, nil
	}
	return StatusPending, nil
}

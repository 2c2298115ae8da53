package audit

import "time"

// Audit actions emitted by the verification pipeline.
const (
	ActionEnrollment          = "biometric.enrollment"
	ActionVerificationSuccess = "biometric.verification_success"
	ActionVerificationFailure = "biometric.verification_failure"
	ActionRateLimitBlock      = "biometric.rate_limit_block"
)

// Event is one append-only audit row. Events are never mutated after write.
type Event struct {
	ID        string
	TenantID  string
	Action    string
	Actor     string
	Resource  string
	Status    string
	Details   map[string]any
	Timestamp time.Time
}

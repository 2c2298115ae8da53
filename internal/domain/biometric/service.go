package biometric

import "context"

// VerificationService is the end-to-end "verify and mark attendance"
// surface: enrollment plus the gated check-in/check-out pipeline.
type VerificationService interface {
	// Enroll registers (or re-registers, archiving the prior descriptor)
	// a person's biometric template.
	Enroll(ctx context.Context, req EnrollRequest) (EnrollResponse, error)

	// VerifyAndClockIn runs the full gate sequence and appends an IN punch.
	VerifyAndClockIn(ctx context.Context, req VerifyRequest) (VerifyResponse, error)

	// VerifyAndClockOut mirrors VerifyAndClockIn for the OUT punch.
	VerifyAndClockOut(ctx context.Context, req VerifyRequest) (VerifyResponse, error)

	// RecordRateLimitBlock audits an enrollment attempt blocked by the
	// external rate limiter.
	RecordRateLimitBlock(ctx context.Context, tenantID, personID, detail string) error
}

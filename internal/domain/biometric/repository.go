package biometric

import "context"

// TemplateRepository stores biometric templates keyed by (tenant, person).
// Templates are never hard-deleted; deactivation keeps the row.
type TemplateRepository interface {
	// GetActive returns the single ACTIVE template for the person, or nil
	// when none is enrolled.
	GetActive(ctx context.Context, tenantID, personID string) (*Template, error)

	Create(ctx context.Context, template Template) (Template, error)

	Update(ctx context.Context, template Template) error

	// Deactivate soft-retires every active template for the person; used
	// before a re-enrollment writes the replacement.
	Deactivate(ctx context.Context, tenantID, personID string) error

	// RecordUsage bumps the success or failure counter; failureReason is
	// stored on failure.
	RecordUsage(ctx context.Context, templateID string, success bool, failureReason string) error
}

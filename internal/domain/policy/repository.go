package policy

import "context"

// Repository stores one Config per tenant. GetByTenant must return
// Default(tenantID) when the tenant has no stored policy; a missing policy is
// never an error.
type Repository interface {
	GetByTenant(ctx context.Context, tenantID string) (Config, error)
	Upsert(ctx context.Context, cfg Config) error
}

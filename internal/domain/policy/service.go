package policy

import "context"

type Service interface {
	Get(ctx context.Context, tenantID string) (ConfigResponse, error)
	Update(ctx context.Context, tenantID string, req UpdateRequest) (ConfigResponse, error)
}

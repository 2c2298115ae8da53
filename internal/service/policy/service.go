package policy

import (
	"context"
	"fmt"

	"github.com/verihr/verihr-backend-go/internal/domain/policy"
)

type ServiceImpl struct {
	policies policy.Repository
}

func NewService(policies policy.Repository) policy.Service {
	return &ServiceImpl{policies: policies}
}

// Get implements policy.Service. Tenants with no stored policy see the
// defaults, never a 404.
func (s *ServiceImpl) Get(ctx context.Context, tenantID string) (policy.ConfigResponse, error) {
	cfg, err := s.policies.GetByTenant(ctx, tenantID)
	if err != nil {
		return policy.ConfigResponse{}, fmt.Errorf("failed to get attendance policy: %w", err)
	}
	return policy.NewConfigResponse(cfg), nil
}

// Update implements policy.Service.
func (s *ServiceImpl) Update(ctx context.Context, tenantID string, req policy.UpdateRequest) (policy.ConfigResponse, error) {
	if err := req.Validate(); err != nil {
		return policy.ConfigResponse{}, err
	}

	cfg := req.ToConfig(tenantID)
	if err := s.policies.Upsert(ctx, cfg); err != nil {
		return policy.ConfigResponse{}, fmt.Errorf("failed to update attendance policy: %w", err)
	}

	return policy.NewConfigResponse(cfg), nil
}

package postgresql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/verihr/verihr-backend-go/internal/domain/audit"
	"github.com/verihr/verihr-backend-go/internal/pkg/database"
)

type auditRepository struct {
	db *database.DB
}

func NewAuditRepository(db *database.DB) audit.Repository {
	return &auditRepository{db: db}
}

// Append implements audit.Repository. Insert only; audit rows are never
// updated or deleted.
func (r *auditRepository) Append(ctx context.Context, event audit.Event) error {
	q := GetQuerier(ctx, r.db)

	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit details: %w", err)
	}

	query := `
		INSERT INTO audit_events (
			id, tenant_id, action, actor, resource, status, details, occurred_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	if _, err := q.Exec(ctx, query,
		event.ID,
		event.TenantID,
		event.Action,
		event.Actor,
		event.Resource,
		event.Status,
		details,
		event.Timestamp,
	); err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}

	return nil
}

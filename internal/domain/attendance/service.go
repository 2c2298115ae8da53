package attendance

import (
	"context"
	"time"
)

// Service defines the read/administrative surface over attendance records.
// Mutation through punches happens in the verification orchestrator only.
type Service interface {
	// GetDay retrieves one person's record for a date.
	GetDay(ctx context.Context, tenantID, personID string, date time.Time) (RecordResponse, error)

	// ListMine retrieves the authenticated person's records for a range.
	ListMine(ctx context.Context, tenantID, personID string, filter RangeFilter) ([]RecordResponse, error)

	// LockDay marks a record payroll-final; it can never be mutated again.
	LockDay(ctx context.Context, tenantID, personID string, date time.Time) error
}

package attendance

import (
	"context"
	"time"
)

// Repository defines data access for attendance records. All methods take
// tenantID to prevent cross-tenant reads. The (tenant, person, date) key is
// unique at the storage layer; Create on a duplicate key returns
// ErrAlreadyMarked so a concurrent race loser surfaces cleanly.
type Repository interface {
	Create(ctx context.Context, record Record) (Record, error)

	// GetByPersonAndDate returns nil when no record exists for the day.
	GetByPersonAndDate(ctx context.Context, tenantID, personID string, date time.Time) (*Record, error)

	Update(ctx context.Context, record Record) error

	// Lock sets the payroll-finality flag; further Updates fail with
	// ErrRecordLocked.
	Lock(ctx context.Context, tenantID, personID string, date time.Time) error

	// CountFlaggedSince counts prior records in the policy cycle with the
	// late / early-out flag set, feeding the escalation counters. The range
	// is [cycleStart, before).
	CountFlaggedSince(ctx context.Context, tenantID, personID string, cycleStart, before time.Time) (lateCount, earlyOutCount int, err error)

	// ListRange returns the person's records for a date range, newest first.
	ListRange(ctx context.Context, tenantID, personID string, from, to time.Time) ([]Record, error)
}

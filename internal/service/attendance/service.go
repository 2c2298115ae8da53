package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/verihr/verihr-backend-go/internal/domain/attendance"
)

type ServiceImpl struct {
	records attendance.Repository
}

func NewService(records attendance.Repository) attendance.Service {
	return &ServiceImpl{records: records}
}

// GetDay implements attendance.Service.
func (s *ServiceImpl) GetDay(ctx context.Context, tenantID, personID string, date time.Time) (attendance.RecordResponse, error) {
	record, err := s.records.GetByPersonAndDate(ctx, tenantID, personID, date)
	if err != nil {
		return attendance.RecordResponse{}, fmt.Errorf("failed to get attendance record: %w", err)
	}
	if record == nil {
		return attendance.RecordResponse{}, attendance.ErrRecordNotFound
	}
	return attendance.NewRecordResponse(*record), nil
}

// ListMine implements attendance.Service.
func (s *ServiceImpl) ListMine(ctx context.Context, tenantID, personID string, filter attendance.RangeFilter) ([]attendance.RecordResponse, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	// Default to the current calendar month when the range is open.
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := now
	if filter.StartDate != "" {
		from, _ = time.Parse("2006-01-02", filter.StartDate)
	}
	if filter.EndDate != "" {
		to, _ = time.Parse("2006-01-02", filter.EndDate)
	}

	records, err := s.records.ListRange(ctx, tenantID, personID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance records: %w", err)
	}

	responses := make([]attendance.RecordResponse, 0, len(records))
	for _, r := range records {
		responses = append(responses, attendance.NewRecordResponse(r))
	}
	return responses, nil
}

// LockDay implements attendance.Service.
func (s *ServiceImpl) LockDay(ctx context.Context, tenantID, personID string, date time.Time) error {
	if err := s.records.Lock(ctx, tenantID, personID, date); err != nil {
		return fmt.Errorf("failed to lock attendance record: %w", err)
	}
	return nil
}

package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/verihr/verihr-backend-go/internal/domain/attendance"
	"github.com/verihr/verihr-backend-go/internal/pkg/database"
)

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

const attendanceColumns = `
	id, tenant_id, person_id, date, punches,
	status, is_late, is_early_out, is_wfh, is_on_duty, is_comp_off_day, is_night_shift,
	late_minutes, early_exit_minutes, working_hours, lop_days,
	trace, locked, created_at, updated_at
`

// Create implements attendance.Repository. The unique constraint on
// (tenant_id, person_id, date) is the storage-level backstop for concurrent
// punches; a duplicate insert surfaces as ErrAlreadyMarked.
func (r *attendanceRepository) Create(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	q := GetQuerier(ctx, r.db)

	punches, trace, err := marshalRecordJSON(record)
	if err != nil {
		return attendance.Record{}, err
	}

	query := `
		INSERT INTO attendance_records (
			id, tenant_id, person_id, date, punches,
			status, is_late, is_early_out, is_wfh, is_on_duty, is_comp_off_day, is_night_shift,
			late_minutes, early_exit_minutes, working_hours, lop_days,
			trace, locked
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		) RETURNING created_at, updated_at
	`

	err = q.QueryRow(ctx, query,
		record.ID,
		record.TenantID,
		record.PersonID,
		record.Date,
		punches,
		record.Status,
		record.IsLate,
		record.IsEarlyOut,
		record.IsWFH,
		record.IsOnDuty,
		record.IsCompOffDay,
		record.IsNightShift,
		record.LateMinutes,
		record.EarlyExitMinutes,
		record.WorkingHours,
		record.LOPDays,
		trace,
		record.Locked,
	).Scan(&record.CreatedAt, &record.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return attendance.Record{}, attendance.ErrAlreadyMarked
		}
		return attendance.Record{}, fmt.Errorf("failed to create attendance record: %w", err)
	}

	return record, nil
}

// GetByPersonAndDate implements attendance.Repository.
func (r *attendanceRepository) GetByPersonAndDate(ctx context.Context, tenantID, personID string, date time.Time) (*attendance.Record, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + attendanceColumns + `
		FROM attendance_records
		WHERE tenant_id = $1
		  AND person_id = $2
		  AND date = $3
		LIMIT 1
	`

	record, err := scanAttendanceRecord(q.QueryRow(ctx, query, tenantID, personID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attendance record: %w", err)
	}

	return &record, nil
}

// Update implements attendance.Repository. Locked records are excluded in the
// WHERE clause so payroll finality holds even if a caller skips the state
// check.
func (r *attendanceRepository) Update(ctx context.Context, record attendance.Record) error {
	q := GetQuerier(ctx, r.db)

	punches, trace, err := marshalRecordJSON(record)
	if err != nil {
		return err
	}

	query := `
		UPDATE attendance_records
		SET punches = $2,
			status = $3,
			is_late = $4,
			is_early_out = $5,
			is_wfh = $6,
			is_on_duty = $7,
			is_comp_off_day = $8,
			is_night_shift = $9,
			late_minutes = $10,
			early_exit_minutes = $11,
			working_hours = $12,
			lop_days = $13,
			trace = $14,
			updated_at = NOW()
		WHERE id = $1
		  AND locked = FALSE
	`

	tag, err := q.Exec(ctx, query,
		record.ID,
		punches,
		record.Status,
		record.IsLate,
		record.IsEarlyOut,
		record.IsWFH,
		record.IsOnDuty,
		record.IsCompOffDay,
		record.IsNightShift,
		record.LateMinutes,
		record.EarlyExitMinutes,
		record.WorkingHours,
		record.LOPDays,
		trace,
	)
	if err != nil {
		return fmt.Errorf("failed to update attendance record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		existing, err := r.GetByPersonAndDate(ctx, record.TenantID, record.PersonID, record.Date)
		if err != nil {
			return err
		}
		if existing != nil && existing.Locked {
			return attendance.ErrRecordLocked
		}
		return attendance.ErrRecordNotFound
	}

	return nil
}

// Lock implements attendance.Repository.
func (r *attendanceRepository) Lock(ctx context.Context, tenantID, personID string, date time.Time) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE attendance_records
		SET locked = TRUE, updated_at = NOW()
		WHERE tenant_id = $1
		  AND person_id = $2
		  AND date = $3
	`

	tag, err := q.Exec(ctx, query, tenantID, personID, date)
	if err != nil {
		return fmt.Errorf("failed to lock attendance record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrRecordNotFound
	}

	return nil
}

// CountFlaggedSince implements attendance.Repository.
func (r *attendanceRepository) CountFlaggedSince(ctx context.Context, tenantID, personID string, cycleStart, before time.Time) (int, int, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT COUNT(*) FILTER (WHERE is_late),
			   COUNT(*) FILTER (WHERE is_early_out)
		FROM attendance_records
		WHERE tenant_id = $1
		  AND person_id = $2
		  AND date >= $3
		  AND date < $4
	`

	var lateCount, earlyOutCount int
	err := q.QueryRow(ctx, query, tenantID, personID, cycleStart, before).Scan(&lateCount, &earlyOutCount)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count flagged records: %w", err)
	}

	return lateCount, earlyOutCount, nil
}

// ListRange implements attendance.Repository.
func (r *attendanceRepository) ListRange(ctx context.Context, tenantID, personID string, from, to time.Time) ([]attendance.Record, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + attendanceColumns + `
		FROM attendance_records
		WHERE tenant_id = $1
		  AND person_id = $2
		  AND date >= $3
		  AND date <= $4
		ORDER BY date DESC
	`

	rows, err := q.Query(ctx, query, tenantID, personID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance records: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		record, err := scanAttendanceRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendance records: %w", err)
	}

	return records, nil
}

func marshalRecordJSON(record attendance.Record) (punches, trace []byte, err error) {
	punches, err = json.Marshal(record.Punches)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal punches: %w", err)
	}
	trace, err = json.Marshal(record.Trace)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal trace: %w", err)
	}
	return punches, trace, nil
}

func scanAttendanceRecord(row pgx.Row) (attendance.Record, error) {
	var record attendance.Record
	var punches, trace []byte

	err := row.Scan(
		&record.ID, &record.TenantID, &record.PersonID, &record.Date, &punches,
		&record.Status, &record.IsLate, &record.IsEarlyOut, &record.IsWFH,
		&record.IsOnDuty, &record.IsCompOffDay, &record.IsNightShift,
		&record.LateMinutes, &record.EarlyExitMinutes, &record.WorkingHours, &record.LOPDays,
		&trace, &record.Locked, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return attendance.Record{}, err
	}

	if err := json.Unmarshal(punches, &record.Punches); err != nil {
		return attendance.Record{}, fmt.Errorf("failed to unmarshal punches: %w", err)
	}
	if err := json.Unmarshal(trace, &record.Trace); err != nil {
		return attendance.Record{}, fmt.Errorf("failed to unmarshal trace: %w", err)
	}

	return record, nil
}

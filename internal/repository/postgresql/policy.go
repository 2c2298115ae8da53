package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/verihr/verihr-backend-go/internal/domain/policy"
	"github.com/verihr/verihr-backend-go/internal/pkg/database"
)

type policyRepository struct {
	db *database.DB
}

func NewPolicyRepository(db *database.DB) policy.Repository {
	return &policyRepository{db: db}
}

// GetByTenant implements policy.Repository. A tenant with no stored policy
// gets the documented defaults, never an error.
func (r *policyRepository) GetByTenant(ctx context.Context, tenantID string) (policy.Config, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT tenant_id, shift_start, shift_end, night_shift,
			   grace_minutes, allowed_late_minutes,
			   full_day_threshold_hours, half_day_threshold_hours,
			   weekly_off_mode, weekly_off_days, person_weekly_off_overrides, saturday_half_day,
			   late_escalation_enabled, late_marks_to_half_day, late_marks_to_full_day,
			   early_exit_escalation_enabled, early_exits_to_half_day, early_exits_to_full_day,
			   half_day_by_hours_enabled, half_day_by_hours_threshold,
			   wfh_enabled, wfh_requires_approval,
			   on_duty_enabled, on_duty_requires_approval, comp_off_enabled,
			   geofence, max_gps_accuracy_meters, updated_at
		FROM attendance_policies
		WHERE tenant_id = $1
		LIMIT 1
	`

	var cfg policy.Config
	var weeklyOffDays, overrides, geofence []byte

	err := q.QueryRow(ctx, query, tenantID).Scan(
		&cfg.TenantID, &cfg.ShiftStart, &cfg.ShiftEnd, &cfg.NightShift,
		&cfg.GraceMinutes, &cfg.AllowedLateMinutes,
		&cfg.FullDayThresholdHours, &cfg.HalfDayThresholdHours,
		&cfg.WeeklyOffMode, &weeklyOffDays, &overrides, &cfg.SaturdayHalfDay,
		&cfg.LateEscalationEnabled, &cfg.LateMarksToHalfDay, &cfg.LateMarksToFullDay,
		&cfg.EarlyExitEscalationEnabled, &cfg.EarlyExitsToHalfDay, &cfg.EarlyExitsToFullDay,
		&cfg.HalfDayByHoursEnabled, &cfg.HalfDayByHoursThreshold,
		&cfg.WFHEnabled, &cfg.WFHRequiresApproval,
		&cfg.OnDutyEnabled, &cfg.OnDutyRequiresApproval, &cfg.CompOffEnabled,
		&geofence, &cfg.MaxGPSAccuracyMeters, &cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return policy.Default(tenantID), nil
		}
		return policy.Config{}, fmt.Errorf("failed to get attendance policy: %w", err)
	}

	if err := json.Unmarshal(weeklyOffDays, &cfg.WeeklyOffDays); err != nil {
		return policy.Config{}, fmt.Errorf("failed to unmarshal weekly off days: %w", err)
	}
	if err := json.Unmarshal(overrides, &cfg.PersonWeeklyOffOverrides); err != nil {
		return policy.Config{}, fmt.Errorf("failed to unmarshal weekly off overrides: %w", err)
	}
	if err := json.Unmarshal(geofence, &cfg.Geofence); err != nil {
		return policy.Config{}, fmt.Errorf("failed to unmarshal geofence: %w", err)
	}

	return cfg, nil
}

// Upsert implements policy.Repository.
func (r *policyRepository) Upsert(ctx context.Context, cfg policy.Config) error {
	q := GetQuerier(ctx, r.db)

	weeklyOffDays, err := json.Marshal(cfg.WeeklyOffDays)
	if err != nil {
		return fmt.Errorf("failed to marshal weekly off days: %w", err)
	}
	overrides, err := json.Marshal(cfg.PersonWeeklyOffOverrides)
	if err != nil {
		return fmt.Errorf("failed to marshal weekly off overrides: %w", err)
	}
	geofence, err := json.Marshal(cfg.Geofence)
	if err != nil {
		return fmt.Errorf("failed to marshal geofence: %w", err)
	}

	query := `
		INSERT INTO attendance_policies (
			tenant_id, shift_start, shift_end, night_shift,
			grace_minutes, allowed_late_minutes,
			full_day_threshold_hours, half_day_threshold_hours,
			weekly_off_mode, weekly_off_days, person_weekly_off_overrides, saturday_half_day,
			late_escalation_enabled, late_marks_to_half_day, late_marks_to_full_day,
			early_exit_escalation_enabled, early_exits_to_half_day, early_exits_to_full_day,
			half_day_by_hours_enabled, half_day_by_hours_threshold,
			wfh_enabled, wfh_requires_approval,
			on_duty_enabled, on_duty_requires_approval, comp_off_enabled,
			geofence, max_gps_accuracy_meters, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, NOW()
		)
		ON CONFLICT (tenant_id) DO UPDATE SET
			shift_start = EXCLUDED.shift_start,
			shift_end = EXCLUDED.shift_end,
			night_shift = EXCLUDED.night_shift,
			grace_minutes = EXCLUDED.grace_minutes,
			allowed_late_minutes = EXCLUDED.allowed_late_minutes,
			full_day_threshold_hours = EXCLUDED.full_day_threshold_hours,
			half_day_threshold_hours = EXCLUDED.half_day_threshold_hours,
			weekly_off_mode = EXCLUDED.weekly_off_mode,
			weekly_off_days = EXCLUDED.weekly_off_days,
			person_weekly_off_overrides = EXCLUDED.person_weekly_off_overrides,
			saturday_half_day = EXCLUDED.saturday_half_day,
			late_escalation_enabled = EXCLUDED.late_escalation_enabled,
			late_marks_to_half_day = EXCLUDED.late_marks_to_half_day,
			late_marks_to_full_day = EXCLUDED.late_marks_to_full_day,
			early_exit_escalation_enabled = EXCLUDED.early_exit_escalation_enabled,
			early_exits_to_half_day = EXCLUDED.early_exits_to_half_day,
			early_exits_to_full_day = EXCLUDED.early_exits_to_full_day,
			half_day_by_hours_enabled = EXCLUDED.half_day_by_hours_enabled,
			half_day_by_hours_threshold = EXCLUDED.half_day_by_hours_threshold,
			wfh_enabled = EXCLUDED.wfh_enabled,
			wfh_requires_approval = EXCLUDED.wfh_requires_approval,
			on_duty_enabled = EXCLUDED.on_duty_enabled,
			on_duty_requires_approval = EXCLUDED.on_duty_requires_approval,
			comp_off_enabled = EXCLUDED.comp_off_enabled,
			geofence = EXCLUDED.geofence,
			max_gps_accuracy_meters = EXCLUDED.max_gps_accuracy_meters,
			updated_at = NOW()
	`

	if _, err := q.Exec(ctx, query,
		cfg.TenantID, cfg.ShiftStart, cfg.ShiftEnd, cfg.NightShift,
		cfg.GraceMinutes, cfg.AllowedLateMinutes,
		cfg.FullDayThresholdHours, cfg.HalfDayThresholdHours,
		cfg.WeeklyOffMode, weeklyOffDays, overrides, cfg.SaturdayHalfDay,
		cfg.LateEscalationEnabled, cfg.LateMarksToHalfDay, cfg.LateMarksToFullDay,
		cfg.EarlyExitEscalationEnabled, cfg.EarlyExitsToHalfDay, cfg.EarlyExitsToFullDay,
		cfg.HalfDayByHoursEnabled, cfg.HalfDayByHoursThreshold,
		cfg.WFHEnabled, cfg.WFHRequiresApproval,
		cfg.OnDutyEnabled, cfg.OnDutyRequiresApproval, cfg.CompOffEnabled,
		geofence, cfg.MaxGPSAccuracyMeters,
	); err != nil {
		return fmt.Errorf("failed to upsert attendance policy: %w", err)
	}

	return nil
}

package policy

import (
	"time"

	"github.com/verihr/verihr-backend-go/internal/pkg/geo"
	"github.com/verihr/verihr-backend-go/internal/pkg/validator"
)

type GeoPointDTO struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type UpdateRequest struct {
	ShiftStart         string `json:"shift_start"`
	ShiftEnd           string `json:"shift_end"`
	NightShift         bool   `json:"night_shift"`
	GraceMinutes       int    `json:"grace_minutes"`
	AllowedLateMinutes *int   `json:"allowed_late_minutes,omitempty"`

	FullDayThresholdHours float64 `json:"full_day_threshold_hours"`
	HalfDayThresholdHours float64 `json:"half_day_threshold_hours"`

	WeeklyOffMode   string `json:"weekly_off_mode"`
	WeeklyOffDays   []int  `json:"weekly_off_days"`
	SaturdayHalfDay bool   `json:"saturday_half_day"`

	LateEscalationEnabled bool `json:"late_escalation_enabled"`
	LateMarksToHalfDay    int  `json:"late_marks_to_half_day"`
	LateMarksToFullDay    int  `json:"late_marks_to_full_day"`

	EarlyExitEscalationEnabled bool `json:"early_exit_escalation_enabled"`
	EarlyExitsToHalfDay        int  `json:"early_exits_to_half_day"`
	EarlyExitsToFullDay        int  `json:"early_exits_to_full_day"`

	HalfDayByHoursEnabled   bool    `json:"half_day_by_hours_enabled"`
	HalfDayByHoursThreshold float64 `json:"half_day_by_hours_threshold"`

	WFHEnabled             bool `json:"wfh_enabled"`
	WFHRequiresApproval    bool `json:"wfh_requires_approval"`
	OnDutyEnabled          bool `json:"on_duty_enabled"`
	OnDutyRequiresApproval bool `json:"on_duty_requires_approval"`
	CompOffEnabled         bool `json:"comp_off_enabled"`

	Geofence             []GeoPointDTO `json:"geofence,omitempty"`
	MaxGPSAccuracyMeters float64       `json:"max_gps_accuracy_meters"`
}

func (r *UpdateRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidClockTime(r.ShiftStart) {
		errs = append(errs, validator.ValidationError{
			Field:   "shift_start",
			Message: "shift_start must be in HH:MM format",
		})
	}
	if !validator.IsValidClockTime(r.ShiftEnd) {
		errs = append(errs, validator.ValidationError{
			Field:   "shift_end",
			Message: "shift_end must be in HH:MM format",
		})
	}

	if r.GraceMinutes < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "grace_minutes",
			Message: "grace_minutes must not be negative",
		})
	}

	if r.HalfDayThresholdHours <= 0 || r.FullDayThresholdHours <= 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "full_day_threshold_hours",
			Message: "day thresholds must be positive",
		})
	} else if r.HalfDayThresholdHours > r.FullDayThresholdHours {
		errs = append(errs, validator.ValidationError{
			Field:   "half_day_threshold_hours",
			Message: "half-day threshold must not exceed full-day threshold",
		})
	}

	switch WeeklyOffMode(r.WeeklyOffMode) {
	case ModeBasic, ModeSunday, ModeSaturdaySunday, ModeAlternateSaturday, ModeCustom, "":
	default:
		errs = append(errs, validator.ValidationError{
			Field:   "weekly_off_mode",
			Message: "weekly_off_mode must be one of: basic, sunday, saturday_sunday, alternate_saturday, custom",
		})
	}

	for _, d := range r.WeeklyOffDays {
		if d < 0 || d > 6 {
			errs = append(errs, validator.ValidationError{
				Field:   "weekly_off_days",
				Message: "weekly_off_days entries must be 0 (Sunday) through 6 (Saturday)",
			})
			break
		}
	}

	if r.LateEscalationEnabled && (r.LateMarksToHalfDay <= 0 || r.LateMarksToFullDay <= 0) {
		errs = append(errs, validator.ValidationError{
			Field:   "late_marks_to_half_day",
			Message: "late escalation thresholds must be positive when escalation is enabled",
		})
	}
	if r.EarlyExitEscalationEnabled && (r.EarlyExitsToHalfDay <= 0 || r.EarlyExitsToFullDay <= 0) {
		errs = append(errs, validator.ValidationError{
			Field:   "early_exits_to_half_day",
			Message: "early-exit escalation thresholds must be positive when escalation is enabled",
		})
	}

	if len(r.Geofence) > 0 && len(r.Geofence) < 3 {
		errs = append(errs, validator.ValidationError{
			Field:   "geofence",
			Message: "geofence needs at least 3 vertices",
		})
	}
	for _, p := range r.Geofence {
		if p.Latitude < -90 || p.Latitude > 90 || p.Longitude < -180 || p.Longitude > 180 {
			errs = append(errs, validator.ValidationError{
				Field:   "geofence",
				Message: "geofence vertices must be valid coordinates",
			})
			break
		}
	}

	if r.MaxGPSAccuracyMeters < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "max_gps_accuracy_meters",
			Message: "max_gps_accuracy_meters must not be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ConfigResponse mirrors Config for API consumers.
type ConfigResponse struct {
	TenantID           string `json:"tenant_id"`
	ShiftStart         string `json:"shift_start"`
	ShiftEnd           string `json:"shift_end"`
	NightShift         bool   `json:"night_shift"`
	GraceMinutes       int    `json:"grace_minutes"`
	AllowedLateMinutes *int   `json:"allowed_late_minutes,omitempty"`

	FullDayThresholdHours float64 `json:"full_day_threshold_hours"`
	HalfDayThresholdHours float64 `json:"half_day_threshold_hours"`

	WeeklyOffMode   string `json:"weekly_off_mode"`
	WeeklyOffDays   []int  `json:"weekly_off_days"`
	SaturdayHalfDay bool   `json:"saturday_half_day"`

	LateEscalationEnabled bool `json:"late_escalation_enabled"`
	LateMarksToHalfDay    int  `json:"late_marks_to_half_day"`
	LateMarksToFullDay    int  `json:"late_marks_to_full_day"`

	EarlyExitEscalationEnabled bool `json:"early_exit_escalation_enabled"`
	EarlyExitsToHalfDay        int  `json:"early_exits_to_half_day"`
	EarlyExitsToFullDay        int  `json:"early_exits_to_full_day"`

	HalfDayByHoursEnabled   bool    `json:"half_day_by_hours_enabled"`
	HalfDayByHoursThreshold float64 `json:"half_day_by_hours_threshold"`

	WFHEnabled             bool `json:"wfh_enabled"`
	WFHRequiresApproval    bool `json:"wfh_requires_approval"`
	OnDutyEnabled          bool `json:"on_duty_enabled"`
	OnDutyRequiresApproval bool `json:"on_duty_requires_approval"`
	CompOffEnabled         bool `json:"comp_off_enabled"`

	Geofence             []GeoPointDTO `json:"geofence,omitempty"`
	MaxGPSAccuracyMeters float64       `json:"max_gps_accuracy_meters"`

	UpdatedAt time.Time `json:"updated_at"`
}

func NewConfigResponse(cfg Config) ConfigResponse {
	days := make([]int, 0, len(cfg.WeeklyOffDays))
	for _, d := range cfg.WeeklyOffDays {
		days = append(days, int(d))
	}
	var vertices []GeoPointDTO
	for _, p := range cfg.Geofence {
		vertices = append(vertices, GeoPointDTO{Latitude: p.Latitude, Longitude: p.Longitude})
	}

	return ConfigResponse{
		TenantID:                   cfg.TenantID,
		ShiftStart:                 cfg.ShiftStart,
		ShiftEnd:                   cfg.ShiftEnd,
		NightShift:                 cfg.NightShift,
		GraceMinutes:               cfg.GraceMinutes,
		AllowedLateMinutes:         cfg.AllowedLateMinutes,
		FullDayThresholdHours:      cfg.FullDayThresholdHours,
		HalfDayThresholdHours:      cfg.HalfDayThresholdHours,
		WeeklyOffMode:              string(cfg.WeeklyOffMode),
		WeeklyOffDays:              days,
		SaturdayHalfDay:            cfg.SaturdayHalfDay,
		LateEscalationEnabled:      cfg.LateEscalationEnabled,
		LateMarksToHalfDay:         cfg.LateMarksToHalfDay,
		LateMarksToFullDay:         cfg.LateMarksToFullDay,
		EarlyExitEscalationEnabled: cfg.EarlyExitEscalationEnabled,
		EarlyExitsToHalfDay:        cfg.EarlyExitsToHalfDay,
		EarlyExitsToFullDay:        cfg.EarlyExitsToFullDay,
		HalfDayByHoursEnabled:      cfg.HalfDayByHoursEnabled,
		HalfDayByHoursThreshold:    cfg.HalfDayByHoursThreshold,
		WFHEnabled:                 cfg.WFHEnabled,
		WFHRequiresApproval:        cfg.WFHRequiresApproval,
		OnDutyEnabled:              cfg.OnDutyEnabled,
		OnDutyRequiresApproval:     cfg.OnDutyRequiresApproval,
		CompOffEnabled:             cfg.CompOffEnabled,
		Geofence:                   vertices,
		MaxGPSAccuracyMeters:       cfg.MaxGPSAccuracyMeters,
		UpdatedAt:                  cfg.UpdatedAt,
	}
}

// ToConfig merges the request over the defaults so unset optional fields keep
// their documented fallback values.
func (r *UpdateRequest) ToConfig(tenantID string) Config {
	cfg := Default(tenantID)

	cfg.ShiftStart = r.ShiftStart
	cfg.ShiftEnd = r.ShiftEnd
	cfg.NightShift = r.NightShift
	cfg.GraceMinutes = r.GraceMinutes
	cfg.AllowedLateMinutes = r.AllowedLateMinutes
	cfg.FullDayThresholdHours = r.FullDayThresholdHours
	cfg.HalfDayThresholdHours = r.HalfDayThresholdHours
	if r.WeeklyOffMode != "" {
		cfg.WeeklyOffMode = WeeklyOffMode(r.WeeklyOffMode)
	}
	if len(r.WeeklyOffDays) > 0 {
		days := make([]time.Weekday, 0, len(r.WeeklyOffDays))
		for _, d := range r.WeeklyOffDays {
			days = append(days, time.Weekday(d))
		}
		cfg.WeeklyOffDays = days
	}
	cfg.SaturdayHalfDay = r.SaturdayHalfDay
	cfg.LateEscalationEnabled = r.LateEscalationEnabled
	if r.LateMarksToHalfDay > 0 {
		cfg.LateMarksToHalfDay = r.LateMarksToHalfDay
	}
	if r.LateMarksToFullDay > 0 {
		cfg.LateMarksToFullDay = r.LateMarksToFullDay
	}
	cfg.EarlyExitEscalationEnabled = r.EarlyExitEscalationEnabled
	if r.EarlyExitsToHalfDay > 0 {
		cfg.EarlyExitsToHalfDay = r.EarlyExitsToHalfDay
	}
	if r.EarlyExitsToFullDay > 0 {
		cfg.EarlyExitsToFullDay = r.EarlyExitsToFullDay
	}
	cfg.HalfDayByHoursEnabled = r.HalfDayByHoursEnabled
	if r.HalfDayByHoursThreshold > 0 {
		cfg.HalfDayByHoursThreshold = r.HalfDayByHoursThreshold
	}
	cfg.WFHEnabled = r.WFHEnabled
	cfg.WFHRequiresApproval = r.WFHRequiresApproval
	cfg.OnDutyEnabled = r.OnDutyEnabled
	cfg.OnDutyRequiresApproval = r.OnDutyRequiresApproval
	cfg.CompOffEnabled = r.CompOffEnabled
	if len(r.Geofence) >= 3 {
		poly := make(geo.Polygon, 0, len(r.Geofence))
		for _, p := range r.Geofence {
			poly = append(poly, geo.Point{Latitude: p.Latitude, Longitude: p.Longitude})
		}
		cfg.Geofence = poly
	}
	if r.MaxGPSAccuracyMeters > 0 {
		cfg.MaxGPSAccuracyMeters = r.MaxGPSAccuracyMeters
	}

	return cfg
}

package attendance

import (
	"github.com/verihr/verihr-backend-go/internal/pkg/validator"
)

type RecordResponse struct {
	ID               string   `json:"id"`
	PersonID         string   `json:"person_id"`
	Date             string   `json:"date"`
	Status           string   `json:"status"`
	FirstIn          *string  `json:"first_in,omitempty"`
	LastOut          *string  `json:"last_out,omitempty"`
	IsLate           bool     `json:"is_late"`
	IsEarlyOut       bool     `json:"is_early_out"`
	IsWFH            bool     `json:"is_wfh"`
	IsOnDuty         bool     `json:"is_on_duty"`
	IsCompOffDay     bool     `json:"is_comp_off_day"`
	IsNightShift     bool     `json:"is_night_shift"`
	LateMinutes      int      `json:"late_minutes"`
	EarlyExitMinutes int      `json:"early_exit_minutes"`
	WorkingHours     float64  `json:"working_hours"`
	LOPDays          float64  `json:"lop_days"`
	PolicyViolations []string `json:"policy_violations"`
	Locked           bool     `json:"locked"`
}

func NewRecordResponse(r Record) RecordResponse {
	resp := RecordResponse{
		ID:               r.ID,
		PersonID:         r.PersonID,
		Date:             DayKey(r.Date),
		Status:           string(r.Status),
		IsLate:           r.IsLate,
		IsEarlyOut:       r.IsEarlyOut,
		IsWFH:            r.IsWFH,
		IsOnDuty:         r.IsOnDuty,
		IsCompOffDay:     r.IsCompOffDay,
		IsNightShift:     r.IsNightShift,
		LateMinutes:      r.LateMinutes,
		EarlyExitMinutes: r.EarlyExitMinutes,
		WorkingHours:     r.WorkingHours,
		LOPDays:          r.LOPDays,
		PolicyViolations: r.Trace.PolicyViolations,
		Locked:           r.Locked,
	}
	if t, ok := r.Punches.FirstIn(); ok {
		s := t.Format("2006-01-02 15:04:05")
		resp.FirstIn = &s
	}
	if t, ok := r.Punches.LastOut(); ok {
		s := t.Format("2006-01-02 15:04:05")
		resp.LastOut = &s
	}
	return resp
}

type RangeFilter struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (f *RangeFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.StartDate != "" {
		if _, ok := validator.IsValidDate(f.StartDate); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "start_date",
				Message: "start_date must be in YYYY-MM-DD format",
			})
		}
	}
	if f.EndDate != "" {
		if _, ok := validator.IsValidDate(f.EndDate); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "end_date must be in YYYY-MM-DD format",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

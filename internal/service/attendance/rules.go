package attendance

import (
	"fmt"
	"time"

	"github.com/verihr/verihr-backend-go/internal/domain/attendance"
	"github.com/verihr/verihr-backend-go/internal/domain/policy"
)

// DayTag marks a day with an approved work mode.
type DayTag string

const (
	TagNone   DayTag = ""
	TagWFH    DayTag = "wfh"
	TagOnDuty DayTag = "on_duty"
)

// EvalInput carries everything the engine needs. It deliberately includes no
// storage handles and no clock: identical inputs always produce identical
// outputs, so evaluations can be replayed for audit.
type EvalInput struct {
	Date     time.Time
	Punches  attendance.PunchLog
	Policy   policy.Config
	PersonID string

	// Accumulated counts entering this day; the engine adds the current day
	// itself before testing escalation thresholds.
	AccumulatedLateCount      int
	AccumulatedEarlyExitCount int

	IsHoliday        bool
	HasApprovedLeave bool
	LeaveType        string
	DayTag           DayTag
}

type EvalResult struct {
	Status            attendance.Status
	IsLate            bool
	IsEarlyOut        bool
	LateMinutes       int
	EarlyExitMinutes  int
	WorkingHours      float64
	LOPDays           float64
	IsWeeklyOff       bool
	IsCompOffDay      bool
	IsWFH             bool
	IsOnDuty          bool
	IsNightShift      bool
	IsSaturdayHalfDay bool
	Trace             attendance.Trace
}

// Engine computes a day's attendance status from the punch log and policy.
// It is a pure function object: stateless, synchronous and safe to share
// across goroutines.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

type evalState struct {
	in     EvalInput
	result EvalResult

	// statusForced is set by hard overrides and day tags so the hour-based
	// rules do not reinterpret a forced status.
	statusForced bool
}

type rule struct {
	name string
	// fn returns true when the decision is terminal and no further rule may
	// change the outcome.
	fn func(*evalState) bool
}

// Evaluate runs the rule chain in strict priority order. The first terminal
// rule wins; non-terminal rules accumulate flags and metrics.
func (e *Engine) Evaluate(in EvalInput) EvalResult {
	st := &evalState{in: in}
	st.result.Status = attendance.StatusAbsent
	st.result.IsNightShift = in.Policy.NightShift
	st.result.Trace.PolicyViolations = []string{}

	rules := []rule{
		{"weekly_off_resolution", resolveWeeklyOff},
		{"late_early_computation", computeLateEarly},
		{"holiday_override", applyHolidayOverride},
		{"weekly_off_override", applyWeeklyOffOverride},
		{"approved_leave_override", applyLeaveOverride},
		{"day_tag", applyDayTag},
		{"base_status_from_hours", applyBaseStatus},
		{"penalty_escalation", applyEscalation},
		{"half_day_by_hours", applyHalfDayByHours},
	}

	for _, r := range rules {
		if r.fn(st) {
			st.result.Trace.Branch = r.name
			return st.result
		}
	}
	return st.result
}

func (st *evalState) violate(format string, args ...any) {
	st.result.Trace.PolicyViolations = append(st.result.Trace.PolicyViolations, fmt.Sprintf(format, args...))
}

// resolveWeeklyOff computes the weekly-off and Saturday-half-day flags.
// Precedence: per-person override, then the policy-wide mode.
func resolveWeeklyOff(st *evalState) bool {
	weekday := st.in.Date.Weekday()
	p := st.in.Policy

	if days, ok := p.WeeklyOffFor(st.in.PersonID); ok {
		st.result.IsWeeklyOff = containsWeekday(days, weekday)
	} else {
		switch p.WeeklyOffMode {
		case policy.ModeSunday:
			st.result.IsWeeklyOff = weekday == time.Sunday
		case policy.ModeSaturdaySunday:
			st.result.IsWeeklyOff = weekday == time.Saturday || weekday == time.Sunday
		case policy.ModeAlternateSaturday:
			st.result.IsWeeklyOff = weekday == time.Sunday ||
				(weekday == time.Saturday && weekOfMonth(st.in.Date)%2 == 0)
		case policy.ModeBasic, policy.ModeCustom:
			st.result.IsWeeklyOff = containsWeekday(p.WeeklyOffDays, weekday)
		default:
			st.result.IsWeeklyOff = weekday == time.Sunday
		}
	}

	// Derived independently; never feeds IsWeeklyOff.
	st.result.IsSaturdayHalfDay = p.SaturdayHalfDay && weekday == time.Saturday

	return false
}

// computeLateEarly derives first-IN / last-OUT and the lateness and early-exit
// metrics against the shift window for the date.
func computeLateEarly(st *evalState) bool {
	shiftStart, shiftEnd := shiftWindow(st.in.Date, st.in.Policy)

	allowance := st.in.Policy.GraceMinutes
	if st.in.Policy.AllowedLateMinutes != nil {
		allowance = *st.in.Policy.AllowedLateMinutes
	}

	firstIn, hasIn := st.in.Punches.FirstIn()
	lastOut, hasOut := st.in.Punches.LastOut()

	if hasIn {
		if diff := firstIn.Sub(shiftStart); diff > 0 {
			st.result.LateMinutes = int(diff.Minutes())
		}
		if st.result.LateMinutes > allowance {
			st.result.IsLate = true
			st.violate("Late arrival detected (%d minutes after shift start)", st.result.LateMinutes)
		}
	}

	if hasOut {
		if diff := shiftEnd.Sub(lastOut); diff > 0 {
			st.result.EarlyExitMinutes = int(diff.Minutes())
		}
		if st.result.EarlyExitMinutes > allowance {
			st.result.IsEarlyOut = true
			st.violate("Early exit detected (%d minutes before shift end)", st.result.EarlyExitMinutes)
		}
	}

	if hasIn && hasOut && lastOut.After(firstIn) {
		st.result.WorkingHours = lastOut.Sub(firstIn).Hours()
	}

	return false
}

func applyHolidayOverride(st *evalState) bool {
	if !st.in.IsHoliday {
		return false
	}
	st.result.Status = attendance.StatusHoliday
	st.result.LOPDays = 0
	return true
}

// applyWeeklyOffOverride: a weekly off with zero punches is a weekly_off day;
// a weekly off with punches is voluntary work, kept as present with the
// comp-off flag rather than silently discarding the punches.
func applyWeeklyOffOverride(st *evalState) bool {
	if !st.result.IsWeeklyOff {
		return false
	}

	if len(st.in.Punches) == 0 {
		st.result.Status = attendance.StatusWeeklyOff
		return true
	}

	st.result.Status = attendance.StatusPresent
	// Voluntary work on a weekly off is always flagged; CompOffEnabled only
	// decides whether the flag accrues a credit downstream.
	st.result.IsCompOffDay = true
	// No scheduled shift applies on an off day.
	st.result.IsLate = false
	st.result.IsEarlyOut = false
	if st.in.Policy.CompOffEnabled {
		st.violate("Worked on a weekly off; day marked present with comp-off credit")
	} else {
		st.violate("Worked on a weekly off; day marked present (comp-off policy disabled)")
	}
	return true
}

func applyLeaveOverride(st *evalState) bool {
	if !st.in.HasApprovedLeave {
		return false
	}
	st.result.Status = attendance.StatusLeave
	return true
}

// applyDayTag handles explicit WFH / on-duty day tags. A requires-approval
// sub-mode only raises a notice; otherwise the tag forces present and the
// hour-based rules are skipped.
func applyDayTag(st *evalState) bool {
	switch st.in.DayTag {
	case TagWFH:
		if !st.in.Policy.WFHEnabled {
			return false
		}
		st.result.IsWFH = true
		if st.in.Policy.WFHRequiresApproval {
			st.violate("Work-from-home day pending approval")
			return false
		}
		st.result.Status = attendance.StatusPresent
		st.statusForced = true
	case TagOnDuty:
		if !st.in.Policy.OnDutyEnabled {
			return false
		}
		st.result.IsOnDuty = true
		if st.in.Policy.OnDutyRequiresApproval {
			st.violate("On-duty day pending approval")
			return false
		}
		st.result.Status = attendance.StatusPresent
		st.statusForced = true
	}
	return false
}

func applyBaseStatus(st *evalState) bool {
	if st.statusForced {
		return false
	}

	hasIn := st.in.Punches.Has(attendance.DirectionIn)
	hasOut := st.in.Punches.Has(attendance.DirectionOut)

	switch {
	case hasIn && !hasOut:
		st.result.Status = attendance.StatusMissedPunch
		st.violate("Missing clock-out punch")
	case st.result.WorkingHours >= st.in.Policy.FullDayThresholdHours:
		st.result.Status = attendance.StatusPresent
	case st.result.WorkingHours >= st.in.Policy.HalfDayThresholdHours:
		st.result.Status = attendance.StatusHalfDay
		st.violate("Worked hours below full-day threshold; day counted as half-day")
	case st.result.WorkingHours > 0:
		st.result.Status = attendance.StatusAbsent
		st.violate("Worked hours below half-day threshold; day counted as absent")
	default:
		st.result.Status = attendance.StatusAbsent
	}
	return false
}

// applyEscalation runs the late-mark and early-exit tracks independently
// against the pre-escalation status, then combines. An already-absent day is
// never penalized further. LOP from the two tracks combines via max, never
// additively: combined penalties on a single day are capped at one full day.
func applyEscalation(st *evalState) bool {
	base := st.result.Status
	if base != attendance.StatusPresent && base != attendance.StatusHalfDay {
		return false
	}
	p := st.in.Policy

	lateStatus, lateLOP := base, 0.0
	if p.LateEscalationEnabled && st.result.IsLate {
		newCount := st.in.AccumulatedLateCount + 1
		switch {
		// Full-day threshold takes precedence when both fire on one count.
		case p.LateMarksToFullDay > 0 && newCount%p.LateMarksToFullDay == 0:
			lateStatus, lateLOP = attendance.StatusAbsent, 1
			st.violate("Late-mark escalation: %d late marks this cycle, full-day loss of pay applied", newCount)
		case p.LateMarksToHalfDay > 0 && newCount%p.LateMarksToHalfDay == 0:
			lateStatus, lateLOP = attendance.StatusHalfDay, 0.5
			st.violate("Late-mark escalation: %d late marks this cycle, half-day loss of pay applied", newCount)
		}
	}

	earlyStatus, earlyLOP := base, 0.0
	if p.EarlyExitEscalationEnabled && st.result.IsEarlyOut {
		newCount := st.in.AccumulatedEarlyExitCount + 1
		switch {
		case p.EarlyExitsToFullDay > 0 && newCount%p.EarlyExitsToFullDay == 0:
			earlyStatus, earlyLOP = attendance.StatusAbsent, 1
			st.violate("Early-exit escalation: %d early exits this cycle, full-day loss of pay applied", newCount)
		case p.EarlyExitsToHalfDay > 0 && newCount%p.EarlyExitsToHalfDay == 0:
			earlyStatus, earlyLOP = attendance.StatusHalfDay, 0.5
			st.violate("Early-exit escalation: %d early exits this cycle, half-day loss of pay applied", newCount)
		}
	}

	st.result.Status = worseStatus(lateStatus, earlyStatus)
	if lop := maxFloat(lateLOP, earlyLOP); lop > st.result.LOPDays {
		st.result.LOPDays = lop
	}
	return false
}

func applyHalfDayByHours(st *evalState) bool {
	p := st.in.Policy
	if !p.HalfDayByHoursEnabled || st.statusForced {
		return false
	}
	if st.result.Status != attendance.StatusPresent {
		return false
	}
	if st.result.WorkingHours >= p.HalfDayByHoursThreshold {
		return false
	}

	st.result.Status = attendance.StatusHalfDay
	if st.result.LOPDays < 0.5 {
		st.result.LOPDays = 0.5
	}
	st.violate("Worked hours below half-day override threshold; day downgraded to half-day")
	return false
}

// shiftWindow builds the expected shift start/end instants for the date. The
// end rolls to the next calendar day on night shifts.
func shiftWindow(date time.Time, p policy.Config) (time.Time, time.Time) {
	start := atClock(date, p.ShiftStart, 9, 0)
	end := atClock(date, p.ShiftEnd, 18, 0)
	if p.NightShift || !end.After(start) {
		end = end.Add(24 * time.Hour)
	}
	return start, end
}

func atClock(date time.Time, clock string, fallbackHour, fallbackMin int) time.Time {
	hour, min := fallbackHour, fallbackMin
	if t, err := time.Parse("15:04", clock); err == nil {
		hour, min = t.Hour(), t.Minute()
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, min, 0, 0, date.Location())
}

// weekOfMonth returns the 1-based week index of the date within its month.
func weekOfMonth(date time.Time) int {
	return (date.Day()-1)/7 + 1
}

func containsWeekday(days []time.Weekday, d time.Weekday) bool {
	for _, day := range days {
		if day == d {
			return true
		}
	}
	return false
}

var statusSeverity = map[attendance.Status]int{
	attendance.StatusPresent: 0,
	attendance.StatusHalfDay: 1,
	attendance.StatusAbsent:  2,
}

func worseStatus(a, b attendance.Status) attendance.Status {
	if statusSeverity[b] > statusSeverity[a] {
		return b
	}
	return a
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

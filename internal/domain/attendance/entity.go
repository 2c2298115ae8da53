package attendance

import (
	"time"
)

type Status string

const (
	StatusPresent     Status = "present"
	StatusAbsent      Status = "absent"
	StatusLeave       Status = "leave"
	StatusHoliday     Status = "holiday"
	StatusWeeklyOff   Status = "weekly_off"
	StatusHalfDay     Status = "half_day"
	StatusMissedPunch Status = "missed_punch"
)

type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

type Punch struct {
	Time      time.Time `json:"time"`
	Direction Direction `json:"direction"`
}

// PunchLog is the ordered, append-only punch sequence for one person on one
// calendar day. First-IN and last-OUT are derived, never stored.
type PunchLog []Punch

func (l PunchLog) FirstIn() (time.Time, bool) {
	var first time.Time
	found := false
	for _, p := range l {
		if p.Direction != DirectionIn {
			continue
		}
		if !found || p.Time.Before(first) {
			first = p.Time
			found = true
		}
	}
	return first, found
}

func (l PunchLog) LastOut() (time.Time, bool) {
	var last time.Time
	found := false
	for _, p := range l {
		if p.Direction != DirectionOut {
			continue
		}
		if !found || p.Time.After(last) {
			last = p.Time
			found = true
		}
	}
	return last, found
}

func (l PunchLog) Has(d Direction) bool {
	for _, p := range l {
		if p.Direction == d {
			return true
		}
	}
	return false
}

// Trace records which rule decided the day and every policy violation raised
// along the way. The violation notices are user-facing, not debug output.
type Trace struct {
	Branch           string   `json:"branch"`
	PolicyViolations []string `json:"policy_violations"`
}

// Record is the single attendance row per (tenant, person, date). Once
// Locked is set the record is immutable (payroll finality).
type Record struct {
	ID       string
	TenantID string
	PersonID string
	Date     time.Time

	Punches PunchLog

	Status           Status
	IsLate           bool
	IsEarlyOut       bool
	IsWFH            bool
	IsOnDuty         bool
	IsCompOffDay     bool
	IsNightShift     bool
	LateMinutes      int
	EarlyExitMinutes int
	WorkingHours     float64
	LOPDays          float64

	Trace  Trace
	Locked bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DayKey formats the record's compound-key date part.
func DayKey(date time.Time) string {
	return date.Format("2006-01-02")
}

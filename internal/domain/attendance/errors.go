package attendance

import "errors"

// Attendance domain errors
var (
	ErrAlreadyMarked  = errors.New("attendance already marked for today")
	ErrNotCheckedIn   = errors.New("you have not checked in yet")
	ErrRecordLocked   = errors.New("attendance record is locked for payroll")
	ErrRecordNotFound = errors.New("attendance record not found")
)

package policy

import (
	"time"

	"github.com/verihr/verihr-backend-go/internal/pkg/geo"
)

type WeeklyOffMode string

const (
	ModeBasic             WeeklyOffMode = "basic"
	ModeSunday            WeeklyOffMode = "sunday"
	ModeSaturdaySunday    WeeklyOffMode = "saturday_sunday"
	ModeAlternateSaturday WeeklyOffMode = "alternate_saturday"
	ModeCustom            WeeklyOffMode = "custom"
)

// Config is the complete attendance policy for one tenant. Every field has an
// explicit default (see Default), so the rules engine always reads a fully
// populated configuration and never branches on field presence.
type Config struct {
	TenantID string

	// Shift window, local wall-clock "HH:MM". When NightShift is set the
	// shift end rolls to the next calendar day.
	ShiftStart string
	ShiftEnd   string
	NightShift bool

	GraceMinutes int
	// AllowedLateMinutes, when non-nil, replaces the grace period as the
	// lateness allowance.
	AllowedLateMinutes *int

	FullDayThresholdHours float64
	HalfDayThresholdHours float64

	WeeklyOffMode WeeklyOffMode
	// WeeklyOffDays backs the basic/custom modes.
	WeeklyOffDays []time.Weekday
	// PersonWeeklyOffOverrides take precedence over the policy-wide mode.
	PersonWeeklyOffOverrides map[string][]time.Weekday
	SaturdayHalfDay          bool

	LateEscalationEnabled bool
	LateMarksToHalfDay    int
	LateMarksToFullDay    int

	EarlyExitEscalationEnabled bool
	EarlyExitsToHalfDay        int
	EarlyExitsToFullDay        int

	// HalfDayByHours downgrades a present day whose worked hours fall below
	// a separate threshold.
	HalfDayByHoursEnabled   bool
	HalfDayByHoursThreshold float64

	WFHEnabled             bool
	WFHRequiresApproval    bool
	OnDutyEnabled          bool
	OnDutyRequiresApproval bool
	CompOffEnabled         bool

	Geofence             geo.Polygon
	MaxGPSAccuracyMeters float64

	UpdatedAt time.Time
}

// Default returns the documented fallback policy applied when a tenant has
// never touched attendance settings: nine-to-six shift, 15 minutes grace,
// Sunday off, 8h/4h day thresholds, escalation disabled, no geofence.
func Default(tenantID string) Config {
	return Config{
		TenantID:                 tenantID,
		ShiftStart:               "09:00",
		ShiftEnd:                 "18:00",
		GraceMinutes:             15,
		FullDayThresholdHours:    8,
		HalfDayThresholdHours:    4,
		WeeklyOffMode:            ModeSunday,
		WeeklyOffDays:            []time.Weekday{time.Sunday},
		PersonWeeklyOffOverrides: map[string][]time.Weekday{},
		LateMarksToHalfDay:       3,
		LateMarksToFullDay:       6,
		EarlyExitsToHalfDay:      3,
		EarlyExitsToFullDay:      6,
		HalfDayByHoursThreshold:  4,
		CompOffEnabled:           true,
		MaxGPSAccuracyMeters:     100,
	}
}

// WeeklyOffFor resolves the weekly-off day set for a person: a per-person
// override wins over the policy-wide mode.
func (c Config) WeeklyOffFor(personID string) ([]time.Weekday, bool) {
	if days, ok := c.PersonWeeklyOffOverrides[personID]; ok {
		return days, true
	}
	return nil, false
}

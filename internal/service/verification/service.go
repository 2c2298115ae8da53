package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/verihr/verihr-backend-go/internal/domain/attendance"
	"github.com/verihr/verihr-backend-go/internal/domain/audit"
	"github.com/verihr/verihr-backend-go/internal/domain/biometric"
	"github.com/verihr/verihr-backend-go/internal/domain/employee"
	"github.com/verihr/verihr-backend-go/internal/domain/policy"
	"github.com/verihr/verihr-backend-go/internal/pkg/crypto"
	"github.com/verihr/verihr-backend-go/internal/pkg/face"
	"github.com/verihr/verihr-backend-go/internal/pkg/geo"
	"github.com/verihr/verihr-backend-go/internal/pkg/keylock"
	attendanceService "github.com/verihr/verihr-backend-go/internal/service/attendance"
)

// Calendar supplies holiday and approved-leave facts for a person and date.
// Both live in external collaborators; a nil Calendar means "no holidays, no
// leave".
type Calendar interface {
	IsHoliday(ctx context.Context, tenantID string, date time.Time) (bool, error)
	ApprovedLeave(ctx context.Context, tenantID, personID string, date time.Time) (leaveType string, approved bool, err error)
}

// QualityGate holds the enrollment capture thresholds. Captures below the
// hard floor are rejected; captures between the floor and the review bar are
// stored as PENDING_REVIEW instead of ACTIVE.
type QualityGate struct {
	MinSharpness            float64
	MinBrightness           float64
	MinContrast             float64
	MinDetectionConfidence  float64
	ReviewBelowDetectionCnf float64
}

type VerificationServiceImpl struct {
	templates biometric.TemplateRepository
	records   attendance.Repository
	policies  policy.Repository
	employees employee.Repository
	audits    audit.Repository
	calendar  Calendar

	cipher   *crypto.Cipher
	matcher  *face.Matcher
	liveness *face.LivenessEvaluator
	engine   *attendanceService.Engine

	locks       *keylock.KeyLock
	gateTimeout time.Duration
	quality     QualityGate

	now func() time.Time
}

func NewVerificationService(
	templates biometric.TemplateRepository,
	records attendance.Repository,
	policies policy.Repository,
	employees employee.Repository,
	audits audit.Repository,
	calendar Calendar,
	cipher *crypto.Cipher,
	matcher *face.Matcher,
	liveness *face.LivenessEvaluator,
	gateTimeout time.Duration,
	quality QualityGate,
) biometric.VerificationService {
	return &VerificationServiceImpl{
		templates:   templates,
		records:     records,
		policies:    policies,
		employees:   employees,
		audits:      audits,
		calendar:    calendar,
		cipher:      cipher,
		matcher:     matcher,
		liveness:    liveness,
		engine:      attendanceService.NewEngine(),
		locks:       keylock.New(),
		gateTimeout: gateTimeout,
		quality:     quality,
		now:         time.Now,
	}
}

// Enroll implements biometric.VerificationService.
func (s *VerificationServiceImpl) Enroll(ctx context.Context, req biometric.EnrollRequest) (biometric.EnrollResponse, error) {
	if err := req.Validate(); err != nil {
		return biometric.EnrollResponse{}, err
	}

	emp, err := s.employees.GetByID(ctx, req.TenantID, req.PersonID)
	if err != nil {
		return biometric.EnrollResponse{}, err
	}

	if req.Quality.DetectionConfidence < s.quality.MinDetectionConfidence ||
		req.Quality.Sharpness < s.quality.MinSharpness ||
		req.Quality.Brightness < s.quality.MinBrightness ||
		req.Quality.Contrast < s.quality.MinContrast {
		s.audit(ctx, req.TenantID, emp.Name, audit.ActionEnrollment, "rejected", map[string]any{
			"person_id": req.PersonID,
			"reason":    "LOW_QUALITY_CAPTURE",
		})
		return biometric.EnrollResponse{}, biometric.ErrLowQualityCapture
	}

	livenessOK := false
	if frames := req.LivenessFrames(); len(frames) > 0 {
		result, err := s.liveness.Evaluate(frames)
		if err != nil {
			return biometric.EnrollResponse{}, err
		}
		if !result.Valid {
			s.audit(ctx, req.TenantID, emp.Name, audit.ActionEnrollment, "rejected", map[string]any{
				"person_id": req.PersonID,
				"reason":    "LIVENESS_CHECK_FAILED",
			})
			return biometric.EnrollResponse{}, biometric.ErrLivenessCheckFailed
		}
		livenessOK = true
	}

	tenantCipher, err := s.cipher.ForTenant(req.TenantID)
	if err != nil {
		return biometric.EnrollResponse{}, s.systemFault(ctx, req.TenantID, emp.Name, err)
	}

	// Multi-sample enrollment: the stored primary is the average of every
	// capture, which is more stable than any single one. The raw captures are
	// kept as alternates so matching can still hit an individual sample.
	primary := req.Descriptor
	if len(req.AlternateSamples) > 0 {
		samples := make([]face.Descriptor, 0, 1+len(req.AlternateSamples))
		samples = append(samples, face.Descriptor(req.Descriptor))
		for _, sample := range req.AlternateSamples {
			samples = append(samples, face.Descriptor(sample))
		}
		averaged, err := face.Average(samples)
		if err != nil {
			return biometric.EnrollResponse{}, s.systemFault(ctx, req.TenantID, emp.Name, err)
		}
		primary = averaged
	}

	sealed, err := sealDescriptor(tenantCipher, primary)
	if err != nil {
		return biometric.EnrollResponse{}, s.systemFault(ctx, req.TenantID, emp.Name, err)
	}
	alternates := make([]biometric.EncryptedDescriptor, 0, len(req.AlternateSamples))
	for _, sample := range req.AlternateSamples {
		alt, err := sealDescriptor(tenantCipher, sample)
		if err != nil {
			return biometric.EnrollResponse{}, s.systemFault(ctx, req.TenantID, emp.Name, err)
		}
		alternates = append(alternates, alt)
	}

	now := s.now().UTC()
	template := biometric.Template{
		ID:                   uuid.NewString(),
		TenantID:             req.TenantID,
		PersonID:             req.PersonID,
		Descriptor:           sealed,
		Alternates:           alternates,
		Quality:              req.Quality,
		LivenessAtEnrollment: livenessOK,
		Status:               biometric.StatusActive,
		Verified:             true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if req.Quality.DetectionConfidence < s.quality.ReviewBelowDetectionCnf {
		template.Status = biometric.StatusPendingReview
		template.Verified = false
	}

	// Re-enrollment archives the previous descriptor rather than deleting
	// it: the old template is soft-deactivated and its descriptor moves
	// into the new template's bounded backup list.
	existing, err := s.templates.GetActive(ctx, req.TenantID, req.PersonID)
	if err != nil {
		return biometric.EnrollResponse{}, s.systemFault(ctx, req.TenantID, emp.Name, err)
	}
	if existing != nil {
		carrier := *existing
		carrier.ArchiveDescriptor(now)
		template.Backups = carrier.Backups
		if err := s.templates.Deactivate(ctx, req.TenantID, req.PersonID); err != nil {
			return biometric.EnrollResponse{}, s.systemFault(ctx, req.TenantID, emp.Name, err)
		}
	}

	created, err := s.templates.Create(ctx, template)
	if err != nil {
		return biometric.EnrollResponse{}, s.systemFault(ctx, req.TenantID, emp.Name, err)
	}

	s.audit(ctx, req.TenantID, emp.Name, audit.ActionEnrollment, "success", map[string]any{
		"person_id":   req.PersonID,
		"template_id": created.ID,
		"status":      string(created.Status),
		"reenrolled":  existing != nil,
	})

	return biometric.EnrollResponse{
		TemplateID: created.ID,
		Status:     string(created.Status),
		Verified:   created.Verified,
	}, nil
}

// VerifyAndClockIn implements biometric.VerificationService.
func (s *VerificationServiceImpl) VerifyAndClockIn(ctx context.Context, req biometric.VerifyRequest) (biometric.VerifyResponse, error) {
	return s.verifyAndPunch(ctx, req, attendance.DirectionIn)
}

// VerifyAndClockOut implements biometric.VerificationService.
func (s *VerificationServiceImpl) VerifyAndClockOut(ctx context.Context, req biometric.VerifyRequest) (biometric.VerifyResponse, error) {
	return s.verifyAndPunch(ctx, req, attendance.DirectionOut)
}

func (s *VerificationServiceImpl) verifyAndPunch(ctx context.Context, req biometric.VerifyRequest, direction attendance.Direction) (biometric.VerifyResponse, error) {
	started := s.now()
	if err := req.Validate(); err != nil {
		return biometric.VerifyResponse{}, err
	}

	emp, err := s.employees.GetByID(ctx, req.TenantID, req.PersonID)
	if err != nil {
		return biometric.VerifyResponse{}, err
	}

	// The policy decides which business day the punch belongs to, so it loads
	// before the duplicate short-circuit.
	policyCfg, err := s.policies.GetByTenant(ctx, req.TenantID)
	if err != nil {
		return biometric.VerifyResponse{}, s.systemFault(ctx, req.TenantID, emp.Name, err)
	}

	now := s.now().UTC()
	day, err := s.punchDay(ctx, req.TenantID, req.PersonID, policyCfg, now)
	if err != nil {
		return biometric.VerifyResponse{}, s.systemFault(ctx, req.TenantID, emp.Name, err)
	}

	// Duplicate-punch short-circuit before any biometric work.
	existing, err := s.records.GetByPersonAndDate(ctx, req.TenantID, req.PersonID, day)
	if err != nil {
		return biometric.VerifyResponse{}, s.systemFault(ctx, req.TenantID, emp.Name, err)
	}
	if err := checkPunchState(existing, direction); err != nil {
		return biometric.VerifyResponse{}, err
	}

	template, err := s.templates.GetActive(ctx, req.TenantID, req.PersonID)
	if err != nil {
		return biometric.VerifyResponse{}, s.systemFault(ctx, req.TenantID, emp.Name, err)
	}
	if template == nil {
		s.auditVerification(ctx, req.TenantID, emp.Name, false, map[string]any{
			"person_id": req.PersonID,
			"reason":    "NO_REGISTERED_TEMPLATE",
		})
		return biometric.VerifyResponse{}, biometric.ErrNoRegisteredTemplate
	}

	match, err := s.runBiometricGates(ctx, req, template)
	if err != nil {
		s.recordGateFailure(ctx, req, emp.Name, template.ID, err)
		return biometric.VerifyResponse{}, err
	}

	geoResult := geo.NewValidator(policyCfg.MaxGPSAccuracyMeters).
		Validate(geo.Point{Latitude: *req.Latitude, Longitude: *req.Longitude}, policyCfg.Geofence, req.AccuracyMeters)
	if !geoResult.Valid {
		var gateErr error
		switch geoResult.Reason {
		case geo.ReasonPoorGPSAccuracy:
			gateErr = biometric.ErrPoorGPSAccuracy
		default:
			gateErr = biometric.ErrOutsideGeofence
		}
		s.recordGateFailure(ctx, req, emp.Name, template.ID, gateErr)
		return biometric.VerifyResponse{}, gateErr
	}

	record, err := s.appendPunchAndEvaluate(ctx, req, policyCfg, day, now, direction)
	if err != nil {
		if errors.Is(err, attendance.ErrAlreadyMarked) || errors.Is(err, attendance.ErrRecordLocked) {
			return biometric.VerifyResponse{}, err
		}
		return biometric.VerifyResponse{}, s.systemFault(ctx, req.TenantID, emp.Name, err)
	}

	if err := s.templates.RecordUsage(ctx, template.ID, true, ""); err != nil {
		slog.Error("failed to record template usage", "template_id", template.ID, "error", err)
	}

	s.auditVerification(ctx, req.TenantID, emp.Name, true, map[string]any{
		"person_id":   req.PersonID,
		"direction":   string(direction),
		"date":        attendance.DayKey(day),
		"match_score": match.Similarity,
		"confidence":  match.Confidence,
		"status":      string(record.Status),
	})

	return biometric.VerifyResponse{
		Success:    true,
		MatchScore: match.Similarity,
		Confidence: match.Confidence,
		Status: biometric.DayStatusSummary{
			Status:           string(record.Status),
			IsLate:           record.IsLate,
			LateMinutes:      record.LateMinutes,
			PolicyViolations: record.Trace.PolicyViolations,
		},
		ProcessingTimeMs: s.now().Sub(started).Milliseconds(),
	}, nil
}

// punchDay resolves the business day a punch belongs to. On a day-shift
// policy that is simply the current UTC calendar day. Under a night-shift
// policy a post-midnight punch still belongs to the previous calendar day
// while that day's rolled-over shift window is open, or while the previous
// day's record holds a check-in without a check-out.
func (s *VerificationServiceImpl) punchDay(ctx context.Context, tenantID, personID string, cfg policy.Config, now time.Time) (time.Time, error) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if !cfg.NightShift {
		return day, nil
	}

	prev := day.AddDate(0, 0, -1)

	withinWindow := false
	if end, err := time.Parse("15:04", cfg.ShiftEnd); err == nil {
		// The night-shift end rolls past midnight into the current day.
		rolledEnd := time.Date(day.Year(), day.Month(), day.Day(), end.Hour(), end.Minute(), 0, 0, time.UTC)
		withinWindow = now.Before(rolledEnd)
	}

	record, err := s.records.GetByPersonAndDate(ctx, tenantID, personID, prev)
	if err != nil {
		return time.Time{}, fmt.Errorf("load previous day record: %w", err)
	}
	open := record != nil && !record.Locked &&
		record.Punches.Has(attendance.DirectionIn) && !record.Punches.Has(attendance.DirectionOut)

	if withinWindow || open {
		return prev, nil
	}
	return day, nil
}

// runBiometricGates decrypts the stored descriptors, matches the live one and
// evaluates liveness, bounded by the configured timeout. The work runs in a
// goroutine so a stuck evaluation surfaces as a retryable timeout instead of
// a hung request.
func (s *VerificationServiceImpl) runBiometricGates(ctx context.Context, req biometric.VerifyRequest, template *biometric.Template) (face.MatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.gateTimeout)
	defer cancel()

	type outcome struct {
		match face.MatchResult
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		tenantCipher, err := s.cipher.ForTenant(req.TenantID)
		if err != nil {
			done <- outcome{err: err}
			return
		}

		candidates := make([]face.Descriptor, 0, 1+len(template.Alternates))
		primary, err := openDescriptor(tenantCipher, template.Descriptor)
		if err != nil {
			done <- outcome{err: err}
			return
		}
		candidates = append(candidates, primary)
		for _, alt := range template.Alternates {
			desc, err := openDescriptor(tenantCipher, alt)
			if err != nil {
				done <- outcome{err: err}
				return
			}
			candidates = append(candidates, desc)
		}

		match, err := s.matcher.BestMatch(face.Descriptor(req.Descriptor), candidates)
		if err != nil {
			done <- outcome{err: err}
			return
		}
		if !match.IsMatch {
			done <- outcome{match: match, err: biometric.ErrFaceMismatch}
			return
		}

		if frames := req.LivenessFrames(); len(frames) > 0 {
			result, err := s.liveness.Evaluate(frames)
			if err != nil {
				done <- outcome{err: err}
				return
			}
			if !result.Valid {
				done <- outcome{match: match, err: biometric.ErrLivenessCheckFailed}
				return
			}
		}

		done <- outcome{match: match}
	}()

	select {
	case <-ctx.Done():
		return face.MatchResult{}, biometric.ErrVerificationTimeout
	case out := <-done:
		return out.match, out.err
	}
}

// appendPunchAndEvaluate is the serialized read-modify-write for one
// (tenant, person, date): load or create the day's record, append the punch,
// recompute the monthly escalation counters and run the rules engine.
func (s *VerificationServiceImpl) appendPunchAndEvaluate(
	ctx context.Context,
	req biometric.VerifyRequest,
	policyCfg policy.Config,
	day, punchTime time.Time,
	direction attendance.Direction,
) (attendance.Record, error) {
	unlock := s.locks.Lock(req.TenantID + ":" + req.PersonID + ":" + attendance.DayKey(day))
	defer unlock()

	record, err := s.records.GetByPersonAndDate(ctx, req.TenantID, req.PersonID, day)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("load day record: %w", err)
	}
	// Re-check under the lock: a concurrent punch may have landed since the
	// cheap pre-gate check.
	if err := checkPunchState(record, direction); err != nil {
		return attendance.Record{}, err
	}

	creating := record == nil
	if creating {
		record = &attendance.Record{
			ID:       uuid.NewString(),
			TenantID: req.TenantID,
			PersonID: req.PersonID,
			Date:     day,
		}
	}
	record.Punches = append(record.Punches, attendance.Punch{Time: punchTime, Direction: direction})

	cycleStart := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	lateCount, earlyCount, err := s.records.CountFlaggedSince(ctx, req.TenantID, req.PersonID, cycleStart, day)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("count escalation flags: %w", err)
	}

	isHoliday := false
	leaveType, hasLeave := "", false
	if s.calendar != nil {
		if isHoliday, err = s.calendar.IsHoliday(ctx, req.TenantID, day); err != nil {
			return attendance.Record{}, fmt.Errorf("holiday lookup: %w", err)
		}
		if leaveType, hasLeave, err = s.calendar.ApprovedLeave(ctx, req.TenantID, req.PersonID, day); err != nil {
			return attendance.Record{}, fmt.Errorf("leave lookup: %w", err)
		}
	}

	result := s.engine.Evaluate(attendanceService.EvalInput{
		Date:                      day,
		Punches:                   record.Punches,
		Policy:                    policyCfg,
		PersonID:                  req.PersonID,
		AccumulatedLateCount:      lateCount,
		AccumulatedEarlyExitCount: earlyCount,
		IsHoliday:                 isHoliday,
		HasApprovedLeave:          hasLeave,
		LeaveType:                 leaveType,
		DayTag:                    attendanceService.DayTag(req.DayTag),
	})

	record.Status = result.Status
	record.IsLate = result.IsLate
	record.IsEarlyOut = result.IsEarlyOut
	record.IsWFH = result.IsWFH
	record.IsOnDuty = result.IsOnDuty
	record.IsCompOffDay = result.IsCompOffDay
	record.IsNightShift = result.IsNightShift
	record.LateMinutes = result.LateMinutes
	record.EarlyExitMinutes = result.EarlyExitMinutes
	record.WorkingHours = result.WorkingHours
	record.LOPDays = result.LOPDays
	record.Trace = result.Trace

	if creating {
		created, err := s.records.Create(ctx, *record)
		if err != nil {
			return attendance.Record{}, err
		}
		return created, nil
	}
	if err := s.records.Update(ctx, *record); err != nil {
		return attendance.Record{}, err
	}
	return *record, nil
}

// RecordRateLimitBlock implements biometric.VerificationService. The rate
// limiter itself is external; this is the audit hook it calls on a block.
func (s *VerificationServiceImpl) RecordRateLimitBlock(ctx context.Context, tenantID, personID, detail string) error {
	event := audit.Event{
		ID:       uuid.NewString(),
		TenantID: tenantID,
		Action:   audit.ActionRateLimitBlock,
		Actor:    personID,
		Resource: "biometric_template",
		Status:   "blocked",
		Details: map[string]any{
			"person_id": personID,
			"detail":    detail,
		},
		Timestamp: s.now().UTC(),
	}
	if err := s.audits.Append(ctx, event); err != nil {
		return fmt.Errorf("record rate limit block: %w", err)
	}
	return nil
}

// checkPunchState enforces at most one successful check-in and one check-out
// per person per day.
func checkPunchState(record *attendance.Record, direction attendance.Direction) error {
	if record == nil {
		if direction == attendance.DirectionOut {
			return attendance.ErrNotCheckedIn
		}
		return nil
	}
	if record.Locked {
		return attendance.ErrRecordLocked
	}
	if record.Punches.Has(direction) {
		return attendance.ErrAlreadyMarked
	}
	if direction == attendance.DirectionOut && !record.Punches.Has(attendance.DirectionIn) {
		return attendance.ErrNotCheckedIn
	}
	return nil
}

// recordGateFailure bumps the template failure counter and audits the
// rejection. Both are best-effort: the gate error itself is what the caller
// must see.
func (s *VerificationServiceImpl) recordGateFailure(ctx context.Context, req biometric.VerifyRequest, actor, templateID string, gateErr error) {
	reason := reasonForError(gateErr)
	if err := s.templates.RecordUsage(ctx, templateID, false, reason); err != nil {
		slog.Error("failed to record template failure", "template_id", templateID, "error", err)
	}
	s.auditVerification(ctx, req.TenantID, actor, false, map[string]any{
		"person_id": req.PersonID,
		"reason":    reason,
	})
}

// systemFault logs and audits the underlying error but surfaces only the
// generic verification failure to the caller.
func (s *VerificationServiceImpl) systemFault(ctx context.Context, tenantID, actor string, err error) error {
	slog.Error("verification pipeline fault", "tenant_id", tenantID, "error", err)
	s.audit(ctx, tenantID, actor, audit.ActionVerificationFailure, "error", map[string]any{
		"reason": "VERIFICATION_ERROR",
		"detail": err.Error(),
	})
	return biometric.ErrVerificationFailed
}

func (s *VerificationServiceImpl) auditVerification(ctx context.Context, tenantID, actor string, success bool, details map[string]any) {
	action := audit.ActionVerificationFailure
	status := "failure"
	if success {
		action = audit.ActionVerificationSuccess
		status = "success"
	}
	s.audit(ctx, tenantID, actor, action, status, details)
}

// audit appends an event best-effort. A failed audit write never masks the
// error being reported to the caller.
func (s *VerificationServiceImpl) audit(ctx context.Context, tenantID, actor, action, status string, details map[string]any) {
	event := audit.Event{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Action:    action,
		Actor:     actor,
		Resource:  "attendance_verification",
		Status:    status,
		Details:   details,
		Timestamp: s.now().UTC(),
	}
	if err := s.audits.Append(ctx, event); err != nil {
		slog.Error("failed to append audit event", "action", action, "error", err)
	}
}

func reasonForError(err error) string {
	switch {
	case errors.Is(err, crypto.ErrTemplateTampered):
		return "TEMPLATE_TAMPERED"
	case errors.Is(err, biometric.ErrFaceMismatch):
		return "FACE_MISMATCH"
	case errors.Is(err, biometric.ErrLivenessCheckFailed):
		return "LIVENESS_CHECK_FAILED"
	case errors.Is(err, face.ErrInsufficientFrames):
		return "INSUFFICIENT_FRAMES"
	case errors.Is(err, face.ErrDimensionMismatch):
		return "DIMENSION_MISMATCH"
	case errors.Is(err, biometric.ErrOutsideGeofence):
		return "OUTSIDE_GEOFENCE"
	case errors.Is(err, biometric.ErrPoorGPSAccuracy):
		return "POOR_GPS_ACCURACY"
	case errors.Is(err, biometric.ErrVerificationTimeout):
		return "VERIFICATION_TIMEOUT"
	default:
		return "VERIFICATION_ERROR"
	}
}

func sealDescriptor(c *crypto.Cipher, values []float64) (biometric.EncryptedDescriptor, error) {
	blob, err := c.Encrypt(crypto.EncodeDescriptor(values))
	if err != nil {
		return biometric.EncryptedDescriptor{}, err
	}
	return biometric.EncryptedDescriptor{
		Ciphertext: blob.Ciphertext,
		Nonce:      blob.Nonce,
		Tag:        blob.Tag,
		Dimension:  len(values),
	}, nil
}

func openDescriptor(c *crypto.Cipher, sealed biometric.EncryptedDescriptor) (face.Descriptor, error) {
	plain, err := c.Decrypt(crypto.EncryptedBlob{
		Ciphertext: sealed.Ciphertext,
		Nonce:      sealed.Nonce,
		Tag:        sealed.Tag,
	})
	if err != nil {
		return nil, err
	}
	values, err := crypto.DecodeDescriptor(plain, sealed.Dimension)
	if err != nil {
		return nil, err
	}
	return face.Descriptor(values), nil
}

package verification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verihr/verihr-backend-go/internal/domain/attendance"
	"github.com/verihr/verihr-backend-go/internal/domain/audit"
	"github.com/verihr/verihr-backend-go/internal/domain/biometric"
	"github.com/verihr/verihr-backend-go/internal/domain/employee"
	"github.com/verihr/verihr-backend-go/internal/domain/policy"
	"github.com/verihr/verihr-backend-go/internal/pkg/crypto"
	"github.com/verihr/verihr-backend-go/internal/pkg/face"
	"github.com/verihr/verihr-backend-go/internal/pkg/geo"
)

// ---- in-memory fakes ----

type fakeTemplateRepo struct {
	mu        sync.Mutex
	templates map[string]*biometric.Template // key tenant|person
	successes int
	failures  int
	lastFail  string
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{templates: map[string]*biometric.Template{}}
}

func tplKey(tenantID, personID string) string { return tenantID + "|" + personID }

func (f *fakeTemplateRepo) GetActive(_ context.Context, tenantID, personID string) (*biometric.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.templates[tplKey(tenantID, personID)]
	if !ok || t.Status != biometric.StatusActive {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTemplateRepo) Create(_ context.Context, template biometric.Template) (biometric.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := template
	f.templates[tplKey(template.TenantID, template.PersonID)] = &cp
	return template, nil
}

func (f *fakeTemplateRepo) Update(_ context.Context, template biometric.Template) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := template
	f.templates[tplKey(template.TenantID, template.PersonID)] = &cp
	return nil
}

func (f *fakeTemplateRepo) Deactivate(_ context.Context, tenantID, personID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.templates[tplKey(tenantID, personID)]; ok {
		t.Status = biometric.StatusInactive
	}
	return nil
}

func (f *fakeTemplateRepo) RecordUsage(_ context.Context, _ string, success bool, failureReason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if success {
		f.successes++
	} else {
		f.failures++
		f.lastFail = failureReason
	}
	return nil
}

type fakeRecordRepo struct {
	mu      sync.Mutex
	records map[string]*attendance.Record // key tenant|person|date
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: map[string]*attendance.Record{}}
}

func recKey(tenantID, personID string, date time.Time) string {
	return tenantID + "|" + personID + "|" + attendance.DayKey(date)
}

func (f *fakeRecordRepo) Create(_ context.Context, record attendance.Record) (attendance.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := recKey(record.TenantID, record.PersonID, record.Date)
	if _, exists := f.records[key]; exists {
		return attendance.Record{}, attendance.ErrAlreadyMarked
	}
	cp := record
	f.records[key] = &cp
	return record, nil
}

func (f *fakeRecordRepo) GetByPersonAndDate(_ context.Context, tenantID, personID string, date time.Time) (*attendance.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[recKey(tenantID, personID, date)]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRecordRepo) Update(_ context.Context, record attendance.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := recKey(record.TenantID, record.PersonID, record.Date)
	existing, ok := f.records[key]
	if !ok {
		return attendance.ErrRecordNotFound
	}
	if existing.Locked {
		return attendance.ErrRecordLocked
	}
	cp := record
	f.records[key] = &cp
	return nil
}

func (f *fakeRecordRepo) Lock(_ context.Context, tenantID, personID string, date time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[recKey(tenantID, personID, date)]
	if !ok {
		return attendance.ErrRecordNotFound
	}
	r.Locked = true
	return nil
}

func (f *fakeRecordRepo) CountFlaggedSince(_ context.Context, tenantID, personID string, cycleStart, before time.Time) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	late, early := 0, 0
	for _, r := range f.records {
		if r.TenantID != tenantID || r.PersonID != personID {
			continue
		}
		if r.Date.Before(cycleStart) || !r.Date.Before(before) {
			continue
		}
		if r.IsLate {
			late++
		}
		if r.IsEarlyOut {
			early++
		}
	}
	return late, early, nil
}

func (f *fakeRecordRepo) ListRange(_ context.Context, tenantID, personID string, from, to time.Time) ([]attendance.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []attendance.Record
	for _, r := range f.records {
		if r.TenantID == tenantID && r.PersonID == personID && !r.Date.Before(from) && !r.Date.After(to) {
			out = append(out, *r)
		}
	}
	return out, nil
}

type fakePolicyRepo struct{ cfg policy.Config }

func (f *fakePolicyRepo) GetByTenant(_ context.Context, tenantID string) (policy.Config, error) {
	if f.cfg.TenantID == "" {
		return policy.Default(tenantID), nil
	}
	return f.cfg, nil
}

func (f *fakePolicyRepo) Upsert(_ context.Context, cfg policy.Config) error {
	f.cfg = cfg
	return nil
}

type fakeEmployeeRepo struct{}

func (fakeEmployeeRepo) GetByID(_ context.Context, tenantID, personID string) (employee.Employee, error) {
	return employee.Employee{ID: personID, TenantID: tenantID, Name: "Ayu Lestari", Active: true}, nil
}

type fakeAuditRepo struct {
	mu     sync.Mutex
	events []audit.Event
	fail   bool
}

func (f *fakeAuditRepo) Append(_ context.Context, event audit.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("audit store unavailable")
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeAuditRepo) byAction(action string) []audit.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []audit.Event
	for _, e := range f.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// ---- harness ----

type harness struct {
	svc       *VerificationServiceImpl
	templates *fakeTemplateRepo
	records   *fakeRecordRepo
	policies  *fakePolicyRepo
	audits    *fakeAuditRepo
}

func goodQuality() QualityGate {
	return QualityGate{
		MinSharpness:            0.3,
		MinBrightness:           0.2,
		MinContrast:             0.2,
		MinDetectionConfidence:  0.5,
		ReviewBelowDetectionCnf: 0.8,
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	key := make([]byte, crypto.KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	cipher, err := crypto.NewCipher(key)
	require.NoError(t, err)

	templates := newFakeTemplateRepo()
	records := newFakeRecordRepo()
	policies := &fakePolicyRepo{}
	audits := &fakeAuditRepo{}

	svc := NewVerificationService(
		templates,
		records,
		policies,
		fakeEmployeeRepo{},
		audits,
		nil,
		cipher,
		face.NewMatcher(1.0, 0.6, 0.85),
		face.NewLivenessEvaluator(3, 10),
		5*time.Second,
		goodQuality(),
	).(*VerificationServiceImpl)

	return &harness{svc: svc, templates: templates, records: records, policies: policies, audits: audits}
}

func (h *harness) setClock(t time.Time) {
	h.svc.now = func() time.Time { return t }
}

func enrolledDescriptor() []float64 {
	d := make([]float64, 8)
	for i := range d {
		d[i] = 0.1 * float64(i)
	}
	return d
}

func (h *harness) enroll(t *testing.T) {
	t.Helper()
	_, err := h.svc.Enroll(context.Background(), biometric.EnrollRequest{
		TenantID:            "t1",
		PersonID:            "p1",
		Descriptor:          enrolledDescriptor(),
		Sharpness:           0.9,
		Brightness:          0.5,
		Contrast:            0.5,
		DetectionConfidence: 0.95,
	})
	require.NoError(t, err)
}

func verifyReq() biometric.VerifyRequest {
	lat, lon := -6.2045, 106.8045
	return biometric.VerifyRequest{
		TenantID:       "t1",
		PersonID:       "p1",
		Descriptor:     enrolledDescriptor(),
		Latitude:       &lat,
		Longitude:      &lon,
		AccuracyMeters: 10,
	}
}

// Monday 2026-08-24.
var mondayMorning = time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)

// ---- tests ----

func TestVerify_FullDay(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.enroll(t)
	ctx := context.Background()

	h.setClock(mondayMorning)
	resp, err := h.svc.VerifyAndClockIn(ctx, verifyReq())
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 1.0, resp.MatchScore)
	assert.Equal(t, face.ConfidenceHigh, resp.Confidence)
	// Only an IN punch so far: the day is a missed punch until clock-out.
	assert.Equal(t, string(attendance.StatusMissedPunch), resp.Status.Status)

	h.setClock(mondayMorning.Add(9 * time.Hour))
	resp, err = h.svc.VerifyAndClockOut(ctx, verifyReq())
	require.NoError(t, err)
	assert.Equal(t, string(attendance.StatusPresent), resp.Status.Status)
	assert.False(t, resp.Status.IsLate)

	assert.Equal(t, 2, h.templates.successes)
	assert.Len(t, h.audits.byAction(audit.ActionVerificationSuccess), 2)
}

func TestVerify_DuplicateCheckIn(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.enroll(t)
	ctx := context.Background()
	h.setClock(mondayMorning)

	_, err := h.svc.VerifyAndClockIn(ctx, verifyReq())
	require.NoError(t, err)

	_, err = h.svc.VerifyAndClockIn(ctx, verifyReq())
	assert.ErrorIs(t, err, attendance.ErrAlreadyMarked)
	// The short-circuit fires before biometric work: no failure recorded.
	assert.Zero(t, h.templates.failures)
}

func TestVerify_ClockOutBeforeClockIn(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.enroll(t)
	h.setClock(mondayMorning)

	_, err := h.svc.VerifyAndClockOut(context.Background(), verifyReq())
	assert.ErrorIs(t, err, attendance.ErrNotCheckedIn)
}

func TestVerify_NoTemplate(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.setClock(mondayMorning)

	_, err := h.svc.VerifyAndClockIn(context.Background(), verifyReq())
	assert.ErrorIs(t, err, biometric.ErrNoRegisteredTemplate)
	assert.Len(t, h.audits.byAction(audit.ActionVerificationFailure), 1)
}

func TestVerify_FaceMismatch(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.enroll(t)
	h.setClock(mondayMorning)

	req := verifyReq()
	far := make([]float64, 8)
	for i := range far {
		far[i] = 5 + float64(i)
	}
	req.Descriptor = far

	_, err := h.svc.VerifyAndClockIn(context.Background(), req)
	assert.ErrorIs(t, err, biometric.ErrFaceMismatch)
	assert.Equal(t, 1, h.templates.failures)
	assert.Equal(t, "FACE_MISMATCH", h.templates.lastFail)

	// Fail closed: no attendance record was written.
	record, _ := h.records.GetByPersonAndDate(context.Background(), "t1", "p1",
		time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC))
	assert.Nil(t, record)
}

func TestVerify_DimensionMismatch(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.enroll(t)
	h.setClock(mondayMorning)

	req := verifyReq()
	req.Descriptor = []float64{1, 2, 3} // enrolled dimension is 8

	_, err := h.svc.VerifyAndClockIn(context.Background(), req)
	assert.ErrorIs(t, err, face.ErrDimensionMismatch)
	assert.Equal(t, "DIMENSION_MISMATCH", h.templates.lastFail)
}

func TestVerify_TamperedTemplate(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.enroll(t)
	h.setClock(mondayMorning)

	// Corrupt the stored ciphertext directly.
	h.templates.mu.Lock()
	h.templates.templates[tplKey("t1", "p1")].Descriptor.Ciphertext[0] ^= 0xff
	h.templates.mu.Unlock()

	_, err := h.svc.VerifyAndClockIn(context.Background(), verifyReq())
	assert.ErrorIs(t, err, crypto.ErrTemplateTampered)
	assert.Equal(t, "TEMPLATE_TAMPERED", h.templates.lastFail)
}

func TestVerify_LivenessGate(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.enroll(t)
	h.setClock(mondayMorning)

	static := biometric.FrameDTO{EyesOpen: true, Expression: "neutral", BoxX: 10, BoxY: 10, BoxWidth: 50, BoxHeight: 50}
	req := verifyReq()
	req.Frames = []biometric.FrameDTO{static, static, static}

	_, err := h.svc.VerifyAndClockIn(context.Background(), req)
	assert.ErrorIs(t, err, biometric.ErrLivenessCheckFailed)

	// A blink in the sequence passes the gate.
	blink := static
	blink.EyesOpen = false
	req.Frames = []biometric.FrameDTO{static, blink, static}
	_, err = h.svc.VerifyAndClockIn(context.Background(), req)
	assert.NoError(t, err)
}

func TestVerify_GeofenceGates(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.enroll(t)
	h.setClock(mondayMorning)

	cfg := policy.Default("t1")
	cfg.Geofence = geo.Polygon{
		{Latitude: -6.200, Longitude: 106.800},
		{Latitude: -6.200, Longitude: 106.809},
		{Latitude: -6.209, Longitude: 106.809},
		{Latitude: -6.209, Longitude: 106.800},
	}
	cfg.MaxGPSAccuracyMeters = 50
	h.policies.cfg = cfg

	// Far outside the polygon.
	req := verifyReq()
	lat, lon := -6.30, 106.90
	req.Latitude, req.Longitude = &lat, &lon
	_, err := h.svc.VerifyAndClockIn(context.Background(), req)
	assert.ErrorIs(t, err, biometric.ErrOutsideGeofence)

	// Inside but with an untrustworthy fix.
	req = verifyReq()
	req.AccuracyMeters = 500
	_, err = h.svc.VerifyAndClockIn(context.Background(), req)
	assert.ErrorIs(t, err, biometric.ErrPoorGPSAccuracy)

	// Inside with a good fix.
	_, err = h.svc.VerifyAndClockIn(context.Background(), verifyReq())
	assert.NoError(t, err)
}

func TestVerify_MissingLocation(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.enroll(t)
	h.setClock(mondayMorning)

	req := verifyReq()
	req.Latitude = nil
	req.Longitude = nil

	_, err := h.svc.VerifyAndClockIn(context.Background(), req)
	assert.ErrorIs(t, err, biometric.ErrMissingLocation)
	assert.Zero(t, h.templates.failures, "input validation happens before biometric work")
}

func TestVerify_ConcurrentCheckInsSingleWinner(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.enroll(t)
	h.setClock(mondayMorning)
	ctx := context.Background()

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.VerifyAndClockIn(ctx, verifyReq())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded, alreadyMarked := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, attendance.ErrAlreadyMarked):
			alreadyMarked++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, alreadyMarked)

	h.records.mu.Lock()
	assert.Len(t, h.records.records, 1)
	h.records.mu.Unlock()
}

func TestVerify_LockedRecordRejected(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.enroll(t)
	h.setClock(mondayMorning)
	ctx := context.Background()

	_, err := h.svc.VerifyAndClockIn(ctx, verifyReq())
	require.NoError(t, err)
	day := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	require.NoError(t, h.records.Lock(ctx, "t1", "p1", day))

	h.setClock(mondayMorning.Add(9 * time.Hour))
	_, err = h.svc.VerifyAndClockOut(ctx, verifyReq())
	assert.ErrorIs(t, err, attendance.ErrRecordLocked)
}

func TestVerify_AuditFailureDoesNotMask(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.enroll(t)
	h.setClock(mondayMorning)
	h.audits.fail = true

	resp, err := h.svc.VerifyAndClockIn(context.Background(), verifyReq())
	require.NoError(t, err, "audit write failure must not fail the punch")
	assert.True(t, resp.Success)
}

func TestVerify_Timeout(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.enroll(t)
	h.setClock(mondayMorning)
	h.svc.gateTimeout = time.Nanosecond

	_, err := h.svc.VerifyAndClockIn(context.Background(), verifyReq())
	assert.ErrorIs(t, err, biometric.ErrVerificationTimeout)
}

func TestVerify_LateEscalationAcrossDays(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.enroll(t)
	ctx := context.Background()

	cfg := policy.Default("t1")
	cfg.FullDayThresholdHours = 7
	cfg.LateEscalationEnabled = true
	cfg.LateMarksToHalfDay = 3
	cfg.LateMarksToFullDay = 6
	h.policies.cfg = cfg

	// Three late Mondays-to-Wednesdays in one month; the third late mark
	// escalates to a half-day.
	var last biometric.VerifyResponse
	for dayOffset := 0; dayOffset < 3; dayOffset++ {
		in := mondayMorning.AddDate(0, 0, dayOffset).Add(45 * time.Minute) // 09:45
		h.setClock(in)
		_, err := h.svc.VerifyAndClockIn(ctx, verifyReq())
		require.NoError(t, err)

		h.setClock(in.Add(9 * time.Hour))
		resp, err := h.svc.VerifyAndClockOut(ctx, verifyReq())
		require.NoError(t, err)
		last = resp
	}

	assert.Equal(t, string(attendance.StatusHalfDay), last.Status.Status)
	assert.True(t, last.Status.IsLate)
	assert.NotEmpty(t, last.Status.PolicyViolations)
}

func TestVerify_NightShiftClockOutAfterMidnight(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.enroll(t)
	ctx := context.Background()

	cfg := policy.Default("t1")
	cfg.NightShift = true
	cfg.ShiftStart = "22:00"
	cfg.ShiftEnd = "06:00"
	cfg.FullDayThresholdHours = 7
	h.policies.cfg = cfg

	h.setClock(time.Date(2026, 8, 24, 22, 0, 0, 0, time.UTC))
	resp, err := h.svc.VerifyAndClockIn(ctx, verifyReq())
	require.NoError(t, err)
	assert.Equal(t, string(attendance.StatusMissedPunch), resp.Status.Status)

	// The next-morning clock-out belongs to the shift's own day, not the new
	// calendar day.
	h.setClock(time.Date(2026, 8, 25, 6, 0, 0, 0, time.UTC))
	resp, err = h.svc.VerifyAndClockOut(ctx, verifyReq())
	require.NoError(t, err)
	assert.Equal(t, string(attendance.StatusPresent), resp.Status.Status)
	assert.False(t, resp.Status.IsLate)

	record, err := h.records.GetByPersonAndDate(ctx, "t1", "p1", time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.IsNightShift)
	assert.InDelta(t, 8.0, record.WorkingHours, 1e-9)

	h.records.mu.Lock()
	assert.Len(t, h.records.records, 1, "no stray record on the next calendar day")
	h.records.mu.Unlock()
}

func TestVerify_NightShiftLateArrivalAfterMidnight(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.enroll(t)
	ctx := context.Background()

	cfg := policy.Default("t1")
	cfg.NightShift = true
	cfg.ShiftStart = "22:00"
	cfg.ShiftEnd = "06:00"
	h.policies.cfg = cfg

	// A check-in at 00:30 belongs to the shift that started the evening
	// before and counts as a late arrival against it.
	h.setClock(time.Date(2026, 8, 25, 0, 30, 0, 0, time.UTC))
	resp, err := h.svc.VerifyAndClockIn(ctx, verifyReq())
	require.NoError(t, err)
	assert.True(t, resp.Status.IsLate)
	assert.Equal(t, 150, resp.Status.LateMinutes)

	record, err := h.records.GetByPersonAndDate(ctx, "t1", "p1", time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, record)
}

func TestEnroll_QualityGate(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	_, err := h.svc.Enroll(context.Background(), biometric.EnrollRequest{
		TenantID:            "t1",
		PersonID:            "p1",
		Descriptor:          enrolledDescriptor(),
		Sharpness:           0.9,
		Brightness:          0.5,
		Contrast:            0.5,
		DetectionConfidence: 0.2, // below the hard floor
	})
	assert.ErrorIs(t, err, biometric.ErrLowQualityCapture)
}

func TestEnroll_MarginalQualityPendingReview(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	resp, err := h.svc.Enroll(context.Background(), biometric.EnrollRequest{
		TenantID:            "t1",
		PersonID:            "p1",
		Descriptor:          enrolledDescriptor(),
		Sharpness:           0.9,
		Brightness:          0.5,
		Contrast:            0.5,
		DetectionConfidence: 0.6, // above the floor, below the review bar
	})
	require.NoError(t, err)
	assert.Equal(t, string(biometric.StatusPendingReview), resp.Status)
	assert.False(t, resp.Verified)
}

func TestEnroll_MultiSampleAveragesPrimary(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	base := enrolledDescriptor()
	shifted := make([]float64, len(base))
	for i, v := range base {
		shifted[i] = v + 0.3
	}

	_, err := h.svc.Enroll(ctx, biometric.EnrollRequest{
		TenantID:            "t1",
		PersonID:            "p1",
		Descriptor:          base,
		AlternateSamples:    [][]float64{shifted},
		Sharpness:           0.9,
		Brightness:          0.5,
		Contrast:            0.5,
		DetectionConfidence: 0.95,
	})
	require.NoError(t, err)

	h.templates.mu.Lock()
	stored := h.templates.templates[tplKey("t1", "p1")]
	h.templates.mu.Unlock()
	require.Len(t, stored.Alternates, 1, "raw captures kept as alternates")

	tenantCipher, err := h.svc.cipher.ForTenant("t1")
	require.NoError(t, err)
	primary, err := openDescriptor(tenantCipher, stored.Descriptor)
	require.NoError(t, err)

	// The stored primary is the mean of the two captures.
	expected := make([]float64, len(base))
	for i := range base {
		expected[i] = base[i] + 0.15
	}
	assert.InDeltaSlice(t, expected, []float64(primary), 1e-9)

	// Matching against the raw alternate still succeeds.
	h.setClock(mondayMorning)
	req := verifyReq()
	req.Descriptor = shifted
	resp, err := h.svc.VerifyAndClockIn(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1.0, resp.MatchScore)
}

func TestEnroll_ReEnrollArchivesPrevious(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.enroll(t)

	second := enrolledDescriptor()
	second[0] = 0.42
	resp, err := h.svc.Enroll(context.Background(), biometric.EnrollRequest{
		TenantID:            "t1",
		PersonID:            "p1",
		Descriptor:          second,
		Sharpness:           0.9,
		Brightness:          0.5,
		Contrast:            0.5,
		DetectionConfidence: 0.95,
	})
	require.NoError(t, err)
	assert.Equal(t, string(biometric.StatusActive), resp.Status)

	h.templates.mu.Lock()
	current := h.templates.templates[tplKey("t1", "p1")]
	h.templates.mu.Unlock()
	require.Len(t, current.Backups, 1, "previous descriptor archived, not deleted")
}

func TestEnroll_BackupListBounded(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	for i := 0; i < biometric.MaxBackups+3; i++ {
		d := enrolledDescriptor()
		d[0] = float64(i)
		_, err := h.svc.Enroll(context.Background(), biometric.EnrollRequest{
			TenantID:            "t1",
			PersonID:            "p1",
			Descriptor:          d,
			Sharpness:           0.9,
			Brightness:          0.5,
			Contrast:            0.5,
			DetectionConfidence: 0.95,
		})
		require.NoError(t, err)
	}

	h.templates.mu.Lock()
	current := h.templates.templates[tplKey("t1", "p1")]
	h.templates.mu.Unlock()
	assert.Len(t, current.Backups, biometric.MaxBackups)
}

func TestRecordRateLimitBlock(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	err := h.svc.RecordRateLimitBlock(context.Background(), "t1", "p1", "6 attempts in the last hour")
	require.NoError(t, err)

	events := h.audits.byAction(audit.ActionRateLimitBlock)
	require.Len(t, events, 1)
	assert.Equal(t, "blocked", events[0].Status)
}

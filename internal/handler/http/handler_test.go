package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verihr/verihr-backend-go/internal/domain/attendance"
	"github.com/verihr/verihr-backend-go/internal/domain/biometric"
	"github.com/verihr/verihr-backend-go/internal/domain/policy"
	"github.com/verihr/verihr-backend-go/internal/pkg/jwt"
)

type stubPolicyService struct {
	updated *policy.UpdateRequest
}

func (s *stubPolicyService) Get(_ context.Context, tenantID string) (policy.ConfigResponse, error) {
	return policy.NewConfigResponse(policy.Default(tenantID)), nil
}

func (s *stubPolicyService) Update(_ context.Context, tenantID string, req policy.UpdateRequest) (policy.ConfigResponse, error) {
	if err := req.Validate(); err != nil {
		return policy.ConfigResponse{}, err
	}
	s.updated = &req
	return policy.NewConfigResponse(req.ToConfig(tenantID)), nil
}

type stubAttendanceService struct{}

func (stubAttendanceService) GetDay(_ context.Context, _, _ string, _ time.Time) (attendance.RecordResponse, error) {
	return attendance.RecordResponse{}, attendance.ErrRecordNotFound
}

func (stubAttendanceService) ListMine(_ context.Context, _, _ string, _ attendance.RangeFilter) ([]attendance.RecordResponse, error) {
	return []attendance.RecordResponse{}, nil
}

func (stubAttendanceService) LockDay(_ context.Context, _, _ string, _ time.Time) error {
	return nil
}

type stubVerificationService struct {
	lastVerify biometric.VerifyRequest
}

func (s *stubVerificationService) Enroll(_ context.Context, req biometric.EnrollRequest) (biometric.EnrollResponse, error) {
	if err := req.Validate(); err != nil {
		return biometric.EnrollResponse{}, err
	}
	return biometric.EnrollResponse{TemplateID: "tpl-1", Status: "ACTIVE", Verified: true}, nil
}

func (s *stubVerificationService) VerifyAndClockIn(_ context.Context, req biometric.VerifyRequest) (biometric.VerifyResponse, error) {
	s.lastVerify = req
	return biometric.VerifyResponse{Success: true, MatchScore: 0.97}, nil
}

func (s *stubVerificationService) VerifyAndClockOut(_ context.Context, req biometric.VerifyRequest) (biometric.VerifyResponse, error) {
	return biometric.VerifyResponse{}, attendance.ErrNotCheckedIn
}

func (s *stubVerificationService) RecordRateLimitBlock(_ context.Context, _, _, _ string) error {
	return nil
}

type testEnv struct {
	router       http.Handler
	jwtService   jwt.Service
	policies     *stubPolicyService
	verification *stubVerificationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	jwtService := jwt.NewJWTService("test-secret", "1h")
	policies := &stubPolicyService{}
	verification := &stubVerificationService{}

	router := NewRouter(
		jwtService,
		NewVerificationHandler(verification),
		NewAttendanceHandler(stubAttendanceService{}),
		NewPolicyHandler(policies),
	)

	return &testEnv{router: router, jwtService: jwtService, policies: policies, verification: verification}
}

func (e *testEnv) request(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) token(t *testing.T, role string) string {
	t.Helper()
	token, _, err := e.jwtService.GenerateAccessToken(jwt.Claims{
		PersonID: "person-1",
		TenantID: "tenant-1",
		Role:     role,
	})
	require.NoError(t, err)
	return token
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestRouter_RequiresToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/api/v1/policy", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_GetPolicyDefaults(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/api/v1/policy", env.token(t, "employee"), "")
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decodeEnvelope(t, rec)
	assert.Equal(t, true, payload["success"])
	data := payload["data"].(map[string]any)
	assert.Equal(t, "09:00", data["shift_start"])
	assert.Equal(t, "tenant-1", data["tenant_id"])
}

func TestRouter_UpdatePolicyAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	body := `{"shift_start":"08:30","shift_end":"17:30","grace_minutes":10,"full_day_threshold_hours":8,"half_day_threshold_hours":4}`

	rec := env.request(t, http.MethodPut, "/api/v1/policy", env.token(t, "employee"), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, env.policies.updated)

	rec = env.request(t, http.MethodPut, "/api/v1/policy", env.token(t, "admin"), body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.policies.updated)
	assert.Equal(t, "08:30", env.policies.updated.ShiftStart)
}

func TestRouter_UpdatePolicyValidation(t *testing.T) {
	env := newTestEnv(t)
	body := `{"shift_start":"25:00","shift_end":"17:30","full_day_threshold_hours":8,"half_day_threshold_hours":4}`

	rec := env.request(t, http.MethodPut, "/api/v1/policy", env.token(t, "admin"), body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	payload := decodeEnvelope(t, rec)
	errDetail := payload["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_ERROR", errDetail["code"])
}

func TestRouter_CheckInTakesIdentityFromToken(t *testing.T) {
	env := newTestEnv(t)
	body := `{"descriptor":[0.1,0.2],"latitude":-6.2,"longitude":106.8,"accuracy_meters":10,"person_id":"spoofed"}`

	rec := env.request(t, http.MethodPost, "/api/v1/attendance/check-in", env.token(t, "employee"), body)
	require.Equal(t, http.StatusOK, rec.Code)

	// The body cannot override the authenticated identity.
	assert.Equal(t, "tenant-1", env.verification.lastVerify.TenantID)
	assert.Equal(t, "person-1", env.verification.lastVerify.PersonID)
}

func TestRouter_CheckOutErrorEnvelope(t *testing.T) {
	env := newTestEnv(t)
	body := `{"descriptor":[0.1,0.2],"latitude":-6.2,"longitude":106.8,"accuracy_meters":10}`

	rec := env.request(t, http.MethodPost, "/api/v1/attendance/check-out", env.token(t, "employee"), body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	payload := decodeEnvelope(t, rec)
	assert.Equal(t, false, payload["success"])
	errDetail := payload["error"].(map[string]any)
	assert.Equal(t, "NOT_CHECKED_IN", errDetail["code"])
}

func TestRouter_GetAttendanceByDate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/api/v1/attendance/not-a-date", env.token(t, "employee"), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/v1/attendance/2026-08-24", env.token(t, "employee"), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_RateLimitBlockAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	body := `{"person_id":"person-2","detail":"6 attempts in the last hour"}`

	rec := env.request(t, http.MethodPost, "/api/v1/biometric/rate-limit-block", env.token(t, "employee"), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/v1/biometric/rate-limit-block", env.token(t, "admin"), body)
	assert.Equal(t, http.StatusOK, rec.Code)
}

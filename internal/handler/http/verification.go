package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/verihr/verihr-backend-go/internal/domain/biometric"
	"github.com/verihr/verihr-backend-go/internal/handler/http/middleware"
	"github.com/verihr/verihr-backend-go/internal/handler/http/response"
)

type VerificationHandler interface {
	Enroll(w http.ResponseWriter, r *http.Request)
	CheckIn(w http.ResponseWriter, r *http.Request)
	CheckOut(w http.ResponseWriter, r *http.Request)
	RateLimitBlock(w http.ResponseWriter, r *http.Request)
}

type verificationHandlerImpl struct {
	verificationService biometric.VerificationService
}

func NewVerificationHandler(verificationService biometric.VerificationService) VerificationHandler {
	return &verificationHandlerImpl{
		verificationService: verificationService,
	}
}

// Enroll implements VerificationHandler.
func (h *verificationHandlerImpl) Enroll(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		response.Unauthorized(w, err.Error())
		return
	}

	var req biometric.EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.TenantID = identity.TenantID
	req.PersonID = identity.PersonID

	result, err := h.verificationService.Enroll(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Biometric template enrolled", result)
}

// CheckIn implements VerificationHandler.
func (h *verificationHandlerImpl) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.verifyAndPunch(w, r, h.verificationService.VerifyAndClockIn, "Check-in successful")
}

// CheckOut implements VerificationHandler.
func (h *verificationHandlerImpl) CheckOut(w http.ResponseWriter, r *http.Request) {
	h.verifyAndPunch(w, r, h.verificationService.VerifyAndClockOut, "Check-out successful")
}

func (h *verificationHandlerImpl) verifyAndPunch(
	w http.ResponseWriter,
	r *http.Request,
	punch func(ctx context.Context, req biometric.VerifyRequest) (biometric.VerifyResponse, error),
	message string,
) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		response.Unauthorized(w, err.Error())
		return
	}

	var req biometric.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.TenantID = identity.TenantID
	req.PersonID = identity.PersonID

	result, err := punch(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, message, result)
}

type rateLimitBlockRequest struct {
	PersonID string `json:"person_id"`
	Detail   string `json:"detail"`
}

// RateLimitBlock implements VerificationHandler. Called by the edge rate
// limiter so blocked enrollment bursts leave an audit trail.
func (h *verificationHandlerImpl) RateLimitBlock(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		response.Unauthorized(w, err.Error())
		return
	}

	var req rateLimitBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	if req.PersonID == "" {
		response.BadRequest(w, "Field 'person_id' is required", nil)
		return
	}

	if err := h.verificationService.RecordRateLimitBlock(r.Context(), identity.TenantID, req.PersonID, req.Detail); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Rate limit block recorded", nil)
}

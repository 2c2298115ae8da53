package response

import (
	"errors"
	"net/http"

	"github.com/verihr/verihr-backend-go/internal/domain/attendance"
	"github.com/verihr/verihr-backend-go/internal/domain/biometric"
	"github.com/verihr/verihr-backend-go/internal/domain/employee"
	"github.com/verihr/verihr-backend-go/internal/pkg/crypto"
	"github.com/verihr/verihr-backend-go/internal/pkg/face"
	"github.com/verihr/verihr-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Biometric gate failures. Clients branch on the reason code, so each
	// gets a stable one.
	case errors.Is(err, biometric.ErrMissingDescriptor):
		Error(w, http.StatusBadRequest, "MISSING_DESCRIPTOR", "Face descriptor is required")
	case errors.Is(err, biometric.ErrMissingLocation):
		Error(w, http.StatusBadRequest, "MISSING_LOCATION", "Location is required")
	case errors.Is(err, face.ErrDimensionMismatch):
		Error(w, http.StatusBadRequest, "DIMENSION_MISMATCH", "Descriptor dimension does not match the enrolled template")
	case errors.Is(err, biometric.ErrNoRegisteredTemplate):
		Error(w, http.StatusNotFound, "NO_REGISTERED_TEMPLATE", "No active biometric template is registered")
	case errors.Is(err, crypto.ErrTemplateTampered):
		Error(w, http.StatusInternalServerError, "TEMPLATE_TAMPERED", "Stored template failed integrity verification")
	case errors.Is(err, biometric.ErrFaceMismatch):
		Error(w, http.StatusUnauthorized, "FACE_MISMATCH", "Face does not match the enrolled template")
	case errors.Is(err, biometric.ErrLivenessCheckFailed):
		Error(w, http.StatusUnauthorized, "LIVENESS_CHECK_FAILED", "Liveness check failed")
	case errors.Is(err, face.ErrInsufficientFrames):
		Error(w, http.StatusBadRequest, "INSUFFICIENT_FRAMES", "Not enough frames for liveness evaluation")
	case errors.Is(err, biometric.ErrLowQualityCapture):
		Error(w, http.StatusBadRequest, "LOW_QUALITY_CAPTURE", "Capture quality is below the enrollment minimum")

	// Location gates
	case errors.Is(err, biometric.ErrOutsideGeofence):
		Error(w, http.StatusForbidden, "OUTSIDE_GEOFENCE", "Location is outside the permitted work area")
	case errors.Is(err, biometric.ErrPoorGPSAccuracy):
		Error(w, http.StatusBadRequest, "POOR_GPS_ACCURACY", "GPS accuracy is too poor to trust the location")

	// Attendance state
	case errors.Is(err, attendance.ErrAlreadyMarked):
		Error(w, http.StatusConflict, "ALREADY_MARKED", "Attendance is already marked for this day")
	case errors.Is(err, attendance.ErrNotCheckedIn):
		Error(w, http.StatusConflict, "NOT_CHECKED_IN", "No check-in exists for this day")
	case errors.Is(err, attendance.ErrRecordLocked):
		Error(w, http.StatusLocked, "RECORD_LOCKED", "Attendance record is locked for payroll")
	case errors.Is(err, attendance.ErrRecordNotFound):
		NotFound(w, "Attendance record not found")

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")

	// Pipeline faults
	case errors.Is(err, biometric.ErrVerificationTimeout):
		Error(w, http.StatusGatewayTimeout, "VERIFICATION_TIMEOUT", "Verification timed out, please retry")
	case errors.Is(err, biometric.ErrVerificationFailed):
		Error(w, http.StatusInternalServerError, "VERIFICATION_ERROR", "Verification failed")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}

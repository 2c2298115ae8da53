package biometric

import "errors"

// Biometric domain errors. Gate failures are normal rejected requests, not
// system faults; each maps to a distinguishable reason code at the handler.
var (
	ErrMissingDescriptor    = errors.New("live descriptor is required")
	ErrMissingLocation      = errors.New("location is required")
	ErrNoRegisteredTemplate = errors.New("no active biometric template enrolled")
	ErrFaceMismatch         = errors.New("face does not match enrolled template")
	ErrLivenessCheckFailed  = errors.New("liveness check failed")
	ErrOutsideGeofence      = errors.New("location is outside the allowed geofence")
	ErrPoorGPSAccuracy      = errors.New("GPS accuracy is too poor to trust")
	ErrLowQualityCapture    = errors.New("enrollment capture quality is too low")
	ErrVerificationTimeout  = errors.New("verification timed out, please retry")
	ErrVerificationFailed   = errors.New("verification could not be completed")
)

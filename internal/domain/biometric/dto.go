package biometric

import (
	"github.com/verihr/verihr-backend-go/internal/pkg/face"
	"github.com/verihr/verihr-backend-go/internal/pkg/validator"
)

type EnrollRequest struct {
	TenantID string `json:"-"`
	PersonID string `json:"-"`

	Descriptor []float64 `json:"descriptor"`
	// AlternateSamples are extra captures of the same person. They average
	// into a stabler primary descriptor and are also kept as alternates for
	// matching.
	AlternateSamples [][]float64 `json:"alternate_samples,omitempty"`

	Quality face.QualityMetrics `json:"-"`

	Sharpness           float64 `json:"sharpness"`
	Brightness          float64 `json:"brightness"`
	Contrast            float64 `json:"contrast"`
	DetectionConfidence float64 `json:"detection_confidence"`

	Frames []FrameDTO `json:"frames,omitempty"`
}

type FrameDTO struct {
	EyesOpen   bool    `json:"eyes_open"`
	Expression string  `json:"expression"`
	BoxX       float64 `json:"box_x"`
	BoxY       float64 `json:"box_y"`
	BoxWidth   float64 `json:"box_width"`
	BoxHeight  float64 `json:"box_height"`
}

func framesFromDTO(dtos []FrameDTO) []face.Frame {
	if len(dtos) == 0 {
		return nil
	}
	frames := make([]face.Frame, 0, len(dtos))
	for _, d := range dtos {
		frames = append(frames, face.Frame{
			EyesOpen:   d.EyesOpen,
			Expression: d.Expression,
			Box:        face.BoundingBox{X: d.BoxX, Y: d.BoxY, Width: d.BoxWidth, Height: d.BoxHeight},
		})
	}
	return frames
}

func (r *EnrollRequest) Validate() error {
	if len(r.Descriptor) == 0 {
		return ErrMissingDescriptor
	}

	var errs validator.ValidationErrors
	for _, alt := range r.AlternateSamples {
		if len(alt) != len(r.Descriptor) {
			errs = append(errs, validator.ValidationError{
				Field:   "alternate_samples",
				Message: "alternate samples must match the descriptor dimension",
			})
			break
		}
	}

	if len(errs) > 0 {
		return errs
	}

	r.Quality = face.QualityMetrics{
		Sharpness:           r.Sharpness,
		Brightness:          r.Brightness,
		Contrast:            r.Contrast,
		DetectionConfidence: r.DetectionConfidence,
	}
	return nil
}

func (r *EnrollRequest) LivenessFrames() []face.Frame { return framesFromDTO(r.Frames) }

type EnrollResponse struct {
	TemplateID string `json:"template_id"`
	Status     string `json:"status"`
	Verified   bool   `json:"verified"`
}

type VerifyRequest struct {
	TenantID string `json:"-"`
	PersonID string `json:"-"`

	Descriptor []float64 `json:"descriptor"`

	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	AccuracyMeters float64  `json:"accuracy_meters"`

	Frames []FrameDTO `json:"frames,omitempty"`

	// DayTag marks an approved work-from-home or on-duty day.
	DayTag string `json:"day_tag,omitempty"`
}

func (r *VerifyRequest) Validate() error {
	if len(r.Descriptor) == 0 {
		return ErrMissingDescriptor
	}
	if r.Latitude == nil || r.Longitude == nil {
		return ErrMissingLocation
	}

	var errs validator.ValidationErrors

	if !validator.IsValidLatitude(*r.Latitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}
	if !validator.IsValidLongitude(*r.Longitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}

	if r.AccuracyMeters < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "accuracy_meters",
			Message: "accuracy_meters must not be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (r *VerifyRequest) LivenessFrames() []face.Frame { return framesFromDTO(r.Frames) }

// VerifyResponse is the payload returned after a successful (or gated)
// verification attempt.
type VerifyResponse struct {
	Success          bool             `json:"success"`
	MatchScore       float64          `json:"match_score"`
	Confidence       string           `json:"confidence"`
	Status           DayStatusSummary `json:"status"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
}

type DayStatusSummary struct {
	Status           string   `json:"status"`
	IsLate           bool     `json:"is_late"`
	LateMinutes      int      `json:"late_minutes"`
	PolicyViolations []string `json:"policy_violations"`
}

package face

import (
	"errors"
	"math"
)

var ErrInsufficientFrames = errors.New("not enough frames for liveness evaluation")

// Liveness failure/success reasons reported to the caller.
const (
	LivenessReasonBlink      = "BLINK_DETECTED"
	LivenessReasonMovement   = "MOVEMENT_DETECTED"
	LivenessReasonExpression = "EXPRESSION_CHANGE"
	LivenessReasonStatic     = "STATIC_SEQUENCE"
)

type BoundingBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func (b BoundingBox) center() (float64, float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Frame is one detection in a capture sequence, as reported by the external
// extractor: eye state, a coarse expression label and the face bounding box.
type Frame struct {
	EyesOpen   bool
	Expression string
	Box        BoundingBox
}

type LivenessResult struct {
	Valid      bool
	Reason     string
	Confidence float64
}

// LivenessEvaluator decides whether a frame sequence came from a live subject
// rather than a static spoof. Three weak detectors run independently and are
// OR-combined: any one positive signal marks the sequence live. A printed
// photo held still triggers none of them.
type LivenessEvaluator struct {
	minFrames     int
	minMovementPx float64
}

func NewLivenessEvaluator(minFrames int, minMovementPx float64) *LivenessEvaluator {
	return &LivenessEvaluator{minFrames: minFrames, minMovementPx: minMovementPx}
}

func (e *LivenessEvaluator) Evaluate(frames []Frame) (LivenessResult, error) {
	if len(frames) < e.minFrames {
		return LivenessResult{}, ErrInsufficientFrames
	}

	signals := 0
	reason := LivenessReasonStatic

	if detectBlink(frames) {
		signals++
		reason = LivenessReasonBlink
	}
	if detectMovement(frames, e.minMovementPx) {
		signals++
		if reason == LivenessReasonStatic {
			reason = LivenessReasonMovement
		}
	}
	if detectExpressionChange(frames) {
		signals++
		if reason == LivenessReasonStatic {
			reason = LivenessReasonExpression
		}
	}

	if signals == 0 {
		return LivenessResult{Valid: false, Reason: LivenessReasonStatic, Confidence: 0}, nil
	}
	return LivenessResult{
		Valid:      true,
		Reason:     reason,
		Confidence: 0.5 + 0.5*float64(signals)/3,
	}, nil
}

// detectBlink looks for any eye-state transition across the sequence.
func detectBlink(frames []Frame) bool {
	for i := 1; i < len(frames); i++ {
		if frames[i].EyesOpen != frames[i-1].EyesOpen {
			return true
		}
	}
	return false
}

// detectMovement checks whether the face center displaces beyond the jitter
// threshold between any two frames.
func detectMovement(frames []Frame, minPx float64) bool {
	x0, y0 := frames[0].Box.center()
	for _, f := range frames[1:] {
		x, y := f.Box.center()
		if math.Hypot(x-x0, y-y0) >= minPx {
			return true
		}
	}
	return false
}

func detectExpressionChange(frames []Frame) bool {
	first := frames[0].Expression
	for _, f := range frames[1:] {
		if f.Expression != "" && f.Expression != first {
			return true
		}
	}
	return false
}

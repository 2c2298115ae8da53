package face

import (
	"context"
	"errors"
)

var ErrNoFaceFound = errors.New("no face found in frame")

// QualityMetrics describe an enrollment capture as measured by the extraction
// model. The enrollment flow gates on these, not this package.
type QualityMetrics struct {
	Sharpness           float64
	Brightness          float64
	Contrast            float64
	DetectionConfidence float64
}

// Detection is a single extraction result: the descriptor plus the metadata
// the liveness evaluator consumes.
type Detection struct {
	Descriptor Descriptor
	Box        BoundingBox
	EyesOpen   bool
	Expression string
	Quality    QualityMetrics
}

// Extractor produces descriptors from raw image frames. It is an external
// capability (a model server or on-device SDK); the pipeline never inspects
// pixels itself. Implementations return ErrNoFaceFound when the frame holds
// no detectable face.
type Extractor interface {
	Extract(ctx context.Context, frame []byte) (Detection, error)
}

// Package face holds the descriptor math for the verification pipeline:
// similarity matching against stored templates and multi-frame liveness
// evaluation. Descriptor extraction itself is an external capability; this
// package only consumes the vectors it produces.
package face

import "errors"

// DefaultDimension is the descriptor length produced by the extraction
// model currently deployed. The matcher does not assume it; it only requires
// both sides of a comparison to agree.
const DefaultDimension = 128

var (
	ErrDimensionMismatch = errors.New("descriptors have different dimensions")
	ErrEmptyDescriptor   = errors.New("descriptor is empty")
)

// Descriptor is a fixed-length numeric summary of a detected face.
type Descriptor []float64

func (d Descriptor) Dimension() int { return len(d) }

// Average combines multiple samples of the same person into a single, more
// stable descriptor. All samples must share a dimension.
func Average(samples []Descriptor) (Descriptor, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyDescriptor
	}
	dim := samples[0].Dimension()
	for _, s := range samples[1:] {
		if s.Dimension() != dim {
			return nil, ErrDimensionMismatch
		}
	}

	avg := make(Descriptor, dim)
	for _, s := range samples {
		for i, v := range s {
			avg[i] += v
		}
	}
	n := float64(len(samples))
	for i := range avg {
		avg[i] /= n
	}
	return avg, nil
}

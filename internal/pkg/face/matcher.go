package face

import "math"

// Confidence tiers for a positive match.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

type MatchResult struct {
	Distance   float64
	Similarity float64
	IsMatch    bool
	Confidence string
}

// Matcher classifies descriptor pairs against calibrated thresholds. The
// thresholds are system constants injected from configuration; they control
// the false-accept/false-reject tradeoff and are never overridable per
// request.
type Matcher struct {
	maxDistance    float64
	matchThreshold float64
	highThreshold  float64
}

func NewMatcher(maxDistance, matchThreshold, highThreshold float64) *Matcher {
	return &Matcher{
		maxDistance:    maxDistance,
		matchThreshold: matchThreshold,
		highThreshold:  highThreshold,
	}
}

// Compare computes the Euclidean distance between two descriptors, converts
// it to a bounded similarity in [0,1] and classifies the result.
func (m *Matcher) Compare(a, b Descriptor) (MatchResult, error) {
	if a.Dimension() == 0 || b.Dimension() == 0 {
		return MatchResult{}, ErrEmptyDescriptor
	}
	if a.Dimension() != b.Dimension() {
		return MatchResult{}, ErrDimensionMismatch
	}

	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	distance := math.Sqrt(sum)

	similarity := math.Max(0, 1-distance/m.maxDistance)

	result := MatchResult{
		Distance:   distance,
		Similarity: similarity,
		IsMatch:    similarity >= m.matchThreshold,
		Confidence: ConfidenceLow,
	}
	switch {
	case similarity >= m.highThreshold:
		result.Confidence = ConfidenceHigh
	case result.IsMatch:
		result.Confidence = ConfidenceMedium
	}
	return result, nil
}

// BestMatch compares a live descriptor against a primary descriptor plus any
// enrolled alternates and returns the strongest result. Used so a person
// enrolled with several samples is matched against all of them.
func (m *Matcher) BestMatch(live Descriptor, candidates []Descriptor) (MatchResult, error) {
	if len(candidates) == 0 {
		return MatchResult{}, ErrEmptyDescriptor
	}

	best := MatchResult{Similarity: -1}
	for _, c := range candidates {
		result, err := m.Compare(live, c)
		if err != nil {
			return MatchResult{}, err
		}
		if result.Similarity > best.Similarity {
			best = result
		}
	}
	return best, nil
}

// Package scoring computes the compatibility score between a patient and a trial.
package scoring

import (
	"fmt"
	"strings"

	model "github.com/okian/trialmatch/internal/domain/model"
)

// Default scoring configuration constants.
const (
	DefaultAgePoints            = 20
	DefaultGenderPoints         = 10
	DefaultKeywordPointsEach    = 10
	DefaultKeywordCap           = 50
	DefaultConditionPoints      = 20
	DefaultConditionReasonMin   = 5
	DefaultReasonKeywordSamples = 3

	minScoreValue       = 0
	maxScoreValue       = 100
	conditionPreviewLen = 30
)

// Weights are the points awarded by each scoring component.
type Weights struct {
	AgePoints         int
	GenderPoints      int
	KeywordPointsEach int
	KeywordCap        int
	ConditionPoints   int
	// ConditionReasonMin is the condition contribution a reason requires; the
	// reason is emitted only when points exceed it.
	ConditionReasonMin int
	// ReasonKeywordSamples caps the overlapping keywords listed in the reason.
	ReasonKeywordSamples int
}

// DefaultWeights returns the 20/10/50/20 split.
func DefaultWeights() Weights {
	return Weights{
		AgePoints:            DefaultAgePoints,
		GenderPoints:         DefaultGenderPoints,
		KeywordPointsEach:    DefaultKeywordPointsEach,
		KeywordCap:           DefaultKeywordCap,
		ConditionPoints:      DefaultConditionPoints,
		ConditionReasonMin:   DefaultConditionReasonMin,
		ReasonKeywordSamples: DefaultReasonKeywordSamples,
	}
}

// Validate rejects negative weights.
func (w Weights) Validate() error {
	fields := map[string]int{
		"age_points":           w.AgePoints,
		"gender_points":        w.GenderPoints,
		"keyword_points_each":  w.KeywordPointsEach,
		"keyword_cap":          w.KeywordCap,
		"condition_points":     w.ConditionPoints,
		"condition_reason_min": w.ConditionReasonMin,
	}
	for name, v := range fields {
		if v < 0 {
			return fmt.Errorf("%w: %s=%d", ErrNegativeWeight, name, v)
		}
	}
	return nil
}

// Breakdown records how each component contributed to a score.
type Breakdown struct {
	AgePoints       int
	GenderPoints    int
	KeywordPoints   int
	ConditionPoints int
	Overlap         []string
	Similarity      float64
}

// Result contains the computed score for a (patient, trial) pair.
type Result struct {
	Score     int
	Reasons   []string
	Breakdown Breakdown
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithWeights sets the component weights.
func WithWeights(w Weights) Option {
	return func(s *Scorer) {
		s.weights = w
	}
}

// Scorer computes match scores. It holds no mutable state and is safe for
// concurrent use.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with configuration options.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weights returns the scorer's weights.
func (s *Scorer) Weights() Weights { return s.weights }

// Score computes the score and reasons for one pair. Missing keywords or
// conditions contribute nothing.
func (s *Scorer) Score(p *model.Patient, t *model.Trial) Result {
	w := s.weights
	var (
		res     Result
		reasons = make([]string, 0, 4) //nolint:mnd // one per component
	)

	if t.AgeInRange(p.Age) {
		res.Breakdown.AgePoints = w.AgePoints
		reasons = append(reasons, fmt.Sprintf("✓ Age %d within range (%d-%d)", p.Age, t.AgeMin, t.AgeMax))
	} else {
		reasons = append(reasons, fmt.Sprintf("✗ Age %d outside range (%d-%d)", p.Age, t.AgeMin, t.AgeMax))
	}

	trialGender := strings.ToUpper(string(t.Gender))
	if t.Gender.Accepts(p.Gender) {
		res.Breakdown.GenderPoints = w.GenderPoints
		reasons = append(reasons, fmt.Sprintf("✓ Gender matches (%s)", trialGender))
	} else {
		reasons = append(reasons, fmt.Sprintf("✗ Gender mismatch (requires %s)", trialGender))
	}

	overlap := p.Keywords.Intersect(t.Keywords)
	res.Breakdown.Overlap = overlap
	res.Breakdown.KeywordPoints = min(len(overlap)*w.KeywordPointsEach, w.KeywordCap)
	if res.Breakdown.KeywordPoints > 0 {
		sample := overlap
		if len(sample) > w.ReasonKeywordSamples {
			sample = sample[:w.ReasonKeywordSamples]
		}
		reasons = append(reasons, fmt.Sprintf("✓ %d matching keywords: %s", len(overlap), strings.Join(sample, ", ")))
	}

	primary := strings.ToLower(p.PrimaryCondition())
	condition := strings.ToLower(t.Condition)
	if primary != "" && condition != "" {
		res.Breakdown.Similarity = Similarity(primary, condition)
		res.Breakdown.ConditionPoints = int(res.Breakdown.Similarity * float64(w.ConditionPoints))
		if res.Breakdown.ConditionPoints > w.ConditionReasonMin {
			reasons = append(reasons, fmt.Sprintf("✓ Primary condition '%s...' similar to trial condition", preview(primary)))
		}
	}

	total := res.Breakdown.AgePoints + res.Breakdown.GenderPoints +
		res.Breakdown.KeywordPoints + res.Breakdown.ConditionPoints
	res.Score = max(minScoreValue, min(maxScoreValue, total))
	res.Reasons = reasons
	return res
}

func preview(s string) string {
	r := []rune(s)
	if len(r) > conditionPreviewLen {
		r = r[:conditionPreviewLen]
	}
	return string(r)
}

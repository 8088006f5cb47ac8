package evaluation

import (
	"fmt"
	"strings"

	model "github.com/okian/trialmatch/internal/domain/model"
)

// Default ground-truth policy values.
const (
	DefaultStrictScore       = 60
	DefaultLenientScore      = 50
	DefaultStrictMinKeywords = 2
	DefaultRejectionScore    = 40
	DefaultTierExcellent     = 70
	DefaultTierGood          = 50
	DefaultTierFair          = 40
)

// Policy holds the thresholds of the ground-truth predicate and the score tiers.
type Policy struct {
	StrictScore       int `json:"strict_score"`
	LenientScore      int `json:"lenient_score"`
	StrictMinKeywords int `json:"strict_min_keywords"`
	RejectionScore    int `json:"rejection_score"`
	TierExcellent     int `json:"tier_excellent"`
	TierGood          int `json:"tier_good"`
	TierFair          int `json:"tier_fair"`
}

// DefaultPolicy returns the 60/50/2 predicate with 70/50/40 tiers.
func DefaultPolicy() Policy {
	return Policy{
		StrictScore:       DefaultStrictScore,
		LenientScore:      DefaultLenientScore,
		StrictMinKeywords: DefaultStrictMinKeywords,
		RejectionScore:    DefaultRejectionScore,
		TierExcellent:     DefaultTierExcellent,
		TierGood:          DefaultTierGood,
		TierFair:          DefaultTierFair,
	}
}

// Validate checks that thresholds are in range, that the strict score is not
// below the lenient one, and that the tiers are ordered.
func (p Policy) Validate() error {
	for name, v := range map[string]int{
		"strict_score":    p.StrictScore,
		"lenient_score":   p.LenientScore,
		"rejection_score": p.RejectionScore,
		"tier_excellent":  p.TierExcellent,
		"tier_good":       p.TierGood,
		"tier_fair":       p.TierFair,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("%w: %s=%d outside 0-100", ErrInvalidOptions, name, v)
		}
	}
	if p.StrictMinKeywords < 0 {
		return fmt.Errorf("%w: strict_min_keywords=%d", ErrInvalidOptions, p.StrictMinKeywords)
	}
	if p.StrictScore < p.LenientScore {
		return fmt.Errorf("%w: strict_score=%d must be >= lenient_score=%d", ErrInvalidOptions, p.StrictScore, p.LenientScore)
	}
	if p.TierFair > p.TierGood || p.TierGood > p.TierExcellent {
		return fmt.Errorf("%w: tiers must satisfy fair <= good <= excellent", ErrInvalidOptions)
	}
	return nil
}

// threshold is the score a valid match needs in the given mode.
func (p Policy) threshold(strict bool) int {
	if strict {
		return p.StrictScore
	}
	return p.LenientScore
}

// Criteria is the outcome of each ground-truth check for one pair.
type Criteria struct {
	AgeEligible     bool `json:"age_valid"`
	GenderEligible  bool `json:"gender_valid"`
	ScoreSufficient bool `json:"score_valid"`
	KeywordsEnough  bool `json:"keyword_valid"`
	Overlap         int  `json:"keyword_overlap"`
	Strict          bool `json:"strict"`
}

// Valid reports whether every check passed.
func (c Criteria) Valid() bool {
	return c.AgeEligible && c.GenderEligible && c.ScoreSufficient && c.KeywordsEnough
}

// Check evaluates the ground-truth predicate independently of the scorer's
// own component logic. The keyword check only applies in strict mode.
func Check(p *model.Patient, t *model.Trial, score int, strict bool, policy Policy) Criteria {
	c := Criteria{
		AgeEligible:     t.AgeInRange(p.Age),
		GenderEligible:  t.Gender.Accepts(p.Gender),
		ScoreSufficient: score >= policy.threshold(strict),
		KeywordsEnough:  true,
		Strict:          strict,
	}
	if strict {
		c.Overlap = len(p.Keywords.Intersect(t.Keywords))
		c.KeywordsEnough = c.Overlap >= policy.StrictMinKeywords
	}
	return c
}

// IsValid is Check(...).Valid().
func IsValid(p *model.Patient, t *model.Trial, score int, strict bool, policy Policy) bool {
	return Check(p, t, score, strict, policy).Valid()
}

// Explain lists the failed checks of c as a human-readable sentence.
func (c Criteria) Explain(score int, policy Policy) string {
	var reasons []string
	if !c.AgeEligible {
		reasons = append(reasons, "Age mismatch")
	}
	if !c.GenderEligible {
		reasons = append(reasons, "Gender mismatch")
	}
	if !c.ScoreSufficient {
		mode := "lenient"
		if c.Strict {
			mode = "strict"
		}
		reasons = append(reasons, fmt.Sprintf("Score %d below %s threshold (%d)", score, mode, policy.threshold(c.Strict)))
	}
	if c.Strict && !c.KeywordsEnough {
		reasons = append(reasons, fmt.Sprintf("Only %d keyword match(es)", c.Overlap))
	}
	if len(reasons) == 0 {
		return "Unknown"
	}
	return strings.Join(reasons, "; ")
}

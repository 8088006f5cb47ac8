package evaluation

import (
	"fmt"

	model "github.com/okian/trialmatch/internal/domain/model"
)

// Default strict-validation and negative-case options.
const (
	DefaultStrictTopN             = 5
	DefaultNegativeSamplePatients = 10
	DefaultNegativeSampleTrials   = 10
)

// StrictOptions parameterises ValidateStrict.
type StrictOptions struct {
	SamplePatients int   `json:"sample_patients"`
	TopN           int   `json:"top_n"`
	Seed           int64 `json:"seed"`
}

// DefaultStrictOptions returns 50 patients, top 5, seed 42.
func DefaultStrictOptions() StrictOptions {
	return StrictOptions{SamplePatients: DefaultSamplePatients, TopN: DefaultStrictTopN, Seed: DefaultSeed}
}

// FailureBreakdown counts failed checks among invalid pairs. A pair failing
// several checks is counted once per check.
type FailureBreakdown struct {
	ScoreTooLow          int `json:"score_too_low"`
	AgeMismatch          int `json:"age_mismatch"`
	GenderMismatch       int `json:"gender_mismatch"`
	InsufficientKeywords int `json:"insufficient_keywords"`
}

// StrictValidation is the result of ValidateStrict.
type StrictValidation struct {
	Options  StrictOptions    `json:"settings"`
	Total    int              `json:"total_evaluated"`
	Valid    int              `json:"valid_matches"`
	Accuracy float64          `json:"accuracy"`
	Failed   int              `json:"failed"`
	Failures FailureBreakdown `json:"failure_reasons"`
	// Drift counts pairs whose fresh score differs from the cached one.
	Drift int `json:"score_drift"`
}

// ValidateStrict checks the top-N cached matches of a seeded patient sample
// against the strict predicate using fresh scores.
func ValidateStrict(ds *Dataset, s Scorer, policy Policy, opts StrictOptions) (StrictValidation, error) {
	if opts.SamplePatients < 0 || opts.TopN < 0 {
		return StrictValidation{}, fmt.Errorf("%w: strict sample sizes must not be negative", ErrInvalidOptions)
	}

	rng := newRand(opts.Seed)
	out := StrictValidation{Options: opts}
	for _, id := range sampleStrings(rng, ds.MatchedPatientIDs(), opts.SamplePatients) {
		p, _ := ds.Patient(id)
		for _, m := range topN(ds.Matches[id], opts.TopN) {
			t, _ := ds.Trial(m.NCTID)
			score := s.Score(p, t).Score
			if score != m.Score {
				out.Drift++
			}
			out.Total++

			c := Check(p, t, score, true, policy)
			if c.Valid() {
				out.Valid++
				continue
			}
			out.Failed++
			if !c.ScoreSufficient {
				out.Failures.ScoreTooLow++
			}
			if !c.AgeEligible {
				out.Failures.AgeMismatch++
			}
			if !c.GenderEligible {
				out.Failures.GenderMismatch++
			}
			if !c.KeywordsEnough {
				out.Failures.InsufficientKeywords++
			}
		}
	}
	out.Accuracy = ratio(out.Valid, out.Total)
	return out, nil
}

// NegativeOptions parameterises TestNegativeCases.
type NegativeOptions struct {
	SamplePatients int   `json:"sample_patients"`
	SampleTrials   int   `json:"sample_trials"`
	Seed           int64 `json:"seed"`
}

// DefaultNegativeOptions returns a 10 x 10 cross product with seed 42.
func DefaultNegativeOptions() NegativeOptions {
	return NegativeOptions{
		SamplePatients: DefaultNegativeSamplePatients,
		SampleTrials:   DefaultNegativeSampleTrials,
		Seed:           DefaultSeed,
	}
}

// Mismatch types of a negative case.
const (
	MismatchAge    = "age"
	MismatchGender = "gender"
)

// RejectionStats counts negative cases and how many the scorer rejected.
type RejectionStats struct {
	Tested   int     `json:"tested"`
	Rejected int     `json:"correctly_rejected"`
	Rate     float64 `json:"rejection_rate"`
}

func (r *RejectionStats) add(rejected bool) {
	r.Tested++
	if rejected {
		r.Rejected++
	}
}

func (r *RejectionStats) finish() {
	r.Rate = ratio(r.Rejected, r.Tested)
}

// NegativeCases is the result of TestNegativeCases.
type NegativeCases struct {
	Options NegativeOptions `json:"settings"`
	Overall RejectionStats  `json:"overall"`
	Age     RejectionStats  `json:"age"`
	Gender  RejectionStats  `json:"gender"`
}

// TestNegativeCases crosses a seeded patient sample with a seeded trial
// sample, keeps the pairs that violate age or gender eligibility and checks
// that their fresh score stays below the rejection score. A pair violating
// both is counted as an age mismatch.
func TestNegativeCases(ds *Dataset, s Scorer, policy Policy, opts NegativeOptions) (NegativeCases, error) {
	if opts.SamplePatients < 0 || opts.SampleTrials < 0 {
		return NegativeCases{}, fmt.Errorf("%w: negative sample sizes must not be negative", ErrInvalidOptions)
	}

	rng := newRand(opts.Seed)
	patients := sampleIndices(rng, len(ds.Patients), opts.SamplePatients)
	trials := sampleIndices(rng, len(ds.Trials), opts.SampleTrials)

	out := NegativeCases{Options: opts}
	for _, pi := range patients {
		p := &ds.Patients[pi]
		for _, ti := range trials {
			t := &ds.Trials[ti]
			c := Check(p, t, 0, false, policy)
			if c.AgeEligible && c.GenderEligible {
				continue
			}
			rejected := s.Score(p, t).Score < policy.RejectionScore
			out.Overall.add(rejected)
			if mismatchType(c) == MismatchAge {
				out.Age.add(rejected)
			} else {
				out.Gender.add(rejected)
			}
		}
	}
	out.Overall.finish()
	out.Age.finish()
	out.Gender.finish()
	return out, nil
}

func mismatchType(c Criteria) string {
	if !c.AgeEligible {
		return MismatchAge
	}
	return MismatchGender
}

func topN(results []model.MatchResult, n int) []model.MatchResult {
	if len(results) > n {
		return results[:n]
	}
	return results
}

package evaluation

import (
	"fmt"

	model "github.com/okian/trialmatch/internal/domain/model"
	"github.com/okian/trialmatch/internal/domain/scoring"
)

// Scorer scores one patient/trial pair.
type Scorer interface {
	Score(p *model.Patient, t *model.Trial) scoring.Result
}

// Default error-analysis options.
const (
	DefaultThreshold       = 40
	DefaultSamplePatients  = 50
	DefaultNegativeSamples = 10
	DefaultSeed            = 42
	DefaultMaxExamples     = 5
)

// ErrorAnalysisOptions parameterises AnalyzeErrors.
type ErrorAnalysisOptions struct {
	Threshold       int   `json:"threshold"`
	SamplePatients  int   `json:"sample_patients"`
	NegativeSamples int   `json:"negative_samples"`
	Strict          bool  `json:"strict"`
	Seed            int64 `json:"seed"`
	MaxExamples     int   `json:"max_examples"`
}

// DefaultErrorAnalysisOptions returns threshold 40, 50 patients, 10 negatives, strict.
func DefaultErrorAnalysisOptions() ErrorAnalysisOptions {
	return ErrorAnalysisOptions{
		Threshold:       DefaultThreshold,
		SamplePatients:  DefaultSamplePatients,
		NegativeSamples: DefaultNegativeSamples,
		Strict:          true,
		Seed:            DefaultSeed,
		MaxExamples:     DefaultMaxExamples,
	}
}

// Validate rejects negative sample sizes and out-of-range thresholds.
func (o ErrorAnalysisOptions) Validate() error {
	if o.Threshold < 0 || o.Threshold > 100 {
		return fmt.Errorf("%w: threshold=%d outside 0-100", ErrInvalidOptions, o.Threshold)
	}
	if o.SamplePatients < 0 || o.NegativeSamples < 0 || o.MaxExamples < 0 {
		return fmt.Errorf("%w: sample sizes must not be negative", ErrInvalidOptions)
	}
	return nil
}

// ConfusionMatrix counts the four outcomes of the system against the predicate.
type ConfusionMatrix struct {
	TruePositives  int `json:"true_positives"`
	FalsePositives int `json:"false_positives"`
	TrueNegatives  int `json:"true_negatives"`
	FalseNegatives int `json:"false_negatives"`
}

// Total is the number of classified pairs.
func (m ConfusionMatrix) Total() int {
	return m.TruePositives + m.FalsePositives + m.TrueNegatives + m.FalseNegatives
}

// Rates are derived from a ConfusionMatrix. Each rate is in [0, 1] and is 0
// when its denominator is 0.
type Rates struct {
	Precision         float64 `json:"precision"`
	Recall            float64 `json:"recall"`
	F1                float64 `json:"f1_score"`
	Accuracy          float64 `json:"accuracy"`
	FalsePositiveRate float64 `json:"false_positive_rate"`
	FalseNegativeRate float64 `json:"false_negative_rate"`
}

// Rates computes precision, recall, F1, accuracy, FPR and FNR.
func (m ConfusionMatrix) Rates() Rates {
	r := Rates{
		Precision:         ratio(m.TruePositives, m.TruePositives+m.FalsePositives),
		Recall:            ratio(m.TruePositives, m.TruePositives+m.FalseNegatives),
		Accuracy:          ratio(m.TruePositives+m.TrueNegatives, m.Total()),
		FalsePositiveRate: ratio(m.FalsePositives, m.FalsePositives+m.TrueNegatives),
		FalseNegativeRate: ratio(m.FalseNegatives, m.FalseNegatives+m.TruePositives),
	}
	if r.Precision+r.Recall > 0 {
		r.F1 = 2 * r.Precision * r.Recall / (r.Precision + r.Recall)
	}
	return r
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// FalsePositive describes a recommended pair the predicate rejects.
type FalsePositive struct {
	PatientID     string            `json:"patient_id"`
	PatientAge    int               `json:"patient_age"`
	PatientGender model.Gender      `json:"patient_gender"`
	TrialNCT      string            `json:"trial_nct"`
	TrialAgeRange string            `json:"trial_age_range"`
	TrialGender   model.TrialGender `json:"trial_gender"`
	Score         int               `json:"score"`
	Reason        string            `json:"reason"`
}

// FalseNegative describes a pair the system did not recommend although the
// predicate accepts it.
type FalseNegative struct {
	PatientID string `json:"patient_id"`
	TrialNCT  string `json:"trial_nct"`
	Score     int    `json:"score"`
	Reason    string `json:"reason"`
}

// ErrorAnalysis is the result of AnalyzeErrors.
type ErrorAnalysis struct {
	Options         ErrorAnalysisOptions `json:"settings"`
	PatientsSampled int                  `json:"patients_sampled"`
	SampledIDs      []string             `json:"sampled_patient_ids"`
	Matrix          ConfusionMatrix      `json:"confusion_matrix"`
	Rates           Rates                `json:"metrics"`
	FalsePositives  []FalsePositive      `json:"false_positive_examples"`
	FalseNegatives  []FalseNegative      `json:"false_negative_examples"`
}

// AnalyzeErrors classifies a seeded sample of the MatchSet against the
// ground-truth predicate. Recommended pairs are cached matches whose cached
// score reaches the threshold; negatives are a seeded sample of the trials
// not recommended for the patient. Every pair is classified with a fresh score.
func AnalyzeErrors(ds *Dataset, s Scorer, policy Policy, opts ErrorAnalysisOptions) (ErrorAnalysis, error) {
	if err := opts.Validate(); err != nil {
		return ErrorAnalysis{}, err
	}

	rng := newRand(opts.Seed)
	ids := sampleStrings(rng, ds.MatchedPatientIDs(), opts.SamplePatients)
	out := ErrorAnalysis{
		Options:         opts,
		PatientsSampled: len(ids),
		SampledIDs:      ids,
		FalsePositives:  []FalsePositive{},
		FalseNegatives:  []FalseNegative{},
	}

	for _, id := range ids {
		p, _ := ds.Patient(id)

		recommended := make(map[string]struct{})
		for _, m := range ds.Matches[id] {
			if m.Score < opts.Threshold {
				continue
			}
			if _, dup := recommended[m.NCTID]; dup {
				continue
			}
			recommended[m.NCTID] = struct{}{}

			t, _ := ds.Trial(m.NCTID)
			score := s.Score(p, t).Score
			c := Check(p, t, score, opts.Strict, policy)
			if c.Valid() {
				out.Matrix.TruePositives++
				continue
			}
			out.Matrix.FalsePositives++
			if len(out.FalsePositives) < opts.MaxExamples {
				out.FalsePositives = append(out.FalsePositives, FalsePositive{
					PatientID:     p.ID,
					PatientAge:    p.Age,
					PatientGender: p.Gender,
					TrialNCT:      t.NCTID,
					TrialAgeRange: fmt.Sprintf("%d-%d", t.AgeMin, t.AgeMax),
					TrialGender:   t.Gender,
					Score:         score,
					Reason:        c.Explain(score, policy),
				})
			}
		}

		rest := make([]string, 0, len(ds.Trials))
		for i := range ds.Trials {
			if _, ok := recommended[ds.Trials[i].NCTID]; !ok {
				rest = append(rest, ds.Trials[i].NCTID)
			}
		}
		for _, nct := range sampleStrings(rng, rest, opts.NegativeSamples) {
			t, _ := ds.Trial(nct)
			score := s.Score(p, t).Score
			if !IsValid(p, t, score, opts.Strict, policy) {
				out.Matrix.TrueNegatives++
				continue
			}
			out.Matrix.FalseNegatives++
			if len(out.FalseNegatives) < opts.MaxExamples {
				out.FalseNegatives = append(out.FalseNegatives, FalseNegative{
					PatientID: p.ID,
					TrialNCT:  t.NCTID,
					Score:     score,
					Reason:    fmt.Sprintf("Score %d below threshold %d", score, opts.Threshold),
				})
			}
		}
	}

	out.Rates = out.Matrix.Rates()
	return out, nil
}

// Default threshold-comparison settings.
var DefaultComparisonThresholds = []int{30, 40, 50, 60, 70}

// DefaultComparisonPatients is the patient sample of each comparison row.
const DefaultComparisonPatients = 20

// ThresholdComparison is one row of CompareThresholds.
type ThresholdComparison struct {
	Threshold         int     `json:"threshold"`
	Precision         float64 `json:"precision"`
	FalsePositiveRate float64 `json:"false_positive_rate"`
	FalsePositives    int     `json:"false_positives"`
}

// CompareThresholds runs AnalyzeErrors once per threshold with otherwise
// identical options, so each row samples the same patients.
func CompareThresholds(ds *Dataset, s Scorer, policy Policy, thresholds []int, opts ErrorAnalysisOptions) ([]ThresholdComparison, error) {
	out := make([]ThresholdComparison, 0, len(thresholds))
	for _, th := range thresholds {
		o := opts
		o.Threshold = th
		res, err := AnalyzeErrors(ds, s, policy, o)
		if err != nil {
			return nil, fmt.Errorf("threshold %d: %w", th, err)
		}
		out = append(out, ThresholdComparison{
			Threshold:         th,
			Precision:         res.Rates.Precision,
			FalsePositiveRate: res.Rates.FalsePositiveRate,
			FalsePositives:    res.Matrix.FalsePositives,
		})
	}
	return out, nil
}

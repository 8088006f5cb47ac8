package evaluation

import (
	"fmt"

	model "github.com/okian/trialmatch/internal/domain/model"
)

// Distribution summarises the cached scores of a MatchSet.
type Distribution struct {
	TotalScores int     `json:"total_scores"`
	AvgScore    float64 `json:"avg_score"`
	AvgTopScore float64 `json:"avg_top_score"`
	Excellent   int     `json:"excellent"`
	Good        int     `json:"good"`
	Fair        int     `json:"fair"`
	Poor        int     `json:"poor"`
	// ExcellentShare is Excellent / TotalScores.
	ExcellentShare float64 `json:"excellent_share"`
	// EstimatedAccuracy is the share of scores at or above the strict score.
	EstimatedAccuracy float64 `json:"estimated_accuracy"`
}

// AnalyzeDistribution buckets every cached score into tiers. The top score of
// a patient is the first entry of its list; patients without matches have none.
func AnalyzeDistribution(ms model.MatchSet, policy Policy) Distribution {
	var (
		d        Distribution
		sum      int
		topSum   int
		tops     int
		accurate int
	)
	for _, id := range ms.PatientIDs() {
		results := ms[id]
		if len(results) > 0 {
			topSum += results[0].Score
			tops++
		}
		for _, r := range results {
			d.TotalScores++
			sum += r.Score
			switch {
			case r.Score >= policy.TierExcellent:
				d.Excellent++
			case r.Score >= policy.TierGood:
				d.Good++
			case r.Score >= policy.TierFair:
				d.Fair++
			default:
				d.Poor++
			}
			if r.Score >= policy.StrictScore {
				accurate++
			}
		}
	}

	d.AvgScore = ratio(sum, d.TotalScores)
	d.AvgTopScore = ratio(topSum, tops)
	d.ExcellentShare = ratio(d.Excellent, d.TotalScores)
	d.EstimatedAccuracy = ratio(accurate, d.TotalScores)
	return d
}

// Default threshold-sweep settings.
var DefaultSweepThresholds = []int{30, 40, 50, 60, 70, 80}

const (
	DefaultSweepPatients = 30
	DefaultSweepTopN     = 5
)

// SweepOptions parameterises SweepThresholds.
type SweepOptions struct {
	Thresholds     []int `json:"thresholds"`
	SamplePatients int   `json:"sample_patients"`
	TopN           int   `json:"top_n"`
	Seed           int64 `json:"seed"`
}

// DefaultSweepOptions returns thresholds 30..80, 30 patients, top 5, seed 42.
func DefaultSweepOptions() SweepOptions {
	return SweepOptions{
		Thresholds:     append([]int(nil), DefaultSweepThresholds...),
		SamplePatients: DefaultSweepPatients,
		TopN:           DefaultSweepTopN,
		Seed:           DefaultSeed,
	}
}

// SweepPoint is the accuracy of one threshold.
type SweepPoint struct {
	Threshold int     `json:"threshold"`
	Valid     int     `json:"valid"`
	Total     int     `json:"total"`
	Accuracy  float64 `json:"accuracy"`
}

// SweepThresholds measures, per threshold, the share of a seeded sample's
// top-N cached matches whose fresh score reaches the threshold while age and
// gender are eligible.
func SweepThresholds(ds *Dataset, s Scorer, opts SweepOptions) ([]SweepPoint, error) {
	if opts.SamplePatients < 0 || opts.TopN < 0 {
		return nil, fmt.Errorf("%w: sweep sample sizes must not be negative", ErrInvalidOptions)
	}

	type pair struct {
		score    int
		eligible bool
	}
	var pairs []pair

	rng := newRand(opts.Seed)
	for _, id := range sampleStrings(rng, ds.MatchedPatientIDs(), opts.SamplePatients) {
		p, _ := ds.Patient(id)
		for _, m := range topN(ds.Matches[id], opts.TopN) {
			t, _ := ds.Trial(m.NCTID)
			pairs = append(pairs, pair{
				score:    s.Score(p, t).Score,
				eligible: t.AgeInRange(p.Age) && t.Gender.Accepts(p.Gender),
			})
		}
	}

	out := make([]SweepPoint, 0, len(opts.Thresholds))
	for _, th := range opts.Thresholds {
		pt := SweepPoint{Threshold: th, Total: len(pairs)}
		for _, pr := range pairs {
			if pr.eligible && pr.score >= th {
				pt.Valid++
			}
		}
		pt.Accuracy = ratio(pt.Valid, pt.Total)
		out = append(out, pt)
	}
	return out, nil
}

// Coverage describes how many patients received at least one match.
type Coverage struct {
	TotalPatients        int     `json:"total_patients"`
	PatientsWithMatches  int     `json:"patients_with_matches"`
	Coverage             float64 `json:"coverage"`
	TotalMatches         int     `json:"total_matches"`
	AvgMatchesPerPatient float64 `json:"avg_matches_per_patient"`
}

// AnalyzeCoverage counts patients with matches and the mean list length.
func AnalyzeCoverage(ms model.MatchSet) Coverage {
	c := Coverage{TotalPatients: len(ms)}
	for _, results := range ms {
		if len(results) > 0 {
			c.PatientsWithMatches++
		}
		c.TotalMatches += len(results)
	}
	c.Coverage = ratio(c.PatientsWithMatches, c.TotalPatients)
	c.AvgMatchesPerPatient = ratio(c.TotalMatches, c.TotalPatients)
	return c
}

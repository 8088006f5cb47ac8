// Package ranking turns one patient into an ordered list of matching trials.
package ranking

import (
	"sort"

	model "github.com/okian/trialmatch/internal/domain/model"
	scoring "github.com/okian/trialmatch/internal/domain/scoring"
)

// Default ranking parameters.
const (
	DefaultTopK     = 10
	DefaultMinScore = 20
)

// Options bound the ranked output.
type Options struct {
	TopK     int `json:"top_k"`
	MinScore int `json:"min_score"`
}

// DefaultOptions returns top-10 with a minimum score of 20.
func DefaultOptions() Options {
	return Options{TopK: DefaultTopK, MinScore: DefaultMinScore}
}

// Rank scores every trial against p, keeps results with score >= MinScore,
// orders them by score descending with ties in trial order, and returns at
// most TopK. TopK <= 0 yields no results. Rank reads trials only and is safe
// to call concurrently for different patients.
func Rank(s *scoring.Scorer, p *model.Patient, trials []model.Trial, opts Options) []model.MatchResult {
	if opts.TopK <= 0 {
		return []model.MatchResult{}
	}

	out := make([]model.MatchResult, 0, min(len(trials), opts.TopK))
	for i := range trials {
		t := &trials[i]
		res := s.Score(p, t)
		if res.Score < opts.MinScore {
			continue
		}
		out = append(out, model.MatchResult{
			NCTID:     t.NCTID,
			Title:     t.Title,
			Condition: t.Condition,
			Score:     res.Score,
			Reasons:   res.Reasons,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	if len(out) > opts.TopK {
		out = out[:opts.TopK:opts.TopK]
	}
	return out
}

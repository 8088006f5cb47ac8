// Package config defines the batch configuration and how it is layered from
// defaults, an optional YAML or TOML file and TRIALMATCH_* environment variables.
package config

import (
	"runtime"

	"github.com/okian/trialmatch/internal/domain/ranking"
	"github.com/okian/trialmatch/internal/domain/scoring"
	"github.com/okian/trialmatch/internal/evaluation"
)

// Config contains process configuration. Keys are flat so that every field
// maps to exactly one environment variable.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// WorkerCount sets the number of ranking workers.
	WorkerCount int `koanf:"worker_count"`
	// QueueSize is the minimum capacity of the patient job queue.
	QueueSize int `koanf:"queue_size"`

	TopK     int `koanf:"top_k"`
	MinScore int `koanf:"min_score"`

	// Scorer weights.
	AgePoints          int `koanf:"age_points"`
	GenderPoints       int `koanf:"gender_points"`
	KeywordPointsEach  int `koanf:"keyword_points_each"`
	KeywordCap         int `koanf:"keyword_cap"`
	ConditionPoints    int `koanf:"condition_points"`
	ConditionReasonMin int `koanf:"condition_reason_min"`

	// Ground-truth policy.
	StrictScore       int `koanf:"strict_score"`
	LenientScore      int `koanf:"lenient_score"`
	StrictMinKeywords int `koanf:"strict_min_keywords"`
	RejectionScore    int `koanf:"rejection_score"`
	TierExcellent     int `koanf:"tier_excellent"`
	TierGood          int `koanf:"tier_good"`
	TierFair          int `koanf:"tier_fair"`

	// Seed drives every sampled evaluation strategy and the generator.
	Seed int64 `koanf:"seed"`

	EvalThreshold          int   `koanf:"eval_threshold"`
	EvalStrict             bool  `koanf:"eval_strict"`
	EvalSamplePatients     int   `koanf:"eval_sample_patients"`
	EvalNegativeSamples    int   `koanf:"eval_negative_samples"`
	EvalMaxExamples        int   `koanf:"eval_max_examples"`
	ComparisonThresholds   []int `koanf:"comparison_thresholds"`
	ComparisonPatients     int   `koanf:"comparison_sample_patients"`
	StrictSamplePatients   int   `koanf:"strict_sample_patients"`
	StrictTopN             int   `koanf:"strict_top_n"`
	NegativeSamplePatients int   `koanf:"negative_sample_patients"`
	NegativeSampleTrials   int   `koanf:"negative_sample_trials"`
	SweepSamplePatients    int   `koanf:"sweep_sample_patients"`
	SweepTopN              int   `koanf:"sweep_top_n"`
	SweepThresholds        []int `koanf:"sweep_thresholds"`
	PerformancePatients    int   `koanf:"performance_patients"`

	// TrialStatuses keeps only trials with these statuses; empty keeps all.
	TrialStatuses []string `koanf:"trial_statuses"`

	// MetricsFile, when set, receives a Prometheus textfile after each run.
	MetricsFile string `koanf:"metrics_file"`
}

// New returns a Config populated with defaults.
func New() *Config {
	w := scoring.DefaultWeights()
	p := evaluation.DefaultPolicy()
	r := ranking.DefaultOptions()
	e := evaluation.DefaultSettings()

	return &Config{
		LogLevel:    "info",
		WorkerCount: runtime.NumCPU(),
		QueueSize:   1024,

		TopK:     r.TopK,
		MinScore: r.MinScore,

		AgePoints:          w.AgePoints,
		GenderPoints:       w.GenderPoints,
		KeywordPointsEach:  w.KeywordPointsEach,
		KeywordCap:         w.KeywordCap,
		ConditionPoints:    w.ConditionPoints,
		ConditionReasonMin: w.ConditionReasonMin,

		StrictScore:       p.StrictScore,
		LenientScore:      p.LenientScore,
		StrictMinKeywords: p.StrictMinKeywords,
		RejectionScore:    p.RejectionScore,
		TierExcellent:     p.TierExcellent,
		TierGood:          p.TierGood,
		TierFair:          p.TierFair,

		Seed: evaluation.DefaultSeed,

		EvalThreshold:          e.Errors.Threshold,
		EvalStrict:             e.Errors.Strict,
		EvalSamplePatients:     e.Errors.SamplePatients,
		EvalNegativeSamples:    e.Errors.NegativeSamples,
		EvalMaxExamples:        e.Errors.MaxExamples,
		ComparisonThresholds:   e.Comparison,
		ComparisonPatients:     e.ComparisonPatients,
		StrictSamplePatients:   e.Strict.SamplePatients,
		StrictTopN:             e.Strict.TopN,
		NegativeSamplePatients: e.Negative.SamplePatients,
		NegativeSampleTrials:   e.Negative.SampleTrials,
		SweepSamplePatients:    e.Sweep.SamplePatients,
		SweepTopN:              e.Sweep.TopN,
		SweepThresholds:        e.Sweep.Thresholds,
		PerformancePatients:    e.Performance,
	}
}

// Weights returns the scorer weights.
func (c *Config) Weights() scoring.Weights {
	w := scoring.DefaultWeights()
	w.AgePoints = c.AgePoints
	w.GenderPoints = c.GenderPoints
	w.KeywordPointsEach = c.KeywordPointsEach
	w.KeywordCap = c.KeywordCap
	w.ConditionPoints = c.ConditionPoints
	w.ConditionReasonMin = c.ConditionReasonMin
	return w
}

// RankOptions returns top-K and the minimum score.
func (c *Config) RankOptions() ranking.Options {
	return ranking.Options{TopK: c.TopK, MinScore: c.MinScore}
}

// Policy returns the ground-truth policy.
func (c *Config) Policy() evaluation.Policy {
	return evaluation.Policy{
		StrictScore:       c.StrictScore,
		LenientScore:      c.LenientScore,
		StrictMinKeywords: c.StrictMinKeywords,
		RejectionScore:    c.RejectionScore,
		TierExcellent:     c.TierExcellent,
		TierGood:          c.TierGood,
		TierFair:          c.TierFair,
	}
}

// EvaluationSettings returns the options of every evaluation strategy.
func (c *Config) EvaluationSettings() evaluation.Settings {
	return evaluation.Settings{
		Policy: c.Policy(),
		Errors: evaluation.ErrorAnalysisOptions{
			Threshold:       c.EvalThreshold,
			SamplePatients:  c.EvalSamplePatients,
			NegativeSamples: c.EvalNegativeSamples,
			Strict:          c.EvalStrict,
			Seed:            c.Seed,
			MaxExamples:     c.EvalMaxExamples,
		},
		Comparison:         append([]int(nil), c.ComparisonThresholds...),
		ComparisonPatients: c.ComparisonPatients,
		Strict: evaluation.StrictOptions{
			SamplePatients: c.StrictSamplePatients,
			TopN:           c.StrictTopN,
			Seed:           c.Seed,
		},
		Negative: evaluation.NegativeOptions{
			SamplePatients: c.NegativeSamplePatients,
			SampleTrials:   c.NegativeSampleTrials,
			Seed:           c.Seed,
		},
		Sweep: evaluation.SweepOptions{
			Thresholds:     append([]int(nil), c.SweepThresholds...),
			SamplePatients: c.SweepSamplePatients,
			TopN:           c.SweepTopN,
			Seed:           c.Seed,
		},
		Performance: c.PerformancePatients,
		Ranking:     c.RankOptions(),
	}
}

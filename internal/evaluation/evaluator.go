package evaluation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	model "github.com/okian/trialmatch/internal/domain/model"
	"github.com/okian/trialmatch/internal/domain/ranking"
	"github.com/okian/trialmatch/internal/domain/scoring"
	"github.com/okian/trialmatch/pkg/logger"
	"github.com/okian/trialmatch/pkg/metrics"
)

// Default performance-sampling settings.
const (
	DefaultPerformancePatients = 10
	manualReviewSeconds        = 30 * 60
)

// Settings collects the options of every strategy of one run.
type Settings struct {
	Policy             Policy               `json:"policy"`
	Errors             ErrorAnalysisOptions `json:"error_analysis"`
	Comparison         []int                `json:"comparison_thresholds"`
	ComparisonPatients int                  `json:"comparison_sample_patients"`
	Strict             StrictOptions        `json:"strict"`
	Negative           NegativeOptions      `json:"negative"`
	Sweep              SweepOptions         `json:"sweep"`
	Performance        int                  `json:"performance_patients"`
	Ranking            ranking.Options      `json:"ranking"`
}

// DefaultSettings returns the default options of every strategy.
func DefaultSettings() Settings {
	return Settings{
		Policy:             DefaultPolicy(),
		Errors:             DefaultErrorAnalysisOptions(),
		Comparison:         append([]int(nil), DefaultComparisonThresholds...),
		ComparisonPatients: DefaultComparisonPatients,
		Strict:             DefaultStrictOptions(),
		Negative:           DefaultNegativeOptions(),
		Sweep:              DefaultSweepOptions(),
		Performance:        DefaultPerformancePatients,
		Ranking:            ranking.DefaultOptions(),
	}
}

// WithSeed sets the seed of every sampled strategy.
func (s Settings) WithSeed(seed int64) Settings {
	s.Errors.Seed = seed
	s.Strict.Seed = seed
	s.Negative.Seed = seed
	s.Sweep.Seed = seed
	return s
}

// Performance is the timed re-ranking of a patient sample.
type Performance struct {
	PatientsTested       int     `json:"patients_tested"`
	TotalMillis          float64 `json:"total_ms"`
	AvgMillisPerPatient  float64 `json:"avg_ms_per_patient"`
	SpeedupVsManualCheck float64 `json:"speedup_vs_manual"`
}

// DatasetSummary summarises the inputs of a run.
type DatasetSummary struct {
	Patients int `json:"total_patients"`
	Trials   int `json:"total_trials"`
	Matched  int `json:"matched_patients"`
}

// Report is the outcome of one evaluation run.
type Report struct {
	RunID        string                `json:"run_id"`
	GeneratedAt  time.Time             `json:"generated_at"`
	Settings     Settings              `json:"settings"`
	Dataset      DatasetSummary        `json:"dataset"`
	Errors       ErrorAnalysis         `json:"error_analysis"`
	Comparison   []ThresholdComparison `json:"threshold_comparison"`
	Strict       StrictValidation      `json:"strict_heuristic"`
	Negative     NegativeCases         `json:"negative_testing"`
	Distribution Distribution          `json:"score_distribution"`
	Sweep        []SweepPoint          `json:"threshold_analysis"`
	Coverage     Coverage              `json:"coverage"`
	Performance  Performance           `json:"performance"`
}

// Evaluator runs every validation strategy over one dataset.
type Evaluator struct {
	dataset  *Dataset
	scorer   *scoring.Scorer
	settings Settings
	now      func() time.Time

	logger logger.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithSettings replaces the default settings.
func WithSettings(s Settings) Option {
	return func(e *Evaluator) {
		e.settings = s
	}
}

// WithScorer sets the scorer used for fresh scores.
func WithScorer(s *scoring.Scorer) Option {
	return func(e *Evaluator) {
		if s != nil {
			e.scorer = s
		}
	}
}

// WithLogger sets the evaluator's logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock sets the time source for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEvaluator creates an evaluator over ds.
func NewEvaluator(ds *Dataset, opts ...Option) *Evaluator {
	e := &Evaluator{
		dataset:  ds,
		scorer:   scoring.NewScorer(),
		settings: DefaultSettings(),
		now:      time.Now,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("evaluator")
	return e
}

// Evaluate runs every strategy and records headline gauges.
func (e *Evaluator) Evaluate(ctx context.Context) (Report, error) {
	if e.dataset == nil {
		return Report{}, fmt.Errorf("%w: no dataset", model.ErrMissingReferenceData)
	}
	if err := e.settings.Policy.Validate(); err != nil {
		return Report{}, err
	}

	ds, st := e.dataset, e.settings
	rep := Report{
		RunID:       uuid.NewString(),
		GeneratedAt: e.now().UTC(),
		Settings:    st,
		Dataset: DatasetSummary{
			Patients: len(ds.Patients),
			Trials:   len(ds.Trials),
			Matched:  len(ds.Matches),
		},
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"error_analysis", func() (err error) {
			rep.Errors, err = AnalyzeErrors(ds, e.scorer, st.Policy, st.Errors)
			return err
		}},
		{"threshold_comparison", func() (err error) {
			o := st.Errors
			o.Strict = false
			o.SamplePatients = st.ComparisonPatients
			rep.Comparison, err = CompareThresholds(ds, e.scorer, st.Policy, st.Comparison, o)
			return err
		}},
		{"strict", func() (err error) {
			rep.Strict, err = ValidateStrict(ds, e.scorer, st.Policy, st.Strict)
			return err
		}},
		{"negative", func() (err error) {
			rep.Negative, err = TestNegativeCases(ds, e.scorer, st.Policy, st.Negative)
			return err
		}},
		{"distribution", func() error {
			rep.Distribution = AnalyzeDistribution(ds.Matches, st.Policy)
			return nil
		}},
		{"sweep", func() (err error) {
			rep.Sweep, err = SweepThresholds(ds, e.scorer, st.Sweep)
			return err
		}},
		{"coverage", func() error {
			rep.Coverage = AnalyzeCoverage(ds.Matches)
			return nil
		}},
		{"performance", func() error {
			rep.Performance = e.measurePerformance()
			return nil
		}},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return Report{}, fmt.Errorf("evaluation cancelled before %s: %w", step.name, err)
		}
		if err := step.run(); err != nil {
			metrics.RecordErrorByComponent("evaluation", step.name)
			return Report{}, fmt.Errorf("%s: %w", step.name, err)
		}
		e.logger.Debug(ctx, "evaluation step finished", logger.String("step", step.name))
	}

	e.record(rep)
	e.logger.Info(ctx, "evaluation finished",
		logger.String("run_id", rep.RunID),
		logger.Float64("precision", rep.Errors.Rates.Precision),
		logger.Float64("recall", rep.Errors.Rates.Recall),
		logger.Float64("strict_accuracy", rep.Strict.Accuracy),
	)
	return rep, nil
}

// measurePerformance re-ranks a seeded sample of patients against all trials.
func (e *Evaluator) measurePerformance() Performance {
	ds := e.dataset
	rng := newRand(e.settings.Errors.Seed)
	idx := sampleIndices(rng, len(ds.Patients), e.settings.Performance)

	start := time.Now()
	for _, i := range idx {
		ranking.Rank(e.scorer, &ds.Patients[i], ds.Trials, e.settings.Ranking)
	}
	elapsed := time.Since(start)

	perf := Performance{
		PatientsTested: len(idx),
		TotalMillis:    float64(elapsed.Microseconds()) / 1000, //nolint:mnd // microseconds to milliseconds
	}
	if perf.PatientsTested > 0 {
		perf.AvgMillisPerPatient = perf.TotalMillis / float64(perf.PatientsTested)
	}
	if perf.AvgMillisPerPatient > 0 {
		perf.SpeedupVsManualCheck = manualReviewSeconds * 1000 / perf.AvgMillisPerPatient //nolint:mnd // seconds to milliseconds
	}
	return perf
}

func (e *Evaluator) record(rep Report) {
	metrics.RecordEvaluationRun()
	for name, v := range map[string]float64{
		"precision":          rep.Errors.Rates.Precision,
		"recall":             rep.Errors.Rates.Recall,
		"f1":                 rep.Errors.Rates.F1,
		"accuracy":           rep.Errors.Rates.Accuracy,
		"strict_accuracy":    rep.Strict.Accuracy,
		"rejection_rate":     rep.Negative.Overall.Rate,
		"estimated_accuracy": rep.Distribution.EstimatedAccuracy,
		"coverage":           rep.Coverage.Coverage,
	} {
		metrics.UpdateEvaluationResult(name, v)
	}
}

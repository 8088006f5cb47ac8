// Package generator produces seeded synthetic patients.
package generator

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"

	"github.com/okian/trialmatch/internal/domain/keywords"
	model "github.com/okian/trialmatch/internal/domain/model"
	"github.com/okian/trialmatch/pkg/logger"
)

// DefaultSeed is the seed used when none is configured.
const DefaultSeed = 42

// indexMix spreads per-patient seeds apart.
const indexMix = 0x9E3779B97F4A7C15 >> 1

// Generator creates synthetic patients. Patient i depends only on the seed
// and i, so the output is identical for any worker count.
type Generator struct {
	seed          int64
	workers       int
	diabetesShare float64
	extractor     keywords.Extractor

	logger logger.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets the base seed.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// WithWorkers sets the number of generating goroutines.
func WithWorkers(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.workers = n
		}
	}
}

// WithDiabetesShare sets the fraction of patients whose primary condition is
// a diabetes condition.
func WithDiabetesShare(share float64) Option {
	return func(g *Generator) {
		if share >= 0 && share <= 1 {
			g.diabetesShare = share
		}
	}
}

// WithExtractor sets the extractor that derives patient keywords.
func WithExtractor(e keywords.Extractor) Option {
	return func(g *Generator) {
		if e != nil {
			g.extractor = e
		}
	}
}

// WithLogger sets the generator's logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// New creates a generator.
func New(opts ...Option) *Generator {
	g := &Generator{
		seed:          DefaultSeed,
		workers:       runtime.NumCPU(),
		diabetesShare: defaultDiabetics,
		extractor:     keywords.NewLexiconExtractor(),
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate creates n patients with ids patient_0001 upwards.
func (g *Generator) Generate(ctx context.Context, n int) ([]model.Patient, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, n)
	}
	g.logger.Info(ctx, "generating patients", logger.Int("count", n), logger.Int("seed", int(g.seed)))

	patients := make([]model.Patient, n)
	if n == 0 {
		return patients, nil
	}

	type result struct {
		index   int
		patient model.Patient
		err     error
	}
	results := make(chan result, n)

	workerCount := min(g.workers, n)
	perWorker := n / workerCount
	for w := 0; w < workerCount; w++ {
		start := w * perWorker
		end := start + perWorker
		if w == workerCount-1 {
			end = n
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					results <- result{index: i, err: ctx.Err()}
					return
				default:
					results <- result{index: i, patient: g.patient(i)}
				}
			}
		}(start, end)
	}

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during patient generation: %w", ctx.Err())
		case r := <-results:
			if r.err != nil {
				return nil, fmt.Errorf("generate patient %d: %w", r.index+1, r.err)
			}
			patients[r.index] = r.patient
		}
	}

	g.logger.Info(ctx, "generated patients", logger.Int("count", len(patients)))
	return patients, nil
}

func (g *Generator) patient(i int) model.Patient {
	rng := rand.New(rand.NewSource(g.seed + int64(i+1)*indexMix)) //nolint:gosec // reproducible synthetic data

	age := minAge + rng.Intn(maxAge-minAge)
	gender := model.GenderMale
	if rng.Intn(2) == 1 {
		gender = model.GenderFemale
	}

	numConditions := minConditions + rng.Intn(maxConditions-minConditions)
	var conditions []string
	if rng.Float64() < g.diabetesShare {
		primary := DiabetesConditions[rng.Intn(len(DiabetesConditions))]
		conditions = append([]string{primary}, sample(rng, without(Conditions, primary), numConditions-1)...)
	} else {
		conditions = sample(rng, Conditions, numConditions)
	}

	numMeds := minMedications + rng.Intn(maxMedications-minMedications)
	meds := sample(rng, Medications, numMeds)

	return model.Patient{
		ID:          fmt.Sprintf("patient_%04d", i+1),
		Age:         age,
		Gender:      gender,
		Conditions:  conditions,
		Medications: meds,
		Keywords:    keywords.NormalizeSet(keywords.FromConditions(g.extractor, conditions)),
	}
}

// sample draws k distinct elements of pool in random order.
func sample(rng *rand.Rand, pool []string, k int) []string {
	k = max(0, min(k, len(pool)))
	out := make([]string, k)
	for i, j := range rng.Perm(len(pool))[:k] {
		out[i] = pool[j]
	}
	return out
}

func without(pool []string, drop string) []string {
	out := make([]string, 0, len(pool))
	for _, s := range pool {
		if s != drop {
			out = append(out, s)
		}
	}
	return out
}

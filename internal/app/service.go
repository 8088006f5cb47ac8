// Package service provides the batch matcher that ranks every patient
// against the shared trial collection.
package service

import (
	"context"
	"fmt"
	"runtime"
	"time"

	jobqueue "github.com/okian/trialmatch/internal/adapters/mq/queue"
	workerpool "github.com/okian/trialmatch/internal/adapters/mq/worker"
	"github.com/okian/trialmatch/internal/domain/dedupe"
	model "github.com/okian/trialmatch/internal/domain/model"
	"github.com/okian/trialmatch/internal/domain/ranking"
	"github.com/okian/trialmatch/internal/domain/scoring"
	"github.com/okian/trialmatch/pkg/logger"
	"github.com/okian/trialmatch/pkg/metrics"
)

// Service runs batch matches.
type Service struct {
	scorer      *scoring.Scorer
	rankOptions ranking.Options

	// Configuration
	workerCount int
	queueSize   int

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the minimum capacity of the job queue. The queue always
// grows to fit the whole batch.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithScorer sets the scorer used for ranking.
func WithScorer(scorer *scoring.Scorer) Option {
	return func(s *Service) {
		if scorer != nil {
			s.scorer = scorer
		}
	}
}

// WithRankOptions sets top-K and the minimum score.
func WithRankOptions(opts ranking.Options) Option {
	return func(s *Service) {
		s.rankOptions = opts
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		scorer:      scoring.NewScorer(),
		rankOptions: ranking.DefaultOptions(),
		workerCount: runtime.NumCPU(),
		logger:      logger.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Scorer returns the scorer the service ranks with.
func (s *Service) Scorer() *scoring.Scorer { return s.scorer }

// RankPatient ranks trials for a single patient.
func (s *Service) RankPatient(_ context.Context, p *model.Patient, trials []model.Trial) ([]model.MatchResult, error) {
	if len(trials) == 0 {
		return nil, fmt.Errorf("%w: no trials", model.ErrMissingReferenceData)
	}
	metrics.RecordPairsScored(len(trials))
	return ranking.Rank(s.scorer, p, trials, s.rankOptions), nil
}

// MatchAll ranks every patient against trials in parallel and returns exactly
// one entry per distinct patient id. Later duplicates of an id are dropped.
func (s *Service) MatchAll(ctx context.Context, patients []model.Patient, trials []model.Trial) (model.MatchSet, error) {
	if len(trials) == 0 {
		return nil, fmt.Errorf("%w: no trials", model.ErrMissingReferenceData)
	}
	if len(patients) == 0 {
		return nil, fmt.Errorf("%w: no patients", model.ErrMissingReferenceData)
	}

	start := time.Now()
	log := s.logger.Named("match")
	unique := s.uniquePatients(ctx, patients)

	q := jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(max(len(unique), s.queueSize)))
	for i := range unique {
		if !q.Enqueue(ctx, jobqueue.Job{Index: i, Patient: unique[i]}) {
			_ = q.Close()
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("match batch cancelled: %w", err)
			}
			return nil, fmt.Errorf("enqueue %s: %w", unique[i].ID, jobqueue.ErrRejected)
		}
	}
	_ = q.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	slots := workerpool.NewSlots(len(unique))
	ranker := workerpool.RankerFunc(func(p *model.Patient) []model.MatchResult {
		return ranking.Rank(s.scorer, p, trials, s.rankOptions)
	})
	pool := workerpool.NewPool(min(s.workerCount, len(unique)), q, ranker, slots, workerpool.WithLogger(s.logger))

	log.Info(ctx, "starting batch match",
		logger.Int("patients", len(unique)),
		logger.Int("trials", len(trials)),
		logger.Int("workers", pool.Size()),
	)

	pool.Start(runCtx)
	processed := pool.Wait()

	if err := ctx.Err(); err != nil {
		metrics.RecordErrorByComponent("service", "cancelled")
		log.Warn(ctx, "batch match cancelled", logger.Int("processed", processed))
		return nil, fmt.Errorf("match batch cancelled: %w", err)
	}
	if processed != len(unique) {
		metrics.RecordErrorByComponent("service", "incomplete_batch")
		return nil, fmt.Errorf("%w: processed %d of %d patients", ErrIncompleteBatch, processed, len(unique))
	}

	out := make(model.MatchSet, len(unique))
	for i := range unique {
		results := slots[i]
		if results == nil {
			results = []model.MatchResult{}
		}
		out[unique[i].ID] = results
	}

	metrics.RecordPairsScored(len(unique) * len(trials))
	elapsed := time.Since(start)
	metrics.RecordBatchDuration(float64(elapsed.Microseconds()) / 1000) //nolint:mnd // microseconds to milliseconds

	log.Info(ctx, "batch match finished",
		logger.Int("patients", len(out)),
		logger.Int("matches", out.TotalMatches()),
		logger.String("elapsed", elapsed.String()),
	)

	return out, nil
}

// uniquePatients keeps the first occurrence of each patient id.
func (s *Service) uniquePatients(ctx context.Context, patients []model.Patient) []model.Patient {
	seen := dedupe.NewInMemoryDeduper(dedupe.WithCapacity(len(patients)), dedupe.WithNormalizer(nil))
	out := make([]model.Patient, 0, len(patients))
	for i := range patients {
		if seen.SeenAndRecord(ctx, patients[i].ID) {
			metrics.RecordRecordDropped("patient", "duplicate_id")
			s.logger.Warn(ctx, "dropping duplicate patient", logger.String("id", patients[i].ID))
			continue
		}
		out = append(out, patients[i])
	}
	return out
}

// Package repository reads and writes the JSON files a batch run consumes
// and produces.
package repository

import (
	"context"

	model "github.com/okian/trialmatch/internal/domain/model"
)

// Store provides access to the patient, trial and match collections.
type Store interface {
	// LoadPatients reads patients, dropping malformed records.
	LoadPatients(ctx context.Context, path string) ([]model.Patient, error)
	// LoadTrials reads trials in file order, dropping malformed records.
	LoadTrials(ctx context.Context, path string) ([]model.Trial, error)
	// LoadMatches reads a MatchSet.
	LoadMatches(ctx context.Context, path string) (model.MatchSet, error)

	// SavePatients writes patients as a JSON array.
	SavePatients(ctx context.Context, path string, patients []model.Patient) error
	// SaveMatches writes a MatchSet keyed by patient id.
	SaveMatches(ctx context.Context, path string, ms model.MatchSet) error
	// SaveReport writes any JSON-encodable report.
	SaveReport(ctx context.Context, path string, report any) error
}

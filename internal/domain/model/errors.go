package model

import "errors"

// Error taxonomy shared by loaders, the batch matcher and evaluation.
var (
	// ErrMissingReferenceData marks an absent or unreadable patient, trial or
	// match collection. It is fatal for a batch run.
	ErrMissingReferenceData = errors.New("missing reference data")
	// ErrMalformedRecord marks a single record that was dropped.
	ErrMalformedRecord = errors.New("malformed record")
)

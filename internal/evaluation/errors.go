package evaluation

import "errors"

// Sentinel errors for evaluation runs.
var (
	ErrUnknownPatient = errors.New("match set references unknown patient")
	ErrUnknownTrial   = errors.New("match set references unknown trial")
	ErrInvalidOptions = errors.New("invalid evaluation options")
)

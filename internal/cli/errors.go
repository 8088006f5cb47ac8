package cli

import "errors"

// Sentinel errors for command handling.
var (
	ErrPatientNotFound = errors.New("patient not found")
)

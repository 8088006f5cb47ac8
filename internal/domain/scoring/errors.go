package scoring

import "errors"

// Sentinel errors for scoring configuration.
var (
	ErrNegativeWeight = errors.New("scoring weight must not be negative")
)

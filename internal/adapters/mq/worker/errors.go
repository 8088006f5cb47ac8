package worker

import "errors"

// Sentinel kinds for worker errors.
var (
	ErrSlotOutOfRange = errors.New("job index outside result slots")
)

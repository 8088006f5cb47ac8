package report

import "errors"

// Sentinel errors for rendering.
var (
	ErrUnknownFormat   = errors.New("unknown output format")
	ErrUnsupportedType = errors.New("unsupported data type for table output")
)

package generator

import "errors"

// ErrInvalidCount is returned for a negative patient count.
var ErrInvalidCount = errors.New("invalid patient count")

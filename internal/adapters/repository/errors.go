package repository

import "errors"

// Sentinel kinds for file store errors.
var (
	ErrEmptyPath   = errors.New("empty file path")
	ErrWriteFile   = errors.New("write file")
	ErrNoRecords   = errors.New("no valid records")
	ErrMissingID   = errors.New("missing id")
	ErrDuplicate   = errors.New("duplicate id")
	ErrAgeRange    = errors.New("age_min greater than age_max")
	ErrNegativeAge = errors.New("negative age")
)

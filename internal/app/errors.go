package service

import "errors"

// Sentinel errors for batch matching.
var (
	ErrIncompleteBatch = errors.New("batch did not rank every patient")
)

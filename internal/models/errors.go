package models

import "errors"

// Custom errors
var (
	ErrNotFound                   = errors.New("record not found")
	ErrDuplicateKey               = errors.New("duplicate key violation")
	ErrInvalidID                  = errors.New("invalid ID format")
	ErrInvalidProbability         = errors.New("probability outside (0, 1)")
	ErrInvalidOdds                = errors.New("decimal odds must be greater than 1")
	ErrHardDependencyMissing      = errors.New("required upstream dependency missing")
	ErrGoldenRunInvariant         = errors.New("golden run invariant violated")
	ErrInsufficientTierCandidates = errors.New("insufficient candidates for tier")
)

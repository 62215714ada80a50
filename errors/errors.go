// Package errors defines all exported error sentinels for the strsort library.
//
// This is the single source of truth for error values. The top-level
// strsort package imports from here, ensuring errors.Is checks work across
// package boundaries.
package errors

import "errors"

// Entry-point validation errors
var (
	ErrOutputSizeMismatch = errors.New("strsort: output slice length differs from input length")
	ErrLCPSizeMismatch    = errors.New("strsort: lcp slice is shorter than the input")
	ErrCacheSizeMismatch  = errors.New("strsort: cache slice is shorter than the input")
)

// Configuration errors
var (
	ErrInvalidWorkers    = errors.New("strsort: worker count must be positive")
	ErrInvalidThreshold  = errors.New("strsort: threshold out of range")
	ErrInvalidClassifier = errors.New("strsort: classifier cache budget too small for one splitter")
	ErrInvalidMaxParts   = errors.New("strsort: maximum partition count must be positive")
)

// Locality errors
var (
	ErrNoSuchLocalityGroup = errors.New("strsort: locality group does not exist on this machine")
)

package preheat

import "errors"

// Domain errors for the preheat package.
//
// Decide never returns an error; these are reported by the strict decoding
// helpers for callers that want to log why a default was substituted.
var (
	// ErrMalformedState is returned when persisted state cannot be decoded.
	ErrMalformedState = errors.New("preheat: malformed persisted state")

	// ErrInvalidTunable is returned when a tunable is out of range.
	ErrInvalidTunable = errors.New("preheat: invalid tunable")
)

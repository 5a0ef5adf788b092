// Package common defines shared sentinel errors used across KnowTation
// components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Store-level errors.
	ErrNotFound = errors.New("not found")
	ErrIO       = errors.New("store i/o failure")

	// Validation errors. Field-level details are carried by
	// models.ValidationErrors, which matches this sentinel.
	ErrValidation = errors.New("validation failure")

	// Crypto errors (tag mismatch, corrupted blob, wrong key).
	ErrAuthenticationFailed = errors.New("authentication failed")

	// Network mirror errors.
	ErrNotPublished  = errors.New("record has no network reference")
	ErrAlreadySynced = errors.New("record is already synced")
	ErrTransport     = errors.New("transport failure")
)

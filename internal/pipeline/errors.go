// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

package pipeline

import "fmt"

// ValidationError marks a sample rejected before classification. The
// caller must not persist or publish anything for it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CapabilityError marks a classifier stage failure. Stage failures are
// recoverable via fallback staging; species and molt failures degrade
// the verdict instead of failing the sample.
type CapabilityError struct {
	Stage string // "species", "molt", "stage"
	Err   error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s classifier failed: %v", e.Stage, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// StorageError marks a persistence failure. It surfaces as a server
// error and must never leave the live bus in an inconsistent state.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

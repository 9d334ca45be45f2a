// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mixture

import "errors"

// Sentinel errors for the mixture package. Every failure returned by the
// engine wraps exactly one of these; callers dispatch with errors.Is.
var (
	// ErrConfiguration indicates bad or contradictory construction
	// arguments (nil collaborators, length mismatches).
	ErrConfiguration = errors.New("invalid configuration")

	// ErrInvalidHandle indicates an unknown entity or group id, or an
	// entity in the wrong assignment state for the operation.
	ErrInvalidHandle = errors.New("invalid handle")

	// ErrOutOfRange indicates an index or parameter outside its domain,
	// e.g. a feature index past the schema or a non-positive alpha.
	ErrOutOfRange = errors.New("out of range")

	// ErrNotEmpty indicates an attempt to delete a non-empty group.
	ErrNotEmpty = errors.New("group not empty")

	// ErrCapacity indicates the definition's fixed group cap is reached.
	ErrCapacity = errors.New("group capacity reached")

	// ErrDeserialization indicates a malformed or incompatible byte blob.
	ErrDeserialization = errors.New("deserialization failed")

	// ErrInconsistent indicates the incrementally maintained state diverged
	// from a from-scratch recomputation. This is a programming-error class:
	// callers should treat it as fatal, not as control flow.
	ErrInconsistent = errors.New("state inconsistent")
)

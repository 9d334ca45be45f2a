// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package model

import "errors"

// Sentinel errors for the model package.
var (
	// ErrValueKind indicates a value whose kind does not match the model.
	ErrValueKind = errors.New("value kind mismatch")

	// ErrStatsType indicates suffstats of the wrong concrete type.
	ErrStatsType = errors.New("suffstats type mismatch")

	// ErrHyperType indicates hyperparameters of the wrong concrete type.
	ErrHyperType = errors.New("hyperparameter type mismatch")

	// ErrHyperRange indicates hyperparameters outside their valid domain.
	ErrHyperRange = errors.New("hyperparameter out of range")

	// ErrStatsUnderflow indicates removing a value that was never added.
	ErrStatsUnderflow = errors.New("suffstats underflow")

	// ErrCategoryRange indicates a categorical index outside [0, K).
	ErrCategoryRange = errors.New("category index out of range")

	// ErrEncoding indicates malformed encoded hyperparameters or suffstats.
	ErrEncoding = errors.New("malformed encoding")

	// ErrDefinition indicates invalid ModelDefinition arguments.
	ErrDefinition = errors.New("invalid model definition")
)

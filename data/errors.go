// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package data

import "errors"

// Sentinel errors for the data package.
var (
	// ErrEmptyView indicates a view was constructed with no rows.
	ErrEmptyView = errors.New("empty dataview")

	// ErrRaggedRow indicates a row whose arity differs from the view's.
	ErrRaggedRow = errors.New("ragged row")

	// ErrInvalidCell indicates a cell that cannot be parsed or whose kind
	// does not match the declared column kind.
	ErrInvalidCell = errors.New("invalid cell")
)

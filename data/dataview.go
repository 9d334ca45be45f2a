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

import "fmt"

// Dataview exposes a fixed, in-memory set of rows to the mixture engine.
//
// Thread Safety: implementations must be safe for concurrent reads; the
// engine never writes through a Dataview.
type Dataview interface {
	// Len returns the number of rows (entities).
	Len() int

	// Row returns the row at index i. The engine treats the returned row
	// as read-only and does not retain it after the calling operation
	// returns. Implementations may panic on an out-of-range index; the
	// engine validates indices before calling.
	Row(i int) Row
}

// SliceView is a Dataview over an in-memory slice of rows.
type SliceView struct {
	rows  []Row
	arity int
}

// NewSliceView builds a view over rows, validating that the set is
// non-empty and rectangular.
func NewSliceView(rows []Row) (*SliceView, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyView
	}
	arity := len(rows[0])
	for i, r := range rows {
		if len(r) != arity {
			return nil, fmt.Errorf("row %d has %d cells, want %d: %w", i, len(r), arity, ErrRaggedRow)
		}
	}
	return &SliceView{rows: rows, arity: arity}, nil
}

// Len returns the number of rows.
func (v *SliceView) Len() int { return len(v.rows) }

// Features returns the number of cells per row.
func (v *SliceView) Features() int { return v.arity }

// Row returns the row at index i.
func (v *SliceView) Row(i int) Row { return v.rows[i] }

var _ Dataview = (*SliceView)(nil)

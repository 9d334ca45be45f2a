// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package data provides the tabular data contracts consumed by the mixture
// engine: typed cell values with explicit missingness, row accessors, and
// the Dataview abstraction over a fixed set of rows.
//
// The engine never retains a reference to a row after an operation returns;
// views stay owned by the caller.
package data

import "fmt"

// Kind identifies the runtime type of a cell value.
type Kind int

const (
	// Missing marks an unobserved cell. Missing cells are skipped when
	// folding rows into sufficient statistics.
	Missing Kind = iota

	// Real is a continuous value carried in Value.Real.
	Real

	// Bool is a binary value carried in Value.Bool.
	Bool

	// Count is a non-negative categorical index carried in Value.Int.
	Count
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case Missing:
		return "missing"
	case Real:
		return "real"
	case Bool:
		return "bool"
	case Count:
		return "count"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a tagged variant holding one cell. Only the field matching Kind
// is meaningful; the zero Value is Missing.
type Value struct {
	Kind Kind
	Real float64
	Int  int
	Bool bool
}

// RealValue wraps a continuous observation.
func RealValue(x float64) Value { return Value{Kind: Real, Real: x} }

// BoolValue wraps a binary observation.
func BoolValue(b bool) Value { return Value{Kind: Bool, Bool: b} }

// CountValue wraps a categorical index observation.
func CountValue(i int) Value { return Value{Kind: Count, Int: i} }

// MissingValue returns an unobserved cell.
func MissingValue() Value { return Value{Kind: Missing} }

// Observed reports whether the cell carries a value.
func (v Value) Observed() bool { return v.Kind != Missing }

// String renders the value for logs and CLI output.
func (v Value) String() string {
	switch v.Kind {
	case Missing:
		return "·"
	case Real:
		return fmt.Sprintf("%g", v.Real)
	case Bool:
		if v.Bool {
			return "true"
		}
		return "false"
	case Count:
		return fmt.Sprintf("%d", v.Int)
	default:
		return fmt.Sprintf("value(kind=%d)", int(v.Kind))
	}
}

// Row is one entity's cells, indexed by feature. A Row doubles as the
// row-mutator buffer that predictive sampling writes completed values into.
type Row []Value

// NewRow returns an all-missing row with one cell per feature.
func NewRow(features int) Row {
	return make(Row, features)
}

// Observed reports whether feature f is observed in the row.
func (r Row) Observed(f int) bool {
	return f >= 0 && f < len(r) && r[f].Observed()
}

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

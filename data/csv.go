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

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadCSV parses CSV records into a SliceView, typing each column by kinds.
// Empty cells become Missing. Bool columns accept 0/1/true/false
// (case-insensitive); Count columns must be non-negative integers.
func ReadCSV(r io.Reader, kinds []Kind, header bool) (*SliceView, error) {
	if len(kinds) == 0 {
		return nil, fmt.Errorf("no column kinds given: %w", ErrEmptyView)
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(kinds)

	var rows []Row
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv read: %w", err)
		}
		line++
		if header && line == 1 {
			continue
		}
		row := NewRow(len(kinds))
		for f, cell := range rec {
			v, err := parseCell(cell, kinds[f])
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", line, f, err)
			}
			row[f] = v
		}
		rows = append(rows, row)
	}
	return NewSliceView(rows)
}

func parseCell(cell string, kind Kind) (Value, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return MissingValue(), nil
	}
	switch kind {
	case Real:
		x, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%q is not a real: %w", cell, ErrInvalidCell)
		}
		return RealValue(x), nil
	case Bool:
		switch strings.ToLower(cell) {
		case "0", "false":
			return BoolValue(false), nil
		case "1", "true":
			return BoolValue(true), nil
		}
		return Value{}, fmt.Errorf("%q is not a bool: %w", cell, ErrInvalidCell)
	case Count:
		i, err := strconv.Atoi(cell)
		if err != nil || i < 0 {
			return Value{}, fmt.Errorf("%q is not a non-negative count: %w", cell, ErrInvalidCell)
		}
		return CountValue(i), nil
	default:
		return Value{}, fmt.Errorf("column kind %s: %w", kind, ErrInvalidCell)
	}
}

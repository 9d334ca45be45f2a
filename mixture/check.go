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

import (
	"bytes"
	"fmt"

	"github.com/AleutianAI/mixturekit/data"
)

// CheckConsistency recomputes group sizes and suffstats from the assignment
// vector and the full dataset and compares them with the incrementally
// maintained state. Any mismatch wraps ErrInconsistent and should be
// treated as fatal by the caller; this is a debug aid, not production
// control flow.
func (s *State) CheckConsistency(view data.Dataview) error {
	if view == nil || view.Len() != len(s.assignment) {
		return fmt.Errorf("dataview does not match state: %w", ErrConfiguration)
	}

	recomputed := make(map[int]*group, len(s.groups))
	assigned := 0
	for gid := range s.groups {
		recomputed[gid] = s.newGroup()
	}
	for e, gid := range s.assignment {
		if gid == unassigned {
			continue
		}
		g, ok := recomputed[gid]
		if !ok {
			return fmt.Errorf("entity %d references unknown group %d: %w", e, gid, ErrInconsistent)
		}
		row := view.Row(e)
		if err := s.checkRow(row); err != nil {
			return err
		}
		for f, v := range row {
			if !v.Observed() {
				continue
			}
			if err := s.def.Model(f).Add(g.suffstats[f], v); err != nil {
				return fmt.Errorf("entity %d feature %d: %w", e, f, err)
			}
		}
		g.size++
		assigned++
	}

	if assigned != s.assigned {
		return fmt.Errorf("assigned count: maintained %d, recomputed %d: %w",
			s.assigned, assigned, ErrInconsistent)
	}
	for gid, g := range s.groups {
		r := recomputed[gid]
		if g.size != r.size {
			return fmt.Errorf("group %d size: maintained %d, recomputed %d: %w",
				gid, g.size, r.size, ErrInconsistent)
		}
		for f := 0; f < s.def.Features(); f++ {
			m := s.def.Model(f)
			got, err := m.EncodeSuffstats(g.suffstats[f])
			if err != nil {
				return fmt.Errorf("group %d feature %d: %w", gid, f, err)
			}
			want, err := m.EncodeSuffstats(r.suffstats[f])
			if err != nil {
				return fmt.Errorf("group %d feature %d: %w", gid, f, err)
			}
			if !bytes.Equal(got, want) {
				return fmt.Errorf("group %d feature %d suffstats: maintained %s, recomputed %s: %w",
					gid, f, got, want, ErrInconsistent)
			}
		}
	}
	return nil
}

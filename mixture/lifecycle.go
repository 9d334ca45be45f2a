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
	"fmt"
	"math/rand/v2"
	"sort"
)

// CreateGroup allocates a new empty group and returns its id. Ids are
// monotonically increasing and never reused. Fails with ErrCapacity when
// the definition's fixed group count is already reached. rng is accepted
// for interface symmetry and is not consulted.
func (s *State) CreateGroup(rng *rand.Rand) (int, error) {
	if max := s.def.MaxGroups(); max > 0 && len(s.groups) >= max {
		return 0, fmt.Errorf("definition caps groups at %d: %w", max, ErrCapacity)
	}
	id := s.nextGroupID
	s.nextGroupID++
	s.groups[id] = s.newGroup()
	return id, nil
}

// DeleteGroup removes group gid. The group must exist and be empty.
func (s *State) DeleteGroup(gid int) error {
	g, ok := s.groups[gid]
	if !ok {
		return fmt.Errorf("group %d: %w", gid, ErrInvalidHandle)
	}
	if g.size != 0 {
		return fmt.Errorf("group %d has %d members: %w", gid, g.size, ErrNotEmpty)
	}
	delete(s.groups, gid)
	return nil
}

// EmptyGroups returns the ids of currently empty groups in ascending order.
func (s *State) EmptyGroups() []int {
	var ids []int
	for id, g := range s.groups {
		if g.size == 0 {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// EnsureEmptyGroups guarantees at least k empty groups exist, creating new
// ones as needed, and returns the ids of all empty groups afterwards. When
// alwaysCreate is false, existing empty groups count toward k, making the
// call idempotent; when true, k fresh groups are created unconditionally.
//
// This keeps a "fresh cluster" candidate available for proposal moves and
// predictive sampling.
func (s *State) EnsureEmptyGroups(k int, alwaysCreate bool, rng *rand.Rand) ([]int, error) {
	if k < 0 {
		return nil, fmt.Errorf("k = %d, want >= 0: %w", k, ErrOutOfRange)
	}
	need := k
	if !alwaysCreate {
		need -= len(s.EmptyGroups())
	}
	for i := 0; i < need; i++ {
		if _, err := s.CreateGroup(rng); err != nil {
			return nil, err
		}
	}
	return s.EmptyGroups(), nil
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package mixture implements the Dirichlet-process (Chinese restaurant
// process) mixture-model state engine: the current partition of a fixed
// entity set into latent groups, per-group per-feature sufficient
// statistics, CRP-based scoring, posterior-predictive sampling, and a
// self-describing serialization codec.
//
// The engine holds no hidden randomness: every stochastic operation takes an
// explicit *rand.Rand, so a fixed seed and call order reproduce a run
// exactly.
//
// # Invariants
//
// After every exported operation returns:
//   - the sum of group sizes equals the number of assigned entities;
//   - every group id referenced by the assignment vector is active;
//   - each group's suffstats reflect exactly the observed values of its
//     current members (add and remove are exact algebraic inverses);
//   - the CRP concentration alpha is strictly positive.
//
// Thread Safety: a State is exclusively owned by its caller. Concurrent
// mutation is not supported; run one state per worker for parallel chains.
// A model.Definition may be shared read-only across many states.
package mixture

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/AleutianAI/mixturekit/data"
	"github.com/AleutianAI/mixturekit/model"
)

// unassigned marks an entity with no current group.
const unassigned = -1

// group holds one active cluster: its member count and one suffstats bag
// per feature.
type group struct {
	size      int
	suffstats []model.Suffstats
}

// State is the mixture-model state machine. Construct with FromData or
// FromBytes; mutate only through the exported operations.
type State struct {
	def         *model.Definition
	assignment  []int // entity -> group id, unassigned = -1
	groups      map[int]*group
	nextGroupID int // monotonic; ids are never reused
	assigned    int
	alpha       float64
	featureHP   []model.Hyperparameters
}

// Option configures FromData.
type Option func(*options)

type options struct {
	alpha      float64
	featureHP  []model.Hyperparameters
	assignment []int
}

// WithAlpha sets the CRP concentration parameter (default 1.0).
func WithAlpha(alpha float64) Option {
	return func(o *options) { o.alpha = alpha }
}

// WithFeatureHyperparameters overrides the per-feature hyperparameters
// (default: each model's defaults). Length must equal the feature count.
func WithFeatureHyperparameters(hps []model.Hyperparameters) Option {
	return func(o *options) { o.featureHP = hps }
}

// WithAssignment seeds the initial partition from explicit non-negative
// group labels, one per entity. Groups are created on demand to match.
func WithAssignment(assignment []int) Option {
	return func(o *options) { o.assignment = append([]int(nil), assignment...) }
}

// FromData builds a state over the rows of view, seeding suffstats row by
// row. Without WithAssignment the partition is drawn by sequential CRP
// seating (or uniformly over the fixed group count when the definition
// caps groups).
func FromData(def *model.Definition, view data.Dataview, rng *rand.Rand, opts ...Option) (*State, error) {
	if def == nil || view == nil || rng == nil {
		return nil, fmt.Errorf("definition, dataview, and rng are required: %w", ErrConfiguration)
	}
	if view.Len() != def.Entities() {
		return nil, fmt.Errorf("dataview has %d rows, definition declares %d entities: %w",
			view.Len(), def.Entities(), ErrConfiguration)
	}

	o := options{alpha: 1.0}
	for _, opt := range opts {
		opt(&o)
	}
	if o.alpha <= 0 {
		return nil, fmt.Errorf("alpha = %g, want > 0: %w", o.alpha, ErrConfiguration)
	}

	hps := o.featureHP
	if hps == nil {
		hps = def.DefaultHyperparameters()
	}
	if len(hps) != def.Features() {
		return nil, fmt.Errorf("got %d hyperparameter bags, want %d: %w",
			len(hps), def.Features(), ErrConfiguration)
	}
	for f, hp := range hps {
		if err := def.Model(f).ValidateHyperparameters(hp); err != nil {
			return nil, fmt.Errorf("feature %d: %v: %w", f, err, ErrConfiguration)
		}
	}

	s := &State{
		def:        def,
		assignment: make([]int, def.Entities()),
		groups:     make(map[int]*group),
		alpha:      o.alpha,
		featureHP:  make([]model.Hyperparameters, len(hps)),
	}
	for f, hp := range hps {
		s.featureHP[f] = hp.Clone()
	}
	for e := range s.assignment {
		s.assignment[e] = unassigned
	}

	if o.assignment != nil {
		if err := s.initFromAssignment(o.assignment, view, rng); err != nil {
			return nil, err
		}
	} else {
		if err := s.initRandom(view, rng); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// initFromAssignment seeds the partition from explicit labels.
func (s *State) initFromAssignment(labels []int, view data.Dataview, rng *rand.Rand) error {
	if len(labels) != s.def.Entities() {
		return fmt.Errorf("assignment has %d labels, want %d: %w",
			len(labels), s.def.Entities(), ErrConfiguration)
	}
	for e, gid := range labels {
		if gid < 0 {
			return fmt.Errorf("entity %d has negative group label %d: %w", e, gid, ErrConfiguration)
		}
		if _, ok := s.groups[gid]; !ok {
			if max := s.def.MaxGroups(); max > 0 && len(s.groups) >= max {
				return fmt.Errorf("assignment needs more than %d groups: %w", max, ErrConfiguration)
			}
			s.groups[gid] = s.newGroup()
			if gid >= s.nextGroupID {
				s.nextGroupID = gid + 1
			}
		}
	}
	for e, gid := range labels {
		if err := s.AddValue(gid, e, view.Row(e), rng); err != nil {
			return err
		}
	}
	return nil
}

// initRandom draws the initial partition. Unbounded definitions use
// sequential CRP seating; fixed-capacity definitions materialize every
// group and place entities uniformly.
func (s *State) initRandom(view data.Dataview, rng *rand.Rand) error {
	if max := s.def.MaxGroups(); max > 0 {
		for i := 0; i < max; i++ {
			if _, err := s.CreateGroup(rng); err != nil {
				return err
			}
		}
		ids := s.Groups()
		for e := 0; e < s.def.Entities(); e++ {
			gid := ids[rng.IntN(len(ids))]
			if err := s.AddValue(gid, e, view.Row(e), rng); err != nil {
				return err
			}
		}
		return nil
	}

	for e := 0; e < s.def.Entities(); e++ {
		ids := s.Groups()
		// Seat at an existing table w.p. proportional to size, or open a
		// new one w.p. proportional to alpha.
		total := float64(s.assigned) + s.alpha
		u := rng.Float64() * total
		gid := unassigned
		for _, id := range ids {
			u -= float64(s.groups[id].size)
			if u < 0 {
				gid = id
				break
			}
		}
		if gid == unassigned {
			created, err := s.CreateGroup(rng)
			if err != nil {
				return err
			}
			gid = created
		}
		if err := s.AddValue(gid, e, view.Row(e), rng); err != nil {
			return err
		}
	}
	return nil
}

func (s *State) newGroup() *group {
	g := &group{suffstats: make([]model.Suffstats, s.def.Features())}
	for f := 0; f < s.def.Features(); f++ {
		g.suffstats[f] = s.def.Model(f).NewSuffstats()
	}
	return g
}

// checkRow validates arity and per-feature value kinds up front so mutation
// never fails halfway through a row.
func (s *State) checkRow(row data.Row) error {
	if len(row) != s.def.Features() {
		return fmt.Errorf("row has %d cells, schema has %d features: %w",
			len(row), s.def.Features(), ErrOutOfRange)
	}
	for f, v := range row {
		if !v.Observed() {
			continue
		}
		if want := s.def.Model(f).ValueKind(); v.Kind != want {
			return fmt.Errorf("feature %d: got %s, want %s: %w", f, v.Kind, want, ErrOutOfRange)
		}
	}
	return nil
}

// AddValue assigns entity eid to group gid and folds the row's observed
// values into the group's suffstats. The entity must currently be
// unassigned. rng is accepted for interface symmetry with stochastic
// operations and is not consulted.
func (s *State) AddValue(gid, eid int, row data.Row, rng *rand.Rand) error {
	if eid < 0 || eid >= len(s.assignment) {
		return fmt.Errorf("entity %d: %w", eid, ErrInvalidHandle)
	}
	g, ok := s.groups[gid]
	if !ok {
		return fmt.Errorf("group %d: %w", gid, ErrInvalidHandle)
	}
	if s.assignment[eid] != unassigned {
		return fmt.Errorf("entity %d already assigned to group %d: %w",
			eid, s.assignment[eid], ErrInvalidHandle)
	}
	if err := s.checkRow(row); err != nil {
		return err
	}
	for f, v := range row {
		if !v.Observed() {
			continue
		}
		if err := s.def.Model(f).Add(g.suffstats[f], v); err != nil {
			return fmt.Errorf("feature %d: %w", f, err)
		}
	}
	s.assignment[eid] = gid
	g.size++
	s.assigned++
	return nil
}

// RemoveValue unassigns entity eid, exactly inverting the AddValue that
// placed it, and returns the group id it was removed from. The caller must
// pass the same row the entity was added with.
func (s *State) RemoveValue(eid int, row data.Row, rng *rand.Rand) (int, error) {
	if eid < 0 || eid >= len(s.assignment) {
		return 0, fmt.Errorf("entity %d: %w", eid, ErrInvalidHandle)
	}
	gid := s.assignment[eid]
	if gid == unassigned {
		return 0, fmt.Errorf("entity %d is not assigned: %w", eid, ErrInvalidHandle)
	}
	if err := s.checkRow(row); err != nil {
		return 0, err
	}
	g := s.groups[gid]
	for f, v := range row {
		if !v.Observed() {
			continue
		}
		if err := s.def.Model(f).Remove(g.suffstats[f], v); err != nil {
			return 0, fmt.Errorf("feature %d: %w", f, err)
		}
	}
	s.assignment[eid] = unassigned
	g.size--
	s.assigned--
	return gid, nil
}

// Definition returns the shared, immutable schema.
func (s *State) Definition() *model.Definition { return s.def }

// Entities returns the fixed entity count.
func (s *State) Entities() int { return len(s.assignment) }

// AssignedCount returns how many entities currently have a group.
func (s *State) AssignedCount() int { return s.assigned }

// Assignment returns a copy of the assignment vector; unassigned entities
// carry -1.
func (s *State) Assignment() []int {
	return append([]int(nil), s.assignment...)
}

// GroupOf returns the group entity eid is assigned to.
func (s *State) GroupOf(eid int) (int, error) {
	if eid < 0 || eid >= len(s.assignment) {
		return 0, fmt.Errorf("entity %d: %w", eid, ErrInvalidHandle)
	}
	gid := s.assignment[eid]
	if gid == unassigned {
		return 0, fmt.Errorf("entity %d is not assigned: %w", eid, ErrInvalidHandle)
	}
	return gid, nil
}

// Groups returns the active group ids in ascending order. Ids are opaque
// handles; the ordering exists only to keep runs reproducible.
func (s *State) Groups() []int {
	ids := make([]int, 0, len(s.groups))
	for id := range s.groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// GroupSize returns the member count of group gid.
func (s *State) GroupSize(gid int) (int, error) {
	g, ok := s.groups[gid]
	if !ok {
		return 0, fmt.Errorf("group %d: %w", gid, ErrInvalidHandle)
	}
	return g.size, nil
}

// Alpha returns the CRP concentration parameter.
func (s *State) Alpha() float64 { return s.alpha }

// SetAlpha replaces the CRP concentration parameter; alpha must be > 0.
func (s *State) SetAlpha(alpha float64) error {
	if alpha <= 0 {
		return fmt.Errorf("alpha = %g, want > 0: %w", alpha, ErrOutOfRange)
	}
	s.alpha = alpha
	return nil
}

// FeatureHyperparameters returns a copy of feature f's hyperparameter bag.
func (s *State) FeatureHyperparameters(f int) (model.Hyperparameters, error) {
	if f < 0 || f >= s.def.Features() {
		return nil, fmt.Errorf("feature %d: %w", f, ErrOutOfRange)
	}
	return s.featureHP[f].Clone(), nil
}

// SetFeatureHyperparameters replaces feature f's hyperparameter bag after
// validating it against the feature's model. Suffstats are untouched; only
// future scores change.
func (s *State) SetFeatureHyperparameters(f int, hp model.Hyperparameters) error {
	if f < 0 || f >= s.def.Features() {
		return fmt.Errorf("feature %d: %w", f, ErrOutOfRange)
	}
	if err := s.def.Model(f).ValidateHyperparameters(hp); err != nil {
		return fmt.Errorf("feature %d: %v: %w", f, err, ErrOutOfRange)
	}
	s.featureHP[f] = hp.Clone()
	return nil
}

// GroupSuffstats returns a copy of group gid's suffstats bag for feature f.
// Primarily for inspection and checkpoint editing.
func (s *State) GroupSuffstats(gid, f int) (model.Suffstats, error) {
	g, ok := s.groups[gid]
	if !ok {
		return nil, fmt.Errorf("group %d: %w", gid, ErrInvalidHandle)
	}
	if f < 0 || f >= s.def.Features() {
		return nil, fmt.Errorf("feature %d: %w", f, ErrOutOfRange)
	}
	return g.suffstats[f].Clone(), nil
}

// SetGroupSuffstats replaces group gid's suffstats bag for feature f. The
// bag must round-trip through the feature model's codec, which rejects
// wrong concrete types.
func (s *State) SetGroupSuffstats(gid, f int, ss model.Suffstats) error {
	g, ok := s.groups[gid]
	if !ok {
		return fmt.Errorf("group %d: %w", gid, ErrInvalidHandle)
	}
	if f < 0 || f >= s.def.Features() {
		return fmt.Errorf("feature %d: %w", f, ErrOutOfRange)
	}
	if _, err := s.def.Model(f).EncodeSuffstats(ss); err != nil {
		return fmt.Errorf("feature %d: %v: %w", f, err, ErrOutOfRange)
	}
	g.suffstats[f] = ss.Clone()
	return nil
}

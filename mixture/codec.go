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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/AleutianAI/mixturekit/model"
)

// CodecVersion is the current serialization format version (semver).
const CodecVersion = "1.0.0"

// codecState is the self-describing wire form of a State. The schema
// (feature models) is deliberately not part of it and must be supplied to
// FromBytes. Hyperparameter and suffstats bags are opaque bytes produced by
// the feature models' own codecs.
type codecState struct {
	Entities    int          `json:"entities"`
	NextGroupID int          `json:"next_group_id"`
	Alpha       float64      `json:"alpha"`
	Assignment  []int        `json:"assignment"` // -1 = unassigned
	FeatureHP   [][]byte     `json:"feature_hp"`
	Groups      []codecGroup `json:"groups"`
}

type codecGroup struct {
	ID        int      `json:"id"`
	Suffstats [][]byte `json:"suffstats"`
}

// codecEnvelope wraps the state with a version and an integrity checksum.
type codecEnvelope struct {
	Version  string     `json:"version"`
	Checksum string     `json:"checksum"` // sha256 hex of the canonical state JSON
	State    codecState `json:"state"`
}

// Serialize encodes the assignment, all groups' suffstats, the cluster
// hyperparameter, and the feature hyperparameters into an opaque,
// self-describing byte blob. The ModelDefinition is not encoded.
func (s *State) Serialize() ([]byte, error) {
	cs := codecState{
		Entities:    len(s.assignment),
		NextGroupID: s.nextGroupID,
		Alpha:       s.alpha,
		Assignment:  append([]int(nil), s.assignment...),
		FeatureHP:   make([][]byte, s.def.Features()),
	}
	for f := 0; f < s.def.Features(); f++ {
		raw, err := s.def.Model(f).EncodeHyperparameters(s.featureHP[f])
		if err != nil {
			return nil, fmt.Errorf("encode feature %d hyperparameters: %w", f, err)
		}
		cs.FeatureHP[f] = raw
	}
	for _, gid := range s.Groups() {
		g := s.groups[gid]
		cg := codecGroup{ID: gid, Suffstats: make([][]byte, s.def.Features())}
		for f := 0; f < s.def.Features(); f++ {
			raw, err := s.def.Model(f).EncodeSuffstats(g.suffstats[f])
			if err != nil {
				return nil, fmt.Errorf("encode group %d feature %d suffstats: %w", gid, f, err)
			}
			cg.Suffstats[f] = raw
		}
		cs.Groups = append(cs.Groups, cg)
	}

	checksum, err := stateChecksum(cs)
	if err != nil {
		return nil, err
	}
	return json.Marshal(codecEnvelope{
		Version:  CodecVersion,
		Checksum: checksum,
		State:    cs,
	})
}

// FromBytes restores a state from a blob produced by Serialize. The
// supplied definition must be schema-compatible with the one used to
// serialize; feature count, entity count, and bag encodings are validated
// explicitly rather than trusted.
func FromBytes(def *model.Definition, blob []byte) (*State, error) {
	if def == nil {
		return nil, fmt.Errorf("definition is required: %w", ErrConfiguration)
	}
	if len(blob) == 0 {
		return nil, fmt.Errorf("empty blob: %w", ErrDeserialization)
	}
	var env codecEnvelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %v: %w", err, ErrDeserialization)
	}
	if env.Version != CodecVersion {
		return nil, fmt.Errorf("codec version %q, this build reads %q: %w",
			env.Version, CodecVersion, ErrDeserialization)
	}
	checksum, err := stateChecksum(env.State)
	if err != nil {
		return nil, err
	}
	if checksum != env.Checksum {
		return nil, fmt.Errorf("checksum mismatch: %w", ErrDeserialization)
	}

	cs := env.State
	if cs.Entities != def.Entities() {
		return nil, fmt.Errorf("blob has %d entities, definition declares %d: %w",
			cs.Entities, def.Entities(), ErrDeserialization)
	}
	if len(cs.Assignment) != cs.Entities {
		return nil, fmt.Errorf("assignment length %d, want %d: %w",
			len(cs.Assignment), cs.Entities, ErrDeserialization)
	}
	if len(cs.FeatureHP) != def.Features() {
		return nil, fmt.Errorf("blob has %d feature hyperparameter bags, schema has %d features: %w",
			len(cs.FeatureHP), def.Features(), ErrDeserialization)
	}
	if cs.Alpha <= 0 {
		return nil, fmt.Errorf("alpha = %g: %w", cs.Alpha, ErrDeserialization)
	}
	if max := def.MaxGroups(); max > 0 && len(cs.Groups) > max {
		return nil, fmt.Errorf("blob has %d groups, definition caps at %d: %w",
			len(cs.Groups), max, ErrDeserialization)
	}

	s := &State{
		def:         def,
		assignment:  append([]int(nil), cs.Assignment...),
		groups:      make(map[int]*group, len(cs.Groups)),
		nextGroupID: cs.NextGroupID,
		alpha:       cs.Alpha,
		featureHP:   make([]model.Hyperparameters, def.Features()),
	}
	for f, raw := range cs.FeatureHP {
		hp, err := def.Model(f).DecodeHyperparameters(raw)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %v: %w", f, err, ErrDeserialization)
		}
		s.featureHP[f] = hp
	}
	for _, cg := range cs.Groups {
		if cg.ID < 0 || cg.ID >= cs.NextGroupID {
			return nil, fmt.Errorf("group id %d outside [0, %d): %w", cg.ID, cs.NextGroupID, ErrDeserialization)
		}
		if _, dup := s.groups[cg.ID]; dup {
			return nil, fmt.Errorf("duplicate group id %d: %w", cg.ID, ErrDeserialization)
		}
		if len(cg.Suffstats) != def.Features() {
			return nil, fmt.Errorf("group %d has %d suffstats bags, want %d: %w",
				cg.ID, len(cg.Suffstats), def.Features(), ErrDeserialization)
		}
		g := &group{suffstats: make([]model.Suffstats, def.Features())}
		for f, raw := range cg.Suffstats {
			ss, err := def.Model(f).DecodeSuffstats(raw)
			if err != nil {
				return nil, fmt.Errorf("group %d feature %d: %v: %w", cg.ID, f, err, ErrDeserialization)
			}
			g.suffstats[f] = ss
		}
		s.groups[cg.ID] = g
	}
	for e, gid := range s.assignment {
		if gid == unassigned {
			continue
		}
		g, ok := s.groups[gid]
		if !ok {
			return nil, fmt.Errorf("entity %d assigned to unknown group %d: %w", e, gid, ErrDeserialization)
		}
		g.size++
		s.assigned++
	}
	return s, nil
}

// Clone returns a deep copy of the mutable state sharing the immutable
// definition, via a serialize/deserialize round trip.
func (s *State) Clone() (*State, error) {
	blob, err := s.Serialize()
	if err != nil {
		return nil, err
	}
	return FromBytes(s.def, blob)
}

// DeepClone additionally clones the definition, so the copy shares nothing
// with the original.
func (s *State) DeepClone() (*State, error) {
	blob, err := s.Serialize()
	if err != nil {
		return nil, err
	}
	return FromBytes(s.def.Clone(), blob)
}

// stateChecksum returns the sha256 hex digest of the canonical state JSON.
func stateChecksum(cs codecState) (string, error) {
	raw, err := json.Marshal(cs)
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

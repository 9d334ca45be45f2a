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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/mixturekit/model"
)

func TestSerializeRoundTrip(t *testing.T) {
	s, view := mixedState(t)
	require.NoError(t, s.SetAlpha(2.5))

	blob, err := s.Serialize()
	require.NoError(t, err)

	restored, err := FromBytes(s.Definition(), blob)
	require.NoError(t, err)

	assert.Equal(t, s.Assignment(), restored.Assignment())
	assert.Equal(t, s.Alpha(), restored.Alpha())
	assert.Equal(t, s.Groups(), restored.Groups())
	assert.Equal(t, s.AssignedCount(), restored.AssignedCount())
	require.NoError(t, restored.CheckConsistency(view))

	// Value-exact suffstats and hyperparameters: re-serializing the
	// restored state yields identical bytes.
	again, err := restored.Serialize()
	require.NoError(t, err)
	assert.Equal(t, string(blob), string(again))
}

func TestFromBytes_Malformed(t *testing.T) {
	s, _ := threeEntityState(t)
	def := s.Definition()

	_, err := FromBytes(def, nil)
	assert.ErrorIs(t, err, ErrDeserialization)

	_, err = FromBytes(def, []byte("not json"))
	assert.ErrorIs(t, err, ErrDeserialization)

	_, err = FromBytes(nil, []byte("{}"))
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestFromBytes_TamperedChecksum(t *testing.T) {
	s, _ := threeEntityState(t)
	blob, err := s.Serialize()
	require.NoError(t, err)

	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(blob, &env))
	env["checksum"] = json.RawMessage(`"0000"`)
	tampered, err := json.Marshal(env)
	require.NoError(t, err)

	_, err = FromBytes(s.Definition(), tampered)
	assert.ErrorIs(t, err, ErrDeserialization)
}

func TestFromBytes_VersionMismatch(t *testing.T) {
	s, _ := threeEntityState(t)
	blob, err := s.Serialize()
	require.NoError(t, err)

	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(blob, &env))
	env["version"] = json.RawMessage(`"9.0.0"`)
	tampered, err := json.Marshal(env)
	require.NoError(t, err)

	_, err = FromBytes(s.Definition(), tampered)
	assert.ErrorIs(t, err, ErrDeserialization)
}

// The blob excludes the schema, so restoring against a definition with a
// different feature count must fail loudly.
func TestFromBytes_SchemaMismatch(t *testing.T) {
	s, _ := threeEntityState(t)
	blob, err := s.Serialize()
	require.NoError(t, err)

	other, err := model.NewDefinition(3, []model.FeatureModel{model.Normal{}, model.Bernoulli{}})
	require.NoError(t, err)
	_, err = FromBytes(other, blob)
	assert.ErrorIs(t, err, ErrDeserialization)

	smaller, err := model.NewDefinition(2, []model.FeatureModel{model.Normal{}})
	require.NoError(t, err)
	_, err = FromBytes(smaller, blob)
	assert.ErrorIs(t, err, ErrDeserialization)
}

func TestClone_Independent(t *testing.T) {
	s, view := mixedState(t)

	clone, err := s.Clone()
	require.NoError(t, err)
	assert.Same(t, s.Definition(), clone.Definition())

	// Mutating the clone leaves the original untouched.
	rng := testRNG()
	gid, err := clone.RemoveValue(0, view.Row(0), rng)
	require.NoError(t, err)
	require.NoError(t, clone.AddValue(gid, 0, view.Row(0), rng))
	_, err = clone.CreateGroup(rng)
	require.NoError(t, err)

	assert.NotEqual(t, len(s.Groups()), len(clone.Groups()))
	require.NoError(t, s.CheckConsistency(view))
}

func TestDeepClone_ClonesDefinition(t *testing.T) {
	s, _ := threeEntityState(t)
	clone, err := s.DeepClone()
	require.NoError(t, err)
	assert.NotSame(t, s.Definition(), clone.Definition())
	assert.Equal(t, s.Assignment(), clone.Assignment())
}

// Ids handed out before a serialize/restore cycle stay unique afterwards.
func TestRoundTripPreservesNextGroupID(t *testing.T) {
	s, _ := threeEntityState(t)
	rng := testRNG()

	created, err := s.CreateGroup(rng)
	require.NoError(t, err)
	require.NoError(t, s.DeleteGroup(created))

	blob, err := s.Serialize()
	require.NoError(t, err)
	restored, err := FromBytes(s.Definition(), blob)
	require.NoError(t, err)

	next, err := restored.CreateGroup(rng)
	require.NoError(t, err)
	assert.Greater(t, next, created)
}

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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/mixturekit/data"
	"github.com/AleutianAI/mixturekit/model"
)

func TestSamplePostPred_CompletesRow(t *testing.T) {
	s, _ := mixedState(t)
	rng := testRNG()

	partial := data.Row{data.RealValue(0.25), data.MissingValue(), data.MissingValue()}
	gid, row, err := s.SamplePostPred(partial, rng)
	require.NoError(t, err)

	assert.Contains(t, s.Groups(), gid)
	require.Len(t, row, 3)

	// Observed cells pass through unchanged; missing cells are filled with
	// the feature's kind.
	assert.Equal(t, data.RealValue(0.25), row[0])
	assert.Equal(t, data.Bool, row[1].Kind)
	assert.Equal(t, data.Count, row[2].Kind)
}

func TestSamplePostPred_NilRowAllMissing(t *testing.T) {
	s, _ := mixedState(t)

	gid, row, err := s.SamplePostPred(nil, testRNG())
	require.NoError(t, err)
	assert.Contains(t, s.Groups(), gid)
	require.Len(t, row, 3)
	for f, v := range row {
		assert.True(t, v.Observed(), "feature %d", f)
	}
}

// A degenerate state with zero assigned entities must still sample: the
// ensured fresh cluster carries the full CRP weight.
func TestSamplePostPred_EmptyState(t *testing.T) {
	s, view := threeEntityState(t)
	rng := testRNG()

	for e := 0; e < 3; e++ {
		_, err := s.RemoveValue(e, view.Row(e), rng)
		require.NoError(t, err)
	}
	require.Zero(t, s.AssignedCount())

	gid, row, err := s.SamplePostPred(nil, rng)
	require.NoError(t, err)
	assert.Contains(t, s.Groups(), gid)
	require.Len(t, row, 1)
	assert.Equal(t, data.Real, row[0].Kind)
}

// Beyond the possibly ensured empty group, sampling must not mutate state.
func TestSamplePostPred_DoesNotMutate(t *testing.T) {
	s, _ := mixedState(t)
	rng := testRNG()

	_, err := s.EnsureEmptyGroups(1, false, rng)
	require.NoError(t, err)
	before, err := s.Serialize()
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, _, err := s.SamplePostPred(nil, rng)
		require.NoError(t, err)
	}

	after, err := s.Serialize()
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestSamplePostPred_Reproducible(t *testing.T) {
	build := func() (int, data.Row) {
		s, _ := mixedState(t)
		gid, row, err := s.SamplePostPred(nil, testRNG())
		require.NoError(t, err)
		return gid, row
	}
	g1, r1 := build()
	g2, r2 := build()
	assert.Equal(t, g1, g2)
	assert.Equal(t, r1, r2)
}

// Two states sharing one definition must not interfere.
func TestSharedDefinition(t *testing.T) {
	def, err := model.NewDefinition(2, []model.FeatureModel{model.Bernoulli{}})
	require.NoError(t, err)
	view, err := data.NewSliceView([]data.Row{{data.BoolValue(true)}, {data.BoolValue(false)}})
	require.NoError(t, err)

	a, err := FromData(def, view, testRNG(), WithAssignment([]int{0, 0}))
	require.NoError(t, err)
	b, err := FromData(def, view, testRNG(), WithAssignment([]int{0, 1}))
	require.NoError(t, err)

	assert.Len(t, a.Groups(), 1)
	assert.Len(t, b.Groups(), 2)
	require.NoError(t, a.CheckConsistency(view))
	require.NoError(t, b.CheckConsistency(view))
}

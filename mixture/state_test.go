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
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/mixturekit/data"
	"github.com/AleutianAI/mixturekit/model"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewPCG(42, 42))
}

// threeEntityState is the spec scenario: 3 entities, 1 real feature,
// alpha = 1.0, initial assignment [0, 0, 1].
func threeEntityState(t *testing.T) (*State, *data.SliceView) {
	t.Helper()
	def, err := model.NewDefinition(3, []model.FeatureModel{model.Normal{}})
	require.NoError(t, err)
	view, err := data.NewSliceView([]data.Row{
		{data.RealValue(1.0)},
		{data.RealValue(2.0)},
		{data.RealValue(10.0)},
	})
	require.NoError(t, err)
	s, err := FromData(def, view, testRNG(), WithAssignment([]int{0, 0, 1}))
	require.NoError(t, err)
	return s, view
}

// mixedView builds a 4-entity, 3-feature dataset (real, bool, categorical)
// with some missing cells.
func mixedState(t *testing.T) (*State, *data.SliceView) {
	t.Helper()
	cat, err := model.NewCategorical(3)
	require.NoError(t, err)
	def, err := model.NewDefinition(4, []model.FeatureModel{model.Normal{}, model.Bernoulli{}, cat})
	require.NoError(t, err)
	view, err := data.NewSliceView([]data.Row{
		{data.RealValue(0.5), data.BoolValue(true), data.CountValue(0)},
		{data.RealValue(-1.5), data.MissingValue(), data.CountValue(2)},
		{data.MissingValue(), data.BoolValue(false), data.CountValue(1)},
		{data.RealValue(3.25), data.BoolValue(true), data.MissingValue()},
	})
	require.NoError(t, err)
	s, err := FromData(def, view, testRNG(), WithAssignment([]int{0, 0, 1, 1}))
	require.NoError(t, err)
	return s, view
}

func TestFromData_Validation(t *testing.T) {
	def, err := model.NewDefinition(3, []model.FeatureModel{model.Normal{}})
	require.NoError(t, err)
	view, err := data.NewSliceView([]data.Row{{data.RealValue(1)}, {data.RealValue(2)}})
	require.NoError(t, err)

	_, err = FromData(nil, view, testRNG())
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = FromData(def, nil, testRNG())
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = FromData(def, view, nil)
	assert.ErrorIs(t, err, ErrConfiguration)

	// 2 rows vs 3 declared entities.
	_, err = FromData(def, view, testRNG())
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestFromData_BadOptions(t *testing.T) {
	def, err := model.NewDefinition(2, []model.FeatureModel{model.Normal{}})
	require.NoError(t, err)
	view, err := data.NewSliceView([]data.Row{{data.RealValue(1)}, {data.RealValue(2)}})
	require.NoError(t, err)

	_, err = FromData(def, view, testRNG(), WithAlpha(0))
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = FromData(def, view, testRNG(), WithAssignment([]int{0}))
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = FromData(def, view, testRNG(), WithAssignment([]int{0, -2}))
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = FromData(def, view, testRNG(),
		WithFeatureHyperparameters([]model.Hyperparameters{
			&model.NormalHyperparameters{Mu: 0, Kappa: -1, Alpha: 1, Beta: 1},
		}))
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestFromData_RandomInitSatisfiesInvariants(t *testing.T) {
	cat, err := model.NewCategorical(2)
	require.NoError(t, err)
	def, err := model.NewDefinition(50, []model.FeatureModel{model.Normal{}, cat})
	require.NoError(t, err)

	rows := make([]data.Row, 50)
	rng := testRNG()
	for i := range rows {
		rows[i] = data.Row{data.RealValue(rng.NormFloat64()), data.CountValue(rng.IntN(2))}
	}
	view, err := data.NewSliceView(rows)
	require.NoError(t, err)

	s, err := FromData(def, view, rng, WithAlpha(2.0))
	require.NoError(t, err)

	assert.Equal(t, 50, s.AssignedCount())
	total := 0
	for _, gid := range s.Groups() {
		size, err := s.GroupSize(gid)
		require.NoError(t, err)
		total += size
	}
	assert.Equal(t, 50, total)
	require.NoError(t, s.CheckConsistency(view))
}

func TestFromData_FixedGroupsInit(t *testing.T) {
	def, err := model.NewDefinition(10, []model.FeatureModel{model.Normal{}}, model.WithMaxGroups(3))
	require.NoError(t, err)
	rows := make([]data.Row, 10)
	rng := testRNG()
	for i := range rows {
		rows[i] = data.Row{data.RealValue(rng.NormFloat64())}
	}
	view, err := data.NewSliceView(rows)
	require.NoError(t, err)

	s, err := FromData(def, view, rng)
	require.NoError(t, err)
	assert.Len(t, s.Groups(), 3)
	assert.Equal(t, 10, s.AssignedCount())

	// The cap is live: no fourth group.
	_, err = s.CreateGroup(rng)
	assert.ErrorIs(t, err, ErrCapacity)
}

func TestAddRemove_ExactInverse(t *testing.T) {
	s, view := mixedState(t)
	rng := testRNG()

	before, err := s.Serialize()
	require.NoError(t, err)

	gid, err := s.RemoveValue(2, view.Row(2), rng)
	require.NoError(t, err)
	require.NoError(t, s.AddValue(gid, 2, view.Row(2), rng))

	after, err := s.Serialize()
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
	require.NoError(t, s.CheckConsistency(view))
}

func TestAddValue_Preconditions(t *testing.T) {
	s, view := threeEntityState(t)
	rng := testRNG()

	assert.ErrorIs(t, s.AddValue(0, 0, view.Row(0), rng), ErrInvalidHandle) // already assigned
	assert.ErrorIs(t, s.AddValue(99, 0, view.Row(0), rng), ErrInvalidHandle)
	assert.ErrorIs(t, s.AddValue(0, 99, view.Row(0), rng), ErrInvalidHandle)
	assert.ErrorIs(t, s.AddValue(0, -1, view.Row(0), rng), ErrInvalidHandle)

	_, err := s.RemoveValue(0, view.Row(0), rng)
	require.NoError(t, err)
	assert.ErrorIs(t, s.AddValue(0, 0, data.Row{data.RealValue(1), data.RealValue(2)}, rng), ErrOutOfRange)
	assert.ErrorIs(t, s.AddValue(0, 0, data.Row{data.BoolValue(true)}, rng), ErrOutOfRange)
}

func TestRemoveValue_Preconditions(t *testing.T) {
	s, view := threeEntityState(t)
	rng := testRNG()

	_, err := s.RemoveValue(99, view.Row(0), rng)
	assert.ErrorIs(t, err, ErrInvalidHandle)

	_, err = s.RemoveValue(1, view.Row(1), rng)
	require.NoError(t, err)
	_, err = s.RemoveValue(1, view.Row(1), rng)
	assert.ErrorIs(t, err, ErrInvalidHandle)
}

func TestAssignmentAccessors(t *testing.T) {
	s, _ := threeEntityState(t)

	assert.Equal(t, []int{0, 0, 1}, s.Assignment())
	assert.Equal(t, 3, s.Entities())
	assert.Equal(t, 3, s.AssignedCount())

	gid, err := s.GroupOf(2)
	require.NoError(t, err)
	assert.Equal(t, 1, gid)

	_, err = s.GroupOf(7)
	assert.ErrorIs(t, err, ErrInvalidHandle)

	size, err := s.GroupSize(0)
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	_, err = s.GroupSize(42)
	assert.ErrorIs(t, err, ErrInvalidHandle)
}

func TestAlphaValidation(t *testing.T) {
	s, _ := threeEntityState(t)
	assert.Equal(t, 1.0, s.Alpha())

	require.NoError(t, s.SetAlpha(0.5))
	assert.Equal(t, 0.5, s.Alpha())

	assert.ErrorIs(t, s.SetAlpha(0), ErrOutOfRange)
	assert.ErrorIs(t, s.SetAlpha(-1), ErrOutOfRange)
	assert.Equal(t, 0.5, s.Alpha())
}

func TestHyperparameterAccessors(t *testing.T) {
	s, _ := threeEntityState(t)

	hp, err := s.FeatureHyperparameters(0)
	require.NoError(t, err)
	assert.Equal(t, model.Normal{}.DefaultHyperparameters(), hp)

	_, err = s.FeatureHyperparameters(5)
	assert.ErrorIs(t, err, ErrOutOfRange)

	next := &model.NormalHyperparameters{Mu: 1, Kappa: 2, Alpha: 3, Beta: 4}
	require.NoError(t, s.SetFeatureHyperparameters(0, next))

	// The state holds its own copy.
	next.Mu = 99
	got, err := s.FeatureHyperparameters(0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.(*model.NormalHyperparameters).Mu)

	err = s.SetFeatureHyperparameters(0, &model.BernoulliHyperparameters{Alpha: 1, Beta: 1})
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestSuffstatsAccessors(t *testing.T) {
	s, view := threeEntityState(t)

	ss, err := s.GroupSuffstats(0, 0)
	require.NoError(t, err)
	ns := ss.(*model.NormalSuffstats)
	assert.Equal(t, 2, ns.N)
	assert.InDelta(t, 3.0, ns.Sum, 1e-12)

	_, err = s.GroupSuffstats(9, 0)
	assert.ErrorIs(t, err, ErrInvalidHandle)
	_, err = s.GroupSuffstats(0, 9)
	assert.ErrorIs(t, err, ErrOutOfRange)

	// SetGroupSuffstats rejects wrong concrete types.
	err = s.SetGroupSuffstats(0, 0, &model.BernoulliSuffstats{})
	assert.ErrorIs(t, err, ErrOutOfRange)

	// A legitimate edit sticks, and the consistency check catches it.
	require.NoError(t, s.SetGroupSuffstats(0, 0, &model.NormalSuffstats{N: 2, Sum: 99, SumSq: 99}))
	assert.ErrorIs(t, s.CheckConsistency(view), ErrInconsistent)
}

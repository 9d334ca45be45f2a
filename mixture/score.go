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
	"math"
	"math/rand/v2"

	"github.com/AleutianAI/mixturekit/data"
)

// ScoreValue computes, for every active group, the log-likelihood of the
// row's observed values under that group's suffstats and the feature
// hyperparameters, summed over features. No CRP prior term is included;
// combining with cluster weights is the caller's responsibility.
//
// The two returned slices are parallel and enumerate exactly the active
// groups at call time, in ascending id order.
func (s *State) ScoreValue(row data.Row, rng *rand.Rand) ([]int, []float64, error) {
	if err := s.checkRow(row); err != nil {
		return nil, nil, err
	}
	ids := s.Groups()
	scores := make([]float64, len(ids))
	for i, gid := range ids {
		g := s.groups[gid]
		total := 0.0
		for f, v := range row {
			if !v.Observed() {
				continue
			}
			lp, err := s.def.Model(f).LogLikelihood(g.suffstats[f], s.featureHP[f], v)
			if err != nil {
				return nil, nil, fmt.Errorf("group %d feature %d: %w", gid, f, err)
			}
			total += lp
		}
		scores[i] = total
	}
	return ids, scores, nil
}

// ScoreData returns the marginal log-likelihood of the current assignment
// restricted to the given feature and group subsets. Nil selects all
// features or all active groups.
func (s *State) ScoreData(features, groups []int, rng *rand.Rand) (float64, error) {
	if features == nil {
		features = make([]int, s.def.Features())
		for f := range features {
			features[f] = f
		}
	}
	if groups == nil {
		groups = s.Groups()
	}
	for _, f := range features {
		if f < 0 || f >= s.def.Features() {
			return 0, fmt.Errorf("feature %d: %w", f, ErrOutOfRange)
		}
	}
	total := 0.0
	for _, gid := range groups {
		g, ok := s.groups[gid]
		if !ok {
			return 0, fmt.Errorf("group %d: %w", gid, ErrInvalidHandle)
		}
		for _, f := range features {
			lp, err := s.def.Model(f).Marginal(g.suffstats[f], s.featureHP[f])
			if err != nil {
				return 0, fmt.Errorf("group %d feature %d: %w", gid, f, err)
			}
			total += lp
		}
	}
	return total, nil
}

// ScoreAssignment returns the log-probability of the current partition
// under the CRP(alpha) prior, in the exchangeable-partition form
//
//	k·log(alpha) + Σ_i logΓ(n_i) − logΓ(N+alpha) + logΓ(alpha)
//
// where the n_i are the sizes of the non-empty groups and N is the number
// of assigned entities. Empty bookkeeping groups do not contribute.
func (s *State) ScoreAssignment() float64 {
	k := 0
	sum := 0.0
	for _, g := range s.groups {
		if g.size == 0 {
			continue
		}
		k++
		lg, _ := math.Lgamma(float64(g.size))
		sum += lg
	}
	lgNA, _ := math.Lgamma(float64(s.assigned) + s.alpha)
	lgA, _ := math.Lgamma(s.alpha)
	return float64(k)*math.Log(s.alpha) + sum - lgNA + lgA
}

// ScoreJoint returns ScoreAssignment plus ScoreData over all features and
// groups. It is a pure function of the current state; rng is accepted for
// interface symmetry and never consulted.
func (s *State) ScoreJoint(rng *rand.Rand) (float64, error) {
	dataScore, err := s.ScoreData(nil, nil, rng)
	if err != nil {
		return 0, err
	}
	return s.ScoreAssignment() + dataScore, nil
}

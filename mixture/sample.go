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

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/AleutianAI/mixturekit/data"
)

// SamplePostPred draws one posterior-predictive sample: a group for a
// hypothetical new entity and a completed row. A nil row treats every
// feature as missing; observed cells in a non-nil row are copied through
// unchanged and condition the group choice.
//
// The group is drawn from the per-group data likelihoods combined with CRP
// weights: n_g for a non-empty group, alpha split evenly across the empty
// groups (at least one empty group is ensured first, so a fresh cluster is
// always a candidate). The only state mutation is that possible group
// creation.
func (s *State) SamplePostPred(row data.Row, rng *rand.Rand) (int, data.Row, error) {
	if rng == nil {
		return 0, nil, fmt.Errorf("rng is required: %w", ErrConfiguration)
	}
	if row == nil {
		row = data.NewRow(s.def.Features())
	}

	if _, err := s.EnsureEmptyGroups(1, false, rng); err != nil {
		return 0, nil, err
	}
	ids, scores, err := s.ScoreValue(row, rng)
	if err != nil {
		return 0, nil, err
	}

	nempty := 0
	for _, gid := range ids {
		if s.groups[gid].size == 0 {
			nempty++
		}
	}
	logw := make([]float64, len(ids))
	for i, gid := range ids {
		g := s.groups[gid]
		if g.size > 0 {
			logw[i] = scores[i] + math.Log(float64(g.size))
		} else {
			logw[i] = scores[i] + math.Log(s.alpha/float64(nempty))
		}
	}
	lse := floats.LogSumExp(logw)
	probs := make([]float64, len(logw))
	for i, lw := range logw {
		probs[i] = math.Exp(lw - lse)
	}
	gid := ids[int(distuv.NewCategorical(probs, rng).Rand())]

	g := s.groups[gid]
	out := data.NewRow(s.def.Features())
	for f, v := range row {
		if v.Observed() {
			out[f] = v
			continue
		}
		drawn, err := s.def.Model(f).SamplePredictive(g.suffstats[f], s.featureHP[f], rng)
		if err != nil {
			return 0, nil, fmt.Errorf("feature %d: %w", f, err)
		}
		out[f] = drawn
	}
	return gid, out, nil
}

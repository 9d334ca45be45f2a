// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package model

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/AleutianAI/mixturekit/data"
)

// CategoricalHyperparameters is the Dirichlet prior over a K-valued feature.
type CategoricalHyperparameters struct {
	// Alpha holds one pseudo-count per category; length fixes K.
	Alpha []float64 `json:"alpha"`
}

// Clone returns an independent copy.
func (h *CategoricalHyperparameters) Clone() Hyperparameters {
	return &CategoricalHyperparameters{Alpha: append([]float64(nil), h.Alpha...)}
}

// CategoricalSuffstats counts observations per category.
type CategoricalSuffstats struct {
	Counts []int `json:"counts"`
}

// Clone returns an independent copy.
func (s *CategoricalSuffstats) Clone() Suffstats {
	return &CategoricalSuffstats{Counts: append([]int(nil), s.Counts...)}
}

func (s *CategoricalSuffstats) total() int {
	n := 0
	for _, c := range s.Counts {
		n += c
	}
	return n
}

// Categorical is a K-valued feature model with a conjugate Dirichlet prior.
type Categorical struct {
	// K is the number of categories; values range [0, K).
	K int
}

// NewCategorical builds a model over k categories.
func NewCategorical(k int) (Categorical, error) {
	if k < 2 {
		return Categorical{}, fmt.Errorf("k = %d, want >= 2: %w", k, ErrDefinition)
	}
	return Categorical{K: k}, nil
}

// Name returns the model identifier.
func (m Categorical) Name() string { return fmt.Sprintf("dirichlet-categorical-%d", m.K) }

// ValueKind returns data.Count.
func (Categorical) ValueKind() data.Kind { return data.Count }

// DefaultHyperparameters returns the symmetric Dirichlet(1, …, 1) prior.
func (m Categorical) DefaultHyperparameters() Hyperparameters {
	alpha := make([]float64, m.K)
	for i := range alpha {
		alpha[i] = 1
	}
	return &CategoricalHyperparameters{Alpha: alpha}
}

// ValidateHyperparameters checks type, arity K, and positivity.
func (m Categorical) ValidateHyperparameters(hp Hyperparameters) error {
	h, ok := hp.(*CategoricalHyperparameters)
	if !ok {
		return fmt.Errorf("got %T: %w", hp, ErrHyperType)
	}
	if len(h.Alpha) != m.K {
		return fmt.Errorf("got %d pseudo-counts, want %d: %w", len(h.Alpha), m.K, ErrHyperRange)
	}
	for i, a := range h.Alpha {
		if a <= 0 {
			return fmt.Errorf("alpha[%d]=%g, want > 0: %w", i, a, ErrHyperRange)
		}
	}
	return nil
}

// NewSuffstats returns an empty bag with K zeroed counts.
func (m Categorical) NewSuffstats() Suffstats {
	return &CategoricalSuffstats{Counts: make([]int, m.K)}
}

// EncodeHyperparameters serializes the bag as JSON.
func (m Categorical) EncodeHyperparameters(hp Hyperparameters) ([]byte, error) {
	if err := m.ValidateHyperparameters(hp); err != nil {
		return nil, err
	}
	return json.Marshal(hp)
}

// DecodeHyperparameters is the inverse of EncodeHyperparameters.
func (m Categorical) DecodeHyperparameters(raw []byte) (Hyperparameters, error) {
	var h CategoricalHyperparameters
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("categorical hyperparameters: %v: %w", err, ErrEncoding)
	}
	if err := m.ValidateHyperparameters(&h); err != nil {
		return nil, fmt.Errorf("categorical hyperparameters: %w", ErrEncoding)
	}
	return &h, nil
}

// EncodeSuffstats serializes the bag as JSON.
func (m Categorical) EncodeSuffstats(ss Suffstats) ([]byte, error) {
	s, ok := ss.(*CategoricalSuffstats)
	if !ok {
		return nil, fmt.Errorf("got %T: %w", ss, ErrStatsType)
	}
	if len(s.Counts) != m.K {
		return nil, fmt.Errorf("got %d counts, want %d: %w", len(s.Counts), m.K, ErrStatsType)
	}
	return json.Marshal(s)
}

// DecodeSuffstats is the inverse of EncodeSuffstats.
func (m Categorical) DecodeSuffstats(raw []byte) (Suffstats, error) {
	var s CategoricalSuffstats
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("categorical suffstats: %v: %w", err, ErrEncoding)
	}
	if len(s.Counts) != m.K {
		return nil, fmt.Errorf("categorical suffstats: got %d counts, want %d: %w", len(s.Counts), m.K, ErrEncoding)
	}
	for i, c := range s.Counts {
		if c < 0 {
			return nil, fmt.Errorf("categorical suffstats: counts[%d]=%d: %w", i, c, ErrEncoding)
		}
	}
	return &s, nil
}

func (m Categorical) checkValue(v data.Value) error {
	if v.Kind != data.Count {
		return fmt.Errorf("got %s, want count: %w", v.Kind, ErrValueKind)
	}
	if v.Int < 0 || v.Int >= m.K {
		return fmt.Errorf("category %d outside [0, %d): %w", v.Int, m.K, ErrCategoryRange)
	}
	return nil
}

// Add folds one categorical observation into the bag.
func (m Categorical) Add(ss Suffstats, v data.Value) error {
	s, ok := ss.(*CategoricalSuffstats)
	if !ok {
		return fmt.Errorf("got %T: %w", ss, ErrStatsType)
	}
	if err := m.checkValue(v); err != nil {
		return err
	}
	s.Counts[v.Int]++
	return nil
}

// Remove exactly inverts a previous Add of the same value.
func (m Categorical) Remove(ss Suffstats, v data.Value) error {
	s, ok := ss.(*CategoricalSuffstats)
	if !ok {
		return fmt.Errorf("got %T: %w", ss, ErrStatsType)
	}
	if err := m.checkValue(v); err != nil {
		return err
	}
	if s.Counts[v.Int] == 0 {
		return fmt.Errorf("categorical: %w", ErrStatsUnderflow)
	}
	s.Counts[v.Int]--
	return nil
}

// predictive returns the posterior-predictive mass per category.
func (m Categorical) predictive(s *CategoricalSuffstats, h *CategoricalHyperparameters) []float64 {
	sum := 0.0
	for _, a := range h.Alpha {
		sum += a
	}
	sum += float64(s.total())
	p := make([]float64, m.K)
	for k := range p {
		p[k] = (h.Alpha[k] + float64(s.Counts[k])) / sum
	}
	return p
}

// LogLikelihood returns the posterior-predictive log mass of v.
func (m Categorical) LogLikelihood(ss Suffstats, hp Hyperparameters, v data.Value) (float64, error) {
	s, ok := ss.(*CategoricalSuffstats)
	if !ok {
		return 0, fmt.Errorf("got %T: %w", ss, ErrStatsType)
	}
	h, ok := hp.(*CategoricalHyperparameters)
	if !ok {
		return 0, fmt.Errorf("got %T: %w", hp, ErrHyperType)
	}
	if err := m.checkValue(v); err != nil {
		return 0, err
	}
	return math.Log(m.predictive(s, h)[v.Int]), nil
}

// Marginal returns the Dirichlet–multinomial log marginal likelihood.
func (m Categorical) Marginal(ss Suffstats, hp Hyperparameters) (float64, error) {
	s, ok := ss.(*CategoricalSuffstats)
	if !ok {
		return 0, fmt.Errorf("got %T: %w", ss, ErrStatsType)
	}
	h, ok := hp.(*CategoricalHyperparameters)
	if !ok {
		return 0, fmt.Errorf("got %T: %w", hp, ErrHyperType)
	}
	alphaSum := 0.0
	out := 0.0
	for k, a := range h.Alpha {
		alphaSum += a
		lgAC, _ := math.Lgamma(a + float64(s.Counts[k]))
		lgA, _ := math.Lgamma(a)
		out += lgAC - lgA
	}
	lgS, _ := math.Lgamma(alphaSum)
	lgSN, _ := math.Lgamma(alphaSum + float64(s.total()))
	return out + lgS - lgSN, nil
}

// SamplePredictive draws one category from the posterior predictive.
func (m Categorical) SamplePredictive(ss Suffstats, hp Hyperparameters, rng *rand.Rand) (data.Value, error) {
	s, ok := ss.(*CategoricalSuffstats)
	if !ok {
		return data.Value{}, fmt.Errorf("got %T: %w", ss, ErrStatsType)
	}
	h, ok := hp.(*CategoricalHyperparameters)
	if !ok {
		return data.Value{}, fmt.Errorf("got %T: %w", hp, ErrHyperType)
	}
	draw := distuv.NewCategorical(m.predictive(s, h), rng)
	return data.CountValue(int(draw.Rand())), nil
}

var _ FeatureModel = Categorical{}

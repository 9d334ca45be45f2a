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

// BernoulliHyperparameters is the Beta prior over a binary feature.
type BernoulliHyperparameters struct {
	// Alpha is the pseudo-count of true observations.
	Alpha float64 `json:"alpha"`
	// Beta is the pseudo-count of false observations.
	Beta float64 `json:"beta"`
}

// Clone returns an independent copy.
func (h *BernoulliHyperparameters) Clone() Hyperparameters {
	c := *h
	return &c
}

// BernoulliSuffstats counts observations and how many were true.
type BernoulliSuffstats struct {
	N     int `json:"n"`
	Heads int `json:"heads"`
}

// Clone returns an independent copy.
func (s *BernoulliSuffstats) Clone() Suffstats {
	c := *s
	return &c
}

// Bernoulli is a binary feature model with a conjugate Beta prior.
type Bernoulli struct{}

// Name returns the model identifier.
func (Bernoulli) Name() string { return "beta-bernoulli" }

// ValueKind returns data.Bool.
func (Bernoulli) ValueKind() data.Kind { return data.Bool }

// DefaultHyperparameters returns the uniform Beta(1, 1) prior.
func (Bernoulli) DefaultHyperparameters() Hyperparameters {
	return &BernoulliHyperparameters{Alpha: 1, Beta: 1}
}

// ValidateHyperparameters checks type and domain (alpha, beta > 0).
func (Bernoulli) ValidateHyperparameters(hp Hyperparameters) error {
	h, ok := hp.(*BernoulliHyperparameters)
	if !ok {
		return fmt.Errorf("got %T: %w", hp, ErrHyperType)
	}
	if h.Alpha <= 0 || h.Beta <= 0 {
		return fmt.Errorf("alpha=%g beta=%g, want both > 0: %w", h.Alpha, h.Beta, ErrHyperRange)
	}
	return nil
}

// NewSuffstats returns an empty bag.
func (Bernoulli) NewSuffstats() Suffstats { return &BernoulliSuffstats{} }

// EncodeHyperparameters serializes the bag as JSON.
func (m Bernoulli) EncodeHyperparameters(hp Hyperparameters) ([]byte, error) {
	if err := m.ValidateHyperparameters(hp); err != nil {
		return nil, err
	}
	return json.Marshal(hp)
}

// DecodeHyperparameters is the inverse of EncodeHyperparameters.
func (m Bernoulli) DecodeHyperparameters(raw []byte) (Hyperparameters, error) {
	var h BernoulliHyperparameters
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("bernoulli hyperparameters: %v: %w", err, ErrEncoding)
	}
	if err := m.ValidateHyperparameters(&h); err != nil {
		return nil, fmt.Errorf("bernoulli hyperparameters: %w", ErrEncoding)
	}
	return &h, nil
}

// EncodeSuffstats serializes the bag as JSON.
func (Bernoulli) EncodeSuffstats(ss Suffstats) ([]byte, error) {
	s, ok := ss.(*BernoulliSuffstats)
	if !ok {
		return nil, fmt.Errorf("got %T: %w", ss, ErrStatsType)
	}
	return json.Marshal(s)
}

// DecodeSuffstats is the inverse of EncodeSuffstats.
func (Bernoulli) DecodeSuffstats(raw []byte) (Suffstats, error) {
	var s BernoulliSuffstats
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("bernoulli suffstats: %v: %w", err, ErrEncoding)
	}
	if s.N < 0 || s.Heads < 0 || s.Heads > s.N {
		return nil, fmt.Errorf("bernoulli suffstats: n=%d heads=%d: %w", s.N, s.Heads, ErrEncoding)
	}
	return &s, nil
}

// Add folds one binary observation into the bag.
func (Bernoulli) Add(ss Suffstats, v data.Value) error {
	s, ok := ss.(*BernoulliSuffstats)
	if !ok {
		return fmt.Errorf("got %T: %w", ss, ErrStatsType)
	}
	if v.Kind != data.Bool {
		return fmt.Errorf("got %s, want bool: %w", v.Kind, ErrValueKind)
	}
	s.N++
	if v.Bool {
		s.Heads++
	}
	return nil
}

// Remove exactly inverts a previous Add of the same value.
func (Bernoulli) Remove(ss Suffstats, v data.Value) error {
	s, ok := ss.(*BernoulliSuffstats)
	if !ok {
		return fmt.Errorf("got %T: %w", ss, ErrStatsType)
	}
	if v.Kind != data.Bool {
		return fmt.Errorf("got %s, want bool: %w", v.Kind, ErrValueKind)
	}
	if s.N == 0 || (v.Bool && s.Heads == 0) {
		return fmt.Errorf("bernoulli: %w", ErrStatsUnderflow)
	}
	s.N--
	if v.Bool {
		s.Heads--
	}
	return nil
}

// pTrue is the posterior-predictive probability of a true observation.
func (Bernoulli) pTrue(s *BernoulliSuffstats, h *BernoulliHyperparameters) float64 {
	return (h.Alpha + float64(s.Heads)) / (h.Alpha + h.Beta + float64(s.N))
}

// LogLikelihood returns the posterior-predictive log mass of v.
func (m Bernoulli) LogLikelihood(ss Suffstats, hp Hyperparameters, v data.Value) (float64, error) {
	s, ok := ss.(*BernoulliSuffstats)
	if !ok {
		return 0, fmt.Errorf("got %T: %w", ss, ErrStatsType)
	}
	h, ok := hp.(*BernoulliHyperparameters)
	if !ok {
		return 0, fmt.Errorf("got %T: %w", hp, ErrHyperType)
	}
	if v.Kind != data.Bool {
		return 0, fmt.Errorf("got %s, want bool: %w", v.Kind, ErrValueKind)
	}
	p := m.pTrue(s, h)
	if v.Bool {
		return math.Log(p), nil
	}
	return math.Log(1 - p), nil
}

// Marginal returns the Beta–Bernoulli log marginal likelihood of the bag.
func (Bernoulli) Marginal(ss Suffstats, hp Hyperparameters) (float64, error) {
	s, ok := ss.(*BernoulliSuffstats)
	if !ok {
		return 0, fmt.Errorf("got %T: %w", ss, ErrStatsType)
	}
	h, ok := hp.(*BernoulliHyperparameters)
	if !ok {
		return 0, fmt.Errorf("got %T: %w", hp, ErrHyperType)
	}
	heads := float64(s.Heads)
	tails := float64(s.N - s.Heads)
	return logBeta(h.Alpha+heads, h.Beta+tails) - logBeta(h.Alpha, h.Beta), nil
}

// SamplePredictive draws one value from the posterior predictive.
func (m Bernoulli) SamplePredictive(ss Suffstats, hp Hyperparameters, rng *rand.Rand) (data.Value, error) {
	s, ok := ss.(*BernoulliSuffstats)
	if !ok {
		return data.Value{}, fmt.Errorf("got %T: %w", ss, ErrStatsType)
	}
	h, ok := hp.(*BernoulliHyperparameters)
	if !ok {
		return data.Value{}, fmt.Errorf("got %T: %w", hp, ErrHyperType)
	}
	draw := distuv.Bernoulli{P: m.pTrue(s, h), Src: rng}.Rand()
	return data.BoolValue(draw == 1), nil
}

// logBeta is log B(a, b) via log-gamma.
func logBeta(a, b float64) float64 {
	la, _ := math.Lgamma(a)
	lb, _ := math.Lgamma(b)
	lab, _ := math.Lgamma(a + b)
	return la + lb - lab
}

var _ FeatureModel = Bernoulli{}

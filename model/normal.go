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

const logTwoPi = 1.8378770664093453

// NormalHyperparameters is the Normal–Inverse-Gamma prior over a Gaussian
// feature's mean and variance.
type NormalHyperparameters struct {
	// Mu is the prior mean.
	Mu float64 `json:"mu"`
	// Kappa is the pseudo-observation count backing the prior mean.
	Kappa float64 `json:"kappa"`
	// Alpha is the inverse-gamma shape on the variance.
	Alpha float64 `json:"alpha"`
	// Beta is the inverse-gamma scale on the variance.
	Beta float64 `json:"beta"`
}

// Clone returns an independent copy.
func (h *NormalHyperparameters) Clone() Hyperparameters {
	c := *h
	return &c
}

// NormalSuffstats accumulates count, sum, and sum of squares.
type NormalSuffstats struct {
	N     int     `json:"n"`
	Sum   float64 `json:"sum"`
	SumSq float64 `json:"sum_sq"`
}

// Clone returns an independent copy.
func (s *NormalSuffstats) Clone() Suffstats {
	c := *s
	return &c
}

// Normal is a Gaussian feature model with a conjugate Normal–Inverse-Gamma
// prior. The posterior predictive is a location-scale Student's t.
type Normal struct{}

// Name returns the model identifier.
func (Normal) Name() string { return "normal-inverse-gamma" }

// ValueKind returns data.Real.
func (Normal) ValueKind() data.Kind { return data.Real }

// DefaultHyperparameters returns a weakly informative standard prior.
func (Normal) DefaultHyperparameters() Hyperparameters {
	return &NormalHyperparameters{Mu: 0, Kappa: 1, Alpha: 1, Beta: 1}
}

// ValidateHyperparameters checks type and domain (kappa, alpha, beta > 0).
func (Normal) ValidateHyperparameters(hp Hyperparameters) error {
	h, ok := hp.(*NormalHyperparameters)
	if !ok {
		return fmt.Errorf("got %T: %w", hp, ErrHyperType)
	}
	if h.Kappa <= 0 || h.Alpha <= 0 || h.Beta <= 0 {
		return fmt.Errorf("kappa=%g alpha=%g beta=%g, want all > 0: %w", h.Kappa, h.Alpha, h.Beta, ErrHyperRange)
	}
	return nil
}

// NewSuffstats returns an empty bag.
func (Normal) NewSuffstats() Suffstats { return &NormalSuffstats{} }

// EncodeHyperparameters serializes the bag as JSON.
func (m Normal) EncodeHyperparameters(hp Hyperparameters) ([]byte, error) {
	if err := m.ValidateHyperparameters(hp); err != nil {
		return nil, err
	}
	return json.Marshal(hp)
}

// DecodeHyperparameters is the inverse of EncodeHyperparameters.
func (m Normal) DecodeHyperparameters(raw []byte) (Hyperparameters, error) {
	var h NormalHyperparameters
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("normal hyperparameters: %v: %w", err, ErrEncoding)
	}
	if err := m.ValidateHyperparameters(&h); err != nil {
		return nil, fmt.Errorf("normal hyperparameters: %w", ErrEncoding)
	}
	return &h, nil
}

// EncodeSuffstats serializes the bag as JSON.
func (Normal) EncodeSuffstats(ss Suffstats) ([]byte, error) {
	s, ok := ss.(*NormalSuffstats)
	if !ok {
		return nil, fmt.Errorf("got %T: %w", ss, ErrStatsType)
	}
	return json.Marshal(s)
}

// DecodeSuffstats is the inverse of EncodeSuffstats.
func (Normal) DecodeSuffstats(raw []byte) (Suffstats, error) {
	var s NormalSuffstats
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("normal suffstats: %v: %w", err, ErrEncoding)
	}
	if s.N < 0 {
		return nil, fmt.Errorf("normal suffstats: n=%d: %w", s.N, ErrEncoding)
	}
	return &s, nil
}

// Add folds one real observation into the bag.
func (Normal) Add(ss Suffstats, v data.Value) error {
	s, ok := ss.(*NormalSuffstats)
	if !ok {
		return fmt.Errorf("got %T: %w", ss, ErrStatsType)
	}
	if v.Kind != data.Real {
		return fmt.Errorf("got %s, want real: %w", v.Kind, ErrValueKind)
	}
	s.N++
	s.Sum += v.Real
	s.SumSq += v.Real * v.Real
	return nil
}

// Remove exactly inverts a previous Add of the same value.
func (Normal) Remove(ss Suffstats, v data.Value) error {
	s, ok := ss.(*NormalSuffstats)
	if !ok {
		return fmt.Errorf("got %T: %w", ss, ErrStatsType)
	}
	if v.Kind != data.Real {
		return fmt.Errorf("got %s, want real: %w", v.Kind, ErrValueKind)
	}
	if s.N == 0 {
		return fmt.Errorf("normal: %w", ErrStatsUnderflow)
	}
	s.N--
	s.Sum -= v.Real
	s.SumSq -= v.Real * v.Real
	return nil
}

// posterior folds the suffstats into the prior and returns the updated
// Normal–Inverse-Gamma parameters.
func (Normal) posterior(s *NormalSuffstats, h *NormalHyperparameters) (mu, kappa, alpha, beta float64) {
	n := float64(s.N)
	kappa = h.Kappa + n
	mu = (h.Kappa*h.Mu + s.Sum) / kappa
	alpha = h.Alpha + n/2
	beta = h.Beta
	if s.N > 0 {
		mean := s.Sum / n
		ssq := s.SumSq - n*mean*mean
		if ssq < 0 {
			ssq = 0 // float cancellation
		}
		d := mean - h.Mu
		beta += 0.5*ssq + h.Kappa*n*d*d/(2*kappa)
	}
	return mu, kappa, alpha, beta
}

// predictive returns the Student-t posterior predictive for one new value.
func (m Normal) predictive(s *NormalSuffstats, h *NormalHyperparameters, src rand.Source) distuv.StudentsT {
	mu, kappa, alpha, beta := m.posterior(s, h)
	scale := math.Sqrt(beta * (kappa + 1) / (alpha * kappa))
	return distuv.StudentsT{Mu: mu, Sigma: scale, Nu: 2 * alpha, Src: src}
}

// LogLikelihood returns the Student-t posterior-predictive log density.
func (m Normal) LogLikelihood(ss Suffstats, hp Hyperparameters, v data.Value) (float64, error) {
	s, ok := ss.(*NormalSuffstats)
	if !ok {
		return 0, fmt.Errorf("got %T: %w", ss, ErrStatsType)
	}
	h, ok := hp.(*NormalHyperparameters)
	if !ok {
		return 0, fmt.Errorf("got %T: %w", hp, ErrHyperType)
	}
	if v.Kind != data.Real {
		return 0, fmt.Errorf("got %s, want real: %w", v.Kind, ErrValueKind)
	}
	return m.predictive(s, h, nil).LogProb(v.Real), nil
}

// Marginal returns the closed-form log marginal likelihood of the bag.
func (m Normal) Marginal(ss Suffstats, hp Hyperparameters) (float64, error) {
	s, ok := ss.(*NormalSuffstats)
	if !ok {
		return 0, fmt.Errorf("got %T: %w", ss, ErrStatsType)
	}
	h, ok := hp.(*NormalHyperparameters)
	if !ok {
		return 0, fmt.Errorf("got %T: %w", hp, ErrHyperType)
	}
	if s.N == 0 {
		return 0, nil
	}
	_, kappaN, alphaN, betaN := m.posterior(s, h)
	lgA, _ := math.Lgamma(alphaN)
	lg0, _ := math.Lgamma(h.Alpha)
	n := float64(s.N)
	return lgA - lg0 +
		h.Alpha*math.Log(h.Beta) - alphaN*math.Log(betaN) +
		0.5*(math.Log(h.Kappa)-math.Log(kappaN)) -
		n/2*logTwoPi, nil
}

// SamplePredictive draws one value from the posterior predictive.
func (m Normal) SamplePredictive(ss Suffstats, hp Hyperparameters, rng *rand.Rand) (data.Value, error) {
	s, ok := ss.(*NormalSuffstats)
	if !ok {
		return data.Value{}, fmt.Errorf("got %T: %w", ss, ErrStatsType)
	}
	h, ok := hp.(*NormalHyperparameters)
	if !ok {
		return data.Value{}, fmt.Errorf("got %T: %w", hp, ErrHyperType)
	}
	return data.RealValue(m.predictive(s, h, rng).Rand()), nil
}

var _ FeatureModel = Normal{}

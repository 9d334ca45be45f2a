// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package model defines the per-feature probability model contract consumed
// by the mixture engine, plus three conjugate implementations (Normal with a
// Normal–Inverse-Gamma prior, Beta–Bernoulli, Dirichlet–Categorical) and the
// immutable ModelDefinition schema.
//
// Hyperparameters and sufficient statistics are opaque to the engine: it
// moves them around, clones them, and round-trips them through the encode/
// decode methods, but only a FeatureModel ever looks inside. Each model uses
// an explicit typed struct for both bags; there are no dynamic dictionaries.
//
// Thread Safety: FeatureModel implementations are stateless and safe for
// concurrent use; Suffstats and Hyperparameters values are not, and follow
// the single-owner discipline of the engine that holds them.
package model

import (
	"fmt"
	"math/rand/v2"

	"github.com/AleutianAI/mixturekit/data"
)

// Hyperparameters is an opaque per-feature hyperparameter bag. Concrete
// types live with their FeatureModel.
type Hyperparameters interface {
	// Clone returns an independent deep copy.
	Clone() Hyperparameters
}

// Suffstats is an opaque, incrementally updatable summary of the observed
// values a group has absorbed for one feature.
type Suffstats interface {
	// Clone returns an independent deep copy.
	Clone() Suffstats
}

// FeatureModel is the capability object for one feature distribution.
//
// Add and Remove must be exact algebraic inverses: any add/remove pair with
// the same value restores the suffstats bag to its prior contents.
type FeatureModel interface {
	// Name returns a stable identifier, e.g. "normal-inverse-gamma".
	Name() string

	// ValueKind returns the runtime kind of values this model accepts.
	ValueKind() data.Kind

	// DefaultHyperparameters returns a fresh bag of default hyperparameters.
	DefaultHyperparameters() Hyperparameters

	// ValidateHyperparameters rejects bags of the wrong type or outside the
	// model's valid domain.
	ValidateHyperparameters(hp Hyperparameters) error

	// NewSuffstats returns an empty suffstats bag.
	NewSuffstats() Suffstats

	// EncodeHyperparameters serializes a bag to self-contained bytes.
	EncodeHyperparameters(hp Hyperparameters) ([]byte, error)

	// DecodeHyperparameters is the inverse of EncodeHyperparameters.
	DecodeHyperparameters(raw []byte) (Hyperparameters, error)

	// EncodeSuffstats serializes a bag to self-contained bytes. Encoding is
	// canonical: equal bags encode to equal bytes.
	EncodeSuffstats(ss Suffstats) ([]byte, error)

	// DecodeSuffstats is the inverse of EncodeSuffstats.
	DecodeSuffstats(raw []byte) (Suffstats, error)

	// Add folds an observed value into the bag.
	Add(ss Suffstats, v data.Value) error

	// Remove exactly inverts a previous Add of the same value.
	Remove(ss Suffstats, v data.Value) error

	// LogLikelihood returns the posterior-predictive log density of v given
	// a group's suffstats and the feature hyperparameters.
	LogLikelihood(ss Suffstats, hp Hyperparameters, v data.Value) (float64, error)

	// Marginal returns the log marginal likelihood of all data absorbed
	// into the bag under the hyperparameters.
	Marginal(ss Suffstats, hp Hyperparameters) (float64, error)

	// SamplePredictive draws one value from the posterior predictive.
	SamplePredictive(ss Suffstats, hp Hyperparameters, rng *rand.Rand) (data.Value, error)
}

// Definition is the immutable schema shared by one or more mixture states:
// an ordered feature-model list, the entity count, and an optional fixed
// group cap (0 means an unbounded Dirichlet-process mixture).
type Definition struct {
	models    []FeatureModel
	entities  int
	maxGroups int
}

// DefinitionOption configures a Definition at construction.
type DefinitionOption func(*Definition)

// WithMaxGroups caps the number of simultaneously active groups, turning the
// definition into a fixed-capacity mixture.
func WithMaxGroups(k int) DefinitionOption {
	return func(d *Definition) { d.maxGroups = k }
}

// NewDefinition builds an immutable schema over the given feature models.
func NewDefinition(entities int, models []FeatureModel, opts ...DefinitionOption) (*Definition, error) {
	if entities <= 0 {
		return nil, fmt.Errorf("entities = %d, want > 0: %w", entities, ErrDefinition)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("no feature models: %w", ErrDefinition)
	}
	for f, m := range models {
		if m == nil {
			return nil, fmt.Errorf("feature %d is nil: %w", f, ErrDefinition)
		}
	}
	d := &Definition{
		models:   append([]FeatureModel(nil), models...),
		entities: entities,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.maxGroups < 0 {
		return nil, fmt.Errorf("max groups = %d, want >= 0: %w", d.maxGroups, ErrDefinition)
	}
	return d, nil
}

// Entities returns the fixed entity count.
func (d *Definition) Entities() int { return d.entities }

// Features returns the number of features.
func (d *Definition) Features() int { return len(d.models) }

// MaxGroups returns the group cap, or 0 for an unbounded mixture.
func (d *Definition) MaxGroups() int { return d.maxGroups }

// Model returns the feature model at index f. The index must be valid;
// callers validate before dispatching.
func (d *Definition) Model(f int) FeatureModel { return d.models[f] }

// ValueKinds returns the per-feature value kinds, used to type output rows.
func (d *Definition) ValueKinds() []data.Kind {
	kinds := make([]data.Kind, len(d.models))
	for f, m := range d.models {
		kinds[f] = m.ValueKind()
	}
	return kinds
}

// DefaultHyperparameters returns fresh default bags for every feature.
func (d *Definition) DefaultHyperparameters() []Hyperparameters {
	hps := make([]Hyperparameters, len(d.models))
	for f, m := range d.models {
		hps[f] = m.DefaultHyperparameters()
	}
	return hps
}

// Clone returns an independent copy of the definition. The feature models
// themselves are stateless and shared.
func (d *Definition) Clone() *Definition {
	return &Definition{
		models:    append([]FeatureModel(nil), d.models...),
		entities:  d.entities,
		maxGroups: d.maxGroups,
	}
}

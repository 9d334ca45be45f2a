// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates YAML run configurations for the
// mixturekit CLI: the dataset, the per-feature schema, the CRP
// concentration, and checkpoint settings.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/mixturekit/data"
	"github.com/AleutianAI/mixturekit/model"
)

// MaxYAMLFileSize is the maximum allowed config file size (1MB). Prevents
// memory issues from accidentally pointing the CLI at a data file.
const MaxYAMLFileSize = 1024 * 1024

// ErrConfig indicates an unreadable or invalid configuration.
var ErrConfig = errors.New("invalid config")

// Feature describes one column of the dataset.
type Feature struct {
	// Name labels the feature in logs and output.
	Name string `yaml:"name" validate:"required"`

	// Kind selects the feature model: real, bool, or categorical.
	Kind string `yaml:"kind" validate:"required,oneof=real bool categorical"`

	// Categories is the category count for categorical features.
	Categories int `yaml:"categories" validate:"required_if=Kind categorical,omitempty,min=2"`
}

// Checkpoint configures the badger-backed checkpoint store.
type Checkpoint struct {
	// Dir is the store directory. Empty disables checkpointing.
	Dir string `yaml:"dir"`

	// Run names the checkpoint stream; defaults to "default".
	Run string `yaml:"run"`
}

// Config is one CLI run configuration.
type Config struct {
	// Dataset is the CSV file path.
	Dataset string `yaml:"dataset" validate:"required"`

	// Header skips the first CSV record.
	Header bool `yaml:"header"`

	// Alpha is the CRP concentration; defaults to 1.0.
	Alpha float64 `yaml:"alpha" validate:"omitempty,gt=0"`

	// Seed seeds the run's random generator.
	Seed uint64 `yaml:"seed"`

	// MaxGroups caps active groups; 0 means unbounded.
	MaxGroups int `yaml:"max_groups" validate:"omitempty,min=1"`

	// Features is the column schema, in CSV order.
	Features []Feature `yaml:"features" validate:"required,min=1,dive"`

	Checkpoint Checkpoint `yaml:"checkpoint"`
}

// Load reads, parses, and validates a config file, applying defaults.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config: %v: %w", err, ErrConfig)
	}
	if info.Size() > MaxYAMLFileSize {
		return nil, fmt.Errorf("config file is %d bytes, limit %d: %w", info.Size(), MaxYAMLFileSize, ErrConfig)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %v: %w", err, ErrConfig)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %v: %w", err, ErrConfig)
	}
	if cfg.Alpha == 0 {
		cfg.Alpha = 1.0
	}
	if cfg.Checkpoint.Run == "" {
		cfg.Checkpoint.Run = "default"
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %v: %w", err, ErrConfig)
	}
	return &cfg, nil
}

// Models builds the feature-model list and the CSV column kinds from the
// schema.
func (c *Config) Models() ([]model.FeatureModel, []data.Kind, error) {
	models := make([]model.FeatureModel, len(c.Features))
	kinds := make([]data.Kind, len(c.Features))
	for i, f := range c.Features {
		switch f.Kind {
		case "real":
			models[i] = model.Normal{}
			kinds[i] = data.Real
		case "bool":
			models[i] = model.Bernoulli{}
			kinds[i] = data.Bool
		case "categorical":
			m, err := model.NewCategorical(f.Categories)
			if err != nil {
				return nil, nil, fmt.Errorf("feature %q: %v: %w", f.Name, err, ErrConfig)
			}
			models[i] = m
			kinds[i] = data.Count
		default:
			return nil, nil, fmt.Errorf("feature %q has kind %q: %w", f.Name, f.Kind, ErrConfig)
		}
	}
	return models, kinds, nil
}

// Definition loads the dataset and builds the matching immutable schema,
// returning both.
func (c *Config) Definition() (*model.Definition, *data.SliceView, error) {
	models, kinds, err := c.Models()
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(c.Dataset)
	if err != nil {
		return nil, nil, fmt.Errorf("open dataset: %v: %w", err, ErrConfig)
	}
	defer f.Close()

	view, err := data.ReadCSV(f, kinds, c.Header)
	if err != nil {
		return nil, nil, fmt.Errorf("dataset %s: %w", c.Dataset, err)
	}

	var opts []model.DefinitionOption
	if c.MaxGroups > 0 {
		opts = append(opts, model.WithMaxGroups(c.MaxGroups))
	}
	def, err := model.NewDefinition(view.Len(), models, opts...)
	if err != nil {
		return nil, nil, err
	}
	return def, view, nil
}

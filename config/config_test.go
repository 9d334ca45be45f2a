// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/mixturekit/data"
	"github.com/AleutianAI/mixturekit/model"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validYAML = `
dataset: data.csv
header: true
alpha: 0.5
seed: 7
features:
  - name: height
    kind: real
  - name: adult
    kind: bool
  - name: color
    kind: categorical
    categories: 3
checkpoint:
  dir: /tmp/ckpt
  run: experiment-1
`

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(writeFile(t, "run.yaml", validYAML))
	require.NoError(t, err)

	assert.Equal(t, "data.csv", cfg.Dataset)
	assert.True(t, cfg.Header)
	assert.Equal(t, 0.5, cfg.Alpha)
	assert.Equal(t, uint64(7), cfg.Seed)
	require.Len(t, cfg.Features, 3)
	assert.Equal(t, 3, cfg.Features[2].Categories)
	assert.Equal(t, "experiment-1", cfg.Checkpoint.Run)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "run.yaml", `
dataset: data.csv
features:
  - name: x
    kind: real
`))
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.Alpha)
	assert.Equal(t, "default", cfg.Checkpoint.Run)
	assert.Zero(t, cfg.MaxGroups)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing dataset": `
features:
  - name: x
    kind: real
`,
		"no features": `
dataset: data.csv
features: []
`,
		"bad kind": `
dataset: data.csv
features:
  - name: x
    kind: gaussian
`,
		"categorical without categories": `
dataset: data.csv
features:
  - name: x
    kind: categorical
`,
		"negative alpha": `
dataset: data.csv
alpha: -1
features:
  - name: x
    kind: real
`,
		"not yaml": `{{{`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "run.yaml", content))
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrConfig)
}

func TestModels(t *testing.T) {
	cfg := &Config{Features: []Feature{
		{Name: "h", Kind: "real"},
		{Name: "a", Kind: "bool"},
		{Name: "c", Kind: "categorical", Categories: 4},
	}}
	models, kinds, err := cfg.Models()
	require.NoError(t, err)
	assert.Equal(t, []data.Kind{data.Real, data.Bool, data.Count}, kinds)
	assert.IsType(t, model.Normal{}, models[0])
	assert.IsType(t, model.Bernoulli{}, models[1])
	assert.IsType(t, model.Categorical{}, models[2])
}

func TestDefinition(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("h,a\n1.5,true\n2.0,false\n,1\n"), 0o644))

	cfg := &Config{
		Dataset: csvPath,
		Header:  true,
		Alpha:   1.0,
		Features: []Feature{
			{Name: "h", Kind: "real"},
			{Name: "a", Kind: "bool"},
		},
		MaxGroups: 2,
	}
	def, view, err := cfg.Definition()
	require.NoError(t, err)
	assert.Equal(t, 3, def.Entities())
	assert.Equal(t, 2, def.Features())
	assert.Equal(t, 2, def.MaxGroups())
	assert.Equal(t, 3, view.Len())
}

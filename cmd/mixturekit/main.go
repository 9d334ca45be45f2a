// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command mixturekit drives the CRP mixture-model state engine from a YAML
// run configuration:
//
//	mixturekit init -c run.yaml         # initialize a state and checkpoint it
//	mixturekit score -c run.yaml        # score the checkpointed state
//	mixturekit sample -c run.yaml -n 5  # draw posterior-predictive rows
//	mixturekit checkpoints -c run.yaml  # list saved checkpoints
package main

import (
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/mixturekit/checkpoint"
	"github.com/AleutianAI/mixturekit/config"
	"github.com/AleutianAI/mixturekit/pkg/logging"
)

var (
	flagConfig   string
	flagLogLevel string

	logger *logging.Logger
)

func main() {
	root := &cobra.Command{
		Use:           "mixturekit",
		Short:         "Dirichlet-process mixture-model state engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.New(logging.Config{
				Level:   logging.ParseLevel(flagLogLevel),
				Service: "mixturekit",
			})
		},
	}
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "run.yaml", "run configuration file")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "debug, info, warn, or error")

	root.AddCommand(newInitCmd(), newScoreCmd(), newSampleCmd(), newCheckpointsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mixturekit: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the --config file.
func loadConfig() (*config.Config, error) {
	return config.Load(flagConfig)
}

// newRNG builds the run's explicit random generator from the config seed.
func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// openStore opens the configured checkpoint store.
func openStore(cfg *config.Config) (*checkpoint.Store, error) {
	if cfg.Checkpoint.Dir == "" {
		return nil, fmt.Errorf("config: checkpoint.dir is required for this command")
	}
	return checkpoint.Open(checkpoint.Config{
		Path:       cfg.Checkpoint.Dir,
		SyncWrites: true,
		Logger:     logger.Slog(),
	})
}

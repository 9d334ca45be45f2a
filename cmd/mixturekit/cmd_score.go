// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/mixturekit/mixture"
)

// loadState restores the newest checkpointed state for the configured run.
func loadState(cmd *cobra.Command) (*mixture.State, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	def, _, err := cfg.Definition()
	if err != nil {
		return nil, err
	}
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	blob, entry, err := store.Load(cmd.Context(), cfg.Checkpoint.Run)
	if err != nil {
		return nil, err
	}
	logger.Debug("checkpoint restored", "id", entry.ID, "created_at", entry.CreatedAt)
	return mixture.FromBytes(def, blob)
}

func newScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score",
		Short: "Print assignment, data, and joint log scores of the checkpointed state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			state, err := loadState(cmd)
			if err != nil {
				return err
			}
			rng := newRNG(cfg.Seed)

			dataScore, err := state.ScoreData(nil, nil, rng)
			if err != nil {
				return err
			}
			joint, err := state.ScoreJoint(rng)
			if err != nil {
				return err
			}
			fmt.Printf("groups:      %d\n", len(state.Groups()))
			fmt.Printf("assignment:  %.6f\n", state.ScoreAssignment())
			fmt.Printf("data:        %.6f\n", dataScore)
			fmt.Printf("joint:       %.6f\n", joint)
			return nil
		},
	}
}

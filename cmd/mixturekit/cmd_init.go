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

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a mixture state from the dataset and checkpoint it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			def, view, err := cfg.Definition()
			if err != nil {
				return err
			}
			rng := newRNG(cfg.Seed)

			state, err := mixture.FromData(def, view, rng, mixture.WithAlpha(cfg.Alpha))
			if err != nil {
				return err
			}
			joint, err := state.ScoreJoint(rng)
			if err != nil {
				return err
			}
			logger.Info("state initialized",
				"entities", state.Entities(),
				"features", def.Features(),
				"groups", len(state.Groups()),
				"alpha", cfg.Alpha,
				"joint", joint)

			blob, err := state.Serialize()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			entry, err := store.Save(cmd.Context(), cfg.Checkpoint.Run, blob)
			if err != nil {
				return err
			}
			fmt.Printf("checkpoint %s saved (run %s, %d bytes)\n", entry.ID, entry.Run, entry.Size)
			return nil
		},
	}
}

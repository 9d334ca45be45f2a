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
	"strings"

	"github.com/spf13/cobra"
)

func newSampleCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Draw posterior-predictive rows from the checkpointed state",
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

			for i := 0; i < n; i++ {
				gid, row, err := state.SamplePostPred(nil, rng)
				if err != nil {
					return err
				}
				cells := make([]string, len(row))
				for f, v := range row {
					cells[f] = v.String()
				}
				fmt.Printf("group=%d\t%s\n", gid, strings.Join(cells, ","))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 1, "number of rows to draw")
	return cmd
}

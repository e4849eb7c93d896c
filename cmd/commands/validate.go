/*
Copyright 2024 The Cryoproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cryoproj/forcingcache/pkg/store"
	"github.com/cryoproj/forcingcache/pkg/timeaxis"
)

func NewValidateCommand() *cobra.Command {
	var (
		period    float64
		reference float64
	)

	command := &cobra.Command{
		Use:   "validate <variable>",
		Short: "Check that a stored variable's time axis and records are usable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := args[0]

			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			times, bounds, err := st.TimeAxis(ctx, name)
			if err != nil {
				return err
			}
			if period > 0 {
				_, err = timeaxis.NewPeriodic(times, bounds, period, reference)
			} else {
				_, err = timeaxis.New(times, bounds)
			}
			if err != nil {
				return fmt.Errorf("variable %q: %w", name, err)
			}

			gridSize, err := st.GridSize(ctx, name)
			if err != nil {
				return err
			}

			// every record on the axis must be readable
			dst := make([]float64, gridSize)
			missing := 0
			for k := range times {
				if err := st.ReadRecord(ctx, name, k, dst); err != nil {
					var readErr *store.ReadError
					if errors.As(err, &readErr) {
						cmd.Printf("record %d: %v\n", k, readErr.Err)
						missing++
						continue
					}
					return err
				}
			}
			if missing > 0 {
				return fmt.Errorf("variable %q: %d of %d records unreadable", name, missing, len(times))
			}
			cmd.Printf("variable %q: %d records, all readable\n", name, len(times))
			return nil
		},
	}
	command.Flags().Float64Var(&period, "period", 0, "Treat the axis as periodic with this period")
	command.Flags().Float64Var(&reference, "reference", 0, "Reference time of the periodic axis")
	return command
}

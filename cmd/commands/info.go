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
	"github.com/spf13/cobra"

	"github.com/cryoproj/forcingcache/pkg/timeaxis"
)

func NewInfoCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "info <variable>",
		Short: "Print the time axis and grid size of a stored variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := args[0]

			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			count, err := st.RecordCount(ctx, name)
			if err != nil {
				return err
			}
			gridSize, err := st.GridSize(ctx, name)
			if err != nil {
				return err
			}
			times, bounds, err := st.TimeAxis(ctx, name)
			if err != nil {
				return err
			}
			axis, err := timeaxis.New(times, bounds)
			if err != nil {
				return err
			}

			cmd.Printf("variable:  %s\n", name)
			cmd.Printf("records:   %d\n", count)
			cmd.Printf("grid size: %d\n", gridSize)
			if count > 0 {
				t0, _ := axis.Bounds(0)
				_, t1 := axis.Bounds(axis.Len() - 1)
				cmd.Printf("covers:    [%g, %g)\n", t0, t1)
			}
			return nil
		},
	}
	return command
}

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
	"fmt"

	"github.com/montanaflynn/stats"
	"github.com/spf13/cobra"

	"github.com/cryoproj/forcingcache/pkg/forcing"
	"github.com/cryoproj/forcingcache/pkg/interpolation"
)

func NewSampleCommand() *cobra.Command {
	var (
		from      float64
		to        float64
		samples   int
		mode      string
		period    float64
		reference float64
	)

	command := &cobra.Command{
		Use:   "sample <variable>",
		Short: "Evaluate a variable over a time range and summarize the values",
		Long: `Evaluate a variable at equally spaced times over [--from, --to] and print,
per sample, the spatial mean of the interpolated field, followed by summary
statistics over the whole range.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := args[0]

			if to < from {
				return fmt.Errorf("--to (%g) must not precede --from (%g)", to, from)
			}
			if samples < 1 {
				return fmt.Errorf("--samples must be positive, got %d", samples)
			}
			m, err := interpolation.ParseMode(mode)
			if err != nil {
				return err
			}

			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			opts := []forcing.Option{forcing.WithMode(m)}
			if period > 0 {
				opts = append(opts, forcing.WithPeriod(period, reference))
			}
			f, err := forcing.New(ctx, st, name, opts...)
			if err != nil {
				return err
			}

			step := 0.0
			if samples > 1 {
				step = (to - from) / float64(samples-1)
			}
			means := make([]float64, samples)
			var rec []float64
			for k := 0; k < samples; k++ {
				t := from + float64(k)*step
				rec, err = f.At(ctx, t, rec)
				if err != nil {
					return err
				}
				mean, err := stats.Mean(rec)
				if err != nil {
					return err
				}
				means[k] = mean
				cmd.Printf("%g\t%g\n", t, mean)
			}

			min, err := stats.Min(means)
			if err != nil {
				return err
			}
			max, err := stats.Max(means)
			if err != nil {
				return err
			}
			mean, err := stats.Mean(means)
			if err != nil {
				return err
			}
			stdev, err := stats.StandardDeviation(means)
			if err != nil {
				return err
			}
			cmd.Printf("\nmin %g  max %g  mean %g  stdev %g\n", min, max, mean, stdev)
			return nil
		},
	}
	command.Flags().Float64Var(&from, "from", 0, "Start of the sampled time range")
	command.Flags().Float64Var(&to, "to", 0, "End of the sampled time range")
	command.Flags().IntVar(&samples, "samples", 11, "Number of equally spaced sample times")
	command.Flags().StringVar(&mode, "mode", "linear", `Interpolation mode, "piecewise-constant" or "linear"`)
	command.Flags().Float64Var(&period, "period", 0, "Treat the variable as periodic with this period")
	command.Flags().Float64Var(&reference, "reference", 0, "Reference time of the periodic variable")
	return command
}

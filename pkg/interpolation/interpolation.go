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

// Package interpolation computes per-query-time weights over a run of
// buffered forcing records. Given the record times currently held in memory
// and a list of query times, an Engine produces for each query a bracketing
// pair of record offsets and a blend factor. It never touches field data;
// applying the weights to the buffered records is the caller's business.
package interpolation

import (
	"errors"
	"fmt"
	"sort"
)

// Mode selects how a field value is reconstructed between record times.
type Mode int

const (
	// PiecewiseConstant holds each record's value fixed over its validity interval.
	PiecewiseConstant Mode = iota
	// Linear blends the two records bracketing the query time.
	Linear
	// LinearPeriodic is Linear on an axis that repeats with a fixed period;
	// queries past the last record wrap around to the first.
	LinearPeriodic
)

func (m Mode) String() string {
	switch m {
	case PiecewiseConstant:
		return "piecewise-constant"
	case Linear:
		return "linear"
	case LinearPeriodic:
		return "linear-periodic"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "piecewise-constant", "nearest":
		return PiecewiseConstant, nil
	case "linear":
		return Linear, nil
	case "linear-periodic":
		return LinearPeriodic, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
	}
}

var (
	// ErrUnsupportedMode is returned for interpolation modes other than the three defined ones.
	ErrUnsupportedMode = errors.New("unsupported interpolation mode")
	// ErrBadPeriod is returned when LinearPeriodic is requested without a positive period.
	ErrBadPeriod = errors.New("linear-periodic interpolation requires a positive period")
	// ErrNoKnots indicates a weight computation against an empty record run.
	// Coverage maintenance is supposed to make this impossible; seeing it is a bug.
	ErrNoKnots = errors.New("no buffered records to interpolate over")
)

// Weights holds the result of one Compute call: for query time i the value is
// (1-Alpha[i]) * record(Left[i]) + Alpha[i] * record(Right[i]), with Left and
// Right being offsets into the record run the weights were computed against.
type Weights struct {
	Left  []int
	Right []int
	Alpha []float64
}

// Len returns the number of query times the weights were computed for.
func (w *Weights) Len() int { return len(w.Alpha) }

// Engine computes interpolation weights for a fixed mode. The zero-valued
// Engine is not usable; construct with NewEngine so the mode is validated once.
type Engine struct {
	mode   Mode
	period float64
}

// NewEngine validates the mode and returns an Engine. period is only
// consulted in LinearPeriodic mode, where it must be positive.
func NewEngine(mode Mode, period float64) (*Engine, error) {
	switch mode {
	case PiecewiseConstant, Linear:
	case LinearPeriodic:
		if period <= 0 {
			return nil, ErrBadPeriod
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMode, mode)
	}
	return &Engine{mode: mode, period: period}, nil
}

// Mode returns the engine's interpolation mode.
func (e *Engine) Mode() Mode { return e.mode }

// Compute returns weights for the query times ts against the record times in
// knots. knots must be strictly increasing; in LinearPeriodic mode they must
// describe a single period and ts must already be folded into it. Query times
// outside the knot range are clamped to the nearest end in the non-periodic
// modes (the boundary record's value is reused, no extrapolation) and wrapped
// in LinearPeriodic mode. ts need not be sorted and may repeat.
func (e *Engine) Compute(knots []float64, ts []float64) (*Weights, error) {
	n := len(knots)
	if n == 0 {
		return nil, ErrNoKnots
	}
	w := &Weights{
		Left:  make([]int, len(ts)),
		Right: make([]int, len(ts)),
		Alpha: make([]float64, len(ts)),
	}
	if n == 1 {
		// a single record answers every query
		return w, nil
	}
	for i, t := range ts {
		switch e.mode {
		case PiecewiseConstant:
			l := leftIndex(knots, t)
			w.Left[i], w.Right[i] = l, l
		case Linear:
			l := leftIndex(knots, t)
			r := l + 1
			if t <= knots[0] || t >= knots[n-1] {
				// clamp: reuse the boundary record
				if t >= knots[n-1] {
					l = n - 1
				}
				w.Left[i], w.Right[i] = l, l
				continue
			}
			w.Left[i], w.Right[i] = l, r
			if knots[r] > knots[l] {
				w.Alpha[i] = (t - knots[l]) / (knots[r] - knots[l])
			}
		case LinearPeriodic:
			if t < knots[0] || t >= knots[n-1] {
				// wrap the gap between the last record and the first
				// record of the next period
				gap := e.period - (knots[n-1] - knots[0])
				d := t - knots[n-1]
				if t < knots[0] {
					d += e.period
				}
				w.Left[i], w.Right[i] = n-1, 0
				if gap > 0 {
					w.Alpha[i] = d / gap
				}
				continue
			}
			l := leftIndex(knots, t)
			r := l + 1
			w.Left[i], w.Right[i] = l, r
			if knots[r] > knots[l] {
				w.Alpha[i] = (t - knots[l]) / (knots[r] - knots[l])
			}
		}
	}
	return w, nil
}

// leftIndex returns the largest k with knots[k] <= t, clamped to 0.
func leftIndex(knots []float64, t float64) int {
	k := sort.SearchFloat64s(knots, t)
	if k < len(knots) && knots[k] == t {
		return k
	}
	if k == 0 {
		return 0
	}
	return k - 1
}

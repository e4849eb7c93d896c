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

// Package timeaxis implements the time dimension of a stored forcing variable:
// a strictly increasing sequence of record times, each with a validity
// interval, optionally reinterpreted as periodic. An Axis is built once from
// store metadata and never mutated afterwards.
package timeaxis

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrEmpty is returned when an axis is built with no records.
	ErrEmpty = errors.New("time axis must contain at least one record")
	// ErrNotIncreasing is returned when record times are not strictly increasing.
	ErrNotIncreasing = errors.New("record times must be strictly increasing")
	// ErrBadBounds is returned when the validity intervals are malformed or overlap.
	ErrBadBounds = errors.New("time bounds must be non-decreasing and cover disjoint or adjacent intervals")
	// ErrBadPeriod is returned when a periodic axis is built with a non-positive period.
	ErrBadPeriod = errors.New("period must be positive")
)

// Axis is the time dimension of a forcing variable. Record k is valid over
// the half-open interval [Bounds(k)).
type Axis struct {
	times  []float64
	bounds []float64 // len == 2*len(times), [t0_0, t1_0, t0_1, t1_1, ...]

	// period == 0 means non-periodic.
	period    float64
	reference float64
}

// New builds and validates a non-periodic axis. bounds may be nil, in which
// case SynthesizeBounds is applied.
func New(times, bounds []float64) (*Axis, error) {
	if bounds == nil {
		bounds = SynthesizeBounds(times)
	}
	a := &Axis{times: times, bounds: bounds}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// NewPeriodic builds a periodic axis. The axis must describe exactly one
// period starting at referenceTime; query times are folded into
// [referenceTime, referenceTime+period) before lookups.
func NewPeriodic(times, bounds []float64, period, referenceTime float64) (*Axis, error) {
	if period <= 0 {
		return nil, ErrBadPeriod
	}
	if bounds == nil {
		bounds = SynthesizeBounds(times)
	}
	a := &Axis{times: times, bounds: bounds, period: period, reference: referenceTime}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// SynthesizeBounds generates validity intervals for records that carry no
// explicit time bounds: each record is valid until the next record's time.
// The last interval (and the only interval of a single-record axis) gets a
// unit-length stand-in, which is enough to make every query fall somewhere.
func SynthesizeBounds(times []float64) []float64 {
	n := len(times)
	if n == 1 {
		return []float64{times[0] - 1, times[0] + 1}
	}
	bounds := make([]float64, 2*n)
	for k := 0; k < n; k++ {
		bounds[2*k] = times[k]
		if k+1 < n {
			bounds[2*k+1] = times[k+1]
		} else {
			bounds[2*k+1] = times[k] + 1
		}
	}
	return bounds
}

func (a *Axis) validate() error {
	n := len(a.times)
	if n == 0 {
		return ErrEmpty
	}
	for k := 1; k < n; k++ {
		if a.times[k] <= a.times[k-1] {
			return fmt.Errorf("%w: time[%d]=%g, time[%d]=%g", ErrNotIncreasing, k-1, a.times[k-1], k, a.times[k])
		}
	}
	if len(a.bounds) != 2*n {
		return fmt.Errorf("%w: got %d bounds for %d records", ErrBadBounds, len(a.bounds), n)
	}
	for k := 0; k < n; k++ {
		if a.bounds[2*k] > a.bounds[2*k+1] {
			return fmt.Errorf("%w: record %d has reversed interval [%g, %g)", ErrBadBounds, k, a.bounds[2*k], a.bounds[2*k+1])
		}
		if k > 0 && a.bounds[2*k] < a.bounds[2*k-1] {
			return fmt.Errorf("%w: record %d starts at %g before record %d ends at %g", ErrBadBounds, k, a.bounds[2*k], k-1, a.bounds[2*k-1])
		}
	}
	return nil
}

// Len returns the number of records on the axis.
func (a *Axis) Len() int { return len(a.times) }

// Time returns the time stamp of record k.
func (a *Axis) Time(k int) float64 { return a.times[k] }

// Times returns the record times. The returned slice is shared with the
// axis and must not be modified.
func (a *Axis) Times() []float64 { return a.times }

// Bounds returns the validity interval of record k.
func (a *Axis) Bounds(k int) (float64, float64) { return a.bounds[2*k], a.bounds[2*k+1] }

// Periodic reports whether the axis repeats with a fixed period.
func (a *Axis) Periodic() bool { return a.period != 0 }

// Period returns the period, 0 if non-periodic.
func (a *Axis) Period() float64 { return a.period }

// Reference returns the reference time of a periodic axis.
func (a *Axis) Reference() float64 { return a.reference }

// Fold maps t to its representative in [reference, reference+period) on a
// periodic axis; on a non-periodic axis it returns t unchanged.
func (a *Axis) Fold(t float64) float64 {
	if a.period == 0 {
		return t
	}
	r := math.Mod(t-a.reference, a.period)
	if r < 0 {
		r += a.period
	}
	return a.reference + r
}

// LeftIndex returns the largest k with Time(k) <= t, clamped to 0 when t
// precedes the first record.
func (a *Axis) LeftIndex(t float64) int {
	k := sort.SearchFloat64s(a.times, t)
	if k < len(a.times) && a.times[k] == t {
		return k
	}
	if k == 0 {
		return 0
	}
	return k - 1
}

// RightIndex returns the smallest k with Time(k) >= t, clamped to the last
// record when t follows it.
func (a *Axis) RightIndex(t float64) int {
	k := sort.SearchFloat64s(a.times, t)
	if k == len(a.times) {
		return len(a.times) - 1
	}
	return k
}

// MaxStep returns the largest dt such that [t, t+dt] stays within the
// validity interval that t falls into. When the remaining length of the
// current interval is minStep or shorter, the following record's full
// interval length is reported instead, so the caller is not forced into a
// degenerate step right at a record transition. The second return value is
// false when t is at or past the last interval's end and no restriction
// applies.
func (a *Axis) MaxStep(t, minStep float64) (float64, bool) {
	k := a.LeftIndex(t)
	dt := math.Max(a.bounds[2*k+1]-t, 0)
	if dt > minStep {
		return dt, true
	}
	if k+1 < len(a.times) {
		return a.bounds[2*(k+1)+1] - a.bounds[2*(k+1)], true
	}
	return 0, false
}

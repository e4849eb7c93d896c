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

// Package forcing implements time-dependent boundary forcing fields (ocean
// temperature, surface mass balance, ...) read from a record store and
// cached in a bounded window. A Field answers three kinds of queries -
// the record value at a time, the interpolated value at a time, and the
// mean value over an interval - while lazily keeping its window stocked to
// cover the requested times.
//
// A Field is built once from store metadata, used by a single owner for the
// duration of a run, and dropped; it is not safe for concurrent use.
package forcing

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/cryoproj/forcingcache/pkg/interpolation"
	"github.com/cryoproj/forcingcache/pkg/shared/logging"
	"github.com/cryoproj/forcingcache/pkg/store"
	"github.com/cryoproj/forcingcache/pkg/timeaxis"
	"github.com/cryoproj/forcingcache/pkg/window"
)

// Field is a cached, time-dependent forcing variable.
type Field struct {
	name     string
	store    store.RecordStore
	axis     *timeaxis.Axis
	buf      *window.Buffer
	engine   *interpolation.Engine
	gridSize int

	sampleRate float64
	minStep    float64

	// constant is set instead of store/buf for fields that are constant in
	// time and space.
	constant []float64

	log *zap.SugaredLogger
}

// New builds a Field for the named variable of the store. The store's
// metadata (record count, time axis, grid size) is read once here; record
// data is fetched lazily, except for periodic fields which are read in full
// right away since they are kept resident for the whole run.
func New(ctx context.Context, st store.RecordStore, name string, opts ...Option) (*Field, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	count, err := st.RecordCount(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", name, err)
	}
	times, bounds, err := st.TimeAxis(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", name, err)
	}
	gridSize, err := st.GridSize(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", name, err)
	}

	periodic := o.period > 0
	mode := o.mode
	if periodic && mode == interpolation.Linear {
		mode = interpolation.LinearPeriodic
	}

	var axis *timeaxis.Axis
	if periodic {
		axis, err = timeaxis.NewPeriodic(times, bounds, o.period, o.reference)
	} else {
		axis, err = timeaxis.New(times, bounds)
	}
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", name, err)
	}

	engine, err := interpolation.NewEngine(mode, o.period)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", name, err)
	}

	capacity := count
	if !periodic && o.bufferSize < capacity {
		capacity = o.bufferSize
	}

	log := o.logger
	if log == nil {
		log = logging.NewLogger()
	}
	log = log.With("field", name)

	buf, err := window.New(st, name, axis, mode, capacity, gridSize, window.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", name, err)
	}

	f := &Field{
		name:       name,
		store:      st,
		axis:       axis,
		buf:        buf,
		engine:     engine,
		gridSize:   gridSize,
		sampleRate: o.sampleRate,
		minStep:    o.minStep,
		log:        log,
	}

	if periodic {
		// periodic data is held in full for the whole run
		if err := buf.LoadFrom(ctx, 0); err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		log.Infow("loaded periodic forcing data",
			zap.Int("records", count), zap.Float64("period", o.period))
	}
	return f, nil
}

// Constant returns a Field that evaluates to value at every grid point and
// every time, used when a variable is absent from the input.
func Constant(name string, value float64, gridSize int) *Field {
	data := make([]float64, gridSize)
	for i := range data {
		data[i] = value
	}
	return &Field{
		name:     name,
		gridSize: gridSize,
		constant: data,
		log:      logging.NewLogger().With("field", name),
	}
}

// Name returns the variable name.
func (f *Field) Name() string { return f.name }

// GridSize returns the number of spatial values per record.
func (f *Field) GridSize() int { return f.gridSize }

// BufferSize returns the number of record slots this field buffers;
// 0 for constant fields.
func (f *Field) BufferSize() int {
	if f.constant != nil {
		return 0
	}
	return f.buf.Capacity()
}

// Update makes sure the records covering [t, t+dt] are buffered. It is a
// no-op when the window already covers the interval, which is the dominant
// case in steady time stepping. Periodic and constant fields never refetch.
func (f *Field) Update(ctx context.Context, t, dt float64) error {
	if f.constant != nil {
		return nil
	}
	if f.axis.Periodic() {
		return nil
	}
	return f.buf.EnsureCoverage(ctx, t, t+dt)
}

// PointValue returns the stored record whose validity interval contains t,
// with no blending between records. dst is reused when it has the right
// length, otherwise a fresh slice is allocated.
func (f *Field) PointValue(ctx context.Context, t float64, dst []float64) ([]float64, error) {
	dst = f.ensureDst(dst)
	if f.constant != nil {
		copy(dst, f.constant)
		return dst, nil
	}
	k := f.axis.LeftIndex(f.axis.Fold(t))
	if k < f.buf.First() || k >= f.buf.First()+f.buf.Len() {
		if err := f.buf.LoadFrom(ctx, k); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.name, err)
		}
	}
	copy(dst, f.buf.Slot(k-f.buf.First()))
	pointQueries.WithLabelValues(f.name).Inc()
	return dst, nil
}

// At returns the field interpolated to time t. dst is reused when it has
// the right length, otherwise a fresh slice is allocated.
func (f *Field) At(ctx context.Context, t float64, dst []float64) ([]float64, error) {
	dst = f.ensureDst(dst)
	if f.constant != nil {
		copy(dst, f.constant)
		return dst, nil
	}
	if err := f.Update(ctx, t, 0); err != nil {
		return nil, err
	}
	w, err := f.engine.Compute(f.buf.Times(), []float64{f.axis.Fold(t)})
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", f.name, err)
	}
	f.blend(dst, w, 0)
	evaluations.WithLabelValues(f.name).Inc()
	return dst, nil
}

// Average returns the mean of the field over [t, t+dt) using the rectangle
// rule with max(1, ceil(sampleRate*dt)) equally spaced samples. The
// interpolation weights for all samples are computed in one pass, so the
// setup cost is paid once per call, not per sample.
func (f *Field) Average(ctx context.Context, t, dt float64, dst []float64) ([]float64, error) {
	if f.constant != nil {
		dst = f.ensureDst(dst)
		copy(dst, f.constant)
		return dst, nil
	}
	if f.axis.Len() == 1 || dt <= 0 {
		return f.At(ctx, t, dst)
	}
	dst = f.ensureDst(dst)

	if err := f.Update(ctx, t, dt); err != nil {
		return nil, err
	}

	m := int(math.Ceil(f.sampleRate * dt))
	if m < 1 {
		m = 1
	}
	ts := make([]float64, m)
	step := dt / float64(m)
	for k := range ts {
		ts[k] = f.axis.Fold(t + float64(k)*step)
	}

	w, err := f.engine.Compute(f.buf.Times(), ts)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", f.name, err)
	}

	for i := range dst {
		dst[i] = 0
	}
	tmp := make([]float64, f.gridSize)
	for k := 0; k < m; k++ {
		f.blend(tmp, w, k)
		for i := range dst {
			dst[i] += tmp[i]
		}
	}
	inv := 1 / float64(m)
	for i := range dst {
		dst[i] *= inv
	}
	averages.WithLabelValues(f.name).Inc()
	return dst, nil
}

// MaxTimestep returns the largest dt such that [t, t+dt] stays within the
// validity interval t falls into, so a time-stepping controller never
// averages across a record transition unknowingly. The second return value
// is false when no restriction applies.
func (f *Field) MaxTimestep(t float64) (float64, bool) {
	if f.constant != nil {
		return 0, false
	}
	return f.axis.MaxStep(t, f.minStep)
}

// blend writes the weighted combination for query k of w into dst.
func (f *Field) blend(dst []float64, w *interpolation.Weights, k int) {
	left := f.buf.Slot(w.Left[k])
	alpha := w.Alpha[k]
	if alpha == 0 {
		copy(dst, left)
		return
	}
	right := f.buf.Slot(w.Right[k])
	for i := range dst {
		dst[i] = (1-alpha)*left[i] + alpha*right[i]
	}
}

func (f *Field) ensureDst(dst []float64) []float64 {
	if len(dst) != f.gridSize {
		return make([]float64, f.gridSize)
	}
	return dst
}

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

package forcing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryoproj/forcingcache/pkg/interpolation"
	"github.com/cryoproj/forcingcache/pkg/store/inmem"
	"github.com/cryoproj/forcingcache/pkg/window"
)

const gridSize = 3

// constRecord is a spatially constant record, so interpolation results can
// be checked against scalar arithmetic.
func constRecord(v float64) []float64 {
	rec := make([]float64, gridSize)
	for i := range rec {
		rec[i] = v
	}
	return rec
}

// threeRecordStore has records valued 100, 200, 300 at times 0, 10, 20 with
// validity intervals [0,10), [10,20), [20,30).
func threeRecordStore(t *testing.T) *inmem.Store {
	t.Helper()
	st := inmem.New()
	require.NoError(t, st.AddVariable("theta",
		[]float64{0, 10, 20},
		[]float64{0, 10, 10, 20, 20, 30},
		[][]float64{constRecord(100), constRecord(200), constRecord(300)}))
	return st
}

func TestAtOnRecordTimes(t *testing.T) {
	ctx := context.Background()
	for _, mode := range []interpolation.Mode{interpolation.PiecewiseConstant, interpolation.Linear} {
		f, err := New(ctx, threeRecordStore(t), "theta", WithMode(mode))
		require.NoError(t, err)

		for k, want := range []float64{100, 200, 300} {
			got, err := f.At(ctx, float64(k*10), nil)
			require.NoError(t, err)
			assert.Equal(t, constRecord(want), got, "mode %s at record %d", mode, k)
		}
	}
}

func TestAtLinearMidpoint(t *testing.T) {
	ctx := context.Background()
	f, err := New(ctx, threeRecordStore(t), "theta")
	require.NoError(t, err)

	got, err := f.At(ctx, 15, nil)
	require.NoError(t, err)
	assert.Equal(t, constRecord(250), got, "midpoint is the arithmetic mean of the bracketing records")
}

func TestAtPiecewiseConstantHoldsValue(t *testing.T) {
	ctx := context.Background()
	f, err := New(ctx, threeRecordStore(t), "theta", WithMode(interpolation.PiecewiseConstant))
	require.NoError(t, err)

	for _, tq := range []float64{10, 13, 19.99} {
		got, err := f.At(ctx, tq, nil)
		require.NoError(t, err)
		assert.Equal(t, constRecord(200), got, "t=%g", tq)
	}
}

func TestAtClampsOutsideAxis(t *testing.T) {
	ctx := context.Background()
	f, err := New(ctx, threeRecordStore(t), "theta")
	require.NoError(t, err)

	got, err := f.At(ctx, -100, nil)
	require.NoError(t, err)
	assert.Equal(t, constRecord(100), got, "before the first record: boundary value reused")

	got, err = f.At(ctx, 1000, nil)
	require.NoError(t, err)
	assert.Equal(t, constRecord(300), got, "after the last record: boundary value reused")
}

func TestWindowedEvaluationAfterShift(t *testing.T) {
	ctx := context.Background()
	st := threeRecordStore(t)
	f, err := New(ctx, st, "theta", WithBufferSize(2))
	require.NoError(t, err)

	require.NoError(t, f.Update(ctx, 0, 5))
	assert.Equal(t, 0, st.ReadCount("theta", 2))

	// [15, 18] ends inside record 1's validity interval, but blending at
	// t=18 needs record 2: the update must fetch it even though no query
	// time falls past t=20.
	require.NoError(t, f.Update(ctx, 15, 3))
	assert.Equal(t, 1, st.ReadCount("theta", 2), "right-bracketing record fetched by the shift")
	assert.Equal(t, 1, st.ReadCount("theta", 1), "overlapping record kept, not re-read")

	got, err := f.At(ctx, 15, nil)
	require.NoError(t, err)
	assert.Equal(t, constRecord(250), got, "0.5*rec(10) + 0.5*rec(20) after the window shifted")
}

func TestUpdateTooWide(t *testing.T) {
	ctx := context.Background()
	f, err := New(ctx, threeRecordStore(t), "theta", WithBufferSize(2))
	require.NoError(t, err)

	err = f.Update(ctx, 0, 25)
	var tooSmall window.TooSmallErr
	assert.ErrorAs(t, err, &tooSmall)
}

func TestPointValue(t *testing.T) {
	ctx := context.Background()
	f, err := New(ctx, threeRecordStore(t), "theta")
	require.NoError(t, err)

	got, err := f.PointValue(ctx, 15, nil)
	require.NoError(t, err)
	assert.Equal(t, constRecord(200), got, "no blending, the containing record's value")
}

func TestPeriodicEvaluation(t *testing.T) {
	ctx := context.Background()
	st := threeRecordStore(t)
	f, err := New(ctx, st, "theta", WithPeriod(30, 0))
	require.NoError(t, err)

	// all records were read at construction
	for k := 0; k < 3; k++ {
		assert.Equal(t, 1, st.ReadCount("theta", k))
	}

	for _, tq := range []float64{0, 5, 15, 25} {
		base, err := f.At(ctx, tq, nil)
		require.NoError(t, err)
		for _, shift := range []float64{30, 90, -30} {
			got, err := f.At(ctx, tq+shift, nil)
			require.NoError(t, err)
			assert.Equal(t, base, got, "At(%g) vs At(%g)", tq, tq+shift)
		}
	}

	// no further store reads were needed for any of the queries
	for k := 0; k < 3; k++ {
		assert.Equal(t, 1, st.ReadCount("theta", k))
	}

	// halfway across the wrap between the last record (t=20) and the first
	// record of the next period (t=30)
	got, err := f.At(ctx, 25, nil)
	require.NoError(t, err)
	assert.Equal(t, constRecord(200), got, "0.5*rec(20) + 0.5*rec(0)")
}

func TestAverageRectangleRule(t *testing.T) {
	ctx := context.Background()
	f, err := New(ctx, threeRecordStore(t), "theta", WithSampleRate(0.4))
	require.NoError(t, err)

	// 4 samples at t = 10, 12.5, 15, 17.5 of the linear ramp from 200 to 300
	got, err := f.Average(ctx, 10, 10, nil)
	require.NoError(t, err)
	assert.InDelta(t, 237.5, got[0], 1e-12)
}

func TestAverageConvergesToAt(t *testing.T) {
	ctx := context.Background()
	f, err := New(ctx, threeRecordStore(t), "theta", WithSampleRate(100))
	require.NoError(t, err)

	at, err := f.At(ctx, 12, nil)
	require.NoError(t, err)

	prev := 1e300
	for _, dt := range []float64{1, 0.1, 0.01} {
		avg, err := f.Average(ctx, 12, dt, nil)
		require.NoError(t, err)
		diff := avg[0] - at[0]
		if diff < 0 {
			diff = -diff
		}
		assert.Less(t, diff, 10*dt, "dt=%g", dt)
		assert.LessOrEqual(t, diff, prev, "error shrinks with dt")
		prev = diff
	}
}

func TestAverageZeroLengthInterval(t *testing.T) {
	ctx := context.Background()
	f, err := New(ctx, threeRecordStore(t), "theta")
	require.NoError(t, err)

	at, err := f.At(ctx, 12, nil)
	require.NoError(t, err)
	avg, err := f.Average(ctx, 12, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, at, avg)
}

func TestSingleRecordField(t *testing.T) {
	ctx := context.Background()
	st := inmem.New()
	require.NoError(t, st.AddVariable("salinity", []float64{0}, nil, [][]float64{constRecord(35)}))

	f, err := New(ctx, st, "salinity")
	require.NoError(t, err)

	for _, tq := range []float64{-1000, 0, 1000} {
		got, err := f.At(ctx, tq, nil)
		require.NoError(t, err)
		assert.Equal(t, constRecord(35), got, "t=%g", tq)
	}

	avg, err := f.Average(ctx, 50, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, constRecord(35), avg)
}

func TestConstantField(t *testing.T) {
	ctx := context.Background()
	f := Constant("salinity", 35, gridSize)

	got, err := f.At(ctx, 123, nil)
	require.NoError(t, err)
	assert.Equal(t, constRecord(35), got)

	avg, err := f.Average(ctx, 0, 100, nil)
	require.NoError(t, err)
	assert.Equal(t, constRecord(35), avg)

	pv, err := f.PointValue(ctx, -5, nil)
	require.NoError(t, err)
	assert.Equal(t, constRecord(35), pv)

	_, bounded := f.MaxTimestep(0)
	assert.False(t, bounded)
	assert.Equal(t, 0, f.BufferSize())
}

func TestMaxTimestep(t *testing.T) {
	ctx := context.Background()
	f, err := New(ctx, threeRecordStore(t), "theta")
	require.NoError(t, err)

	dt, bounded := f.MaxTimestep(3)
	assert.True(t, bounded)
	assert.Equal(t, 7.0, dt)

	// within the default minimum step of a transition: next interval's length
	dt, bounded = f.MaxTimestep(9.5)
	assert.True(t, bounded)
	assert.Equal(t, 10.0, dt)

	_, bounded = f.MaxTimestep(50)
	assert.False(t, bounded)
}

func TestMaxTimestepCustomFloor(t *testing.T) {
	ctx := context.Background()
	f, err := New(ctx, threeRecordStore(t), "theta", WithMinStep(0))
	require.NoError(t, err)

	dt, bounded := f.MaxTimestep(9.5)
	assert.True(t, bounded)
	assert.Equal(t, 0.5, dt, "no floor: the degenerate remainder is reported")
}

func TestDstReuse(t *testing.T) {
	ctx := context.Background()
	f, err := New(ctx, threeRecordStore(t), "theta")
	require.NoError(t, err)

	dst := make([]float64, gridSize)
	got, err := f.At(ctx, 15, dst)
	require.NoError(t, err)
	assert.Equal(t, &dst[0], &got[0], "caller-provided slice of the right size is reused")
}

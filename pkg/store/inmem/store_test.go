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

package inmem

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryoproj/forcingcache/pkg/metrics"
	"github.com/cryoproj/forcingcache/pkg/store"
)

func TestAddVariableAndRead(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.AddVariable("smb",
		[]float64{0, 10},
		[]float64{0, 10, 10, 20},
		[][]float64{{1, 2}, {3, 4}}))

	count, err := s.RecordCount(ctx, "smb")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	gridSize, err := s.GridSize(ctx, "smb")
	require.NoError(t, err)
	assert.Equal(t, 2, gridSize)

	times, bounds, err := s.TimeAxis(ctx, "smb")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 10}, times)
	assert.Equal(t, []float64{0, 10, 10, 20}, bounds)

	before := testutil.ToFloat64(metrics.RecordReads.WithLabelValues("inmem", "smb"))
	dst := make([]float64, 2)
	require.NoError(t, s.ReadRecord(ctx, "smb", 1, dst))
	assert.Equal(t, []float64{3, 4}, dst)
	assert.Equal(t, 1, s.ReadCount("smb", 1))
	assert.Equal(t, 0, s.ReadCount("smb", 0))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RecordReads.WithLabelValues("inmem", "smb")))
}

func TestAddVariableValidation(t *testing.T) {
	s := New()
	assert.Error(t, s.AddVariable("smb", []float64{0, 10}, nil, [][]float64{{1}}), "record/time count mismatch")
	assert.Error(t, s.AddVariable("smb", nil, nil, nil), "no records")
}

func TestReadErrors(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.AddVariable("smb", []float64{0}, nil, [][]float64{{1, 2}}))

	dst := make([]float64, 2)
	assert.ErrorIs(t, s.ReadRecord(ctx, "nope", 0, dst), store.ErrVariableNotFound)
	assert.ErrorIs(t, s.ReadRecord(ctx, "smb", 7, dst), store.ErrRecordNotFound)
	assert.ErrorIs(t, s.ReadRecord(ctx, "smb", 0, make([]float64, 3)), store.ErrGridSizeMismatch)
}

func TestWriteValidation(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateVariable(ctx, "smb", []float64{0}, nil, 2))

	assert.ErrorIs(t, s.WriteRecord(ctx, "nope", 0, []float64{1, 2}), store.ErrVariableNotFound)
	assert.ErrorIs(t, s.WriteRecord(ctx, "smb", 3, []float64{1, 2}), store.ErrRecordNotFound)
	assert.ErrorIs(t, s.WriteRecord(ctx, "smb", 0, []float64{1}), store.ErrGridSizeMismatch)

	dst := make([]float64, 2)
	assert.ErrorIs(t, s.ReadRecord(ctx, "smb", 0, dst), store.ErrRecordNotFound, "registered but unwritten record")
	require.NoError(t, s.WriteRecord(ctx, "smb", 0, []float64{1, 2}))
	require.NoError(t, s.ReadRecord(ctx, "smb", 0, dst))
	assert.Equal(t, []float64{1, 2}, dst)
}

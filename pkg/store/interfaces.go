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

// Package store defines the record store contract: the keyed, time-indexed
// storage that forcing fields are read from. A store holds, per variable
// name, a sequence of records (one flattened spatial field each) together
// with their time stamps and validity intervals. Backends live in
// subpackages (inmem, sqlite, redis).
package store

import "context"

// RecordStore is the read side of a forcing-data archive.
//
// ReadRecord may be a collective operation in a parallel run: every rank must
// call it at the same point with the same arguments. Callers must therefore
// never invoke it conditionally on rank-local data. None of the methods are
// retried by callers; a failed read aborts the run.
type RecordStore interface {
	// RecordCount returns the number of records stored for the variable.
	RecordCount(ctx context.Context, name string) (int, error)
	// TimeAxis returns the record time stamps and the flattened validity
	// intervals [t0_0, t1_0, t0_1, t1_1, ...]. bounds may be nil when the
	// backend stores no interval information.
	TimeAxis(ctx context.Context, name string) (times []float64, bounds []float64, err error)
	// GridSize returns the number of spatial values per record of the variable.
	GridSize(ctx context.Context, name string) (int, error)
	// ReadRecord reads record index of the variable into dst, which must
	// have length GridSize.
	ReadRecord(ctx context.Context, name string, index int, dst []float64) error
	// Close releases the backend resources.
	Close() error
}

// RecordWriter is implemented by backends that can also build an archive
// (used by preprocessing tools and tests; a model run only reads).
type RecordWriter interface {
	// CreateVariable registers a variable with its time axis and grid size.
	CreateVariable(ctx context.Context, name string, times, bounds []float64, gridSize int) error
	// WriteRecord stores one record of the variable.
	WriteRecord(ctx context.Context, name string, index int, data []float64) error
}

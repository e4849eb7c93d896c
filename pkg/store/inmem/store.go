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

// Package inmem is an in-memory record store. It is the reference backend
// used by tests and by runs whose forcing data is generated on the fly.
package inmem

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cryoproj/forcingcache/pkg/metrics"
	"github.com/cryoproj/forcingcache/pkg/shared/logging"
	"github.com/cryoproj/forcingcache/pkg/store"
)

type variable struct {
	times    []float64
	bounds   []float64
	gridSize int
	records  [][]float64
	// reads counts ReadRecord calls per record, used to observe
	// refetch behavior in tests.
	reads []int
}

// Store keeps every record of every variable in memory.
type Store struct {
	mu   sync.RWMutex
	vars map[string]*variable
	log  *zap.SugaredLogger
}

var (
	_ store.RecordStore  = (*Store)(nil)
	_ store.RecordWriter = (*Store)(nil)
)

// New returns an empty in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		vars: make(map[string]*variable),
		log:  logging.NewLogger().With("store", "inmem"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger replaces the default logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// AddVariable registers a variable and all of its records in one call.
func (s *Store) AddVariable(name string, times, bounds []float64, records [][]float64) error {
	if len(records) != len(times) {
		return fmt.Errorf("variable %q: %d records for %d time stamps", name, len(records), len(times))
	}
	if len(records) == 0 {
		return fmt.Errorf("variable %q: no records", name)
	}
	gridSize := len(records[0])
	if err := s.CreateVariable(context.Background(), name, times, bounds, gridSize); err != nil {
		return err
	}
	for k, rec := range records {
		if err := s.WriteRecord(context.Background(), name, k, rec); err != nil {
			return err
		}
	}
	return nil
}

// CreateVariable registers a variable with its time axis and grid size.
func (s *Store) CreateVariable(_ context.Context, name string, times, bounds []float64, gridSize int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars[name] = &variable{
		times:    append([]float64(nil), times...),
		bounds:   append([]float64(nil), bounds...),
		gridSize: gridSize,
		records:  make([][]float64, len(times)),
		reads:    make([]int, len(times)),
	}
	return nil
}

// WriteRecord stores one record of the variable.
func (s *Store) WriteRecord(_ context.Context, name string, index int, data []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vars[name]
	if !ok {
		return fmt.Errorf("%w: %q", store.ErrVariableNotFound, name)
	}
	if index < 0 || index >= len(v.records) {
		return fmt.Errorf("%w: %q[%d]", store.ErrRecordNotFound, name, index)
	}
	if len(data) != v.gridSize {
		return fmt.Errorf("%w: %q[%d] has %d values, want %d", store.ErrGridSizeMismatch, name, index, len(data), v.gridSize)
	}
	v.records[index] = append([]float64(nil), data...)
	return nil
}

// RecordCount returns the number of records stored for the variable.
func (s *Store) RecordCount(_ context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vars[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", store.ErrVariableNotFound, name)
	}
	return len(v.records), nil
}

// TimeAxis returns the record times and validity intervals of the variable.
func (s *Store) TimeAxis(_ context.Context, name string) ([]float64, []float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vars[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", store.ErrVariableNotFound, name)
	}
	times := append([]float64(nil), v.times...)
	var bounds []float64
	if len(v.bounds) > 0 {
		bounds = append([]float64(nil), v.bounds...)
	}
	return times, bounds, nil
}

// GridSize returns the number of spatial values per record of the variable.
func (s *Store) GridSize(_ context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vars[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", store.ErrVariableNotFound, name)
	}
	return v.gridSize, nil
}

// ReadRecord copies record index of the variable into dst.
func (s *Store) ReadRecord(_ context.Context, name string, index int, dst []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vars[name]
	if !ok {
		return &store.ReadError{Name: name, Index: index, Err: store.ErrVariableNotFound}
	}
	if index < 0 || index >= len(v.records) || v.records[index] == nil {
		return &store.ReadError{Name: name, Index: index, Err: store.ErrRecordNotFound}
	}
	if len(dst) != v.gridSize {
		return &store.ReadError{Name: name, Index: index, Err: store.ErrGridSizeMismatch}
	}
	v.reads[index]++
	copy(dst, v.records[index])
	metrics.RecordReads.WithLabelValues("inmem", name).Inc()
	return nil
}

// ReadCount reports how many times record index of the variable has been
// read. This is test observability, not part of the RecordStore contract.
func (s *Store) ReadCount(name string, index int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vars[name]
	if !ok || index < 0 || index >= len(v.reads) {
		return 0
	}
	return v.reads[index]
}

// Close does nothing for the in-memory store.
func (s *Store) Close() error {
	return nil
}

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

// Package redis is a record store backed by a Redis server, for setups where
// several model processes share one copy of the forcing data. The axis of a
// variable lives in two lists and each record in its own string key, so a
// window refill is one GET per missing record.
//
// Key layout, under a fixed prefix:
//
//	forcing:{name}:gridsize   string, decimal grid size
//	forcing:{name}:times      list of float64 strings, one per record
//	forcing:{name}:bounds     list of float64 strings, two per record
//	forcing:{name}:rec:{k}    string, little-endian float64 blob
package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cryoproj/forcingcache/pkg/metrics"
	"github.com/cryoproj/forcingcache/pkg/shared/logging"
	"github.com/cryoproj/forcingcache/pkg/store"
)

const keyPrefix = "forcing"

// Store reads and writes forcing records in a Redis database.
type Store struct {
	client redis.UniversalClient
	log    *zap.SugaredLogger
}

var (
	_ store.RecordStore  = (*Store)(nil)
	_ store.RecordWriter = (*Store)(nil)
)

// Option customizes a Store.
type Option func(*Store)

// WithLogger replaces the default logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// New wraps an existing Redis client. The caller keeps ownership of the
// client; Close on the Store closes it.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client: client,
		log:    logging.NewLogger().With("store", "redis"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Connect dials a Redis server and verifies the connection.
func Connect(ctx context.Context, addr string, opts ...Option) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return New(client, opts...), nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func gridSizeKey(name string) string { return fmt.Sprintf("%s:%s:gridsize", keyPrefix, name) }
func timesKey(name string) string    { return fmt.Sprintf("%s:%s:times", keyPrefix, name) }
func boundsKey(name string) string   { return fmt.Sprintf("%s:%s:bounds", keyPrefix, name) }
func recordKey(name string, k int) string {
	return fmt.Sprintf("%s:%s:rec:%d", keyPrefix, name, k)
}

// CreateVariable registers a variable with its time axis and grid size,
// replacing any previous axis of the same name. Records are written
// separately with WriteRecord. bounds may be nil, in which case each record
// is marked valid until the next record's time.
func (s *Store) CreateVariable(ctx context.Context, name string, times, bounds []float64, gridSize int) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, gridSizeKey(name), strconv.Itoa(gridSize), 0)
	pipe.Del(ctx, timesKey(name), boundsKey(name))
	for k, t := range times {
		pipe.RPush(ctx, timesKey(name), formatFloat(t))
		var t0, t1 float64
		if bounds != nil {
			t0, t1 = bounds[2*k], bounds[2*k+1]
		} else {
			t0 = t
			if k+1 < len(times) {
				t1 = times[k+1]
			} else {
				t1 = t + 1
			}
		}
		pipe.RPush(ctx, boundsKey(name), formatFloat(t0), formatFloat(t1))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("variable %q: %w", name, err)
	}
	return nil
}

// WriteRecord stores one record of the variable.
func (s *Store) WriteRecord(ctx context.Context, name string, index int, data []float64) error {
	gridSize, err := s.GridSize(ctx, name)
	if err != nil {
		return err
	}
	if len(data) != gridSize {
		return fmt.Errorf("%w: %q[%d] has %d values, want %d",
			store.ErrGridSizeMismatch, name, index, len(data), gridSize)
	}
	count, err := s.RecordCount(ctx, name)
	if err != nil {
		return err
	}
	if index < 0 || index >= count {
		return fmt.Errorf("%w: %q[%d]", store.ErrRecordNotFound, name, index)
	}
	return s.client.Set(ctx, recordKey(name, index), encode(data), 0).Err()
}

// RecordCount returns the number of records stored for the variable.
func (s *Store) RecordCount(ctx context.Context, name string) (int, error) {
	if err := s.checkVariable(ctx, name); err != nil {
		return 0, err
	}
	n, err := s.client.LLen(ctx, timesKey(name)).Result()
	if err != nil {
		return 0, fmt.Errorf("variable %q: %w", name, err)
	}
	return int(n), nil
}

// TimeAxis returns the record times and validity intervals of the variable.
func (s *Store) TimeAxis(ctx context.Context, name string) ([]float64, []float64, error) {
	if err := s.checkVariable(ctx, name); err != nil {
		return nil, nil, err
	}
	rawTimes, err := s.client.LRange(ctx, timesKey(name), 0, -1).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("variable %q: %w", name, err)
	}
	rawBounds, err := s.client.LRange(ctx, boundsKey(name), 0, -1).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("variable %q: %w", name, err)
	}
	times, err := parseFloats(rawTimes)
	if err != nil {
		return nil, nil, fmt.Errorf("variable %q times: %w", name, err)
	}
	bounds, err := parseFloats(rawBounds)
	if err != nil {
		return nil, nil, fmt.Errorf("variable %q bounds: %w", name, err)
	}
	if len(bounds) != 2*len(times) {
		return nil, nil, fmt.Errorf("variable %q: %d bounds for %d records", name, len(bounds), len(times))
	}
	return times, bounds, nil
}

// GridSize returns the number of spatial values per record of the variable.
func (s *Store) GridSize(ctx context.Context, name string) (int, error) {
	raw, err := s.client.Get(ctx, gridSizeKey(name)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("%w: %q", store.ErrVariableNotFound, name)
	}
	if err != nil {
		return 0, fmt.Errorf("variable %q: %w", name, err)
	}
	return strconv.Atoi(raw)
}

// ReadRecord copies record index of the variable into dst.
func (s *Store) ReadRecord(ctx context.Context, name string, index int, dst []float64) error {
	blob, err := s.client.Get(ctx, recordKey(name, index)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &store.ReadError{Name: name, Index: index, Err: store.ErrRecordNotFound}
	}
	if err != nil {
		return &store.ReadError{Name: name, Index: index, Err: err}
	}
	if len(blob) != 8*len(dst) {
		return &store.ReadError{Name: name, Index: index, Err: store.ErrGridSizeMismatch}
	}
	for i := range dst {
		dst[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[8*i:]))
	}
	metrics.RecordReads.WithLabelValues("redis", name).Inc()
	return nil
}

func (s *Store) checkVariable(ctx context.Context, name string) error {
	_, err := s.GridSize(ctx, name)
	return err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseFloats(raw []string) ([]float64, error) {
	out := make([]float64, len(raw))
	for i, r := range raw {
		v, err := strconv.ParseFloat(r, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func encode(data []float64) []byte {
	buf := make([]byte, 8*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return buf
}

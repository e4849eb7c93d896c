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

// Package sqlite is a file-backed record store. One database file holds any
// number of forcing variables; records are stored as raw float64 blobs so a
// read is a single row fetch plus a decode. A small LRU of decoded records
// absorbs the re-reads a shrunken window would otherwise hit the disk for.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"

	"github.com/cryoproj/forcingcache/pkg/metrics"
	"github.com/cryoproj/forcingcache/pkg/shared/logging"
	"github.com/cryoproj/forcingcache/pkg/store"
)

// DefaultCacheSize is the number of decoded records kept across all
// variables of a store.
const DefaultCacheSize = 128

type cacheKey struct {
	name  string
	index int
}

// Store reads and writes forcing records in a SQLite database file.
type Store struct {
	db    *sql.DB
	cache *lru.Cache[cacheKey, []float64]
	log   *zap.SugaredLogger
}

var (
	_ store.RecordStore  = (*Store)(nil)
	_ store.RecordWriter = (*Store)(nil)
)

// Option customizes a Store.
type Option func(*options)

type options struct {
	cacheSize int
	logger    *zap.SugaredLogger
}

// WithCacheSize sets the number of decoded records kept in memory.
func WithCacheSize(n int) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}

// WithLogger replaces the default logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *options) {
		o.logger = log
	}
}

// Open opens (or creates) the database file and initializes the schema.
func Open(path string, opts ...Option) (*Store, error) {
	o := &options{cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(o)
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	cache, err := lru.New[cacheKey, []float64](o.cacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("record cache: %w", err)
	}

	log := o.logger
	if log == nil {
		log = logging.NewLogger()
	}

	s := &Store{db: db, cache: cache, log: log.With("store", "sqlite")}
	if err := s.migrate(); err != nil {
		return nil, multierr.Append(fmt.Errorf("migrate: %w", err), db.Close())
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.cache.Purge()
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS variables (
		name      TEXT PRIMARY KEY,
		grid_size INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS records (
		variable TEXT NOT NULL REFERENCES variables(name),
		idx      INTEGER NOT NULL,
		time     REAL NOT NULL,
		t0       REAL NOT NULL,
		t1       REAL NOT NULL,
		data     BLOB,
		PRIMARY KEY (variable, idx)
	);

	CREATE INDEX IF NOT EXISTS idx_records_time ON records(variable, time);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateVariable registers a variable with its time axis and grid size.
// Records start out empty; WriteRecord fills them in. bounds may be nil,
// in which case each record is marked valid until the next record's time.
func (s *Store) CreateVariable(ctx context.Context, name string, times, bounds []float64, gridSize int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO variables (name, grid_size) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET grid_size = excluded.grid_size`,
		name, gridSize); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE variable = ?`, name); err != nil {
		return err
	}

	for k, t := range times {
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
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO records (variable, idx, time, t0, t1, data) VALUES (?, ?, ?, ?, ?, NULL)`,
			name, k, t, t0, t1); err != nil {
			return err
		}
	}
	return tx.Commit()
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
	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET data = ? WHERE variable = ? AND idx = ?`,
		encode(data), name, index)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %q[%d]", store.ErrRecordNotFound, name, index)
	}
	s.cache.Remove(cacheKey{name, index})
	return nil
}

// RecordCount returns the number of records stored for the variable.
func (s *Store) RecordCount(ctx context.Context, name string) (int, error) {
	if err := s.checkVariable(ctx, name); err != nil {
		return 0, err
	}
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE variable = ?`, name).Scan(&count)
	return count, err
}

// TimeAxis returns the record times and validity intervals of the variable.
func (s *Store) TimeAxis(ctx context.Context, name string) ([]float64, []float64, error) {
	if err := s.checkVariable(ctx, name); err != nil {
		return nil, nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT time, t0, t1 FROM records WHERE variable = ? ORDER BY idx`, name)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var times, bounds []float64
	for rows.Next() {
		var t, t0, t1 float64
		if err := rows.Scan(&t, &t0, &t1); err != nil {
			return nil, nil, err
		}
		times = append(times, t)
		bounds = append(bounds, t0, t1)
	}
	return times, bounds, rows.Err()
}

// GridSize returns the number of spatial values per record of the variable.
func (s *Store) GridSize(ctx context.Context, name string) (int, error) {
	var gridSize int
	err := s.db.QueryRowContext(ctx,
		`SELECT grid_size FROM variables WHERE name = ?`, name).Scan(&gridSize)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %q", store.ErrVariableNotFound, name)
	}
	return gridSize, err
}

// ReadRecord copies record index of the variable into dst, going to the
// database only on a cache miss.
func (s *Store) ReadRecord(ctx context.Context, name string, index int, dst []float64) error {
	key := cacheKey{name, index}
	if rec, ok := s.cache.Get(key); ok {
		if len(dst) != len(rec) {
			return &store.ReadError{Name: name, Index: index, Err: store.ErrGridSizeMismatch}
		}
		copy(dst, rec)
		metrics.RecordReads.WithLabelValues("sqlite", name).Inc()
		return nil
	}

	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM records WHERE variable = ? AND idx = ?`, name, index).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return &store.ReadError{Name: name, Index: index, Err: store.ErrRecordNotFound}
	}
	if err != nil {
		return &store.ReadError{Name: name, Index: index, Err: err}
	}
	if blob == nil {
		return &store.ReadError{Name: name, Index: index, Err: store.ErrRecordNotFound}
	}
	rec, err := decode(blob)
	if err != nil {
		return &store.ReadError{Name: name, Index: index, Err: err}
	}
	if len(dst) != len(rec) {
		return &store.ReadError{Name: name, Index: index, Err: store.ErrGridSizeMismatch}
	}
	copy(dst, rec)
	s.cache.Add(key, rec)
	metrics.RecordReads.WithLabelValues("sqlite", name).Inc()
	return nil
}

func (s *Store) checkVariable(ctx context.Context, name string) error {
	_, err := s.GridSize(ctx, name)
	return err
}

// encode packs a record as little-endian float64 bits.
func encode(data []float64) []byte {
	buf := make([]byte, 8*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return buf
}

func decode(blob []byte) ([]float64, error) {
	if len(blob)%8 != 0 {
		return nil, fmt.Errorf("record blob of %d bytes is not a float64 sequence", len(blob))
	}
	data := make([]float64, len(blob)/8)
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[8*i:]))
	}
	return data, nil
}

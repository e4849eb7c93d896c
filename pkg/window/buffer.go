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

// Package window implements the bounded in-memory window over a variable's
// record sequence. A Buffer owns a fixed arena of record slots and keeps a
// contiguous run [first, first+n) of store records resident, advancing the
// run by discarding a prefix in place and fetching only the records it does
// not already hold.
//
// A Buffer is owned by a single forcing field and is not safe for concurrent
// use. Fetch decisions depend only on the shared time axis and the scalar
// query interval, never on field contents, so in a multi-rank run every rank
// issues the same sequence of (collective) store reads.
package window

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cryoproj/forcingcache/pkg/interpolation"
	"github.com/cryoproj/forcingcache/pkg/shared/logging"
	"github.com/cryoproj/forcingcache/pkg/store"
	"github.com/cryoproj/forcingcache/pkg/timeaxis"
)

// ErrBadCapacity is returned when a buffer is created with room for less
// than one record.
var ErrBadCapacity = errors.New("buffer capacity must hold at least one record")

// TooSmallErr means a coverage request spans more records than the buffer
// can hold. This is a configuration problem (the buffer was sized too small
// for the model's time step), not a transient condition.
type TooSmallErr struct {
	Name     string
	Needed   int
	Capacity int
}

func (e TooSmallErr) Error() string {
	return fmt.Sprintf("cannot buffer %d records of %q (buffer size: %d)", e.Needed, e.Name, e.Capacity)
}

// CoverageErr reports a broken window invariant. Coverage maintenance is
// supposed to make this unreachable; seeing one is a bug, not a runtime
// condition.
type CoverageErr struct {
	Name    string
	Message string
}

func (e CoverageErr) Error() string {
	return fmt.Sprintf("window over %q: %s", e.Name, e.Message)
}

// Buffer keeps a contiguous run of a variable's records in a fixed arena.
type Buffer struct {
	store    store.RecordStore
	name     string
	axis     *timeaxis.Axis
	mode     interpolation.Mode
	capacity int
	gridSize int

	// data is the slot arena, capacity*gridSize values. Slot s holds record
	// first+s when s < n; slots >= n are stale.
	data  []float64
	first int // store index of slot 0; -1 when nothing is buffered
	n     int

	log *zap.SugaredLogger
}

// Option customizes a Buffer.
type Option func(*Buffer)

// WithLogger replaces the default logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(b *Buffer) {
		b.log = log
	}
}

// New allocates a buffer of capacity record slots over the given axis.
// mode determines how wide a record span a query interval needs:
// piecewise-constant queries are answered by the record whose validity
// interval contains the query time, the linear modes also need the record
// bracketing it on the right. A periodic axis must fit in the buffer whole:
// periodic data is always held in full.
func New(st store.RecordStore, name string, axis *timeaxis.Axis, mode interpolation.Mode, capacity, gridSize int, opts ...Option) (*Buffer, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: %q requested %d", ErrBadCapacity, name, capacity)
	}
	if axis.Periodic() && capacity < axis.Len() {
		return nil, fmt.Errorf("%w: periodic %q has %d records, buffer holds %d",
			ErrBadCapacity, name, axis.Len(), capacity)
	}
	b := &Buffer{
		store:    st,
		name:     name,
		axis:     axis,
		mode:     mode,
		capacity: capacity,
		gridSize: gridSize,
		data:     make([]float64, capacity*gridSize),
		first:    -1,
		log:      logging.NewLogger().With("field", name),
	}
	for _, o := range opts {
		o(b)
	}
	return b, nil
}

// First returns the store index of the first buffered record, -1 when the
// buffer is empty.
func (b *Buffer) First() int { return b.first }

// Len returns the number of buffered records.
func (b *Buffer) Len() int { return b.n }

// Capacity returns the number of record slots.
func (b *Buffer) Capacity() int { return b.capacity }

// Slot returns the field data of buffered record s (a view into the arena,
// valid until the window moves).
func (b *Buffer) Slot(s int) []float64 {
	return b.data[s*b.gridSize : (s+1)*b.gridSize]
}

// Times returns the record times of the buffered run, nil when the buffer
// is empty.
func (b *Buffer) Times() []float64 {
	if b.n == 0 {
		return nil
	}
	return b.axis.Times()[b.first : b.first+b.n]
}

// span returns the store indices of the first and last record a query over
// [tStart, tEnd] needs: the record containing tStart and, in the linear
// modes, the record bracketing tEnd on the right (piecewise-constant queries
// are answered by the containing record alone).
func (b *Buffer) span(tStart, tEnd float64) (int, int) {
	firstNeeded := b.axis.LeftIndex(tStart)
	var lastNeeded int
	if b.mode == interpolation.PiecewiseConstant {
		lastNeeded = b.axis.LeftIndex(tEnd)
	} else {
		lastNeeded = b.axis.RightIndex(tEnd)
	}
	return firstNeeded, lastNeeded
}

// Covered reports whether every record a query over [tStart, tEnd] needs is
// buffered. The check is on record brackets, not interval end points: a
// linear query whose end time falls inside the last buffered record's
// validity interval still needs the record to its right.
func (b *Buffer) Covered(tStart, tEnd float64) bool {
	if b.n == 0 {
		return false
	}
	firstNeeded, lastNeeded := b.span(tStart, tEnd)
	return firstNeeded >= b.first && lastNeeded <= b.first+b.n-1
}

// EnsureCoverage makes the buffer hold every record a query over
// [tStart, tEnd] needs. The covered case returns without touching the
// store; otherwise the overlapping suffix of the current window is retained
// and only the missing trailing records are fetched.
func (b *Buffer) EnsureCoverage(ctx context.Context, tStart, tEnd float64) error {
	if b.Covered(tStart, tEnd) {
		coverageHits.WithLabelValues(b.name).Inc()
		return nil
	}

	firstNeeded, lastNeeded := b.span(tStart, tEnd)
	if need := lastNeeded - firstNeeded + 1; need > b.capacity {
		return TooSmallErr{Name: b.name, Needed: need, Capacity: b.capacity}
	}
	return b.LoadFrom(ctx, firstNeeded)
}

// LoadFrom positions the window at store record start and fills the buffer
// with as many consecutive records as fit (reading ahead costs nothing
// extra per coverage span and saves future reloads). Records already
// resident are kept, so each store record is read at most once per pass of
// the window over it.
func (b *Buffer) LoadFrom(ctx context.Context, start int) error {
	if start < 0 || start >= b.axis.Len() {
		return CoverageErr{Name: b.name, Message: fmt.Sprintf("load start %d outside [0, %d)", start, b.axis.Len())}
	}

	missing := b.axis.Len() - start
	if missing > b.capacity {
		missing = b.capacity
	}
	if start == b.first && b.n == missing {
		return nil
	}

	kept := 0
	if b.first >= 0 && b.n > 0 && start >= b.first && start <= b.first+b.n-1 {
		kept = b.first + b.n - start
		b.DiscardPrefix(start - b.first)
		missing -= kept
	} else {
		if b.n > 0 {
			recordsDiscarded.WithLabelValues(b.name).Add(float64(b.n))
		}
		b.first = start
		b.n = 0
	}

	if missing <= 0 {
		return nil
	}

	t0, _ := b.axis.Bounds(start + kept)
	_, t1 := b.axis.Bounds(start + kept + missing - 1)
	b.log.Debugw("reading records into buffer",
		zap.Int("from", start+kept), zap.Int("count", missing),
		zap.Float64("intervalStart", t0), zap.Float64("intervalEnd", t1))

	for j := 0; j < missing; j++ {
		index := start + kept + j
		if err := b.store.ReadRecord(ctx, b.name, index, b.Slot(kept+j)); err != nil {
			readErrors.WithLabelValues(b.name).Inc()
			return err
		}
		b.n++
		recordsFetched.WithLabelValues(b.name).Inc()
	}
	return nil
}

// DiscardPrefix drops the first k buffered records, compacting the retained
// suffix to the front of the arena in place. The arena is never reallocated.
func (b *Buffer) DiscardPrefix(k int) {
	if k <= 0 || b.n == 0 {
		return
	}
	if k >= b.n {
		recordsDiscarded.WithLabelValues(b.name).Add(float64(b.n))
		b.first = -1
		b.n = 0
		return
	}
	copy(b.data[:(b.n-k)*b.gridSize], b.data[k*b.gridSize:b.n*b.gridSize])
	b.first += k
	b.n -= k
	recordsDiscarded.WithLabelValues(b.name).Add(float64(k))
}

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
	"go.uber.org/zap"

	"github.com/cryoproj/forcingcache/pkg/interpolation"
)

const (
	// DefaultBufferSize is the number of record slots a non-periodic field
	// buffers when not configured otherwise.
	DefaultBufferSize = 60
	// DefaultSampleRate is the number of evaluations per unit time used by
	// Average.
	DefaultSampleRate = 1.0
	// DefaultMinStep is the smallest step MaxTimestep will report before
	// falling through to the next record's interval.
	DefaultMinStep = 1.0
)

type options struct {
	mode       interpolation.Mode
	bufferSize int
	sampleRate float64
	minStep    float64
	period     float64
	reference  float64
	logger     *zap.SugaredLogger
}

func defaultOptions() *options {
	return &options{
		mode:       interpolation.Linear,
		bufferSize: DefaultBufferSize,
		sampleRate: DefaultSampleRate,
		minStep:    DefaultMinStep,
	}
}

// Option customizes a Field.
type Option func(*options)

// WithMode selects the interpolation mode (default Linear; a periodic field
// configured Linear is upgraded to LinearPeriodic automatically).
func WithMode(m interpolation.Mode) Option {
	return func(o *options) {
		o.mode = m
	}
}

// WithBufferSize sets the maximum number of records buffered for a
// non-periodic field. Periodic fields always buffer every record.
func WithBufferSize(n int) Option {
	return func(o *options) {
		o.bufferSize = n
	}
}

// WithSampleRate sets the number of evaluations per unit time used by
// Average; the sample count for an interval dt is max(1, ceil(rate*dt)).
func WithSampleRate(r float64) Option {
	return func(o *options) {
		o.sampleRate = r
	}
}

// WithMinStep sets the floor below which MaxTimestep reports the following
// record's interval instead of the degenerate remainder of the current one.
func WithMinStep(d float64) Option {
	return func(o *options) {
		o.minStep = d
	}
}

// WithPeriod makes the field periodic: all query times are folded into
// [referenceTime, referenceTime+period) and every record is kept resident.
func WithPeriod(period, referenceTime float64) Option {
	return func(o *options) {
		o.period = period
		o.reference = referenceTime
	}
}

// WithLogger replaces the default logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *options) {
		o.logger = log
	}
}

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

package window

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cryoproj/forcingcache/pkg/metrics"
)

// recordsFetched counts records read from the record store.
var recordsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "forcing_window",
	Name:      "records_fetched_total",
	Help:      "Total number of records read from the record store",
}, []string{metrics.LabelField})

// recordsDiscarded counts records evicted from the buffer.
var recordsDiscarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "forcing_window",
	Name:      "records_discarded_total",
	Help:      "Total number of records evicted from the window buffer",
}, []string{metrics.LabelField})

// coverageHits counts coverage requests answered without touching the store.
var coverageHits = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "forcing_window",
	Name:      "coverage_hits_total",
	Help:      "Total number of coverage requests served from the buffered window",
}, []string{metrics.LabelField})

// readErrors counts failed record reads.
var readErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "forcing_window",
	Name:      "read_errors_total",
	Help:      "Total number of failed record store reads",
}, []string{metrics.LabelField})

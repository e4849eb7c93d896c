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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cryoproj/forcingcache/pkg/metrics"
)

// evaluations counts interpolated point-in-time queries.
var evaluations = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "forcing",
	Name:      "evaluations_total",
	Help:      "Total number of interpolated field evaluations",
}, []string{metrics.LabelField})

// pointQueries counts un-interpolated record lookups.
var pointQueries = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "forcing",
	Name:      "point_queries_total",
	Help:      "Total number of raw record value queries",
}, []string{metrics.LabelField})

// averages counts time-average computations.
var averages = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "forcing",
	Name:      "averages_total",
	Help:      "Total number of time-averaged field computations",
}, []string{metrics.LabelField})

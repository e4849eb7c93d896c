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

// Package metrics holds the label names and cross-backend prometheus
// metrics shared by the packages of this module.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// LabelField is the forcing variable name, e.g. "theta_ocean".
	LabelField = "field"
	// LabelStore identifies the record store backend ("inmem", "sqlite", "redis").
	LabelStore = "store"
)

// RecordReads counts records served by a record store backend, cache hits
// included.
var RecordReads = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "forcing_store",
	Name:      "record_reads_total",
	Help:      "Total number of records served by a record store backend",
}, []string{LabelStore, LabelField})

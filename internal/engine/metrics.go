/*
Copyright 2026 The KubeCore Authors.

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

package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics records a TrackingCache's watch churn: a kind becomes active
// when StoreFor starts its watcher, and inactive when Remove stops it.
type CacheMetrics interface {
	WatchStarted(kind string)
	WatchStopped(kind string)
}

// NopCacheMetrics discards every observation. It is the default when a
// TrackingCache is constructed without an explicit CacheMetrics.
type NopCacheMetrics struct{}

// WatchStarted does nothing.
func (NopCacheMetrics) WatchStarted(_ string) {}

// WatchStopped does nothing.
func (NopCacheMetrics) WatchStopped(_ string) {}

// PrometheusCacheMetrics exposes TrackingCache watch churn via Prometheus.
type PrometheusCacheMetrics struct {
	watchesStarted *prometheus.CounterVec
	watchesStopped *prometheus.CounterVec
	activeWatches  *prometheus.GaugeVec
}

// NewPrometheusCacheMetrics returns a ready-to-register PrometheusCacheMetrics.
func NewPrometheusCacheMetrics() *PrometheusCacheMetrics {
	return &PrometheusCacheMetrics{
		watchesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "cache",
			Name:      "watches_started_total",
			Help:      "Total number of kind watches started by the tracking cache.",
		}, []string{"kind"}),

		watchesStopped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "cache",
			Name:      "watches_stopped_total",
			Help:      "Total number of kind watches stopped by the tracking cache.",
		}, []string{"kind"}),

		activeWatches: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Subsystem: "cache",
			Name:      "active_watches",
			Help:      "Whether a kind currently has a running watch (1) or not (0).",
		}, []string{"kind"}),
	}
}

// WatchStarted records a kind's watch starting.
func (m *PrometheusCacheMetrics) WatchStarted(kind string) {
	m.watchesStarted.With(prometheus.Labels{"kind": kind}).Inc()
	m.activeWatches.With(prometheus.Labels{"kind": kind}).Set(1)
}

// WatchStopped records a kind's watch stopping.
func (m *PrometheusCacheMetrics) WatchStopped(kind string) {
	m.watchesStopped.With(prometheus.Labels{"kind": kind}).Inc()
	m.activeWatches.With(prometheus.Labels{"kind": kind}).Set(0)
}

// Describe implements prometheus.Collector.
func (m *PrometheusCacheMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.watchesStarted.Describe(ch)
	m.watchesStopped.Describe(ch)
	m.activeWatches.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *PrometheusCacheMetrics) Collect(ch chan<- prometheus.Metric) {
	m.watchesStarted.Collect(ch)
	m.watchesStopped.Collect(ch)
	m.activeWatches.Collect(ch)
}

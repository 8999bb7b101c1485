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

package controller

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records the controller's observability hooks: key dequeued,
// reconciler started/finished with outcome and duration. No business
// policy is embedded here, only counts and latencies.
type Metrics interface {
	ReconcileStarted(controller string)
	ReconcileFinished(controller string, outcome string, d time.Duration)
	KeyDequeued(controller string)
}

// NopMetrics discards every observation. It is the default when a
// Controller is constructed without an explicit Metrics.
type NopMetrics struct{}

func (NopMetrics) ReconcileStarted(string)                         {}
func (NopMetrics) ReconcileFinished(string, string, time.Duration) {}
func (NopMetrics) KeyDequeued(string)                              {}

// PrometheusMetrics exposes controller reconcile counts and latencies via
// Prometheus, in the same Describe/Collect-on-the-struct style as
// internal/engine's cache metrics.
type PrometheusMetrics struct {
	keysDequeued       *prometheus.CounterVec
	reconcilesStarted  *prometheus.CounterVec
	reconcilesFinished *prometheus.CounterVec
	reconcileDuration  *prometheus.HistogramVec
}

// NewPrometheusMetrics constructs a ready-to-register PrometheusMetrics.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		keysDequeued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "controller",
			Name:      "keys_dequeued_total",
			Help:      "Total number of keys dequeued from the scheduler for reconciliation.",
		}, []string{"controller"}),

		reconcilesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "controller",
			Name:      "reconciles_started_total",
			Help:      "Total number of reconciler invocations started.",
		}, []string{"controller"}),

		reconcilesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "controller",
			Name:      "reconciles_finished_total",
			Help:      "Total number of reconciler invocations finished, by outcome.",
		}, []string{"controller", "outcome"}),

		reconcileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Subsystem: "controller",
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of reconciler invocations in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"controller", "outcome"}),
	}
}

// ReconcileStarted records a reconciler invocation beginning.
func (m *PrometheusMetrics) ReconcileStarted(controller string) {
	m.reconcilesStarted.With(prometheus.Labels{"controller": controller}).Inc()
}

// ReconcileFinished records a reconciler invocation's outcome and duration.
func (m *PrometheusMetrics) ReconcileFinished(controller string, outcome string, d time.Duration) {
	labels := prometheus.Labels{"controller": controller, "outcome": outcome}
	m.reconcilesFinished.With(labels).Inc()
	m.reconcileDuration.With(labels).Observe(d.Seconds())
}

// KeyDequeued records a key being handed off by the scheduler.
func (m *PrometheusMetrics) KeyDequeued(controller string) {
	m.keysDequeued.With(prometheus.Labels{"controller": controller}).Inc()
}

// Describe implements prometheus.Collector.
func (m *PrometheusMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.keysDequeued.Describe(ch)
	m.reconcilesStarted.Describe(ch)
	m.reconcilesFinished.Describe(ch)
	m.reconcileDuration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *PrometheusMetrics) Collect(ch chan<- prometheus.Metric) {
	m.keysDequeued.Collect(ch)
	m.reconcilesStarted.Collect(ch)
	m.reconcilesFinished.Collect(ch)
	m.reconcileDuration.Collect(ch)
}

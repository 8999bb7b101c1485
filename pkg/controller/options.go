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

	"github.com/go-logr/logr"

	kmeta "github.com/kubecore/runtime/apis/meta"
)

// Options configure a Controller.
type Options struct {
	// Name identifies the controller in logs and metrics.
	Name string

	// MaxConcurrentReconciles bounds how many reconciles run in
	// parallel; at most one per key regardless. Defaults to 2.
	MaxConcurrentReconciles int

	// ErrorPolicy governs requeue behavior after a failed reconcile.
	// Defaults to a FixedDelayPolicy(time.Second).
	ErrorPolicy ErrorPolicy

	// OnSuccess, if set, is called with a key's ObjectRef after its
	// reconcile returns a nil error. Policies that track per-key state
	// across failures, such as ExponentialBackoffPolicy, wire their
	// Forget method here to reset that state once the key recovers.
	OnSuccess func(key kmeta.ObjectRef)

	// ShutdownTimeout bounds how long Run waits for in-flight reconciles
	// to drain once its context is cancelled. Zero means wait forever.
	ShutdownTimeout time.Duration

	// Metrics receives observability hooks. Defaults to NopMetrics.
	Metrics Metrics

	// Log receives structured events. Defaults to logr.Discard().
	Log logr.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxConcurrentReconciles <= 0 {
		o.MaxConcurrentReconciles = 2
	}
	if o.ErrorPolicy == nil {
		o.ErrorPolicy = FixedDelayPolicy(time.Second)
	}
	if o.Metrics == nil {
		o.Metrics = NopMetrics{}
	}
	if o.Name == "" {
		o.Name = "controller"
	}
	if o.Log.GetSink() == nil {
		o.Log = logr.Discard()
	}
	return o
}

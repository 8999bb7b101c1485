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

// Package engine wires together the per-kind watchers, stores, and
// broadcasts a Controller needs, tracking which kinds currently have a
// live watch running.
package engine

import (
	"context"
	"sync"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/runtime/schema"

	kmeta "github.com/kubecore/runtime/apis/meta"
	"github.com/kubecore/runtime/pkg/store"
	"github.com/kubecore/runtime/pkg/transport"
	"github.com/kubecore/runtime/pkg/watcher"
)

// A TrackingCache owns one store.Store per GroupVersionKind it has been
// asked to watch, starting the underlying watcher lazily on first use and
// recording which GVKs are currently active. It takes a blocking lock
// whenever a kind transitions between active and inactive, mirroring the
// locking discipline of a cache that tracks live informers rather than
// live stores.
type TrackingCache struct {
	transport transport.Interface
	log       logr.Logger
	metrics   CacheMetrics

	mx     sync.RWMutex
	active map[schema.GroupVersionKind]*trackedKind
}

type trackedKind struct {
	kind      kmeta.Kind
	store     *store.Store
	broadcast *store.Broadcast
	cancel    context.CancelFunc
}

// NewTrackingCache returns an empty TrackingCache backed by t.
func NewTrackingCache(t transport.Interface, log logr.Logger, metrics CacheMetrics) *TrackingCache {
	if metrics == nil {
		metrics = NopCacheMetrics{}
	}
	return &TrackingCache{
		transport: t,
		log:       log,
		metrics:   metrics,
		active:    make(map[schema.GroupVersionKind]*trackedKind),
	}
}

// ActiveKinds returns the GVKs of the kinds believed to currently have a
// running watch. A TrackingCache considers a kind to become active when a
// caller calls StoreFor, and inactive when a caller calls Remove.
func (c *TrackingCache) ActiveKinds() []schema.GroupVersionKind {
	c.mx.RLock()
	defer c.mx.RUnlock()

	out := make([]schema.GroupVersionKind, 0, len(c.active))
	for gvk := range c.active {
		out = append(out, gvk)
	}
	return out
}

// StoreFor returns the Store and Broadcast for k, starting a watcher and
// Reflector for it on first call. Calling StoreFor marks k active.
func (c *TrackingCache) StoreFor(ctx context.Context, k kmeta.Kind, namespace string, params transport.ListParams) (*store.Store, *store.Broadcast) {
	gvk := k.GroupVersionKind()

	c.mx.RLock()
	if tk, ok := c.active[gvk]; ok {
		defer c.mx.RUnlock()
		return tk.store, tk.broadcast
	}
	c.mx.RUnlock()

	c.mx.Lock()
	defer c.mx.Unlock()
	if tk, ok := c.active[gvk]; ok {
		// Lost the race between RUnlock and Lock; someone else started it.
		return tk.store, tk.broadcast
	}

	watchCtx, cancel := context.WithCancel(ctx)
	s := store.New(k)
	b := store.NewBroadcast()
	w := watcher.New(c.transport, k, watcher.Options{Namespace: namespace, Params: params, Logger: c.log})
	r := store.NewReflector(s, b, c.log.WithValues("kind", gvk.String()))
	go r.Run(watchCtx, w.Run(watchCtx))

	c.active[gvk] = &trackedKind{kind: k, store: s, broadcast: b, cancel: cancel}
	c.metrics.WatchStarted(gvk.String())
	return s, b
}

// Remove stops the watcher for k, if any, and marks it inactive.
func (c *TrackingCache) Remove(k kmeta.Kind) {
	gvk := k.GroupVersionKind()

	c.mx.RLock()
	tk, active := c.active[gvk]
	c.mx.RUnlock()
	if !active {
		return
	}

	c.mx.Lock()
	defer c.mx.Unlock()
	tk, active = c.active[gvk]
	if !active {
		return
	}
	tk.cancel()
	delete(c.active, gvk)
	c.metrics.WatchStopped(gvk.String())
}

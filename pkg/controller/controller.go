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

// Package controller drives a user-supplied reconciler over a primary
// kind, triggered by changes to that kind, changes to auxiliary kinds
// mapped through a Mapper, explicit self-requeues, and an external
// "reconcile all" signal.
package controller

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	kmeta "github.com/kubecore/runtime/apis/meta"
	"github.com/kubecore/runtime/pkg/scheduler"
	"github.com/kubecore/runtime/pkg/store"
	"github.com/kubecore/runtime/pkg/stream"
)

// An Action is what a ReconcileFunc (or ErrorPolicy) asks the controller
// to do next.
type Action struct {
	// Requeue, if true, asks for another reconcile after Delay. A zero
	// Delay with Requeue true asks for an immediate requeue.
	Requeue bool
	Delay   time.Duration
}

// AwaitChange is the Action that does not request a requeue: the next
// reconcile happens only when a watched input changes.
var AwaitChange = Action{}

// RequeueAfter asks for a reconcile after d, regardless of whether
// anything else changes.
func RequeueAfter(d time.Duration) Action {
	return Action{Requeue: true, Delay: d}
}

// A ReconcileFunc is user reconciliation logic for one object. It mirrors
// sigs.k8s.io/controller-runtime's reconcile.Func shape, generalized to
// this module's type-erased Object and Action vocabulary.
type ReconcileFunc func(ctx context.Context, obj kmeta.Object) (Action, error)

// A Controller drives a ReconcileFunc over a primary store, bounded to
// Options.MaxConcurrentReconciles concurrent reconciles with at most one
// in flight per key at any time.
type Controller struct {
	opts      Options
	primary   *store.Store
	reconcile ReconcileFunc
	sched     *scheduler.Scheduler

	sources []source

	mu       sync.Mutex
	inFlight map[kmeta.ObjectRef]struct{}
}

type source struct {
	broadcast *store.Broadcast
	mapper    Mapper
}

// New constructs a Controller over primary, reconciling with fn.
func New(primary *store.Store, fn ReconcileFunc, opts Options) *Controller {
	return &Controller{
		opts:      opts.withDefaults(),
		primary:   primary,
		reconcile: fn,
		sched:     scheduler.New(),
		inFlight:  map[kmeta.ObjectRef]struct{}{},
	}
}

// Watches registers an auxiliary broadcast whose touched objects are
// mapped through m to primary keys to reconcile. Owns(primaryKind) is a
// Mapper suited to registering a primary's children; Self(primaryKind)
// re-registers the primary kind's own broadcast.
func (c *Controller) Watches(b *store.Broadcast, m Mapper) {
	c.sources = append(c.sources, source{broadcast: b, mapper: m})
}

// ReconcileAll enumerates the store and submits every key for immediate
// reconciliation.
func (c *Controller) ReconcileAll() {
	for _, obj := range c.primary.List() {
		c.sched.Submit(kmeta.RefOf(c.primary.Kind(), obj), time.Now())
	}
}

// Run starts the controller's watch consumers and worker pool, blocking
// until ctx is cancelled. On cancellation it stops accepting new
// scheduler deliveries and waits (bounded by Options.ShutdownTimeout, if
// nonzero) for in-flight reconciles to drain before returning.
func (c *Controller) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	for _, src := range c.sources {
		wg.Add(1)
		go func(src source) {
			defer wg.Done()
			c.consumeSource(ctx, src)
		}(src)
	}

	workers := make(chan struct{}, c.opts.MaxConcurrentReconciles)
	var workerWG sync.WaitGroup

	for {
		key, ok := c.sched.Poll(ctx, c.notInFlight)
		if !ok || ctx.Err() != nil {
			break
		}
		c.opts.Metrics.KeyDequeued(c.opts.Name)

		select {
		case workers <- struct{}{}:
		case <-ctx.Done():
			c.sched.Close()
			continue
		}

		c.markInFlight(key)
		workerWG.Add(1)
		go func(key kmeta.ObjectRef) {
			defer func() {
				<-workers
				workerWG.Done()
			}()
			c.reconcileOne(ctx, key)
		}(key)
	}

	drained := make(chan struct{})
	go func() {
		workerWG.Wait()
		wg.Wait()
		close(drained)
	}()

	if c.opts.ShutdownTimeout <= 0 {
		<-drained
		return nil
	}
	select {
	case <-drained:
		return nil
	case <-time.After(c.opts.ShutdownTimeout):
		return errors.New("controller shutdown timed out waiting for in-flight reconciles to drain")
	}
}

// consumeSource turns one auxiliary broadcast's touched objects into
// scheduler submissions via its mapper.
func (c *Controller) consumeSource(ctx context.Context, src source) {
	ch, cancel := src.broadcast.Subscribe()
	defer cancel()
	flat := stream.Flatten(ctx, ch)
	for {
		select {
		case fr, ok := <-flat:
			if !ok {
				return
			}
			if fr.Err != nil {
				c.opts.Log.V(1).Info("auxiliary source reported an error", "error", fr.Err)
				continue
			}
			for _, key := range src.mapper(fr.Touched.Object) {
				c.sched.Submit(key, time.Now())
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Controller) notInFlight(key kmeta.ObjectRef) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, busy := c.inFlight[key]
	return !busy
}

func (c *Controller) markInFlight(key kmeta.ObjectRef) {
	c.mu.Lock()
	c.inFlight[key] = struct{}{}
	c.mu.Unlock()
}

func (c *Controller) clearInFlight(key kmeta.ObjectRef) {
	c.mu.Lock()
	delete(c.inFlight, key)
	c.mu.Unlock()
}

// reconcileOne looks up key, invokes the reconciler (or the not-found
// path if it's absent from the store), and submits the resulting
// requeue, if any.
func (c *Controller) reconcileOne(ctx context.Context, key kmeta.ObjectRef) {
	defer c.clearInFlight(key)

	obj, ok := c.primary.Get(key)
	if !ok {
		// Default policy is to skip and emit a not-found diagnostic,
		// rather than invoke the reconciler with a tombstone.
		c.opts.Log.V(1).Info("skipping reconcile for key no longer in the store", "key", key)
		return
	}

	c.opts.Metrics.ReconcileStarted(c.opts.Name)
	start := time.Now()
	action, err := c.reconcile(ctx, obj)
	d := time.Since(start)

	if err != nil {
		c.opts.Metrics.ReconcileFinished(c.opts.Name, "error", d)
		action = c.opts.ErrorPolicy(ctx, key, err)
		c.opts.Log.Error(err, "reconcile failed", "key", key)
	} else {
		c.opts.Metrics.ReconcileFinished(c.opts.Name, "success", d)
		if c.opts.OnSuccess != nil {
			c.opts.OnSuccess(key)
		}
	}

	if action.Requeue {
		c.sched.Submit(key, time.Now().Add(action.Delay))
	}
}

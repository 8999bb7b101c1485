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

package store

import (
	"context"

	"github.com/go-logr/logr"

	kmeta "github.com/kubecore/runtime/apis/meta"
	"github.com/kubecore/runtime/pkg/watcher"
)

// A Reflector is the single writer for a Store: it reads a watcher's
// Result channel and applies each event, buffering Init/InitApply events
// in a scratch map and committing them atomically on InitDone so readers
// never observe a half-relisted Store.
type Reflector struct {
	store     *Store
	broadcast *Broadcast
	log       logr.Logger

	scratch map[kmeta.ObjectRef]kmeta.Object
	initing bool
}

// NewReflector returns a Reflector that populates store and republishes
// every watcher.Result it sees to broadcast (which may be nil if no
// fan-out is needed).
func NewReflector(store *Store, broadcast *Broadcast, log logr.Logger) *Reflector {
	return &Reflector{store: store, broadcast: broadcast, log: log}
}

// Run drives in until it closes or ctx is cancelled, applying every
// event to the Reflector's Store. It returns as soon as either happens,
// so its lifetime follows that of the watcher.Watcher.Run channel it reads.
func (r *Reflector) Run(ctx context.Context, in <-chan watcher.Result) {
	for {
		select {
		case res, ok := <-in:
			if !ok {
				return
			}
			r.apply(res)
			if r.broadcast != nil {
				r.broadcast.Publish(ctx, res)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (r *Reflector) apply(res watcher.Result) {
	if res.Err != nil {
		r.log.V(1).Info("watcher reported an error", "error", res.Err)
		return
	}
	switch res.Event.Type {
	case watcher.Init:
		r.scratch = map[kmeta.ObjectRef]kmeta.Object{}
		r.initing = true

	case watcher.InitApply:
		ref := kmeta.RefOf(r.store.Kind(), res.Event.Object)
		if r.initing {
			r.scratch[ref] = res.Event.Object
		} else {
			// A bare InitApply outside an Init cycle (shouldn't happen
			// given the watcher's state machine, but cheap to tolerate)
			// behaves like an Apply.
			r.store.apply(ref, res.Event.Object)
		}

	case watcher.InitDone:
		if r.initing {
			r.store.replace(r.scratch)
			r.scratch = nil
			r.initing = false
		}

	case watcher.Apply:
		ref := kmeta.RefOf(r.store.Kind(), res.Event.Object)
		r.store.apply(ref, res.Event.Object)

	case watcher.Delete:
		ref := kmeta.RefOf(r.store.Kind(), res.Event.Object)
		r.store.delete(ref)
	}
}

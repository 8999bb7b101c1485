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

package stream

import (
	"context"

	kmeta "github.com/kubecore/runtime/apis/meta"
	"github.com/kubecore/runtime/pkg/watcher"
)

// A Touched is one object that changed shape (created, updated, or
// deleted) in a watcher's output, with Deleted distinguishing the two.
// Flatten discards the Init/InitDone framing and surfaces only these,
// including one per InitApply object.
type Touched struct {
	Object  kmeta.Object
	Deleted bool
}

// Flatten reads a watcher.Result channel and emits one Touched per
// Init-list member, Apply, and Delete, skipping the Init/InitDone framing
// events and forwarding errors as-is. It is meant to sit directly on top
// of a raw watcher (or a stream.WithBackoff-wrapped one) for consumers
// that only want "what changed", not the full init/apply lifecycle (e.g.
// a pkg/store.Reflector wants the framing; many ad hoc consumers don't).
func Flatten(ctx context.Context, in <-chan watcher.Result) <-chan FlatResult {
	out := make(chan FlatResult)
	go func() {
		defer close(out)
		for {
			select {
			case res, ok := <-in:
				if !ok {
					return
				}
				fr, emit := flattenOne(res)
				if !emit {
					continue
				}
				select {
				case out <- fr:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// A FlatResult is either a Touched or a propagated error.
type FlatResult struct {
	Touched Touched
	Err     error
}

func flattenOne(res watcher.Result) (FlatResult, bool) {
	if res.Err != nil {
		return FlatResult{Err: res.Err}, true
	}
	switch res.Event.Type {
	case watcher.InitApply, watcher.Apply:
		return FlatResult{Touched: Touched{Object: res.Event.Object}}, true
	case watcher.Delete:
		return FlatResult{Touched: Touched{Object: res.Event.Object, Deleted: true}}, true
	default: // Init, InitDone: framing only
		return FlatResult{}, false
	}
}

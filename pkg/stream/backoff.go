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

// Package stream provides wrappers around a watcher.Result channel:
// error backoff and predicate-based de-duplication.
package stream

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/kubecore/runtime/pkg/watcher"
)

// WithBackoff wraps a watcher's Result channel so that after an errored
// Result, the wrapper delays before reading the watcher's next send. The
// watcher itself is already blocked on that send (channels here are
// unbuffered), so delaying the read is sufficient to throttle the
// watcher's next actual List/Watch call — no pause API or explicit
// request-side throttle is needed anywhere in the chain.
//
// backoff.Step() is called once per consecutive error and reset once a
// non-error Result is read, the same cadence wait.Backoff is built for
// across client-go's own retrying callers.
func WithBackoff(ctx context.Context, in <-chan watcher.Result, backoff wait.Backoff, log logr.Logger) <-chan watcher.Result {
	out := make(chan watcher.Result)
	go func() {
		defer close(out)
		b := backoff
		for {
			select {
			case res, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- res:
				case <-ctx.Done():
					return
				}
				if res.Err != nil {
					d := b.Step()
					log.V(1).Info("backing off after watch error", "error", res.Err, "delay", d)
					select {
					case <-time.After(d):
					case <-ctx.Done():
						return
					}
				} else {
					b = backoff
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

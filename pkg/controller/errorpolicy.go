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
	"context"
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	kmeta "github.com/kubecore/runtime/apis/meta"
)

// An ErrorPolicy decides the next Action when a ReconcileFunc returns an
// error. Its result governs the next requeue; it is never called on
// success.
type ErrorPolicy func(ctx context.Context, key kmeta.ObjectRef, err error) Action

// ExponentialBackoffPolicy returns an ErrorPolicy that requeues with
// exponentially increasing delay per consecutive failure of the same
// key, grounded on the same wait.Backoff struct client-go's reflector and
// controllers use for their own retry windows. Backoff state is tracked
// per key; wire Forget into Options.OnSuccess so it resets once a key's
// reconcile succeeds.
type ExponentialBackoffPolicy struct {
	base wait.Backoff

	mu    sync.Mutex
	byKey map[kmeta.ObjectRef]*wait.Backoff
}

// NewExponentialBackoffPolicy returns a policy seeded from base. A
// reasonable default is wait.Backoff{Duration: time.Second, Factor: 2,
// Steps: 15, Cap: 5 * time.Minute}.
func NewExponentialBackoffPolicy(base wait.Backoff) *ExponentialBackoffPolicy {
	return &ExponentialBackoffPolicy{base: base, byKey: map[kmeta.ObjectRef]*wait.Backoff{}}
}

// Policy returns the ErrorPolicy function form.
func (p *ExponentialBackoffPolicy) Policy() ErrorPolicy {
	return func(_ context.Context, key kmeta.ObjectRef, _ error) Action {
		p.mu.Lock()
		defer p.mu.Unlock()

		b, ok := p.byKey[key]
		if !ok {
			nb := p.base
			b = &nb
			p.byKey[key] = b
		}
		return RequeueAfter(b.Step())
	}
}

// Forget clears any backoff state tracked for key, so its next failure
// starts again from the base delay. Wire it as Options.OnSuccess so the
// Controller calls it whenever key's reconcile succeeds.
func (p *ExponentialBackoffPolicy) Forget(key kmeta.ObjectRef) {
	p.mu.Lock()
	delete(p.byKey, key)
	p.mu.Unlock()
}

// FixedDelayPolicy returns an ErrorPolicy that always requeues after d,
// ignoring the failure count — the simplest possible error policy.
func FixedDelayPolicy(d time.Duration) ErrorPolicy {
	return func(context.Context, kmeta.ObjectRef, error) Action {
		return RequeueAfter(d)
	}
}

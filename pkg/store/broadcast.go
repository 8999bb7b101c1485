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
	"sync"

	"github.com/kubecore/runtime/pkg/watcher"
)

// Broadcast fans a single watcher.Result stream out to any number of
// subscriber channels. Publish sends to every subscriber sequentially and
// blockingly: there is no non-blocking send anywhere in this path, so one
// slow subscriber stalls the whole pipeline by construction rather than
// silently dropping events for everyone else.
type Broadcast struct {
	mu   sync.Mutex
	subs map[chan watcher.Result]struct{}
}

// NewBroadcast returns an empty Broadcast.
func NewBroadcast() *Broadcast {
	return &Broadcast{subs: map[chan watcher.Result]struct{}{}}
}

// Subscribe registers and returns a new channel that will receive every
// subsequent Publish call's event. Callers must call the returned cancel
// func to unsubscribe; failing to do so (and failing to drain the
// channel) blocks all future Publish calls forever.
//
// The channel is never closed by Broadcast, only unregistered: a Publish
// already in flight may hold a reference to it, and closing underneath an
// in-flight send would panic. Subscribers stop reading once they've
// called cancel.
func (b *Broadcast) Subscribe() (<-chan watcher.Result, func()) {
	ch := make(chan watcher.Result)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	cancel := func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers res to every current subscriber, in an unspecified
// order, blocking on each send until it is received or ctx is cancelled.
func (b *Broadcast) Publish(ctx context.Context, res watcher.Result) {
	b.mu.Lock()
	subs := make([]chan watcher.Result, 0, len(b.subs))
	for ch := range b.subs {
		subs = append(subs, ch)
	}
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- res:
		case <-ctx.Done():
			return
		}
	}
}

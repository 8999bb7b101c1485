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

// Package fake provides a scripted transport.Interface double for testing
// the watcher's state machine without a real apiserver, in the spirit of
// client-go's own fake clientsets: callers enqueue scripted responses and
// drive their timing directly instead of standing up a server.
package fake

import (
	"context"
	"sync"

	"github.com/kubecore/runtime/apis/meta"
	"github.com/kubecore/runtime/pkg/transport"
)

// A ListPage is one scripted response to a List call.
type ListPage struct {
	Result *transport.ListResult
	Err    error
}

// A Watch is one scripted response to a Watch call: either an error, or a
// channel of events the test controls the timing of.
type Watch struct {
	Err    error
	Events chan transport.WatchEvent
}

// Transport is a scripted transport.Interface. Tests enqueue ListPages and
// Watches; calls consume them in order. Calling List or Watch with nothing
// left queued blocks until the test enqueues more or the context is
// cancelled.
type Transport struct {
	mu sync.Mutex

	listPages []ListPage
	listCond  *sync.Cond

	watches  []*Watch
	watchIdx int
	watchNew chan struct{}
}

// New returns an empty scripted Transport.
func New() *Transport {
	t := &Transport{watchNew: make(chan struct{}, 1)}
	t.listCond = sync.NewCond(&t.mu)
	return t
}

// EnqueueList schedules the next List call to return result, err.
func (t *Transport) EnqueueList(result *transport.ListResult, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listPages = append(t.listPages, ListPage{Result: result, Err: err})
	t.listCond.Signal()
}

// EnqueueWatch schedules the next Watch call to return w. The caller
// retains w.Events to drive the watch stream's timing.
func (t *Transport) EnqueueWatch(w *Watch) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.watches = append(t.watches, w)
	select {
	case t.watchNew <- struct{}{}:
	default:
	}
}

// List implements transport.Interface.
func (t *Transport) List(ctx context.Context, _ meta.Kind, _ string, _ string, _ transport.ListParams) (*transport.ListResult, error) {
	t.mu.Lock()
	for len(t.listPages) == 0 {
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				t.listCond.Broadcast()
			case <-done:
			}
		}()
		t.listCond.Wait()
		close(done)
		if ctx.Err() != nil {
			t.mu.Unlock()
			return nil, ctx.Err()
		}
	}
	page := t.listPages[0]
	t.listPages = t.listPages[1:]
	t.mu.Unlock()
	return page.Result, page.Err
}

// Watch implements transport.Interface.
func (t *Transport) Watch(ctx context.Context, _ meta.Kind, _ string, _ string, _ transport.ListParams) (transport.WatchInterface, error) {
	for {
		t.mu.Lock()
		if t.watchIdx < len(t.watches) {
			w := t.watches[t.watchIdx]
			t.watchIdx++
			t.mu.Unlock()
			if w.Err != nil {
				return nil, w.Err
			}
			return &watchInterface{events: w.Events}, nil
		}
		t.mu.Unlock()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.watchNew:
		}
	}
}

type watchInterface struct {
	events chan transport.WatchEvent
	once   sync.Once
}

func (w *watchInterface) ResultChan() <-chan transport.WatchEvent { return w.events }

func (w *watchInterface) Stop() {
	w.once.Do(func() { close(w.events) })
}

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

// Package watcher turns a single list/watch session into a stream of
// coherent WatcherEvents, recovering from desync (410 Gone), threading
// pagination, and tracking bookmark resource versions.
//
// The state machine is an explicit enum advanced by a single driver
// function (Watcher.step), not nested generator syntax, so every
// suspension point is visible and every transition is independently
// testable.
package watcher

import (
	"context"

	"github.com/go-logr/logr"
	apierrors "k8s.io/apimachinery/pkg/api/errors"

	kmeta "github.com/kubecore/runtime/apis/meta"
	"github.com/kubecore/runtime/pkg/transport"
)

// An EventType is one of the five WatcherEvent kinds.
type EventType int

// Recognized event types.
const (
	// Init signals a full-list restart is beginning; stores must begin
	// buffering replacements.
	Init EventType = iota
	// InitApply carries one object belonging to the in-progress list.
	InitApply
	// InitDone signals the full list is complete; stores atomically
	// commit the buffered set and drop objects not seen during Init.
	InitDone
	// Apply signals an object was created or modified after the initial
	// sync.
	Apply
	// Delete signals an object was deleted.
	Delete
)

// String implements fmt.Stringer.
func (t EventType) String() string {
	switch t {
	case Init:
		return "Init"
	case InitApply:
		return "InitApply"
	case InitDone:
		return "InitDone"
	case Apply:
		return "Apply"
	case Delete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// An Event is one item in the watcher's output stream.
type Event struct {
	Type   EventType
	Object kmeta.Object
}

// A Result is either an Event or an error surfaced from a transient
// failure. Exactly one of Event and Err is set for a non-zero Result;
// consumers should check Err first.
type Result struct {
	Event Event
	Err   error
}

// Options configure a Watcher.
type Options struct {
	Namespace string
	Params    transport.ListParams
	Logger    logr.Logger
}

// A Watcher drives one (api, list-params) session into a channel of
// Results. It lives as long as the caller keeps reading; internally it
// cycles List -> Watch -> (re-List on desync) forever, or until its
// context is cancelled.
type Watcher struct {
	transport transport.Interface
	kind      kmeta.Kind
	opts      Options
}

// New constructs a Watcher over the given transport and kind.
func New(t transport.Interface, k kmeta.Kind, opts Options) *Watcher {
	return &Watcher{transport: t, kind: k, opts: opts}
}

// state is the watcher's internal finite state, advanced one step at a
// time by step():
//
//	Empty -> InitStart -> InitPage{continue} <-> InitDrain -> InitDone -> InitListed{rv}
//	InitListed{rv} -> Watching{rv} -> Watching{rv'} -> ... -> Empty | InitListed{rv}
type state int

const (
	stateEmpty state = iota
	stateInitStart
	stateInitPage
	stateInitDrain
	stateInitDone
	stateInitListed
	stateWatching
)

// driver holds the mutable state threaded between steps: which phase the
// watcher is in, the resource version it's tracking, the list continue
// token, and (while Watching) the open watch stream.
type driver struct {
	st        state
	rv        string
	cont      string
	w         transport.WatchInterface
	pendingRV string // rv about to become current once InitDone/InitListed lands
	page      []kmeta.Object
}

// Run starts the watcher and returns a channel of Results. The channel is
// unbuffered: the watcher blocks on each send until the consumer reads it,
// which is what lets stream.WithBackoff gate the watcher's *next*
// list/watch call for free — refusing to read simply leaves the watcher
// parked on its current send.
func (w *Watcher) Run(ctx context.Context) <-chan Result {
	out := make(chan Result)
	go func() {
		defer close(out)
		d := &driver{st: stateEmpty}
		for {
			res, ok := w.step(ctx, d)
			if !ok {
				// No event to emit this step; loop immediately to the
				// next internal transition (e.g. InitListed -> Watching).
				if ctx.Err() != nil {
					return
				}
				continue
			}
			select {
			case out <- res:
			case <-ctx.Done():
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
	return out
}

// step advances d by exactly one transition, returning (result, true) if a
// Result should be emitted, or (zero, false) if the transition was
// internal (no emission) and the driver loop should call step again.
func (w *Watcher) step(ctx context.Context, d *driver) (Result, bool) {
	switch d.st {
	case stateEmpty:
		d.cont = ""
		d.st = stateInitStart
		return Result{Event: Event{Type: Init}}, true

	case stateInitStart:
		d.st = stateInitPage
		return Result{}, false

	case stateInitPage:
		page, err := w.transport.List(ctx, w.kind, w.opts.Namespace, d.cont, w.opts.Params)
		if err != nil {
			// Surfaced transient error; stay in InitPage so the caller
			// (gated by the backoff wrapper reading this channel) can
			// retry the same page request.
			return Result{Err: err}, true
		}
		d.pendingRV = page.ResourceVersion
		if page.Continue != "" {
			d.cont = page.Continue
		} else {
			d.cont = ""
		}
		d.page = page.Items
		if len(d.page) == 0 {
			if d.cont == "" {
				d.st = stateInitDone
			}
			return Result{}, false
		}
		d.st = stateInitDrain
		return Result{}, false

	case stateInitDrain:
		// Emit exactly one InitApply per step so each is individually
		// visible to the store writer; the remaining items of the page
		// stay buffered on the driver until drained, at which point the
		// driver either fetches the next page or moves to InitDone.
		return w.drainPage(d)

	case stateInitDone:
		d.rv = d.pendingRV
		d.st = stateInitListed
		return Result{Event: Event{Type: InitDone}}, true

	case stateInitListed:
		stream, err := w.transport.Watch(ctx, w.kind, w.opts.Namespace, d.rv, w.opts.Params)
		if err != nil {
			return Result{Err: err}, true
		}
		d.w = stream
		d.st = stateWatching
		return Result{}, false

	case stateWatching:
		return w.watchStep(d)
	}
	return Result{}, false
}

// drainPage emits one InitApply per call for the items buffered from the
// most recent list page, advancing to the next page (or to InitDone once
// the last page's items are drained) when the buffer empties.
func (w *Watcher) drainPage(d *driver) (Result, bool) {
	obj := d.page[0]
	d.page = d.page[1:]
	if len(d.page) == 0 {
		if d.cont == "" {
			d.st = stateInitDone
		} else {
			d.st = stateInitPage
		}
	}
	return Result{Event: Event{Type: InitApply, Object: obj}}, true
}

// watchStep handles one event off the open watch stream.
func (w *Watcher) watchStep(d *driver) (Result, bool) {
	ev, ok := <-d.w.ResultChan()
	if !ok {
		// EOF: no emit, rewatch from the same resource version.
		d.w = nil
		d.st = stateInitListed
		return Result{}, false
	}
	switch ev.Type {
	case transport.Added, transport.Modified:
		if ev.Err != nil || ev.Object == nil {
			return Result{Err: ev.Err}, true
		}
		d.rv = ev.Object.GetResourceVersion()
		return Result{Event: Event{Type: Apply, Object: ev.Object}}, true

	case transport.Deleted:
		if ev.Err != nil || ev.Object == nil {
			return Result{Err: ev.Err}, true
		}
		d.rv = ev.Object.GetResourceVersion()
		return Result{Event: Event{Type: Delete, Object: ev.Object}}, true

	case transport.Bookmark:
		if ev.Object != nil {
			d.rv = ev.Object.GetResourceVersion()
		}
		return Result{}, false

	case transport.Error:
		status := statusFromEvent(ev)
		if apierrors.IsResourceExpired(status) || apierrors.IsGone(status) {
			// 410 Gone: the watch's resource version fell out of the
			// apiserver's compaction window. Discard the stream and
			// restart from a fresh list.
			d.w.Stop()
			d.w = nil
			d.st = stateEmpty
			return Result{}, false
		}
		return Result{Err: status}, true

	default:
		// Malformed/unknown envelope: surfaced, does not advance rv,
		// watch stays open.
		return Result{Err: ev.Err}, true
	}
}

// statusFromEvent turns a transport.Error envelope into an error the
// apierrors classifiers (IsGone, IsResourceExpired, ...) understand.
func statusFromEvent(ev transport.WatchEvent) error {
	if ev.Err != nil {
		return ev.Err
	}
	if ev.Object == nil {
		return apierrors.NewInternalError(errUnknownWatchError{})
	}
	return apierrors.FromObject(ev.Object)
}

type errUnknownWatchError struct{}

func (errUnknownWatchError) Error() string {
	return "watch stream returned an ERROR event with no object"
}

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

package watcher

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	kmeta "github.com/kubecore/runtime/apis/meta"
	"github.com/kubecore/runtime/pkg/transport"
	"github.com/kubecore/runtime/pkg/transport/fake"
)

var widgetKind = kmeta.Kind{Group: "example.io", Version: "v1", Kind: "Widget", Plural: "widgets", Scope: kmeta.Namespaced}

func widget(name, rv string) *unstructured.Unstructured {
	u := &unstructured.Unstructured{}
	u.SetGroupVersionKind(schema.GroupVersionKind{Group: "example.io", Version: "v1", Kind: "Widget"})
	u.SetNamespace("default")
	u.SetName(name)
	u.SetResourceVersion(rv)
	return u
}

func drain(t *testing.T, ch <-chan Result, n int, timeout time.Duration) []Result {
	t.Helper()
	got := make([]Result, 0, n)
	for i := 0; i < n; i++ {
		select {
		case r, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed after %d of %d results", i, n)
			}
			got = append(got, r)
		case <-time.After(timeout):
			t.Fatalf("timed out waiting for result %d of %d", i, n)
		}
	}
	return got
}

func TestWatcherInitialList(t *testing.T) {
	tr := fake.New()
	tr.EnqueueList(&transport.ListResult{
		Items:           []kmeta.Object{widget("a", "1"), widget("b", "1")},
		ResourceVersion: "1",
	}, nil)
	watchEvents := make(chan transport.WatchEvent)
	tr.EnqueueWatch(&fake.Watch{Events: watchEvents})
	defer close(watchEvents)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := New(tr, widgetKind, Options{Namespace: "default"})
	out := w.Run(ctx)

	got := drain(t, out, 4, time.Second)
	want := []Result{
		{Event: Event{Type: Init}},
		{Event: Event{Type: InitApply, Object: widget("a", "1")}},
		{Event: Event{Type: InitApply, Object: widget("b", "1")}},
		{Event: Event{Type: InitDone}},
	}
	if diff := cmp.Diff(want, got, cmp.Comparer(objEqual)); diff != "" {
		t.Fatalf("unexpected events (-want +got):\n%s", diff)
	}
}

func TestWatcherPagination(t *testing.T) {
	tr := fake.New()
	tr.EnqueueList(&transport.ListResult{
		Items:           []kmeta.Object{widget("a", "1")},
		ResourceVersion: "1",
		Continue:        "page2",
	}, nil)
	tr.EnqueueList(&transport.ListResult{
		Items:           []kmeta.Object{widget("b", "1")},
		ResourceVersion: "1",
	}, nil)
	watchEvents := make(chan transport.WatchEvent)
	tr.EnqueueWatch(&fake.Watch{Events: watchEvents})
	defer close(watchEvents)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := New(tr, widgetKind, Options{Namespace: "default", Params: transport.ListParams{PageSize: 1}})
	out := w.Run(ctx)

	got := drain(t, out, 4, time.Second)
	want := []Result{
		{Event: Event{Type: Init}},
		{Event: Event{Type: InitApply, Object: widget("a", "1")}},
		{Event: Event{Type: InitApply, Object: widget("b", "1")}},
		{Event: Event{Type: InitDone}},
	}
	if diff := cmp.Diff(want, got, cmp.Comparer(objEqual)); diff != "" {
		t.Fatalf("unexpected events across pages (-want +got):\n%s", diff)
	}
}

func TestWatcherAppliesAndDeletes(t *testing.T) {
	tr := fake.New()
	tr.EnqueueList(&transport.ListResult{ResourceVersion: "1"}, nil)
	watchEvents := make(chan transport.WatchEvent, 2)
	tr.EnqueueWatch(&fake.Watch{Events: watchEvents})
	watchEvents <- transport.WatchEvent{Type: transport.Added, Object: widget("a", "2")}
	watchEvents <- transport.WatchEvent{Type: transport.Deleted, Object: widget("a", "3")}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := New(tr, widgetKind, Options{Namespace: "default"})
	out := w.Run(ctx)

	got := drain(t, out, 4, time.Second)
	want := []Result{
		{Event: Event{Type: Init}},
		{Event: Event{Type: InitDone}},
		{Event: Event{Type: Apply, Object: widget("a", "2")}},
		{Event: Event{Type: Delete, Object: widget("a", "3")}},
	}
	if diff := cmp.Diff(want, got, cmp.Comparer(objEqual)); diff != "" {
		t.Fatalf("unexpected apply/delete events (-want +got):\n%s", diff)
	}
}

func TestWatcherBookmarkDoesNotEmit(t *testing.T) {
	tr := fake.New()
	tr.EnqueueList(&transport.ListResult{ResourceVersion: "1"}, nil)
	watchEvents := make(chan transport.WatchEvent, 2)
	tr.EnqueueWatch(&fake.Watch{Events: watchEvents})
	watchEvents <- transport.WatchEvent{Type: transport.Bookmark, Object: widget("", "9")}
	watchEvents <- transport.WatchEvent{Type: transport.Added, Object: widget("a", "10")}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := New(tr, widgetKind, Options{Namespace: "default"})
	out := w.Run(ctx)

	got := drain(t, out, 3, time.Second)
	if got[2].Event.Type != Apply || got[2].Event.Object.GetResourceVersion() != "10" {
		t.Fatalf("expected Apply at rv=10 after bookmark, got %+v", got[2])
	}
}

func TestWatcherGoneTriggersRelist(t *testing.T) {
	tr := fake.New()
	tr.EnqueueList(&transport.ListResult{ResourceVersion: "1"}, nil)
	watchEvents := make(chan transport.WatchEvent, 1)
	tr.EnqueueWatch(&fake.Watch{Events: watchEvents})

	status := &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Reason:  metav1.StatusReasonGone,
		Message: "too old resource version",
	}}
	statusObj := &unstructured.Unstructured{}
	statusObj.SetUnstructuredContent(mustToUnstructured(&status.ErrStatus))
	watchEvents <- transport.WatchEvent{Type: transport.Error, Object: statusObj}

	tr.EnqueueList(&transport.ListResult{
		Items:           []kmeta.Object{widget("c", "20")},
		ResourceVersion: "20",
	}, nil)
	watchEvents2 := make(chan transport.WatchEvent)
	tr.EnqueueWatch(&fake.Watch{Events: watchEvents2})
	defer close(watchEvents2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := New(tr, widgetKind, Options{Namespace: "default"})
	out := w.Run(ctx)

	got := drain(t, out, 5, time.Second)
	want := []Result{
		{Event: Event{Type: Init}},
		{Event: Event{Type: InitDone}},
		{Event: Event{Type: Init}},
		{Event: Event{Type: InitApply, Object: widget("c", "20")}},
		{Event: Event{Type: InitDone}},
	}
	if diff := cmp.Diff(want, got, cmp.Comparer(objEqual)); diff != "" {
		t.Fatalf("unexpected relist sequence (-want +got):\n%s", diff)
	}
}

func TestWatcherSurfacesListError(t *testing.T) {
	tr := fake.New()
	boom := apierrors.NewServiceUnavailable("unavailable")
	tr.EnqueueList(nil, boom)
	tr.EnqueueList(&transport.ListResult{ResourceVersion: "1"}, nil)
	watchEvents := make(chan transport.WatchEvent)
	tr.EnqueueWatch(&fake.Watch{Events: watchEvents})
	defer close(watchEvents)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := New(tr, widgetKind, Options{Namespace: "default"})
	out := w.Run(ctx)

	got := drain(t, out, 3, time.Second)
	if got[1].Err == nil {
		t.Fatalf("expected the list error to surface, got %+v", got[1])
	}
	if got[2].Event.Type != InitDone {
		t.Fatalf("expected the watcher to retry the same page after an error, got %+v", got[2])
	}
}

func objEqual(a, b kmeta.Object) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.GetName() == b.GetName() &&
		a.GetNamespace() == b.GetNamespace() &&
		a.GetResourceVersion() == b.GetResourceVersion()
}

func mustToUnstructured(status *metav1.Status) map[string]interface{} {
	return map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "Status",
		"status":     status.Status,
		"reason":     string(status.Reason),
		"message":    status.Message,
	}
}

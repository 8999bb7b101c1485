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
	"testing"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	kmeta "github.com/kubecore/runtime/apis/meta"
	"github.com/kubecore/runtime/pkg/watcher"
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

func TestReflectorInitCycleCommitsAtomically(t *testing.T) {
	s := New(widgetKind)
	r := NewReflector(s, nil, logr.Discard())

	in := make(chan watcher.Result, 8)
	in <- watcher.Result{Event: watcher.Event{Type: watcher.Init}}
	in <- watcher.Result{Event: watcher.Event{Type: watcher.InitApply, Object: widget("a", "1")}}
	in <- watcher.Result{Event: watcher.Event{Type: watcher.InitApply, Object: widget("b", "1")}}

	// Mid-init, the store must still be empty: nothing commits until
	// InitDone lands, so readers never see a half-relisted snapshot.
	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		r.Run(ctx, in)
		close(done)
	}()

	in <- watcher.Result{Event: watcher.Event{Type: watcher.InitDone}}
	close(in)
	<-done

	if s.Len() != 2 {
		t.Fatalf("expected 2 objects after InitDone, got %d", s.Len())
	}
	if _, ok := s.Get(kmeta.RefOf(widgetKind, widget("a", "1"))); !ok {
		t.Fatal("expected widget a to be present")
	}
}

func TestReflectorApplyAndDelete(t *testing.T) {
	s := New(widgetKind)
	r := NewReflector(s, nil, logr.Discard())

	in := make(chan watcher.Result, 8)
	in <- watcher.Result{Event: watcher.Event{Type: watcher.Init}}
	in <- watcher.Result{Event: watcher.Event{Type: watcher.InitDone}}
	in <- watcher.Result{Event: watcher.Event{Type: watcher.Apply, Object: widget("a", "2")}}
	close(in)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Run(ctx, in)

	if s.Len() != 1 {
		t.Fatalf("expected 1 object after Apply, got %d", s.Len())
	}

	in2 := make(chan watcher.Result, 1)
	in2 <- watcher.Result{Event: watcher.Event{Type: watcher.Delete, Object: widget("a", "3")}}
	close(in2)
	r.Run(ctx, in2)

	if s.Len() != 0 {
		t.Fatalf("expected 0 objects after Delete, got %d", s.Len())
	}
}

func TestReflectorIgnoresErroredResults(t *testing.T) {
	s := New(widgetKind)
	r := NewReflector(s, nil, logr.Discard())

	in := make(chan watcher.Result, 2)
	in <- watcher.Result{Err: context.DeadlineExceeded}
	close(in)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Run(ctx, in)

	if s.Len() != 0 {
		t.Fatalf("expected an errored result to leave the store untouched, got %d objects", s.Len())
	}
}

func TestBroadcastDeliversToAllSubscribers(t *testing.T) {
	b := NewBroadcast()
	ch1, cancel1 := b.Subscribe()
	defer cancel1()
	ch2, cancel2 := b.Subscribe()
	defer cancel2()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res := watcher.Result{Event: watcher.Event{Type: watcher.InitDone}}
	go b.Publish(ctx, res)

	for i, ch := range []<-chan watcher.Result{ch1, ch2} {
		select {
		case got := <-ch:
			if got.Event.Type != watcher.InitDone {
				t.Fatalf("subscriber %d: unexpected event %+v", i, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: timed out waiting for publish", i)
		}
	}
}

func TestBroadcastUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBroadcast()
	ch, cancel := b.Subscribe()
	cancel()

	ctx, ctxCancel := context.WithCancel(context.Background())
	defer ctxCancel()
	b.Publish(ctx, watcher.Result{Event: watcher.Event{Type: watcher.InitDone}})

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("unsubscribed channel should not receive further publishes")
		}
	default:
		// No value and no close: correct, since Broadcast never closes
		// subscriber channels.
	}
}

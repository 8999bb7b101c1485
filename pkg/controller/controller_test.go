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
	"sync/atomic"
	"testing"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	kmeta "github.com/kubecore/runtime/apis/meta"
	"github.com/kubecore/runtime/pkg/store"
)

var widgetKind = kmeta.Kind{Group: "example.io", Version: "v1", Kind: "Widget", Plural: "widgets", Scope: kmeta.Namespaced}

func widget(name string) *unstructured.Unstructured {
	u := &unstructured.Unstructured{}
	u.SetGroupVersionKind(schema.GroupVersionKind{Group: "example.io", Version: "v1", Kind: "Widget"})
	u.SetNamespace("default")
	u.SetName(name)
	return u
}

func TestControllerReconcilesSeededKeys(t *testing.T) {
	s := store.New(widgetKind)
	s.Put(kmeta.RefOf(widgetKind, widget("a")), widget("a"))
	s.Put(kmeta.RefOf(widgetKind, widget("b")), widget("b"))

	var mu sync.Mutex
	seen := map[string]int{}
	reconciled := make(chan struct{}, 8)
	fn := func(_ context.Context, obj kmeta.Object) (Action, error) {
		mu.Lock()
		seen[obj.GetName()]++
		mu.Unlock()
		reconciled <- struct{}{}
		return AwaitChange, nil
	}

	c := New(s, fn, Options{MaxConcurrentReconciles: 2})
	ctx, cancel := context.WithCancel(context.Background())
	c.ReconcileAll()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	for i := 0; i < 2; i++ {
		select {
		case <-reconciled:
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for reconcile %d", i)
		}
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Run to return after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if seen["a"] != 1 || seen["b"] != 1 {
		t.Fatalf("expected each key reconciled exactly once, got %+v", seen)
	}
}

func TestControllerSkipsKeyNotInStore(t *testing.T) {
	s := store.New(widgetKind)
	var calls int32
	fn := func(_ context.Context, _ kmeta.Object) (Action, error) {
		atomic.AddInt32(&calls, 1)
		return AwaitChange, nil
	}
	c := New(s, fn, Options{})
	c.sched.Submit(kmeta.ObjectRef{Kind: "Widget", Namespace: "default", Name: "ghost"}, time.Now())

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_ = c.Run(ctx)

	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("expected the reconciler to never be invoked for an absent key, got %d calls", calls)
	}
}

func TestControllerRequeuesOnError(t *testing.T) {
	s := store.New(widgetKind)
	ref := kmeta.RefOf(widgetKind, widget("a"))
	s.Put(ref, widget("a"))

	var calls int32
	errDeliberate := errFixture{}
	fn := func(_ context.Context, _ kmeta.Object) (Action, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return AwaitChange, errDeliberate
		}
		return AwaitChange, nil
	}

	c := New(s, fn, Options{ErrorPolicy: FixedDelayPolicy(20 * time.Millisecond)})
	c.sched.Submit(ref, time.Now())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = c.Run(ctx)

	if atomic.LoadInt32(&calls) < 2 {
		t.Fatalf("expected the error policy to requeue for a second attempt, got %d calls", calls)
	}
}

func TestControllerCallsOnSuccessAfterReconcile(t *testing.T) {
	s := store.New(widgetKind)
	ref := kmeta.RefOf(widgetKind, widget("a"))
	s.Put(ref, widget("a"))

	fn := func(_ context.Context, _ kmeta.Object) (Action, error) {
		return AwaitChange, nil
	}

	forgotten := make(chan kmeta.ObjectRef, 1)
	c := New(s, fn, Options{OnSuccess: func(key kmeta.ObjectRef) { forgotten <- key }})
	c.sched.Submit(ref, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case key := <-forgotten:
		if key != ref {
			t.Fatalf("OnSuccess called with %v, want %v", key, ref)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for OnSuccess to be called")
	}
	cancel()
	<-done
}

type errFixture struct{}

func (errFixture) Error() string { return "deliberate test failure" }

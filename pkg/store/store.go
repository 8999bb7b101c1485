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

// Package store holds the last-known-good state of a watched collection
// and fans its changes out to subscribers.
package store

import (
	"sync"
	"sync/atomic"

	kmeta "github.com/kubecore/runtime/apis/meta"
)

// A Store is a thread-safe, point-in-time snapshot of one kind's objects,
// keyed by ObjectRef. Reads never block on writes: the snapshot is an
// atomically-swapped map, replaced wholesale only when a Reflector
// finishes an Init cycle (InitDone), and replaced by a modified copy for
// each Apply/Delete in between; a published map is never mutated.
type Store struct {
	kind kmeta.Kind

	snapshot atomic.Pointer[map[kmeta.ObjectRef]kmeta.Object]

	// mu serializes writers. Only the owning Reflector writes; readers
	// never take it.
	mu sync.Mutex
}

// New returns an empty Store for kind k.
func New(k kmeta.Kind) *Store {
	s := &Store{kind: k}
	empty := map[kmeta.ObjectRef]kmeta.Object{}
	s.snapshot.Store(&empty)
	return s
}

// Kind returns the kind this Store holds.
func (s *Store) Kind() kmeta.Kind { return s.kind }

// Get returns the object for ref and whether it was present.
func (s *Store) Get(ref kmeta.ObjectRef) (kmeta.Object, bool) {
	m := *s.snapshot.Load()
	obj, ok := m[ref]
	return obj, ok
}

// List returns every object currently held, in no particular order.
func (s *Store) List() []kmeta.Object {
	m := *s.snapshot.Load()
	out := make([]kmeta.Object, 0, len(m))
	for _, obj := range m {
		out = append(out, obj)
	}
	return out
}

// Len reports how many objects the Store currently holds.
func (s *Store) Len() int {
	return len(*s.snapshot.Load())
}

// Put inserts or updates obj under ref directly, bypassing the
// Reflector's Init/Apply bookkeeping. Intended for seeding a Store from a
// source other than a watcher (tests, or a one-shot bootstrap list).
func (s *Store) Put(ref kmeta.ObjectRef, obj kmeta.Object) {
	s.apply(ref, obj)
}

// Delete removes ref from the Store directly, mirroring Put.
func (s *Store) Delete(ref kmeta.ObjectRef) {
	s.delete(ref)
}

// apply inserts or updates obj under ref, copying the snapshot map so
// concurrent List/Get calls never observe a partially-written map.
func (s *Store) apply(ref kmeta.ObjectRef, obj kmeta.Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := *s.snapshot.Load()
	next := make(map[kmeta.ObjectRef]kmeta.Object, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[ref] = obj
	s.snapshot.Store(&next)
}

// delete removes ref from the Store, if present.
func (s *Store) delete(ref kmeta.ObjectRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := *s.snapshot.Load()
	if _, ok := old[ref]; !ok {
		return
	}
	next := make(map[kmeta.ObjectRef]kmeta.Object, len(old))
	for k, v := range old {
		if k != ref {
			next[k] = v
		}
	}
	s.snapshot.Store(&next)
}

// replace atomically swaps the entire snapshot, dropping any ref not
// present in next. Used once per Init cycle, on InitDone.
func (s *Store) replace(next map[kmeta.ObjectRef]kmeta.Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Store(&next)
}

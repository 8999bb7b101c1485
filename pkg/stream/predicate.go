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
	"encoding/json"
	"hash/fnv"
	"sort"

	kmeta "github.com/kubecore/runtime/apis/meta"
)

// A Predicate hashes one property of an object. Filter only re-emits an
// Init/Apply event when the hash changes from the last one seen for the
// same object; a predicate that can't compute a hash for an object (the
// property doesn't apply, e.g. no generation set) always lets the object
// through.
type Predicate func(obj kmeta.Object) (hash uint64, ok bool)

// Fallback returns a Predicate that uses p, falling back to alt only when
// p has no opinion (ok == false) for an object.
func (p Predicate) Fallback(alt Predicate) Predicate {
	return func(obj kmeta.Object) (uint64, bool) {
		if h, ok := p(obj); ok {
			return h, true
		}
		return alt(obj)
	}
}

// Combine returns a Predicate that hashes both p and other together. If
// neither has an opinion the combination has none either, so callers can
// still chain .Fallback after a Combine.
func (p Predicate) Combine(other Predicate) Predicate {
	return func(obj kmeta.Object) (uint64, bool) {
		h1, ok1 := p(obj)
		h2, ok2 := other(obj)
		if !ok1 && !ok2 {
			return 0, false
		}
		return hashPair(h1, ok1, h2, ok2), true
	}
}

// Generation hashes an object's metadata.generation.
func Generation(obj kmeta.Object) (uint64, bool) {
	gen := obj.GetGeneration()
	if gen == 0 {
		return 0, false
	}
	return hashUint64(uint64(gen)), true
}

// ResourceVersion hashes an object's metadata.resourceVersion.
func ResourceVersion(obj kmeta.Object) (uint64, bool) {
	rv := obj.GetResourceVersion()
	if rv == "" {
		return 0, false
	}
	return hashString(rv), true
}

// Labels hashes an object's labels. Always applicable: an empty label
// set hashes to a stable value.
func Labels(obj kmeta.Object) (uint64, bool) {
	return hashStringMap(obj.GetLabels()), true
}

// Annotations hashes an object's annotations.
func Annotations(obj kmeta.Object) (uint64, bool) {
	return hashStringMap(obj.GetAnnotations()), true
}

func hashUint64(v uint64) uint64 {
	h := fnv.New64a()
	b := []byte{
		byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24),
		byte(v >> 32), byte(v >> 40), byte(v >> 48), byte(v >> 56),
	}
	_, _ = h.Write(b)
	return h.Sum64()
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func hashStringMap(m map[string]string) uint64 {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	h := fnv.New64a()
	for _, k := range keys {
		_, _ = h.Write([]byte(k))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(m[k]))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

func hashPair(a uint64, aOK bool, b uint64, bOK bool) uint64 {
	// encoding/json gives a stable, collision-resistant encoding of the
	// (present, value) pairs without reaching for a reflection-based
	// struct hasher this corpus doesn't otherwise depend on.
	enc, _ := json.Marshal([4]interface{}{aOK, a, bOK, b})
	h := fnv.New64a()
	_, _ = h.Write(enc)
	return h.Sum64()
}

// PredicateFilter remembers, per ObjectRef, the last hash a Predicate
// produced, and reports through Allow whether an object's hash changed.
// It does not read a Result stream itself: the caller decides which
// events it passes to Allow and what to do with the others.
type PredicateFilter struct {
	predicate Predicate
	cache     map[kmeta.ObjectRef]uint64
	kind      kmeta.Kind
}

// NewPredicateFilter constructs a filter for objects of kind k.
func NewPredicateFilter(k kmeta.Kind, p Predicate) *PredicateFilter {
	return &PredicateFilter{predicate: p, cache: map[kmeta.ObjectRef]uint64{}, kind: k}
}

// Allow reports whether obj should be emitted. It is not goroutine-safe;
// callers read a single upstream event stream sequentially.
func (f *PredicateFilter) Allow(obj kmeta.Object) bool {
	val, ok := f.predicate(obj)
	if !ok {
		return true
	}
	ref := kmeta.RefOf(f.kind, obj)
	old, seen := f.cache[ref]
	f.cache[ref] = val
	return !seen || old != val
}

// Forget drops any cached hash for ref, so a later re-Apply of the same
// generation/labels is treated as a change. Allow never drops entries on
// its own, so the entry of a deleted object stays cached until Forget is
// called for it.
func (f *PredicateFilter) Forget(ref kmeta.ObjectRef) {
	delete(f.cache, ref)
}

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

// Package scheduler implements a deduplicating, time-ordered delivery
// queue keyed by ObjectRef: submissions for the same key collapse to the
// earlier of the two run_at times, and Poll only ever delivers a key
// once its deadline has passed.
//
// Built on container/heap, the same standard-library facility
// k8s.io/client-go/util/workqueue's delaying queue uses for an identical
// dedup contract; no third-party priority queue is reached for anywhere
// in the idiomatic Go ecosystem this module was grown from.
package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"

	kmeta "github.com/kubecore/runtime/apis/meta"
)

// A Scheduler is a deduplicating delay queue keyed by ObjectRef.
type Scheduler struct {
	mu     sync.Mutex
	pq     priorityQueue
	index  map[kmeta.ObjectRef]*entry
	wake   chan struct{}
	closed bool
}

type entry struct {
	key   kmeta.ObjectRef
	runAt time.Time
	idx   int
}

// New returns an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{
		index: map[kmeta.ObjectRef]*entry{},
		wake:  make(chan struct{}, 1),
	}
}

// Submit inserts key for delivery at runAt. If key is already queued, its
// deadline moves earlier when runAt precedes the existing one; otherwise
// the submission is ignored. Submit never creates duplicate entries.
func (s *Scheduler) Submit(key kmeta.ObjectRef, runAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if e, ok := s.index[key]; ok {
		if runAt.Before(e.runAt) {
			e.runAt = runAt
			heap.Fix(&s.pq, e.idx)
			s.notify()
		}
		return
	}
	e := &entry{key: key, runAt: runAt}
	s.index[key] = e
	heap.Push(&s.pq, e)
	s.notify()
}

// notify must be called with mu held.
func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// A Predicate gates delivery: Poll only yields a key for which predicate
// returns true. A key that fails the predicate is skipped this round
// without losing its entry — the controller uses this to exclude keys
// whose previous reconcile is still in flight.
type Predicate func(kmeta.ObjectRef) bool

// AlwaysReady is the Predicate Poll uses when no hold is needed.
func AlwaysReady(kmeta.ObjectRef) bool { return true }

// Poll blocks until a key is ready for delivery under hold, the context
// is cancelled, or the Scheduler is closed and drained. It returns
// (key, true) on delivery, or (zero, false) once there is nothing left to
// deliver and the Scheduler has been closed.
func (s *Scheduler) Poll(ctx context.Context, hold Predicate) (kmeta.ObjectRef, bool) {
	if hold == nil {
		hold = AlwaysReady
	}
	for {
		wait, key, ok := s.tryPop(hold)
		if ok {
			return key, true
		}
		if wait < 0 {
			// Closed and drained (of deliverable entries): nothing left.
			return kmeta.ObjectRef{}, false
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-s.wake:
			timer.Stop()
		case <-ctx.Done():
			timer.Stop()
			return kmeta.ObjectRef{}, false
		}
	}
}

// tryPop scans the heap for the earliest entry that (a) is due and (b)
// passes hold, popping and returning it. If the earliest due entry fails
// hold, later-arriving (not-yet-due) entries are left alone — held
// entries are skipped in place, not removed, so they remain eligible on
// the next round.
//
// Returns a non-negative wait duration when the caller should sleep
// before trying again, or -1 when the queue is closed and has nothing
// left that could ever become deliverable.
func (s *Scheduler) tryPop(hold Predicate) (time.Duration, kmeta.ObjectRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	// Held entries are rotated to the back of a scratch slice and
	// reinserted after the scan, so one stuck key can't starve the rest
	// of the heap: every entry is inspected once per Poll call.
	var held []*entry
	for s.pq.Len() > 0 {
		next := s.pq[0]
		if next.runAt.After(now) {
			break
		}
		heap.Pop(&s.pq)
		if hold(next.key) {
			delete(s.index, next.key)
			for _, h := range held {
				heap.Push(&s.pq, h)
			}
			return 0, next.key, true
		}
		held = append(held, next)
	}
	for _, h := range held {
		heap.Push(&s.pq, h)
	}

	if s.pq.Len() == 0 {
		if s.closed {
			return -1, kmeta.ObjectRef{}, false
		}
		return time.Hour, kmeta.ObjectRef{}, false
	}
	wait := s.pq[0].runAt.Sub(now)
	if wait < 0 {
		// Everything due failed hold; re-check soon rather than sleeping
		// until the (already past) deadline.
		wait = 10 * time.Millisecond
	}
	return wait, kmeta.ObjectRef{}, false
}

// Close terminates submission. Poll continues to deliver any entries
// already queued and due; once the queue drains, Poll returns
// (zero, false) for every subsequent call.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.notify()
}

// Len reports how many keys are currently queued (pending delivery).
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pq.Len()
}

// priorityQueue is a container/heap min-heap ordered by runAt.
type priorityQueue []*entry

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	return pq[i].runAt.Before(pq[j].runAt)
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].idx = i
	pq[j].idx = j
}

func (pq *priorityQueue) Push(x any) {
	e := x.(*entry)
	e.idx = len(*pq)
	*pq = append(*pq, e)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.idx = -1
	*pq = old[:n-1]
	return e
}

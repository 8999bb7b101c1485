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

// Package dynamicclient adapts k8s.io/client-go's dynamic.Interface into
// this module's transport.Interface. The dynamic client already speaks
// the paginated-list/bookmarked-watch wire protocol, so this adapter
// only translates parameter shapes and decodes watch envelopes; it does
// no HTTP, TLS, or auth work of its own (that's client-go's rest config,
// which the caller is responsible for constructing).
package dynamicclient

import (
	"context"

	"github.com/pkg/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/dynamic"

	"github.com/kubecore/runtime/apis/meta"
	"github.com/kubecore/runtime/pkg/transport"
)

// Transport adapts a dynamic.Interface into transport.Interface.
type Transport struct {
	Client dynamic.Interface
}

// New wraps an existing dynamic client.
func New(c dynamic.Interface) *Transport {
	return &Transport{Client: c}
}

var _ transport.Interface = &Transport{}

func (t *Transport) resource(k meta.Kind, namespace string) dynamic.ResourceInterface {
	gvr := k.GroupVersionResource()
	if k.Scope == meta.Namespaced && namespace != "" {
		return t.Client.Resource(gvr).Namespace(namespace)
	}
	return t.Client.Resource(gvr)
}

// List implements transport.Interface.
func (t *Transport) List(ctx context.Context, k meta.Kind, namespace string, continueToken string, p transport.ListParams) (*transport.ListResult, error) {
	opts := metav1.ListOptions{
		LabelSelector: p.LabelSelector,
		FieldSelector: p.FieldSelector,
		Continue:      continueToken,
	}
	if p.PageSize > 0 {
		opts.Limit = p.PageSize
	}
	list, err := t.resource(k, namespace).List(ctx, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list %s", k.Plural)
	}
	items := make([]meta.Object, 0, len(list.Items))
	for i := range list.Items {
		items = append(items, &list.Items[i])
	}
	return &transport.ListResult{
		Items:           items,
		ResourceVersion: list.GetResourceVersion(),
		Continue:        list.GetContinue(),
	}, nil
}

// Watch implements transport.Interface.
func (t *Transport) Watch(ctx context.Context, k meta.Kind, namespace string, resourceVersion string, p transport.ListParams) (transport.WatchInterface, error) {
	opts := metav1.ListOptions{
		LabelSelector:        p.LabelSelector,
		FieldSelector:        p.FieldSelector,
		ResourceVersion:      resourceVersion,
		AllowWatchBookmarks:  p.Bookmarks,
		Watch:                true,
	}
	if p.TimeoutSeconds != nil {
		opts.TimeoutSeconds = p.TimeoutSeconds
	}
	w, err := t.resource(k, namespace).Watch(ctx, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot watch %s", k.Plural)
	}
	return &watchAdapter{upstream: w, out: make(chan transport.WatchEvent)}, nil
}

// watchAdapter decodes watch.Interface events into transport.WatchEvent.
type watchAdapter struct {
	upstream watch.Interface
	out      chan transport.WatchEvent
	started  bool
}

func (w *watchAdapter) ResultChan() <-chan transport.WatchEvent {
	if !w.started {
		w.started = true
		go w.run()
	}
	return w.out
}

func (w *watchAdapter) run() {
	defer close(w.out)
	for ev := range w.upstream.ResultChan() {
		et, ok := translateType(ev.Type)
		if !ok {
			w.out <- transport.WatchEvent{Err: errors.Errorf("unrecognized watch event type %q", ev.Type)}
			continue
		}
		obj, ok := ev.Object.(*unstructured.Unstructured)
		if !ok {
			w.out <- transport.WatchEvent{Err: errors.Errorf("unexpected watch object type %T", ev.Object)}
			continue
		}
		w.out <- transport.WatchEvent{Type: et, Object: obj}
	}
}

func (w *watchAdapter) Stop() {
	w.upstream.Stop()
}

func translateType(t watch.EventType) (transport.EventType, bool) {
	switch t {
	case watch.Added:
		return transport.Added, true
	case watch.Modified:
		return transport.Modified, true
	case watch.Deleted:
		return transport.Deleted, true
	case watch.Bookmark:
		return transport.Bookmark, true
	case watch.Error:
		return transport.Error, true
	default:
		return "", false
	}
}

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

// Package transport declares the narrow interface the watcher consumes to
// talk to an apiserver, and the REST URL/envelope shapes it is bit-exact
// about. HTTP, TLS, and authentication are deliberately out of scope
// here — Interface implementations own those concerns.
package transport

import (
	"context"

	"github.com/kubecore/runtime/apis/meta"
)

// ListParams carries the recognized list/watch configuration options.
type ListParams struct {
	LabelSelector  string
	FieldSelector  string
	TimeoutSeconds *int64
	// PageSize, when positive, enables paginated initial list requests.
	PageSize int64
	// Bookmarks requests BOOKMARK watch events. The zero value (false)
	// does not request them.
	Bookmarks bool
}

// A ListResult is one page of a list response.
type ListResult struct {
	Items           []meta.Object
	ResourceVersion string
	// Continue is the token for the next page, empty on the last page.
	Continue string
}

// Interface is the transport contract the watcher depends on: perform an
// initial (possibly paginated) list, and open a watch from a resource
// version. Implementations translate network and auth concerns away;
// the core only treats a watch ERROR of 410 Gone (or Expired) specially,
// by relisting, and surfaces every other error to its caller unchanged.
type Interface interface {
	List(ctx context.Context, k meta.Kind, namespace string, continueToken string, p ListParams) (*ListResult, error)
	Watch(ctx context.Context, k meta.Kind, namespace string, resourceVersion string, p ListParams) (WatchInterface, error)
}

// WatchInterface is a single open watch stream.
type WatchInterface interface {
	ResultChan() <-chan WatchEvent
	Stop()
}

// An EventType is one of the watch envelope's recognized types.
type EventType string

// Recognized watch envelope types.
const (
	Added    EventType = "ADDED"
	Modified EventType = "MODIFIED"
	Deleted  EventType = "DELETED"
	Bookmark EventType = "BOOKMARK"
	Error    EventType = "ERROR"
)

// A WatchEvent is one decoded envelope from a watch stream. Err is set when
// the envelope's object could not be decoded (a malformed object); in
// that case Object is nil and Type is unset.
type WatchEvent struct {
	Type   EventType
	Object meta.Object
	Err    error
}

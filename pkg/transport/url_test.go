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

package transport

import (
	"testing"

	"github.com/kubecore/runtime/apis/meta"
)

var (
	coreKind    = meta.Kind{Version: "v1", Kind: "Pod", Plural: "pods", Scope: meta.Namespaced}
	namedKind   = meta.Kind{Group: "example.io", Version: "v1", Kind: "Widget", Plural: "widgets", Scope: meta.Namespaced}
	clusterKind = meta.Kind{Group: "example.io", Version: "v1", Kind: "ClusterWidget", Plural: "clusterwidgets", Scope: meta.Cluster}
)

func TestBasePath(t *testing.T) {
	if got, want := BasePath(coreKind), "/api/v1"; got != want {
		t.Errorf("BasePath(core) = %q, want %q", got, want)
	}
	if got, want := BasePath(namedKind), "/apis/example.io/v1"; got != want {
		t.Errorf("BasePath(named) = %q, want %q", got, want)
	}
}

func TestResourcePath(t *testing.T) {
	cases := []struct {
		name string
		k    meta.Kind
		ns   string
		want string
	}{
		{"core namespaced with namespace", coreKind, "default", "/api/v1/namespaces/default/pods"},
		{"core namespaced without namespace", coreKind, "", "/api/v1/pods"},
		{"named namespaced", namedKind, "default", "/apis/example.io/v1/namespaces/default/widgets"},
		{"cluster scoped ignores namespace", clusterKind, "default", "/apis/example.io/v1/clusterwidgets"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ResourcePath(c.k, c.ns); got != c.want {
				t.Errorf("ResourcePath() = %q, want %q", got, c.want)
			}
		})
	}
}

func TestListURL(t *testing.T) {
	got := ListURL(namedKind, "default", "", ListParams{PageSize: 500, LabelSelector: "app=foo"})
	want := "/apis/example.io/v1/namespaces/default/widgets?labelSelector=app%3Dfoo&limit=500"
	if got != want {
		t.Errorf("ListURL() = %q, want %q", got, want)
	}
}

func TestListURLWithContinueToken(t *testing.T) {
	got := ListURL(namedKind, "default", "abc123", ListParams{PageSize: 500})
	want := "/apis/example.io/v1/namespaces/default/widgets?continue=abc123&limit=500"
	if got != want {
		t.Errorf("ListURL() = %q, want %q", got, want)
	}
}

func TestListURLIgnoresContinueTokenWithoutPageSize(t *testing.T) {
	got := ListURL(namedKind, "default", "abc123", ListParams{})
	want := "/apis/example.io/v1/namespaces/default/widgets"
	if got != want {
		t.Errorf("ListURL() = %q, want %q, expected no continue/limit without PageSize", got, want)
	}
}

func TestWatchURL(t *testing.T) {
	got := WatchURL(namedKind, "default", "42", ListParams{Bookmarks: true})
	want := "/apis/example.io/v1/namespaces/default/widgets?allowWatchBookmarks=true&resourceVersion=42&watch=true"
	if got != want {
		t.Errorf("WatchURL() = %q, want %q", got, want)
	}
}

func TestWatchURLWithoutBookmarks(t *testing.T) {
	got := WatchURL(namedKind, "default", "42", ListParams{})
	want := "/apis/example.io/v1/namespaces/default/widgets?resourceVersion=42&watch=true"
	if got != want {
		t.Errorf("WatchURL() = %q, want %q", got, want)
	}
}

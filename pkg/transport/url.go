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
	"fmt"
	"net/url"
	"strconv"

	"github.com/kubecore/runtime/apis/meta"
)

// BasePath returns the REST path for k's collection, before namespace
// segments or query parameters are added:
//
//	core group:  /api/{version}/...
//	named group: /apis/{group}/{version}/...
func BasePath(k meta.Kind) string {
	if k.Group == "" {
		return fmt.Sprintf("/api/%s", k.Version)
	}
	return fmt.Sprintf("/apis/%s/%s", k.Group, k.Version)
}

// ResourcePath returns the full list/watch path for k, including the
// namespace segment when k is Namespaced and namespace is non-empty. A
// Namespaced kind queried with an empty namespace lists across all
// namespaces, matching the apiserver's own convention.
func ResourcePath(k meta.Kind, namespace string) string {
	base := BasePath(k)
	if k.Scope == meta.Namespaced && namespace != "" {
		return fmt.Sprintf("%s/namespaces/%s/%s", base, namespace, k.Plural)
	}
	return fmt.Sprintf("%s/%s", base, k.Plural)
}

// ListURL builds the URL (path + query) for an initial or paginated list
// request. continueToken and p.PageSize are only added when set.
func ListURL(k meta.Kind, namespace string, continueToken string, p ListParams) string {
	q := url.Values{}
	addCommonParams(q, p)
	if p.PageSize > 0 {
		q.Set("limit", strconv.FormatInt(p.PageSize, 10))
		if continueToken != "" {
			q.Set("continue", continueToken)
		}
	}
	return withQuery(ResourcePath(k, namespace), q)
}

// WatchURL builds the URL (path + query) for a watch request starting at
// resourceVersion: a GET on the list path with watch=true,
// resourceVersion, and allowWatchBookmarks set.
func WatchURL(k meta.Kind, namespace string, resourceVersion string, p ListParams) string {
	q := url.Values{}
	addCommonParams(q, p)
	q.Set("watch", "true")
	q.Set("resourceVersion", resourceVersion)
	if p.Bookmarks {
		q.Set("allowWatchBookmarks", "true")
	}
	return withQuery(ResourcePath(k, namespace), q)
}

func addCommonParams(q url.Values, p ListParams) {
	if p.LabelSelector != "" {
		q.Set("labelSelector", p.LabelSelector)
	}
	if p.FieldSelector != "" {
		q.Set("fieldSelector", p.FieldSelector)
	}
	if p.TimeoutSeconds != nil {
		q.Set("timeoutSeconds", strconv.FormatInt(*p.TimeoutSeconds, 10))
	}
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

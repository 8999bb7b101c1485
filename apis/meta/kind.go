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

// Package meta defines the identity primitives shared by every other
// package in this module: the kind descriptor, the object key, and the
// minimal object contract the watcher and store depend on.
package meta

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// A Scope declares whether a Kind's instances live under a namespace or at
// cluster scope. It determines which REST path shape applies.
type Scope int

// Recognized scopes.
const (
	Namespaced Scope = iota
	Cluster
)

// String implements fmt.Stringer.
func (s Scope) String() string {
	if s == Cluster {
		return "Cluster"
	}
	return "Namespaced"
}

// A Kind identifies the REST surface of one Kubernetes type: its group,
// version, kind name, plural resource name, and scope. It's statically
// known at compile time for generated types, or carried as runtime data
// for dynamically-typed ones.
type Kind struct {
	Group   string
	Version string
	Kind    string
	Plural  string
	Scope   Scope
}

// GroupVersionKind returns the apimachinery GVK for this Kind.
func (k Kind) GroupVersionKind() schema.GroupVersionKind {
	return schema.GroupVersionKind{Group: k.Group, Version: k.Version, Kind: k.Kind}
}

// GroupVersionResource returns the apimachinery GVR for this Kind, using
// Plural as the resource name.
func (k Kind) GroupVersionResource() schema.GroupVersionResource {
	return schema.GroupVersionResource{Group: k.Group, Version: k.Version, Resource: k.Plural}
}

// APIVersion returns the "group/version" string used in an object's
// apiVersion and in ownerReferences, e.g. "apps/v1" or just "v1" for the
// core group.
func (k Kind) APIVersion() string {
	if k.Group == "" {
		return k.Version
	}
	return k.Group + "/" + k.Version
}

// An Object is the minimal contract the runtime depends on: it must expose
// standard Kubernetes object metadata and know its own GroupVersionKind.
// This is the same composition sigs.k8s.io/controller-runtime's
// client.Object uses (metav1.Object + runtime.Object); it's redeclared here
// rather than imported because this module supplies the primitive layer
// such frameworks are themselves built on.
type Object interface {
	metav1.Object
	runtime.Object
}

var _ Object = &unstructured.Unstructured{}

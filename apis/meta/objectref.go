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

package meta

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// An ObjectRef is the sole identity the scheduler and the store use: a
// kind, a name, and an optional namespace. Two refs are equal iff all
// three components match, which Go gives us for free because ObjectRef is
// a plain comparable struct and can be used directly as a map key.
type ObjectRef struct {
	Group     string
	Version   string
	Kind      string
	Namespace string
	Name      string
}

// RefOf builds the ObjectRef identifying obj within the given Kind. The
// Kind's group/version/kind are used rather than obj's own
// GroupVersionKind, since typed objects frequently leave GVK unset on
// their TypeMeta; dynamic objects should instead use RefFromObject.
func RefOf(k Kind, obj Object) ObjectRef {
	return ObjectRef{
		Group:     k.Group,
		Version:   k.Version,
		Kind:      k.Kind,
		Namespace: obj.GetNamespace(),
		Name:      obj.GetName(),
	}
}

// RefFromObject builds an ObjectRef from obj's own GroupVersionKind, for
// use with dynamically-typed objects that carry their kind at runtime.
func RefFromObject(obj Object) ObjectRef {
	gvk := obj.GetObjectKind().GroupVersionKind()
	return ObjectRef{
		Group:     gvk.Group,
		Version:   gvk.Version,
		Kind:      gvk.Kind,
		Namespace: obj.GetNamespace(),
		Name:      obj.GetName(),
	}
}

// GroupVersionKind returns the GVK component of the ref.
func (r ObjectRef) GroupVersionKind() schema.GroupVersionKind {
	return schema.GroupVersionKind{Group: r.Group, Version: r.Version, Kind: r.Kind}
}

// RefFromOwner resolves an owner reference into the ObjectRef of the owner.
// For the reference to resolve, the owner's apiVersion must equal the
// candidate Kind's group/version (or just the version for the core
// group) and its kind must match, otherwise the reference is ignored. The
// owner is assumed to live in the same namespace as the child (owner
// references never cross namespaces; a namespaced child's cluster-scoped
// owner uses namespace "").
func RefFromOwner(k Kind, namespace string, owner metav1.OwnerReference) (ObjectRef, bool) {
	if owner.Kind != k.Kind {
		return ObjectRef{}, false
	}
	if owner.APIVersion != k.APIVersion() {
		return ObjectRef{}, false
	}
	ns := ""
	if k.Scope == Namespaced {
		ns = namespace
	}
	return ObjectRef{
		Group:     k.Group,
		Version:   k.Version,
		Kind:      k.Kind,
		Namespace: ns,
		Name:      owner.Name,
	}, true
}

// OwnerRefs returns the ObjectRefs of obj's owners that match Kind k,
// resolved via RefFromOwner. Used to implement Controller.Owns.
func OwnerRefs(k Kind, obj Object) []ObjectRef {
	refs := make([]ObjectRef, 0, len(obj.GetOwnerReferences()))
	for _, o := range obj.GetOwnerReferences() {
		if ref, ok := RefFromOwner(k, obj.GetNamespace(), o); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

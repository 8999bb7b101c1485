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
	kmeta "github.com/kubecore/runtime/apis/meta"
)

// A Mapper turns one touched auxiliary-kind object into zero or more
// primary-kind keys to reconcile: a function composed with a watch
// source to decide what that source's changes should trigger.
type Mapper func(obj kmeta.Object) []kmeta.ObjectRef

// Self maps an object of the primary kind to its own key.
func Self(primary kmeta.Kind) Mapper {
	return func(obj kmeta.Object) []kmeta.ObjectRef {
		return []kmeta.ObjectRef{kmeta.RefOf(primary, obj)}
	}
}

// Owns maps a touched auxiliary-kind object back to its owners of kind
// owner: it walks ownerReferences and resolves each one matching
// owner's apiVersion/kind and object-key canonicalization rule.
func Owns(owner kmeta.Kind) Mapper {
	return func(obj kmeta.Object) []kmeta.ObjectRef {
		return kmeta.OwnerRefs(owner, obj)
	}
}

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

package store

import (
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"

	kmeta "github.com/kubecore/runtime/apis/meta"
)

// Narrow converts a type-erased object (almost always an
// *unstructured.Unstructured read out of a Store) into a concrete Go
// type, the same conversion client-go's dynamic informers and
// controller-runtime's unstructured client rely on.
func Narrow(obj kmeta.Object, into runtime.Object) error {
	u, ok := obj.(*unstructured.Unstructured)
	if !ok {
		return errors.Errorf("object of type %T is not unstructured, cannot narrow", obj)
	}
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(u.UnstructuredContent(), into); err != nil {
		return errors.Wrap(err, "cannot convert unstructured object")
	}
	return nil
}

// Widen converts a concrete Go type into the type-erased representation
// a Store holds, the inverse of Narrow.
func Widen(k kmeta.Kind, obj runtime.Object) (kmeta.Object, error) {
	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		return nil, errors.Wrap(err, "cannot convert object to unstructured")
	}
	u := &unstructured.Unstructured{Object: content}
	u.SetGroupVersionKind(k.GroupVersionKind())
	return u, nil
}

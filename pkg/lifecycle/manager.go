// SPDX-License-Identifier: AGPL-3.0-only

package lifecycle

import "reflect"

// Manager performs construction and destruction for a single element type.
// The teardown of T is resolved once, in For, so hot paths that destroy many
// values pay for the classification only once.
type Manager[T any] struct {
	teardown teardown
}

// For returns the Manager for T.
func For[T any]() Manager[T] {
	return Manager[T]{teardown: teardownOf(reflect.TypeFor[T]())}
}

// Trivial reports whether destroying a T is a no-op.
func (m Manager[T]) Trivial() bool {
	return m.teardown == nil
}

// Construct default-constructs a value at p, see the package level Construct.
func (m Manager[T]) Construct(p *T) error {
	return Construct(p)
}

// ConstructCopy constructs a copy of *src at p, see the package level ConstructCopy.
func (m Manager[T]) ConstructCopy(p, src *T) error {
	return ConstructCopy(p, src)
}

// ConstructMove constructs a value at p by consuming *src, see the package level ConstructMove.
func (m Manager[T]) ConstructMove(p, src *T) {
	ConstructMove(p, src)
}

// Emplace constructs the value returned by ctor at p.
func (m Manager[T]) Emplace(p *T, ctor func() (T, error)) error {
	return Emplace(p, ctor)
}

// Destroy is the cached-classification equivalent of the package level Destroy.
func (m Manager[T]) Destroy(p *T) {
	if m.teardown == nil {
		return
	}
	destroy(p, m.teardown)
}

// DestroyN is the cached-classification equivalent of the package level DestroyN.
func (m Manager[T]) DestroyN(first *T, n int) {
	if m.teardown == nil {
		return
	}
	destroyRun(first, n, m.teardown)
}

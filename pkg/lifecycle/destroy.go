// SPDX-License-Identifier: AGPL-3.0-only

package lifecycle

import (
	"reflect"
	"unsafe"
)

// Destroy ends the lifetime of the value at p. It is a no-op for trivially
// destructible types. Otherwise a nil p is ignored, and a non-nil p has its
// teardown run exactly once before the slot is reset to the zero value.
//
// Destroy looks the classification of T up on every call; hot paths should
// use a Manager, which resolves it once.
func Destroy[T any](p *T) {
	td := teardownOf(reflect.TypeFor[T]())
	if td == nil {
		return
	}
	destroy(p, td)
}

// DestroyN ends the lifetime of the n contiguous values starting at first,
// in increasing address order. For trivially destructible types no value is
// visited, whatever n is. Like Destroy, it looks the classification up on
// every call.
func DestroyN[T any](first *T, n int) {
	td := teardownOf(reflect.TypeFor[T]())
	if td == nil {
		return
	}
	destroyRun(first, n, td)
}

func destroy[T any](p *T, td teardown) {
	if p == nil {
		return
	}
	td(unsafe.Pointer(p))

	// Drop whatever the dead value still references.
	var zero T
	*p = zero
}

func destroyRun[T any](first *T, n int, td teardown) {
	if n <= 0 {
		return
	}
	run := unsafe.Slice(first, n)
	for i := range run {
		destroy(&run[i], td)
	}
}

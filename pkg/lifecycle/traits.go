// SPDX-License-Identifier: AGPL-3.0-only

package lifecycle

import (
	"reflect"
	"sync"
	"unsafe"
)

// Destroyer is implemented by element types whose teardown has an observable
// effect, such as releasing a handle or returning a buffer to a pool.
// Destroy must not fail.
type Destroyer interface {
	Destroy()
}

// Initializer is implemented by element types that need more than the zero
// value when default constructed.
type Initializer interface {
	Init() error
}

// Copier is implemented by element types whose copy is not a plain
// assignment, e.g. because they own a slice that must not be shared.
type Copier[T any] interface {
	CopyFrom(src *T) error
}

// Mover is implemented by element types that transfer ownership of a
// resource out of src. After MoveFrom returns, src must still be safe to
// destroy.
type Mover[T any] interface {
	MoveFrom(src *T)
}

// TriviallyDestructible reports whether destroying a T has no observable
// effect. A T needs teardown when *T implements Destroyer, or when it holds
// by value (in a struct field or an array element) something that does.
// Values reached through pointers, slices, maps or interfaces are not owned
// and never destroyed.
func TriviallyDestructible[T any]() bool {
	return teardownOf(reflect.TypeFor[T]()) == nil
}

// teardown runs the Destroy hooks of the value at p. A nil teardown means
// the type is trivially destructible.
type teardown func(p unsafe.Pointer)

var (
	destroyerType = reflect.TypeFor[Destroyer]()

	// teardowns caches the teardown of every type seen so far, keyed by reflect.Type.
	teardowns sync.Map
)

func teardownOf(typ reflect.Type) teardown {
	if td, ok := teardowns.Load(typ); ok {
		return td.(teardown)
	}
	td, _ := teardowns.LoadOrStore(typ, buildTeardown(typ))
	return td.(teardown)
}

// buildTeardown walks typ once. A type with its own Destroy method owns the
// teardown of its fields, so they are not walked; this also keeps a Destroy
// promoted from an embedded field from running twice. Struct fields and
// array elements are destroyed in increasing address order.
func buildTeardown(typ reflect.Type) teardown {
	if reflect.PointerTo(typ).Implements(destroyerType) {
		return func(p unsafe.Pointer) {
			reflect.NewAt(typ, p).Interface().(Destroyer).Destroy()
		}
	}

	switch typ.Kind() {
	case reflect.Array:
		if typ.Len() == 0 {
			return nil
		}
		elem := teardownOf(typ.Elem())
		if elem == nil {
			return nil
		}
		n, size := typ.Len(), typ.Elem().Size()
		return func(p unsafe.Pointer) {
			for i := 0; i < n; i++ {
				elem(unsafe.Add(p, uintptr(i)*size))
			}
		}

	case reflect.Struct:
		type member struct {
			offset uintptr
			td     teardown
		}
		var members []member
		for i := 0; i < typ.NumField(); i++ {
			f := typ.Field(i)
			if td := teardownOf(f.Type); td != nil {
				members = append(members, member{offset: f.Offset, td: td})
			}
		}
		if len(members) == 0 {
			return nil
		}
		return func(p unsafe.Pointer) {
			for _, m := range members {
				m.td(unsafe.Add(p, m.offset))
			}
		}
	}

	return nil
}

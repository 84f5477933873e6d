// SPDX-License-Identifier: AGPL-3.0-only

// Package platform provides the general-purpose allocators that back typed
// storage: the Go heap, anonymous memory mappings, and decorators that limit
// or instrument another platform.
package platform

import (
	"io"
	"math"
	"reflect"
	"unsafe"

	"github.com/pkg/errors"
)

// Platform hands out and takes back raw storage. It never initializes the
// storage beyond what the backing memory guarantees, and never runs any
// element hook.
type Platform interface {
	// Allocate returns storage for count contiguous values of typ, aligned
	// for typ. count must be positive.
	Allocate(typ reflect.Type, count int) (unsafe.Pointer, error)

	// Free returns storage obtained from Allocate. The platform recovers the
	// size of the block from its address. Free(nil) is a no-op.
	Free(p unsafe.Pointer)
}

// Closer is a Platform holding resources that must be released once no more
// storage is needed.
type Closer interface {
	Platform
	io.Closer
}

var (
	// ErrInvalidCount is returned when asking a platform for zero or fewer values.
	ErrInvalidCount = errors.New("allocation count must be positive")

	// ErrAllocationTooLarge is returned when the requested size overflows what
	// a single allocation can address.
	ErrAllocationTooLarge = errors.New("allocation size exceeds the maximum allocation size")

	// ErrPlatformExhausted is returned if a platform cannot provide the requested bytes.
	ErrPlatformExhausted = errors.New("platform exhausted")

	// ErrPointerfulType is returned by platforms whose memory is not scanned by
	// the garbage collector when asked to store values containing Go pointers.
	ErrPointerfulType = errors.New("type contains Go pointers")
)

// maxAllocBytes is the largest single block handed out, matching the Go
// runtime heap limit on 64-bit platforms.
const maxAllocBytes = min(uint64(math.MaxInt), 1<<47)

// Size returns the number of bytes needed to store count values of typ.
func Size(typ reflect.Type, count int) (uint64, error) {
	if count <= 0 {
		return 0, ErrInvalidCount
	}
	elem := uint64(typ.Size())
	if elem != 0 && uint64(count) > maxAllocBytes/elem {
		return 0, ErrAllocationTooLarge
	}
	return elem * uint64(count), nil
}

// HasPointers reports whether values of typ contain pointers the garbage
// collector needs to see.
func HasPointers(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Slice, reflect.String,
		reflect.Interface, reflect.Chan, reflect.Func:
		return true
	case reflect.Array:
		return typ.Len() > 0 && HasPointers(typ.Elem())
	case reflect.Struct:
		for i := 0; i < typ.NumField(); i++ {
			if HasPointers(typ.Field(i).Type) {
				return true
			}
		}
	}
	return false
}

// closeDelegate closes p if it holds resources of its own.
func closeDelegate(p Platform) error {
	if c, ok := p.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

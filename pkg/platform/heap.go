// SPDX-License-Identifier: AGPL-3.0-only

package platform

import (
	"reflect"
	"unsafe"
)

// Heap allocates from the Go runtime. Blocks are typed, so the garbage
// collector scans any pointers stored in them, and Free is a no-op: a block
// is reclaimed once nothing references it.
//
// The Go runtime aborts the process rather than report an out of memory
// condition, so use Limiting in front of Heap when allocation failures must
// be recoverable.
type Heap struct{}

func NewHeap() *Heap { return &Heap{} }

func (*Heap) Allocate(typ reflect.Type, count int) (unsafe.Pointer, error) {
	if _, err := Size(typ, count); err != nil {
		return nil, err
	}
	return reflect.MakeSlice(reflect.SliceOf(typ), count, count).UnsafePointer(), nil
}

func (*Heap) Free(unsafe.Pointer) {}

func (*Heap) Close() error { return nil }

var _ Closer = (*Heap)(nil)

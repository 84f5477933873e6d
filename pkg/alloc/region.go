// SPDX-License-Identifier: AGPL-3.0-only

package alloc

import (
	"fmt"
	"unsafe"
)

// Region is contiguous storage for a fixed number of values of T. A Region
// does not know which of its slots hold live values.
//
// Slots are addressed by index: Go does not allow forming a pointer one past
// the end of an allocation, so runs are given as index ranges.
type Region[T any] struct {
	data *T
	n    int
}

// Len returns the number of slots in r.
func (r Region[T]) Len() int { return r.n }

// Empty reports whether r has no slots.
func (r Region[T]) Empty() bool { return r.n == 0 }

// Data returns the address of the first slot, or nil for an empty region.
func (r Region[T]) Data() *T { return r.data }

// At returns the address of slot i. It panics if i is out of range.
func (r Region[T]) At(i int) *T {
	if i < 0 || i >= r.n {
		panic(fmt.Sprintf("region index %d out of range [0:%d]", i, r.n))
	}
	return (*T)(unsafe.Add(unsafe.Pointer(r.data), uintptr(i)*unsafe.Sizeof(*r.data)))
}

func (r Region[T]) checkRange(first, last int) {
	if first < 0 || first > last || last > r.n {
		panic(fmt.Sprintf("region range [%d:%d] out of range [0:%d]", first, last, r.n))
	}
}

// AcquireRegion returns a Region with storage for count values of T. A
// count of zero returns an empty Region without calling the platform.
func (a *Allocator[T]) AcquireRegion(count int) (Region[T], error) {
	p, err := a.AcquireN(count)
	if err != nil {
		return Region[T]{}, err
	}
	return Region[T]{data: p, n: count}, nil
}

// ReleaseRegion returns the storage behind r. Every value constructed in r
// must have been destroyed first.
func (a *Allocator[T]) ReleaseRegion(r Region[T]) {
	a.ReleaseN(r.data, r.n)
}

// DestroyRange destroys the values in slots [first, last) of r, in
// increasing slot order. For trivially destructible types no slot is
// visited.
func (a *Allocator[T]) DestroyRange(r Region[T], first, last int) {
	if a.Trivial() {
		return
	}
	r.checkRange(first, last)
	if first == last {
		return
	}
	a.DestroyN(r.At(first), last-first)
}

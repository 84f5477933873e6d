// SPDX-License-Identifier: AGPL-3.0-only

package alloc

import (
	"reflect"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/grafana/typedalloc/pkg/lifecycle"
	"github.com/grafana/typedalloc/pkg/platform"
)

var (
	// ErrNegativeCount is returned when acquiring storage for a negative number of values.
	ErrNegativeCount = errors.New("cannot acquire storage for a negative number of values")

	// ErrAllocationTooLarge is returned when the requested storage cannot be addressed.
	ErrAllocationTooLarge = platform.ErrAllocationTooLarge
)

var defaultPlatform platform.Platform = platform.NewHeap()

// Allocator acquires storage for values of T from a platform, and constructs
// and destroys values in it through the embedded lifecycle.Manager.
type Allocator[T any] struct {
	lifecycle.Manager[T]

	platform platform.Platform
	typ      reflect.Type
}

// New returns an Allocator backed by p. If p is nil, storage comes from the
// Go heap.
func New[T any](p platform.Platform) *Allocator[T] {
	if p == nil {
		p = defaultPlatform
	}
	return &Allocator[T]{
		Manager:  lifecycle.For[T](),
		platform: p,
		typ:      reflect.TypeFor[T](),
	}
}

// Acquire returns storage for exactly one T. The storage holds no live value
// until one is constructed in it.
func (a *Allocator[T]) Acquire() (*T, error) {
	return a.acquire(1)
}

// AcquireN returns contiguous storage for count values of T. If count is
// zero, it returns nil without calling the platform. Platform errors are
// returned unchanged.
func (a *Allocator[T]) AcquireN(count int) (*T, error) {
	switch {
	case count < 0:
		return nil, ErrNegativeCount
	case count == 0:
		return nil, nil
	}
	if _, err := platform.Size(a.typ, count); err != nil {
		return nil, err
	}
	return a.acquire(count)
}

func (a *Allocator[T]) acquire(count int) (*T, error) {
	p, err := a.platform.Allocate(a.typ, count)
	if err != nil {
		return nil, err
	}
	return (*T)(p), nil
}

// Release returns storage obtained from Acquire or AcquireN. Values still
// alive in it are not destroyed. Release(nil) is a no-op.
func (a *Allocator[T]) Release(p *T) {
	if p == nil {
		return
	}
	a.platform.Free(unsafe.Pointer(p))
}

// ReleaseN returns storage for count values obtained from AcquireN. count
// must match the acquired extent, although the platform recovers the size
// from the address alone.
func (a *Allocator[T]) ReleaseN(p *T, count int) {
	a.Release(p)
}

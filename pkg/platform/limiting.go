// SPDX-License-Identifier: AGPL-3.0-only

package platform

import (
	"reflect"
	"sync"
	"unsafe"
)

// Limiting wraps a Platform and fails allocations with ErrPlatformExhausted
// once more than a maximum number of bytes would be in use at the same time.
// Every block obtained from it must be freed through it.
type Limiting struct {
	delegate Platform
	maxTotal uint64

	mtx       sync.Mutex
	usedTotal uint64
	blocks    addressTable
}

// NewLimiting returns a Limiting platform. No more than maxTotal bytes can be
// in use at any given time unless maxTotal is 0.
func NewLimiting(delegate Platform, maxTotal uint64) *Limiting {
	return &Limiting{
		delegate: delegate,
		maxTotal: maxTotal,
		blocks:   newAddressTable(),
	}
}

func (l *Limiting) Allocate(typ reflect.Type, count int) (unsafe.Pointer, error) {
	size, err := Size(typ, count)
	if err != nil {
		return nil, err
	}

	l.mtx.Lock()
	if l.maxTotal > 0 && l.usedTotal+size > l.maxTotal {
		l.mtx.Unlock()
		return nil, ErrPlatformExhausted
	}
	l.usedTotal += size
	l.mtx.Unlock()

	p, err := l.delegate.Allocate(typ, count)

	l.mtx.Lock()
	defer l.mtx.Unlock()
	if err != nil {
		l.usedTotal -= size
		return nil, err
	}
	l.blocks.insert(p, size)
	return p, nil
}

func (l *Limiting) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}

	// Forget the block before the delegate can hand its address out again.
	l.mtx.Lock()
	if size, ok := l.blocks.remove(p); ok {
		l.usedTotal -= size
	}
	l.mtx.Unlock()

	l.delegate.Free(p)
}

// InUse returns the number of bytes currently allocated through l.
func (l *Limiting) InUse() uint64 {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.usedTotal
}

func (l *Limiting) Close() error {
	return closeDelegate(l.delegate)
}

var _ Closer = (*Limiting)(nil)

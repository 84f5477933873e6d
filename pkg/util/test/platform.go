// SPDX-License-Identifier: AGPL-3.0-only

package test

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"

	"go.uber.org/atomic"

	"github.com/grafana/typedalloc/pkg/platform"
)

// TrackingPlatform wraps a platform.Platform, counting every call and
// remembering which blocks are live.
type TrackingPlatform struct {
	Delegate platform.Platform

	AllocateCalls atomic.Int64
	FreeCalls     atomic.Int64

	mtx  sync.Mutex
	live map[uintptr]int
}

// NewTrackingPlatform returns a TrackingPlatform. A nil delegate means the Go heap.
func NewTrackingPlatform(delegate platform.Platform) *TrackingPlatform {
	if delegate == nil {
		delegate = platform.NewHeap()
	}
	return &TrackingPlatform{
		Delegate: delegate,
		live:     map[uintptr]int{},
	}
}

func (p *TrackingPlatform) Allocate(typ reflect.Type, count int) (unsafe.Pointer, error) {
	p.AllocateCalls.Inc()

	block, err := p.Delegate.Allocate(typ, count)
	if err != nil {
		return nil, err
	}

	p.mtx.Lock()
	p.live[uintptr(block)]++
	p.mtx.Unlock()
	return block, nil
}

// Free panics when freeing a block that is not live, so that tests catch
// double frees.
func (p *TrackingPlatform) Free(block unsafe.Pointer) {
	p.FreeCalls.Inc()
	if block == nil {
		p.Delegate.Free(block)
		return
	}

	p.mtx.Lock()
	n, ok := p.live[uintptr(block)]
	switch {
	case !ok:
		p.mtx.Unlock()
		panic(fmt.Sprintf("free of a block that is not live: %#x", uintptr(block)))
	case n == 1:
		delete(p.live, uintptr(block))
	default:
		p.live[uintptr(block)] = n - 1
	}
	p.mtx.Unlock()

	p.Delegate.Free(block)
}

// Live returns the number of blocks allocated and not yet freed.
func (p *TrackingPlatform) Live() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	n := 0
	for _, c := range p.live {
		n += c
	}
	return n
}

// IsLive reports whether block was allocated and not yet freed.
func (p *TrackingPlatform) IsLive(block unsafe.Pointer) bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.live[uintptr(block)] > 0
}

// FailingPlatform wraps a platform.Platform and fails the FailOn-th call to
// Allocate (counting from 1) with Err. Every other call is delegated.
type FailingPlatform struct {
	Delegate platform.Platform
	FailOn   int64
	Err      error

	calls atomic.Int64
}

func (p *FailingPlatform) Allocate(typ reflect.Type, count int) (unsafe.Pointer, error) {
	if p.calls.Inc() == p.FailOn {
		return nil, p.Err
	}
	return p.Delegate.Allocate(typ, count)
}

func (p *FailingPlatform) Free(block unsafe.Pointer) {
	p.Delegate.Free(block)
}

// Calls returns the number of times Allocate was called.
func (p *FailingPlatform) Calls() int64 {
	return p.calls.Load()
}

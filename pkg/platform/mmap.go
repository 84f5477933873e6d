// SPDX-License-Identifier: AGPL-3.0-only

package platform

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/dustin/go-humanize"
	"github.com/edsrzf/mmap-go"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/multierror"
	"github.com/pkg/errors"
)

// Mmap allocates every block in its own anonymous memory mapping, outside of
// the Go heap. The garbage collector never scans that memory, so only types
// without Go pointers can be stored in it.
//
// Free unmaps the block right away: any reference to it that outlives Free
// faults on the next access.
type Mmap struct {
	logger log.Logger

	mtx      sync.Mutex
	mappings map[uintptr]mmap.MMap
}

// zeroSized is the address handed out for blocks of zero bytes, which cannot be mapped.
var zeroSized [0]byte

func NewMmap(logger log.Logger) *Mmap {
	return &Mmap{
		logger:   logger,
		mappings: map[uintptr]mmap.MMap{},
	}
}

func (m *Mmap) Allocate(typ reflect.Type, count int) (unsafe.Pointer, error) {
	size, err := Size(typ, count)
	if err != nil {
		return nil, err
	}
	if HasPointers(typ) {
		return nil, errors.Wrapf(ErrPointerfulType, "cannot map %s", typ)
	}
	if size == 0 {
		return unsafe.Pointer(&zeroSized), nil
	}

	region, err := mmap.MapRegion(nil, int(size), mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap %s", humanize.IBytes(size))
	}

	p := unsafe.Pointer(unsafe.SliceData([]byte(region)))

	m.mtx.Lock()
	m.mappings[uintptr(p)] = region
	m.mtx.Unlock()

	return p, nil
}

func (m *Mmap) Free(p unsafe.Pointer) {
	if p == nil || p == unsafe.Pointer(&zeroSized) {
		return
	}

	m.mtx.Lock()
	region, ok := m.mappings[uintptr(p)]
	delete(m.mappings, uintptr(p))
	m.mtx.Unlock()

	if !ok {
		level.Warn(m.logger).Log("msg", "ignoring free of an address that is not mapped", "addr", uintptr(p))
		return
	}
	if err := region.Unmap(); err != nil {
		level.Warn(m.logger).Log("msg", "failed to unmap block", "size", humanize.IBytes(uint64(len(region))), "err", err)
	}
}

// Close unmaps every block that was never freed.
func (m *Mmap) Close() error {
	m.mtx.Lock()
	leaked := m.mappings
	m.mappings = map[uintptr]mmap.MMap{}
	m.mtx.Unlock()

	if len(leaked) == 0 {
		return nil
	}

	var leakedBytes uint64
	merr := multierror.New()
	for _, region := range leaked {
		leakedBytes += uint64(len(region))
		merr.Add(region.Unmap())
	}
	level.Warn(m.logger).Log("msg", "unmapped blocks that were never freed", "blocks", len(leaked), "size", humanize.IBytes(leakedBytes))

	return merr.Err()
}

// Mapped returns the number of blocks currently mapped.
func (m *Mmap) Mapped() int {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return len(m.mappings)
}

var _ Closer = (*Mmap)(nil)

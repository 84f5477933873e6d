// SPDX-License-Identifier: AGPL-3.0-only

package platform

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/atomic"
)

// Instrumented wraps a Platform and exposes metrics about the blocks going
// through it.
type Instrumented struct {
	delegate Platform
	logger   log.Logger

	mtx    sync.Mutex
	blocks addressTable

	inflightBytes atomic.Uint64

	AllocationsTotal        prometheus.Counter
	FreesTotal              prometheus.Counter
	FailedAllocationsTotal  prometheus.Counter
	InflightBytesMetric     prometheus.Gauge
	AllocatedBytesHistogram prometheus.Histogram
}

func NewInstrumented(delegate Platform, reg prometheus.Registerer, logger log.Logger) *Instrumented {
	return &Instrumented{
		delegate: delegate,
		logger:   logger,
		blocks:   newAddressTable(),

		AllocationsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "typedalloc_platform_allocations_total",
			Help: "Total number of blocks allocated from the platform.",
		}),
		FreesTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "typedalloc_platform_frees_total",
			Help: "Total number of blocks returned to the platform.",
		}),
		FailedAllocationsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "typedalloc_platform_failed_allocations_total",
			Help: "Total number of allocations the platform could not satisfy.",
		}),
		InflightBytesMetric: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "typedalloc_platform_inflight_bytes",
			Help: "Total bytes of blocks allocated and not yet freed.",
		}),
		AllocatedBytesHistogram: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "typedalloc_platform_allocated_bytes",
			Help:    "Size of the blocks allocated from the platform.",
			Buckets: prometheus.ExponentialBuckets(64, 4, 10),
		}),
	}
}

func (i *Instrumented) Allocate(typ reflect.Type, count int) (unsafe.Pointer, error) {
	// Delegates are not trusted to validate count.
	size, err := Size(typ, count)
	if err != nil {
		return nil, i.failed(typ, count, err)
	}

	p, err := i.delegate.Allocate(typ, count)
	if err != nil {
		return nil, i.failed(typ, count, err)
	}

	i.mtx.Lock()
	i.blocks.insert(p, size)
	i.mtx.Unlock()

	inflight := i.inflightBytes.Add(size)
	i.AllocationsTotal.Inc()
	i.AllocatedBytesHistogram.Observe(float64(size))
	i.InflightBytesMetric.Set(float64(inflight))

	return p, nil
}

func (i *Instrumented) failed(typ reflect.Type, count int, err error) error {
	i.FailedAllocationsTotal.Inc()
	level.Debug(i.logger).Log("msg", "allocation failed", "type", typ.String(), "count", count, "err", err)
	return err
}

func (i *Instrumented) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}

	i.mtx.Lock()
	size, ok := i.blocks.remove(p)
	i.mtx.Unlock()

	if ok {
		inflight := i.inflightBytes.Sub(size)
		i.InflightBytesMetric.Set(float64(inflight))
	}
	i.FreesTotal.Inc()

	i.delegate.Free(p)
}

// Close reports the blocks that were never freed and closes the delegate.
func (i *Instrumented) Close() error {
	i.mtx.Lock()
	live, bytes := i.blocks.len(), i.blocks.bytes
	i.mtx.Unlock()

	if live > 0 {
		level.Warn(i.logger).Log("msg", "platform closed with blocks that were never freed", "blocks", live, "size", humanize.IBytes(bytes))
	}
	return closeDelegate(i.delegate)
}

var _ Closer = (*Instrumented)(nil)

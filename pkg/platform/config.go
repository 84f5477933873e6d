// SPDX-License-Identifier: AGPL-3.0-only

package platform

import (
	"flag"
	"fmt"
	"slices"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/flagext"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// BackendHeap is the value for the Go heap backend.
	BackendHeap = "heap"

	// BackendMmap is the value for the anonymous memory mapping backend.
	BackendMmap = "mmap"

	// BackendDefault is the value for the default backend.
	BackendDefault = BackendHeap
)

var (
	supportedBackends = []string{BackendHeap, BackendMmap}

	errUnsupportedBackend = errors.New("unsupported platform backend")
)

type Config struct {
	Backend          string        `yaml:"backend"`
	MaxInflightBytes flagext.Bytes `yaml:"max_inflight_bytes"`
	Instrument       bool          `yaml:"instrument"`
}

func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	cfg.RegisterFlagsWithPrefix(f, "allocator.platform.")
}

func (cfg *Config) RegisterFlagsWithPrefix(f *flag.FlagSet, prefix string) {
	f.StringVar(&cfg.Backend, prefix+"backend", BackendDefault, fmt.Sprintf("The platform allocator backing typed storage. Supported values: %s.", strings.Join(supportedBackends, ", ")))
	f.Var(&cfg.MaxInflightBytes, prefix+"max-inflight-bytes", "Maximum bytes allocated and not yet freed at any given time. Allocations above the limit fail. 0 = no limit.")
	f.BoolVar(&cfg.Instrument, prefix+"instrument", false, "Expose metrics about allocations served by the platform allocator.")
}

func (cfg *Config) Validate() error {
	if !slices.Contains(supportedBackends, cfg.Backend) {
		return errors.Wrapf(errUnsupportedBackend, "%q", cfg.Backend)
	}
	return nil
}

// NewPlatform builds the platform described by cfg. Limits are enforced
// before instrumentation, so rejected allocations are counted as failures.
func NewPlatform(cfg Config, reg prometheus.Registerer, logger log.Logger) (Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var p Closer
	switch cfg.Backend {
	case BackendMmap:
		p = NewMmap(logger)
	default:
		p = NewHeap()
	}

	if cfg.MaxInflightBytes > 0 {
		p = NewLimiting(p, uint64(cfg.MaxInflightBytes))
	}
	if cfg.Instrument {
		p = NewInstrumented(p, reg, logger)
	}

	level.Info(logger).Log("msg", "platform allocator configured", "backend", cfg.Backend, "max_inflight_bytes", cfg.MaxInflightBytes.String(), "instrumented", cfg.Instrument)
	return p, nil
}

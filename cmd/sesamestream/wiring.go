package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sesamestream/sesamestream/internal/linkeddata"
	"github.com/sesamestream/sesamestream/pkg/config"
	"github.com/sesamestream/sesamestream/pkg/index"
	"github.com/sesamestream/sesamestream/pkg/metrics"
)

// engine bundles everything a command needs to run the index and, if
// configured, its optional collaborators — one place to build and tear
// them down in the right order.
type engine struct {
	Index   *index.Index
	Metrics *metrics.Metrics
	Fetcher *linkeddata.Fetcher
	cache   *linkeddata.BadgerCache
}

// buildEngine wires the index, metrics, and (if enabled) the Linked Data
// fetcher from cfg, in the single-goroutine discipline pkg/index.Index's
// own doc comment calls for: every command in this package drives its
// engine from one goroutine only.
func buildEngine(cfg *config.Config, logger *zap.Logger) (*engine, error) {
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New("sesamestream", logger)
	}

	idx := index.New(
		index.WithMetrics(m),
		index.WithLogger(logger),
	)

	e := &engine{Index: idx, Metrics: m}

	if cfg.LinkedData.Enabled {
		var cache linkeddata.DedupeCache
		if cfg.LinkedData.CachePath == "" {
			c, err := linkeddata.NewInMemoryBadgerCache(cfg.CacheTTL())
			if err != nil {
				return nil, fmt.Errorf("open linked data cache: %w", err)
			}
			e.cache = c
			cache = c
		} else {
			c, err := linkeddata.NewBadgerCache(cfg.LinkedData.CachePath, cfg.CacheTTL())
			if err != nil {
				return nil, fmt.Errorf("open linked data cache: %w", err)
			}
			e.cache = c
			cache = c
		}

		opts := []linkeddata.Option{linkeddata.WithLogger(logger)}
		if m != nil {
			opts = append(opts, linkeddata.WithMetrics(m))
		}
		if cfg.LinkedData.Workers > 0 {
			opts = append(opts, linkeddata.WithWorkers(cfg.LinkedData.Workers))
		}

		fetcher := linkeddata.New(idx, cache, opts...)
		idx.OnPatternFirstSeen = fetcher.Notify
		e.Fetcher = fetcher
	}

	return e, nil
}

// Start begins the index's reaper and, if present, the fetcher's worker
// pool.
func (e *engine) Start() {
	e.Index.Start()
	if e.Fetcher != nil {
		e.Fetcher.Start()
	}
}

// Shutdown tears the engine down in the reverse order it was started.
func (e *engine) Shutdown() {
	if e.Fetcher != nil {
		e.Fetcher.Shutdown()
	}
	e.Index.ShutDown()
	if e.cache != nil {
		e.cache.Close()
	}
}

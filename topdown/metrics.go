// Copyright 2022-2026 Consensus Shipyard
// SPDX-License-Identifier: Apache-2.0, MIT

package topdown

import (
	"errors"
	"fmt"

	"github.com/luxfi/metric"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	errFailedCacheBoundsMetric = errors.New("failed to register cache bounds metrics")
	errFailedReorgsMetric      = errors.New("failed to register reorgs metric")
	errFailedTickDurMetric     = errors.New("failed to register tick duration metric")
)

// syncerMetrics are the Prometheus gauges/counters the syncer publishes
// each tick: a Gauge per live quantity, a metric.Averager for the tick
// duration.
type syncerMetrics struct {
	cacheLower      prometheus.Gauge
	cacheUpper      prometheus.Gauge
	committedHeight prometheus.Gauge
	reorgsDetected  prometheus.Counter
	tickDuration    metric.Averager
}

// newSyncerMetrics registers the syncer's metrics against reg. Passing a
// nil Registerer disables metrics: every recording call becomes a no-op.
func newSyncerMetrics(reg prometheus.Registerer) (*syncerMetrics, error) {
	if reg == nil {
		return &syncerMetrics{}, nil
	}

	cacheLower := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "topdown_cache_lower_height",
		Help: "Lowest parent height currently held in the sequential-key cache.",
	})
	cacheUpper := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "topdown_cache_upper_height",
		Help: "Highest parent height currently held in the sequential-key cache.",
	})
	if err := reg.Register(cacheLower); err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedCacheBoundsMetric, err)
	}
	if err := reg.Register(cacheUpper); err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedCacheBoundsMetric, err)
	}

	committed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "topdown_committed_height",
		Help: "Height of the last parent finality committed by the child subnet.",
	})
	if err := reg.Register(committed); err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedCacheBoundsMetric, err)
	}

	reorgs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "topdown_reorgs_detected_total",
		Help: "Number of parent chain reorgs detected by the polling syncer.",
	})
	if err := reg.Register(reorgs); err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedReorgsMetric, err)
	}

	tickDur, err := metric.NewAverager(
		"topdown_tick_duration_ns",
		"Time (in ns) a polling syncer tick took to complete.",
		reg,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedTickDurMetric, err)
	}

	return &syncerMetrics{
		cacheLower:      cacheLower,
		cacheUpper:      cacheUpper,
		committedHeight: committed,
		reorgsDetected:  reorgs,
		tickDuration:    tickDur,
	}, nil
}

func (m *syncerMetrics) setCacheBounds(lower, upper BlockHeight, hasBounds bool) {
	if m == nil || m.cacheLower == nil {
		return
	}
	if !hasBounds {
		m.cacheLower.Set(0)
		m.cacheUpper.Set(0)
		return
	}
	m.cacheLower.Set(float64(lower))
	m.cacheUpper.Set(float64(upper))
}

func (m *syncerMetrics) setCommittedHeight(h BlockHeight) {
	if m == nil || m.committedHeight == nil {
		return
	}
	m.committedHeight.Set(float64(h))
}

func (m *syncerMetrics) incReorgsDetected() {
	if m == nil || m.reorgsDetected == nil {
		return
	}
	m.reorgsDetected.Inc()
}

func (m *syncerMetrics) observeTickDuration(ns float64) {
	if m == nil || m.tickDuration == nil {
		return
	}
	m.tickDuration.Observe(ns)
}

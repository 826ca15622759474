// Copyright 2022-2026 Consensus Shipyard
// SPDX-License-Identifier: Apache-2.0, MIT

package topdown

import (
	"errors"
	"time"
)

// Error variables for configuration validation.
var (
	ErrInvalidPollingInterval = errors.New("polling interval must be > 0")
	ErrInvalidCacheIncrement  = errors.New("cache increment must be > 0")
)

// Config holds the parent-finality subsystem's tunables.
type Config struct {
	// Enabled selects whether IPC is configured for this deployment. When
	// false, callers must construct a disabled Toggle (see toggle.go);
	// every provider operation then fails with ErrProviderNotEnabled.
	Enabled bool

	// ChainHeadDelay is the number of parent blocks of confirmation
	// required before a height is eligible for proposal. Guards against
	// shallow reorgs at the expense of liveness.
	ChainHeadDelay uint64

	// PollingInterval is the minimum duration between syncer ticks.
	PollingInterval time.Duration

	// CacheIncrement is the spacing between cached heights. 1 unless the
	// parent reports heights in some other stride.
	CacheIncrement uint64
}

// DefaultConfig returns conservative defaults: a 5-block confirmation
// depth, a 5 second poll, and a unit cache increment.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		ChainHeadDelay:  5,
		PollingInterval: 5 * time.Second,
		CacheIncrement:  1,
	}
}

// Validate checks the config for internally-consistent values.
func (c Config) Validate() error {
	if c.PollingInterval <= 0 {
		return ErrInvalidPollingInterval
	}
	if c.CacheIncrement == 0 {
		return ErrInvalidCacheIncrement
	}
	return nil
}

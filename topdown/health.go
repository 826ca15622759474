// Copyright 2022-2026 Consensus Shipyard
// SPDX-License-Identifier: Apache-2.0, MIT

package topdown

import (
	"context"
	"time"
)

// healthChecker is the contract the syncer implements for liveness
// reporting, restated locally so this package has no compile-time
// dependency on the host application's health-reporting wiring; a caller
// can adapt HealthCheck to whatever Checker interface their health package
// declares.
type healthChecker interface {
	HealthCheck(ctx context.Context) (interface{}, error)
}

var _ healthChecker = (*PollingSyncer)(nil)

// HealthCheck reports the syncer's liveness: whether it is enabled, the
// age of its last successful tick, and the last error observed (if any).
// A syncer that hasn't ticked successfully within 3x its polling interval
// is reported unhealthy.
func (s *PollingSyncer) HealthCheck(_ context.Context) (interface{}, error) {
	s.mu.Lock()
	lastTick := s.lastTickAt
	lastErr := s.lastErr
	s.mu.Unlock()

	report := map[string]interface{}{
		"enabled": s.provider.Enabled(),
	}
	if lastErr != nil {
		report["last_error"] = lastErr.Error()
	}
	if lastTick.IsZero() {
		report["healthy"] = false
		report["reason"] = "no successful tick yet"
		return report, nil
	}

	age := time.Since(lastTick)
	report["last_tick_age"] = age.String()
	healthy := age <= 3*s.config.PollingInterval
	report["healthy"] = healthy
	if !healthy {
		report["reason"] = "no successful tick within 3x polling interval"
	}
	return report, nil
}

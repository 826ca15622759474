// Copyright 2022-2026 Consensus Shipyard
// SPDX-License-Identifier: Apache-2.0, MIT

package topdown

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
)

// PollingSyncer is a background task that keeps the provider's cache filled
// by polling a ParentClient on a fixed interval, applying the chain-head
// delay, and detecting/repairing reorgs.
//
// The loop is cooperative: it only checks for cancellation at the ticker
// wait and between per-height RPC calls, so a cancelled context never
// leaves a half-applied observation in the cache.
type PollingSyncer struct {
	config   Config
	provider Toggle
	client   ParentClient
	log      log.Logger
	metrics  *syncerMetrics

	// fatalCh receives a single FatalReorgError if the syncer ever detects
	// a reorg at or below the committed height. Buffered 1 so the tick
	// that discovers the fault never blocks on a slow reader.
	fatalCh chan error

	mu         sync.Mutex
	lastTickAt time.Time
	lastErr    error
}

// NewPollingSyncer constructs a syncer. reg may be nil to disable metrics
// registration (e.g. in tests); logger may be log.NoLog{} for the same
// reason.
func NewPollingSyncer(config Config, provider Toggle, client ParentClient, logger log.Logger, reg prometheus.Registerer) (*PollingSyncer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	metrics, err := newSyncerMetrics(reg)
	if err != nil {
		return nil, err
	}
	return &PollingSyncer{
		config:   config,
		provider: provider,
		client:   client,
		log:      logger,
		metrics:  metrics,
		fatalCh:  make(chan error, 1),
	}, nil
}

// Fatal returns a channel that receives a FatalReorgError if the syncer
// ever detects a reorg whose fork point lies at or below the committed
// height. The syncer stops ticking after sending on this channel.
func (s *PollingSyncer) Fatal() <-chan error {
	return s.fatalCh
}

// Start spawns the polling loop in the background and returns immediately.
// The loop runs until ctx is cancelled or a fatal condition is reached.
func (s *PollingSyncer) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *PollingSyncer) run(ctx context.Context) {
	ticker := time.NewTicker(s.config.PollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if fatal := s.tick(ctx); fatal {
				return
			}
		}
	}
}

// tick runs exactly one poll-and-sync cycle. It returns true if a fatal
// condition was reached and the syncer should stop.
func (s *PollingSyncer) tick(ctx context.Context) bool {
	start := time.Now()
	err := s.doTick(ctx)
	s.metrics.observeTickDuration(float64(time.Since(start).Nanoseconds()))

	s.mu.Lock()
	s.lastErr = err
	if err == nil {
		s.lastTickAt = time.Now()
	}
	s.mu.Unlock()

	if err == nil {
		s.publishState()
		return false
	}

	var fatal *FatalReorgError
	if errors.As(err, &fatal) {
		s.log.Error("fatal parent reorg detected, halting syncer",
			"forkHeight", fatal.ForkHeight,
			"committedHeight", fatal.CommittedHeight,
		)
		select {
		case s.fatalCh <- err:
		default:
		}
		return true
	}

	s.log.Debug("sync with parent encountered error, will retry", "error", err)
	return false
}

func (s *PollingSyncer) publishState() {
	upper, hasUpper, _ := s.provider.LatestHeight()
	committed, _ := s.provider.LastCommittedFinality()
	s.metrics.setCommittedHeight(committed.Height)
	s.metrics.setCacheBounds(committed.Height+1, upper, hasUpper)
}

// doTick runs one full pass: fetch the parent chain head, apply the
// chain-head delay, catch the cache up to the resulting target height, and
// attach any newly-finalized top-down messages. A detected reorg causes an
// immediate, bounded retry of the same tick rather than waiting for the
// next timer fire.
func (s *PollingSyncer) doTick(ctx context.Context) error {
	const maxReorgRetriesPerTick = 64
	for attempt := 0; attempt < maxReorgRetriesPerTick; attempt++ {
		reorgHandled, err := s.syncOnce(ctx)
		if err != nil {
			return err
		}
		if !reorgHandled {
			return nil
		}
	}
	return fmt.Errorf("topdown: exceeded %d reorg-repair retries in a single tick", maxReorgRetriesPerTick)
}

func (s *PollingSyncer) syncOnce(ctx context.Context) (reorgHandled bool, err error) {
	headParent, err := s.client.ChainHeadHeight(ctx)
	if err != nil {
		return false, fmt.Errorf("fetch parent chain head: %w", err)
	}

	if headParent < s.config.ChainHeadDelay {
		s.log.Debug("latest parent height not past chain head delay",
			"head", headParent, "delay", s.config.ChainHeadDelay)
		return false, nil
	}
	target := headParent - s.config.ChainHeadDelay

	if handled, err := s.detectAndRepairReorg(ctx); err != nil {
		return false, err
	} else if handled {
		return true, nil
	}

	upper, hasUpper, err := s.provider.LatestHeight()
	if err != nil {
		return false, err
	}
	committed, err := s.provider.LastCommittedFinality()
	if err != nil {
		return false, err
	}

	startHeight := committed.Height + s.config.CacheIncrement
	if hasUpper && upper+s.config.CacheIncrement > startHeight {
		startHeight = upper + s.config.CacheIncrement
	}

	nonce := committed.LastNonce()
	for h := startHeight; h <= target; h += s.config.CacheIncrement {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}

		hash, err := s.client.BlockHash(ctx, h)
		if err != nil {
			return false, fmt.Errorf("fetch block hash at %d: %w", h, err)
		}
		vset, err := s.client.ValidatorSet(ctx, h)
		if err != nil {
			return false, fmt.Errorf("fetch validator set at %d: %w", h, err)
		}
		msgs, err := s.client.TopDownMessages(ctx, h, nonce+1)
		if err != nil {
			return false, fmt.Errorf("fetch top-down messages at %d: %w", h, err)
		}
		if len(msgs) > 0 {
			nonce = msgs[len(msgs)-1].Nonce
		}

		if err := s.provider.NewParentView(h, hash, vset, msgs); err != nil {
			var tooLow *HeightTooLowError
			if errors.As(err, &tooLow) {
				// Raced with a concurrent commit advancing past h; the
				// height is no longer interesting, move on.
				continue
			}
			return false, fmt.Errorf("insert parent view at %d: %w", h, err)
		}
	}

	return false, nil
}

// detectAndRepairReorg re-fetches the hash at the cache's current upper
// bound and compares it against what's cached. A mismatch means the
// parent has reorged somewhere at or below that height; it walks
// backward, re-checking each cached height against a fresh fetch, until it
// finds the deepest height that still matches (the fork point), then
// truncates the cache above it. A reorg spanning the entire cached window
// is still repairable if the committed record's own hash matches the
// parent; if even that is contradicted, the condition is unrecoverable and
// FatalReorgError is returned.
func (s *PollingSyncer) detectAndRepairReorg(ctx context.Context) (bool, error) {
	upper, hasUpper, err := s.provider.LatestHeight()
	if err != nil {
		return false, err
	}
	if !hasUpper {
		return false, nil
	}

	cachedHash, ok, err := s.provider.BlockHash(upper)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	freshHash, err := s.client.BlockHash(ctx, upper)
	if err != nil {
		return false, fmt.Errorf("fetch block hash at %d: %w", upper, err)
	}
	if bytes.Equal(cachedHash, freshHash) {
		return false, nil
	}

	s.metrics.incReorgsDetected()
	s.log.Warn("parent reorg detected", "height", upper)

	committed, err := s.provider.LastCommittedFinality()
	if err != nil {
		return false, err
	}

	forkHeight := upper
	forkConfirmed := false
	for forkHeight > committed.Height {
		candidate := forkHeight - s.config.CacheIncrement
		forkHeight = candidate

		refHash, ok, err := s.provider.BlockHash(candidate)
		if err != nil {
			return false, err
		}
		if !ok {
			// Walked past the cache's lower bound: the only history left to
			// check against is the committed record itself.
			if candidate != committed.Height || len(committed.BlockHash) == 0 {
				break
			}
			refHash = committed.BlockHash
		}

		freshHash, err := s.client.BlockHash(ctx, candidate)
		if err != nil {
			return false, fmt.Errorf("fetch block hash at %d: %w", candidate, err)
		}
		if bytes.Equal(refHash, freshHash) {
			forkConfirmed = true
			break
		}
	}

	if forkHeight <= committed.Height && !forkConfirmed {
		return false, &FatalReorgError{ForkHeight: forkHeight, CommittedHeight: committed.Height}
	}

	if err := s.provider.RemoveAbove(forkHeight); err != nil {
		return false, err
	}
	return true, nil
}

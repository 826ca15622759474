// Copyright 2022-2026 Consensus Shipyard
// SPDX-License-Identifier: Apache-2.0, MIT

package topdown

import (
	"bytes"
	"errors"
	"sync"
)

// FinalityProvider is the transactional heart of the parent-finality
// subsystem: a sliding window of unconfirmed parent observations plus the
// finality the child subnet has already committed.
//
// All mutable state lives behind a single mutex: every exported method
// takes the lock for its entire duration, so the cache and the committed
// pointer are always observed and mutated together. No exported method
// ever releases the lock mid-operation, so "transaction" and "critical
// section" coincide.
type FinalityProvider struct {
	mu sync.Mutex

	config Config

	// lastCommitted is the highest parent height the child has accepted.
	lastCommitted IPCParentFinality

	// cache holds unconfirmed observations with heights strictly greater
	// than lastCommitted.Height.
	cache *sequentialKeyCache[ParentObservation]
}

// NewFinalityProvider constructs a provider seeded with the finality the
// enclosing application has already persisted (or the genesis finality on
// a fresh chain) and an empty cache. The core itself never persists
// anything; restoration is the caller's job (see snapshot.go).
func NewFinalityProvider(config Config, lastCommitted IPCParentFinality) *FinalityProvider {
	return &FinalityProvider{
		config:        config,
		lastCommitted: lastCommitted,
		cache:         newSequentialKeyCache[ParentObservation](config.CacheIncrement),
	}
}

// LatestHeight returns the cache's upper bound, or false if the cache is empty.
func (p *FinalityProvider) LatestHeight() (BlockHeight, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cache.upperBound()
}

// BlockHash returns the hash cached at h, if present.
func (p *FinalityProvider) BlockHash(h BlockHeight) (BlockHash, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	obs, ok := p.cache.get(h)
	if !ok {
		return nil, false
	}
	return obs.BlockHash, true
}

// ValidatorSet returns the validator set cached at h, if present.
func (p *FinalityProvider) ValidatorSet(h BlockHeight) (ValidatorSet, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	obs, ok := p.cache.get(h)
	if !ok {
		return ValidatorSet{}, false
	}
	return obs.ValidatorSet, true
}

// TopDownMsgs returns the top-down messages cached at h, empty if h is
// absent from the cache.
func (p *FinalityProvider) TopDownMsgs(h BlockHeight) []CrossMsg {
	p.mu.Lock()
	defer p.mu.Unlock()
	obs, ok := p.cache.get(h)
	if !ok {
		return nil
	}
	return obs.TopDownMsgs
}

// LastCommittedFinality returns the last committed finality record.
func (p *FinalityProvider) LastCommittedFinality() IPCParentFinality {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastCommitted
}

// NewParentView appends one complete observation to the cache. It must
// satisfy the next-key rule relative to the current upper bound, and
// height must be strictly greater than the committed height.
//
// A caller that has detected a reorg (the hash it just fetched for an
// already-cached height disagrees with what's cached) should not call this;
// it should call RemoveAbove first to repair the window, per the syncer's
// reorg-handling procedure.
func (p *FinalityProvider) NewParentView(height BlockHeight, hash BlockHash, vset ValidatorSet, msgs []CrossMsg) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if height <= p.lastCommitted.Height {
		return &HeightTooLowError{Incoming: height, Committed: p.lastCommitted.Height}
	}

	obs := ParentObservation{
		Height:       height,
		BlockHash:    hash,
		ValidatorSet: vset,
		TopDownMsgs:  msgs,
	}

	switch p.cache.insert(height, obs) {
	case insertOK:
		return nil
	case insertAboveBound:
		return &ExceedingLatestHeightError{Proposal: height, Parent: mustUpper(p.cache)}
	case insertBelowBound:
		return &HeightNotFoundInCacheError{Height: height}
	case insertNotNext:
		// A rewrite of an already-cached height with a different hash means
		// the caller is looking at a different fork than the one cached.
		if cached, ok := p.cache.get(height); ok && !bytes.Equal(cached.BlockHash, hash) {
			return &ParentReorgDetectedError{Height: height}
		}
		return &HeightNotFoundInCacheError{Height: height}
	default:
		return nil
	}
}

// RemoveAbove truncates the cache above h, exclusive. Used by the syncer
// to repair the window after a reorg; repeated truncation to the same fork
// point is idempotent.
func (p *FinalityProvider) RemoveAbove(h BlockHeight) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache.removeKeysAbove(h)
}

// SetNewFinality atomically commits f and evicts every cached height
// <= f.Height. f.Height must exceed the currently committed height; a repeat
// of the committed height and block hash yields HeightAlreadyCommittedError.
func (p *FinalityProvider) SetNewFinality(f IPCParentFinality) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if f.Height == p.lastCommitted.Height && bytes.Equal(f.BlockHash, p.lastCommitted.BlockHash) {
		return &HeightAlreadyCommittedError{Height: f.Height}
	}
	if f.Height <= p.lastCommitted.Height {
		return &HeightTooLowError{Incoming: f.Height, Committed: p.lastCommitted.Height}
	}

	p.lastCommitted = f
	p.cache.removeKeysBelow(f.Height + 1)
	return nil
}

// NextProposal is called by the block proposer at begin-block. It always
// proposes the highest cached height: never skips ahead past the cache's
// upper bound even if the parent RPC has since reported something higher,
// and never proposes at or below the committed height.
func (p *FinalityProvider) NextProposal() (*IPCParentFinality, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	upper, ok := p.cache.upperBound()
	if !ok || upper <= p.lastCommitted.Height {
		return nil, nil
	}

	obs, ok := p.cache.get(upper)
	if !ok {
		// Unreachable given upper came from the same cache under the same
		// lock, but keep the error path total rather than panic.
		return nil, &HeightNotFoundInCacheError{Height: upper}
	}

	msgs := p.topDownMsgsSinceLocked(upper)

	return &IPCParentFinality{
		Height:       obs.Height,
		BlockHash:    obs.BlockHash,
		ValidatorSet: obs.ValidatorSet,
		TopDownMsgs:  msgs,
	}, nil
}

// topDownMsgsSinceLocked gathers every top-down message cached at heights
// <= upTo whose nonce exceeds the committed last nonce, in nonce order.
// Callers must hold p.mu.
func (p *FinalityProvider) topDownMsgsSinceLocked(upTo BlockHeight) []CrossMsg {
	sinceNonce := p.lastCommitted.LastNonce()
	var out []CrossMsg
	lower, ok := p.cache.lowerBound()
	if !ok {
		return nil
	}
	for h := lower; h <= upTo; h += p.config.CacheIncrement {
		obs, ok := p.cache.get(h)
		if !ok {
			continue
		}
		for _, m := range obs.TopDownMsgs {
			if m.Nonce > sinceNonce {
				out = append(out, m)
			}
		}
	}
	return out
}

// CheckProposal validates a peer's proposed finality against the local
// cache and committed state. A proposal is rejected if its height is at or
// below the committed height, if this node hasn't cached that height yet
// (indeterminate, so reject), or if the cached hash, validator set, or
// top-down nonce sequence disagrees with what the proposal claims.
func (p *FinalityProvider) CheckProposal(proposal IPCParentFinality) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if proposal.Height <= p.lastCommitted.Height {
		return &HeightTooLowError{Incoming: proposal.Height, Committed: p.lastCommitted.Height}
	}

	lower, hasLower := p.cache.lowerBound()
	upper, hasUpper := p.cache.upperBound()
	if !hasLower || !hasUpper || proposal.Height < lower || proposal.Height > upper {
		return &HeightNotFoundInCacheError{Height: proposal.Height}
	}

	obs, ok := p.cache.get(proposal.Height)
	if !ok {
		return &HeightNotFoundInCacheError{Height: proposal.Height}
	}

	if !bytes.Equal(obs.BlockHash, proposal.BlockHash) {
		return &BlockHashNotMatchError{Proposal: proposal.BlockHash, Parent: obs.BlockHash, Height: proposal.Height}
	}

	if !obs.ValidatorSet.Equal(proposal.ValidatorSet) {
		return &ValidatorSetNotMatchError{Height: proposal.Height}
	}

	return checkNonceSequence(proposal.TopDownMsgs, p.lastCommitted.LastNonce(), proposal.Height)
}

// Commit is called after the child subnet accepts a proposal. It is
// idempotent for a repeat of the already-committed finality (same height and
// block hash), and rejects any other finality whose height does not exceed
// the committed one.
func (p *FinalityProvider) Commit(f IPCParentFinality) error {
	err := p.SetNewFinality(f)
	var dup *HeightAlreadyCommittedError
	if errors.As(err, &dup) {
		return nil
	}
	return err
}

// checkNonceSequence validates that each top-down message nonce is exactly
// one more than the previous one and that the first nonce continues the
// committed sequence (committedNonce + 1).
func checkNonceSequence(msgs []CrossMsg, committedNonce Nonce, height BlockHeight) error {
	if len(msgs) == 0 {
		return nil
	}
	if msgs[0].Nonce != committedNonce+1 {
		return &InvalidNonceError{Proposal: msgs[0].Nonce, Parent: committedNonce + 1, Height: height}
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Nonce != msgs[i-1].Nonce+1 {
			return ErrNonceNotSequential
		}
	}
	return nil
}

func mustUpper(c *sequentialKeyCache[ParentObservation]) BlockHeight {
	h, _ := c.upperBound()
	return h
}

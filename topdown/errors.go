// Copyright 2022-2026 Consensus Shipyard
// SPDX-License-Identifier: Apache-2.0, MIT

package topdown

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions that carry no extra state.
var (
	// ErrProviderNotEnabled is returned by every Toggle operation when the
	// wrapped provider is disabled.
	ErrProviderNotEnabled = errors.New("topdown: parent finality provider not enabled")

	// ErrHeightNotReady means the parent hasn't progressed past the
	// configured chain-head delay yet; transient.
	ErrHeightNotReady = errors.New("topdown: parent height not past chain head delay")

	// ErrHeightThresholdNotReached is returned when a target height is
	// requested that the chain-head delay has not yet cleared.
	ErrHeightThresholdNotReached = errors.New("topdown: chain head delay threshold not reached")

	// ErrNonceNotSequential means the incoming top-down messages' nonces do
	// not each increase by exactly one.
	ErrNonceNotSequential = errors.New("topdown: incoming top-down messages not nonce-sequential")
)

// HeightNotFoundInCacheError means the requested height has no cached
// observation; transient while the syncer catches up. NewParentView also
// returns it for a height that is not the next key: one below the window, or
// a repeat of an already-cached height with the same hash.
type HeightNotFoundInCacheError struct {
	Height BlockHeight
}

func (e *HeightNotFoundInCacheError) Error() string {
	return fmt.Sprintf("topdown: height %d not found in cache", e.Height)
}

// ExceedingLatestHeightError means NewParentView was asked to insert a height
// beyond the cache's next expected key; Parent is the cache's upper bound.
type ExceedingLatestHeightError struct {
	Proposal BlockHeight
	Parent   BlockHeight
}

func (e *ExceedingLatestHeightError) Error() string {
	return fmt.Sprintf("topdown: proposal height %d exceeds latest observed parent height %d", e.Proposal, e.Parent)
}

// HeightTooLowError means the incoming finality's height is not above the
// already-committed height.
type HeightTooLowError struct {
	Incoming  BlockHeight
	Committed BlockHeight
}

func (e *HeightTooLowError) Error() string {
	return fmt.Sprintf("topdown: incoming height %d <= committed height %d", e.Incoming, e.Committed)
}

// HeightAlreadyCommittedError flags a duplicate commit attempt: the same
// height and block hash as the committed finality. Callers treat this as
// benign: the commit is idempotent.
type HeightAlreadyCommittedError struct {
	Height BlockHeight
}

func (e *HeightAlreadyCommittedError) Error() string {
	return fmt.Sprintf("topdown: height %d already committed", e.Height)
}

// BlockHashNotMatchError means the proposal's cited hash disagrees with the
// hash cached for that height.
type BlockHashNotMatchError struct {
	Proposal BlockHash
	Parent   BlockHash
	Height   BlockHeight
}

func (e *BlockHashNotMatchError) Error() string {
	return fmt.Sprintf("topdown: block hash mismatch at height %d: proposal %x, parent %x", e.Height, e.Proposal, e.Parent)
}

// ValidatorSetNotMatchError means the proposal's validator set disagrees
// with the one cached at that height.
type ValidatorSetNotMatchError struct {
	Height BlockHeight
}

func (e *ValidatorSetNotMatchError) Error() string {
	return fmt.Sprintf("topdown: validator set mismatch at height %d", e.Height)
}

// InvalidNonceError means the proposal's first top-down message nonce does
// not continue the committed sequence.
type InvalidNonceError struct {
	Proposal Nonce
	Parent   Nonce
	Height   BlockHeight
}

func (e *InvalidNonceError) Error() string {
	return fmt.Sprintf("topdown: invalid nonce at height %d: proposal starts at %d, expected %d", e.Height, e.Proposal, e.Parent)
}

// ParentReorgDetectedError signals that freshly fetched parent data
// contradicts a cached observation at h. The syncer repairs by truncating
// the cache above the deepest still-matching height and retrying; if the
// fork point is below the committed height, the condition is fatal.
type ParentReorgDetectedError struct {
	Height BlockHeight
}

func (e *ParentReorgDetectedError) Error() string {
	return fmt.Sprintf("topdown: parent reorg detected at height %d", e.Height)
}

// FatalReorgError is raised when a detected reorg's fork point lies at or
// below the already-committed finality: the committed record is no longer
// consistent with the parent's canonical chain, and no amount of retrying
// fixes it. Operator intervention is required.
type FatalReorgError struct {
	ForkHeight      BlockHeight
	CommittedHeight BlockHeight
}

func (e *FatalReorgError) Error() string {
	return fmt.Sprintf(
		"topdown: fatal reorg: fork point %d at or below committed height %d, operator intervention required",
		e.ForkHeight, e.CommittedHeight,
	)
}

// RejectionReason is returned by CheckProposal; it is always either
// ErrNonceNotSequential or one of the typed *Error values above, matchable
// with errors.Is/errors.As.
type RejectionReason = error

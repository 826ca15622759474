// Copyright 2022-2026 Consensus Shipyard
// SPDX-License-Identifier: Apache-2.0, MIT

package topdown

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func hashFor(height BlockHeight) BlockHash {
	return []byte{byte(height), byte(height >> 8), byte(height >> 16)}
}

func seedProvider(t *testing.T, committedHeight, upTo BlockHeight) *FinalityProvider {
	t.Helper()
	cfg := DefaultConfig()
	p := NewFinalityProvider(cfg, IPCParentFinality{Height: committedHeight, BlockHash: hashFor(committedHeight)})
	for h := committedHeight + 1; h <= upTo; h++ {
		require.NoError(t, p.NewParentView(h, hashFor(h), ValidatorSet{}, nil))
	}
	return p
}

// Steady-state: the proposer cites the highest cached height.
func TestNextProposalSteadyState(t *testing.T) {
	p := seedProvider(t, 100, 110)

	proposal, err := p.NextProposal()
	require.NoError(t, err)
	require.NotNil(t, proposal)
	require.Equal(t, BlockHeight(110), proposal.Height)
	require.Equal(t, hashFor(110), proposal.BlockHash)
}

func TestNextProposalNoneWhenCacheAtOrBelowCommitted(t *testing.T) {
	cfg := DefaultConfig()
	p := NewFinalityProvider(cfg, IPCParentFinality{Height: 100})

	proposal, err := p.NextProposal()
	require.NoError(t, err)
	require.Nil(t, proposal)
}

// A proposal at or below the committed height is rejected.
func TestCheckProposalHeightTooLow(t *testing.T) {
	p := seedProvider(t, 100, 110)

	err := p.CheckProposal(IPCParentFinality{Height: 100, BlockHash: hashFor(100)})
	var tooLow *HeightTooLowError
	require.ErrorAs(t, err, &tooLow)
	require.Equal(t, BlockHeight(100), tooLow.Incoming)
	require.Equal(t, BlockHeight(100), tooLow.Committed)
}

func TestCheckProposalHeightNotInCache(t *testing.T) {
	p := seedProvider(t, 100, 110)

	err := p.CheckProposal(IPCParentFinality{Height: 500, BlockHash: hashFor(500)})
	var notFound *HeightNotFoundInCacheError
	require.ErrorAs(t, err, &notFound)
}

// A proposal citing a different hash than the cached one is rejected.
func TestCheckProposalHashMismatch(t *testing.T) {
	p := seedProvider(t, 100, 110)

	err := p.CheckProposal(IPCParentFinality{Height: 101, BlockHash: []byte{0xbb}})
	var mismatch *BlockHashNotMatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, BlockHeight(101), mismatch.Height)
}

func TestCheckProposalValidatorSetMismatch(t *testing.T) {
	cfg := DefaultConfig()
	p := NewFinalityProvider(cfg, IPCParentFinality{Height: 100})
	vsA := ValidatorSet{Validators: []Validator{{VotingPower: 10}}}
	require.NoError(t, p.NewParentView(101, hashFor(101), vsA, nil))

	vsB := ValidatorSet{Validators: []Validator{{VotingPower: 99}}}
	err := p.CheckProposal(IPCParentFinality{Height: 101, BlockHash: hashFor(101), ValidatorSet: vsB})
	var mismatch *ValidatorSetNotMatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestCheckProposalNonceNotSequential(t *testing.T) {
	cfg := DefaultConfig()
	p := NewFinalityProvider(cfg, IPCParentFinality{Height: 100})
	require.NoError(t, p.NewParentView(101, hashFor(101), ValidatorSet{}, nil))

	proposal := IPCParentFinality{
		Height:    101,
		BlockHash: hashFor(101),
		TopDownMsgs: []CrossMsg{
			{Nonce: 1}, {Nonce: 3},
		},
	}
	err := p.CheckProposal(proposal)
	require.ErrorIs(t, err, ErrNonceNotSequential)
}

func TestCheckProposalInvalidFirstNonce(t *testing.T) {
	cfg := DefaultConfig()
	p := NewFinalityProvider(cfg, IPCParentFinality{
		Height:      100,
		TopDownMsgs: []CrossMsg{{Nonce: 5}},
	})
	require.NoError(t, p.NewParentView(101, hashFor(101), ValidatorSet{}, nil))

	proposal := IPCParentFinality{
		Height:      101,
		BlockHash:   hashFor(101),
		TopDownMsgs: []CrossMsg{{Nonce: 7}},
	}
	err := p.CheckProposal(proposal)
	var invalidNonce *InvalidNonceError
	require.ErrorAs(t, err, &invalidNonce)
	require.Equal(t, Nonce(6), invalidNonce.Parent)
}

// Two nodes with identical cache and committed state agree: one proposes,
// the other accepts.
func TestProposeCheckAgreement(t *testing.T) {
	pA := seedProvider(t, 100, 110)
	pB := seedProvider(t, 100, 110)

	proposal, err := pA.NextProposal()
	require.NoError(t, err)
	require.NotNil(t, proposal)

	require.NoError(t, pB.CheckProposal(*proposal))
}

// Committing evicts every cached height at or below the committed one.
func TestCommitClearsCache(t *testing.T) {
	p := seedProvider(t, 100, 110)

	require.NoError(t, p.Commit(IPCParentFinality{Height: 105, BlockHash: hashFor(105)}))

	committed := p.LastCommittedFinality()
	require.Equal(t, BlockHeight(105), committed.Height)

	lower, ok := p.cache.lowerBound()
	require.True(t, ok)
	require.Equal(t, BlockHeight(106), lower)

	upper, ok := p.cache.upperBound()
	require.True(t, ok)
	require.Equal(t, BlockHeight(110), upper)
}

func TestCommitIdempotent(t *testing.T) {
	p := seedProvider(t, 100, 110)
	f := IPCParentFinality{Height: 105, BlockHash: hashFor(105)}

	require.NoError(t, p.Commit(f))
	require.NoError(t, p.Commit(f)) // repeat of same finality: no-op success
	require.Equal(t, BlockHeight(105), p.LastCommittedFinality().Height)
}

func TestCommitRejectsLowerHeight(t *testing.T) {
	p := seedProvider(t, 100, 110)
	require.NoError(t, p.Commit(IPCParentFinality{Height: 105, BlockHash: hashFor(105)}))

	err := p.Commit(IPCParentFinality{Height: 102, BlockHash: hashFor(102)})
	var tooLow *HeightTooLowError
	require.ErrorAs(t, err, &tooLow)
}

// No observer sees committed advanced with cache entries <= it still present.
func TestAtomicCommitNoStaleCacheEntries(t *testing.T) {
	p := seedProvider(t, 100, 110)
	require.NoError(t, p.Commit(IPCParentFinality{Height: 108, BlockHash: hashFor(108)}))

	for h := BlockHeight(101); h <= 108; h++ {
		_, ok := p.BlockHash(h)
		require.False(t, ok, "height %d should have been evicted", h)
	}
	for h := BlockHeight(109); h <= 110; h++ {
		_, ok := p.BlockHash(h)
		require.True(t, ok, "height %d should remain cached", h)
	}
}

func TestNewParentViewRejectsAtOrBelowCommitted(t *testing.T) {
	p := seedProvider(t, 100, 110)
	err := p.NewParentView(100, hashFor(100), ValidatorSet{}, nil)
	var tooLow *HeightTooLowError
	require.ErrorAs(t, err, &tooLow)
}

func TestNewParentViewRejectsNonSequentialHeight(t *testing.T) {
	p := seedProvider(t, 100, 110)
	err := p.NewParentView(120, hashFor(120), ValidatorSet{}, nil)
	require.Error(t, err)
}

// Rewriting a cached height with a conflicting hash surfaces as a reorg.
func TestNewParentViewDetectsReorg(t *testing.T) {
	p := seedProvider(t, 100, 110)

	err := p.NewParentView(105, []byte{0xbb}, ValidatorSet{}, nil)
	var reorg *ParentReorgDetectedError
	require.ErrorAs(t, err, &reorg)
	require.Equal(t, BlockHeight(105), reorg.Height)

	// Same hash at a cached height is a plain duplicate, not a reorg.
	err = p.NewParentView(105, hashFor(105), ValidatorSet{}, nil)
	var notFound *HeightNotFoundInCacheError
	require.ErrorAs(t, err, &notFound)
}

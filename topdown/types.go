// Copyright 2022-2026 Consensus Shipyard
// SPDX-License-Identifier: Apache-2.0, MIT

package topdown

import (
	"github.com/luxfi/ids"
)

// BlockHeight is a parent-chain block height.
type BlockHeight = uint64

// BlockHash is an opaque parent-chain block digest: 32 bytes for EVM
// parents, variable-length for IPLD parents.
type BlockHash = []byte

// Nonce is the monotonic sequence number carried by a top-down message.
type Nonce = uint64

// Validator is one member of a parent-chain validator set at some height.
type Validator struct {
	Address     ids.NodeID
	VotingPower uint64
}

// ValidatorSet is an ordered validator configuration as observed at a
// parent height. The zero value is the empty set, which is a legal
// (if unconfirmed) value until the syncer fetches a populated one.
type ValidatorSet struct {
	Validators []Validator
}

// Equal reports whether two validator sets carry the same ordered
// membership and voting power. Order matters: a permutation is a
// different configuration as far as CheckProposal is concerned,
// since the parent itself reports them in a canonical order.
func (vs ValidatorSet) Equal(other ValidatorSet) bool {
	if len(vs.Validators) != len(other.Validators) {
		return false
	}
	for i, v := range vs.Validators {
		o := other.Validators[i]
		if v.Address != o.Address || v.VotingPower != o.VotingPower {
			return false
		}
	}
	return true
}

// CrossMsg is a single top-down message: parent-to-child, nonce-ordered.
type CrossMsg struct {
	Nonce   Nonce
	Payload []byte
}

// ParentObservation is everything the syncer learned about one parent
// height: its canonical hash, the validator set effective there, and any
// top-down messages carried at that height. Cached under a single height
// key in the SequentialKeyCache maintained by the provider.
type ParentObservation struct {
	Height       BlockHeight
	BlockHash    BlockHash
	ValidatorSet ValidatorSet
	TopDownMsgs  []CrossMsg
}

// IPCParentFinality is the commit record the child subnet accepts into its
// own ledger: a witness that the parent reached (Height, BlockHash) and the
// validator set and top-down messages as of that height.
type IPCParentFinality struct {
	Height       BlockHeight
	BlockHash    BlockHash
	ValidatorSet ValidatorSet
	TopDownMsgs  []CrossMsg
}

// LastNonce returns the highest top-down message nonce finalized by f, or 0
// if f carries no messages (the nonce sequence for a fresh subnet starts at 1).
func (f IPCParentFinality) LastNonce() Nonce {
	if len(f.TopDownMsgs) == 0 {
		return 0
	}
	return f.TopDownMsgs[len(f.TopDownMsgs)-1].Nonce
}

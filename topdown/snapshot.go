// Copyright 2022-2026 Consensus Shipyard
// SPDX-License-Identifier: Apache-2.0, MIT

package topdown

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// PersistedFinality is the on-disk shape of a committed IPCParentFinality.
// The parent-finality subsystem keeps no storage of its own: the sliding
// window is in-memory only, and the committed finality is persisted by the
// enclosing application as part of the child's own state. This type and
// its codec exist purely so that application can serialize/restore the one
// piece of state that must survive a restart, without inventing its own
// wire format. CBOR because it is the encoding the rest of the IPLD-based
// child chain already speaks.
type PersistedFinality struct {
	Height       BlockHeight    `cbor:"1,keyasint"`
	BlockHash    []byte         `cbor:"2,keyasint"`
	ValidatorSet []PersistedVal `cbor:"3,keyasint"`
	TopDownMsgs  []PersistedMsg `cbor:"4,keyasint"`
}

// PersistedVal is the on-disk shape of a Validator.
type PersistedVal struct {
	Address     []byte `cbor:"1,keyasint"`
	VotingPower uint64 `cbor:"2,keyasint"`
}

// PersistedMsg is the on-disk shape of a CrossMsg.
type PersistedMsg struct {
	Nonce   uint64 `cbor:"1,keyasint"`
	Payload []byte `cbor:"2,keyasint"`
}

// SerializeFinality encodes f for storage by the enclosing application.
func SerializeFinality(f IPCParentFinality) ([]byte, error) {
	pf := PersistedFinality{
		Height:    f.Height,
		BlockHash: f.BlockHash,
	}
	for _, v := range f.ValidatorSet.Validators {
		addr := v.Address
		pf.ValidatorSet = append(pf.ValidatorSet, PersistedVal{
			Address:     addr[:],
			VotingPower: v.VotingPower,
		})
	}
	for _, m := range f.TopDownMsgs {
		pf.TopDownMsgs = append(pf.TopDownMsgs, PersistedMsg{Nonce: m.Nonce, Payload: m.Payload})
	}

	out, err := cbor.Marshal(pf)
	if err != nil {
		return nil, fmt.Errorf("topdown: serialize finality: %w", err)
	}
	return out, nil
}

// DeserializeFinality restores an IPCParentFinality previously written by
// SerializeFinality. Used to seed NewFinalityProvider on startup.
func DeserializeFinality(data []byte) (IPCParentFinality, error) {
	var pf PersistedFinality
	if err := cbor.Unmarshal(data, &pf); err != nil {
		return IPCParentFinality{}, fmt.Errorf("topdown: deserialize finality: %w", err)
	}

	f := IPCParentFinality{
		Height:    pf.Height,
		BlockHash: pf.BlockHash,
	}
	for _, v := range pf.ValidatorSet {
		var addr [20]byte
		copy(addr[:], v.Address)
		f.ValidatorSet.Validators = append(f.ValidatorSet.Validators, Validator{
			Address:     addr,
			VotingPower: v.VotingPower,
		})
	}
	for _, m := range pf.TopDownMsgs {
		f.TopDownMsgs = append(f.TopDownMsgs, CrossMsg{Nonce: m.Nonce, Payload: m.Payload})
	}
	return f, nil
}

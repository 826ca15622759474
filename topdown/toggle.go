// Copyright 2022-2026 Consensus Shipyard
// SPDX-License-Identifier: Apache-2.0, MIT

package topdown

// Toggle lets callers treat "IPC not enabled in this deployment" as a
// first-class outcome without branching at every call site. It is a
// two-arm tagged value rather than an interface with two implementations;
// dynamic dispatch buys nothing while there is only one real provider.
type Toggle struct {
	inner *FinalityProvider
}

// DisabledToggle returns a Toggle whose every operation fails with
// ErrProviderNotEnabled.
func DisabledToggle() Toggle {
	return Toggle{}
}

// EnabledToggle wraps an active provider.
func EnabledToggle(p *FinalityProvider) Toggle {
	return Toggle{inner: p}
}

// Enabled reports whether the wrapped provider is active.
func (t Toggle) Enabled() bool {
	return t.inner != nil
}

func (t Toggle) LatestHeight() (BlockHeight, bool, error) {
	if t.inner == nil {
		return 0, false, ErrProviderNotEnabled
	}
	h, ok := t.inner.LatestHeight()
	return h, ok, nil
}

func (t Toggle) BlockHash(h BlockHeight) (BlockHash, bool, error) {
	if t.inner == nil {
		return nil, false, ErrProviderNotEnabled
	}
	hash, ok := t.inner.BlockHash(h)
	return hash, ok, nil
}

func (t Toggle) ValidatorSet(h BlockHeight) (ValidatorSet, bool, error) {
	if t.inner == nil {
		return ValidatorSet{}, false, ErrProviderNotEnabled
	}
	vs, ok := t.inner.ValidatorSet(h)
	return vs, ok, nil
}

func (t Toggle) TopDownMsgs(h BlockHeight) ([]CrossMsg, error) {
	if t.inner == nil {
		return nil, ErrProviderNotEnabled
	}
	return t.inner.TopDownMsgs(h), nil
}

func (t Toggle) NewParentView(height BlockHeight, hash BlockHash, vset ValidatorSet, msgs []CrossMsg) error {
	if t.inner == nil {
		return ErrProviderNotEnabled
	}
	return t.inner.NewParentView(height, hash, vset, msgs)
}

func (t Toggle) RemoveAbove(h BlockHeight) error {
	if t.inner == nil {
		return ErrProviderNotEnabled
	}
	t.inner.RemoveAbove(h)
	return nil
}

func (t Toggle) LastCommittedFinality() (IPCParentFinality, error) {
	if t.inner == nil {
		return IPCParentFinality{}, ErrProviderNotEnabled
	}
	return t.inner.LastCommittedFinality(), nil
}

func (t Toggle) NextProposal() (*IPCParentFinality, error) {
	if t.inner == nil {
		return nil, ErrProviderNotEnabled
	}
	return t.inner.NextProposal()
}

func (t Toggle) CheckProposal(proposal IPCParentFinality) error {
	if t.inner == nil {
		return ErrProviderNotEnabled
	}
	return t.inner.CheckProposal(proposal)
}

func (t Toggle) Commit(f IPCParentFinality) error {
	if t.inner == nil {
		return ErrProviderNotEnabled
	}
	return t.inner.Commit(f)
}

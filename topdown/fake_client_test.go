// Copyright 2022-2026 Consensus Shipyard
// SPDX-License-Identifier: Apache-2.0, MIT

package topdown

import (
	"context"
	"fmt"
	"sync"
)

// fakeParentClient is a hand-rolled in-memory ParentClient: a small struct
// holding canned per-height state that tests mutate directly to simulate
// chain progress and reorgs.
type fakeParentClient struct {
	mu sync.Mutex

	head   BlockHeight
	hashes map[BlockHeight]BlockHash
	vsets  map[BlockHeight]ValidatorSet
	msgs   map[BlockHeight][]CrossMsg
}

func newFakeParentClient() *fakeParentClient {
	return &fakeParentClient{
		hashes: make(map[BlockHeight]BlockHash),
		vsets:  make(map[BlockHeight]ValidatorSet),
		msgs:   make(map[BlockHeight][]CrossMsg),
	}
}

func (f *fakeParentClient) setHead(h BlockHeight) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.head = h
}

func (f *fakeParentClient) setBlock(h BlockHeight, hash BlockHash, vs ValidatorSet) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hashes[h] = hash
	f.vsets[h] = vs
}

func (f *fakeParentClient) setMsgs(h BlockHeight, msgs ...CrossMsg) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs[h] = msgs
}

func (f *fakeParentClient) ChainHeadHeight(_ context.Context) (BlockHeight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head, nil
}

func (f *fakeParentClient) BlockHash(_ context.Context, h BlockHeight) (BlockHash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hash, ok := f.hashes[h]
	if !ok {
		return nil, fmt.Errorf("fake: no block at height %d", h)
	}
	return hash, nil
}

func (f *fakeParentClient) ValidatorSet(_ context.Context, h BlockHeight) (ValidatorSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vsets[h], nil
}

func (f *fakeParentClient) TopDownMessages(_ context.Context, h BlockHeight, sinceNonce Nonce) ([]CrossMsg, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []CrossMsg
	for _, m := range f.msgs[h] {
		if m.Nonce >= sinceNonce {
			out = append(out, m)
		}
	}
	return out, nil
}

var _ ParentClient = (*fakeParentClient)(nil)

// Copyright 2022-2026 Consensus Shipyard
// SPDX-License-Identifier: Apache-2.0, MIT

package main

import (
	"context"
	"fmt"
	"math/big"

	"github.com/consensus-shipyard/fendermint-sub001/topdown"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/luxfi/ids"
)

// ethParentClient implements topdown.ParentClient against an EVM-compatible
// parent chain. Chain head and block hashes use the standard
// eth_blockNumber/eth_getBlockByNumber calls via ethclient; validator sets
// and top-down messages are read off the subnet gateway contract through a
// pair of custom RPC methods the parent's IPC gateway node exposes, rather
// than decoded from raw eth_call output here.
type ethParentClient struct {
	eth *ethclient.Client
	rpc *gethrpc.Client
}

func dialParent(ctx context.Context, url string) (topdown.ParentClient, error) {
	rpcClient, err := gethrpc.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return &ethParentClient{
		eth: ethclient.NewClient(rpcClient),
		rpc: rpcClient,
	}, nil
}

func (c *ethParentClient) ChainHeadHeight(ctx context.Context) (topdown.BlockHeight, error) {
	n, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("eth_blockNumber: %w", err)
	}
	return n, nil
}

func (c *ethParentClient) BlockHash(ctx context.Context, height topdown.BlockHeight) (topdown.BlockHash, error) {
	header, err := c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(height))
	if err != nil {
		return nil, fmt.Errorf("eth_getBlockByNumber(%d): %w", height, err)
	}
	hash := header.Hash()
	return hash.Bytes(), nil
}

// ipcValidator and ipcCrossMsg mirror the wire shapes the gateway's
// ipc_getValidatorSet and ipc_getTopDownMsgs RPC methods return: validators
// carry hex-encoded 20-byte addresses and decimal voting power, decoded here
// into topdown's domain types.
type ipcValidator struct {
	Address     string `json:"address"`
	VotingPower uint64 `json:"votingPower"`
}

type ipcCrossMsg struct {
	Nonce   uint64 `json:"nonce"`
	Payload string `json:"payload"`
}

func (c *ethParentClient) ValidatorSet(ctx context.Context, height topdown.BlockHeight) (topdown.ValidatorSet, error) {
	var raw []ipcValidator
	if err := c.rpc.CallContext(ctx, &raw, "ipc_getValidatorSet", height); err != nil {
		return topdown.ValidatorSet{}, fmt.Errorf("ipc_getValidatorSet(%d): %w", height, err)
	}

	vs := topdown.ValidatorSet{Validators: make([]topdown.Validator, 0, len(raw))}
	for _, v := range raw {
		addr, err := decodeNodeID(v.Address)
		if err != nil {
			return topdown.ValidatorSet{}, fmt.Errorf("decode validator address %q: %w", v.Address, err)
		}
		vs.Validators = append(vs.Validators, topdown.Validator{Address: addr, VotingPower: v.VotingPower})
	}
	return vs, nil
}

func (c *ethParentClient) TopDownMessages(ctx context.Context, height topdown.BlockHeight, sinceNonce topdown.Nonce) ([]topdown.CrossMsg, error) {
	var raw []ipcCrossMsg
	if err := c.rpc.CallContext(ctx, &raw, "ipc_getTopDownMsgs", height, sinceNonce); err != nil {
		return nil, fmt.Errorf("ipc_getTopDownMsgs(%d, %d): %w", height, sinceNonce, err)
	}

	msgs := make([]topdown.CrossMsg, 0, len(raw))
	for _, m := range raw {
		msgs = append(msgs, topdown.CrossMsg{Nonce: m.Nonce, Payload: []byte(m.Payload)})
	}
	return msgs, nil
}

// decodeNodeID parses the gateway's validator address string into an
// ids.NodeID.
func decodeNodeID(s string) (ids.NodeID, error) {
	id, err := ids.NodeIDFromString(s)
	if err != nil {
		return ids.NodeID{}, err
	}
	return id, nil
}

var _ topdown.ParentClient = (*ethParentClient)(nil)

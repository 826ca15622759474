// Copyright 2022-2026 Consensus Shipyard
// SPDX-License-Identifier: Apache-2.0, MIT

package topdown

import "context"

// ParentClient is the capability set the polling syncer needs from the
// parent chain. The core only consumes it; a JSON-RPC binding to a
// side-car agent process is typical, but any transport works as long as it
// satisfies this interface.
//
// Every method may fail with a transient network error; the syncer retries
// on the next tick rather than surfacing the error synchronously.
type ParentClient interface {
	// ChainHeadHeight returns the latest finalized parent height as the
	// proxy currently sees it. Not required to be monotonic across calls:
	// a reorg can make it regress or jump.
	ChainHeadHeight(ctx context.Context) (BlockHeight, error)

	// BlockHash returns the canonical parent block hash at h. If h lies
	// past a reorg fork, the new fork's hash is returned.
	BlockHash(ctx context.Context, h BlockHeight) (BlockHash, error)

	// ValidatorSet returns the validator set effective at h.
	ValidatorSet(ctx context.Context, h BlockHeight) (ValidatorSet, error)

	// TopDownMessages returns the messages at parent height h with nonce
	// >= sinceNonce, in nonce order.
	TopDownMessages(ctx context.Context, h BlockHeight, sinceNonce Nonce) ([]CrossMsg, error)
}

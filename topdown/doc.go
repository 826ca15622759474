// Copyright 2022-2026 Consensus Shipyard
// SPDX-License-Identifier: Apache-2.0, MIT

// Package topdown implements the parent-finality subsystem of a
// hierarchical-blockchain child subnet: a sequential-key cache of parent
// chain observations, a transactional provider wrapping that cache and the
// last committed finality, a polling syncer that keeps the cache filled from
// the parent chain, and the propose/check/commit protocol the child's block
// pipeline drives each block.
//
// Everything outside this package (the ABCI-style application, the VM, the
// key-value and block stores, the Ethereum JSON-RPC facade, the gateway
// contract bindings) is a collaborator reached only through the interfaces
// declared here: ParentClient, and the accessor methods callers use to read
// finalized parent state.
package topdown

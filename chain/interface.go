// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chain defines the wallet's view of a chain node.  The node may be
// in-process or reached over RPC, as long as a driver implements the Node
// interface; the wallet never holds its state lock across these calls.
package chain

import (
	"context"

	"github.com/cnsuite/cnwallet/cncrypto"
)

// OutEntry is one decoy candidate: the global index of an existing output
// of the requested denomination and its one-time key.
type OutEntry struct {
	GlobalIndex uint32
	Key         cncrypto.PublicKey
}

// RandomOuts carries the decoy candidates returned for one denomination.
type RandomOuts struct {
	Amount uint64
	Outs   []OutEntry
}

// Node is the asynchronous node interface the wallet consumes.  The two
// request methods block until the node answers and honor context
// cancellation; height accessors answer from the node's local state and
// never block.
type Node interface {
	// LastLocalBlockHeight returns the height of the node's local chain.
	LastLocalBlockHeight() uint32

	// KnownBlockCount returns the network block count the node has
	// observed, which may run ahead of the local chain while syncing.
	KnownBlockCount() uint32

	// RelayTransaction submits a raw transaction for relay.  A nil error
	// means the node accepted the transaction into its pool; acceptance
	// is irrevocable from the wallet's point of view.
	RelayTransaction(ctx context.Context, rawTx []byte) error

	// RandomOutputsForAmounts returns up to count decoy outputs for every
	// requested denomination.  A denomination with fewer usable outputs
	// than requested returns a short list rather than an error.
	RandomOutputsForAmounts(ctx context.Context, amounts []uint64,
		count uint64) ([]RandomOuts, error)
}

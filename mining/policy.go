// Copyright (c) 2014-2015 The btcsuite developers
// Copyright (c) 2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

const (
	// DefaultBlockMaxSize is the default maximum size in bytes of a
	// generated block.
	DefaultBlockMaxSize = 750000

	// blockHeaderOverhead is the max number of bytes it takes to serialize
	// a block header and max possible transaction count.
	blockHeaderOverhead = wire.MaxBlockHeaderPayload + wire.MaxVarIntPayload

	// coinStakeOverhead is the room reserved for the coinstake outputs,
	// quarter payouts included.
	coinStakeOverhead = 4000

	// coinStakeInputSize is the size of a signed pay-to-pubkey-hash input.
	coinStakeInputSize = 148
)

// Policy houses the policy (configuration parameters) which is used to control
// the generation of block templates.  See the documentation for
// NewStakeTemplate for more details on each of these parameters are used.
type Policy struct {
	// BlockMaxSize is the maximum block size in bytes to be used when
	// generating a block template.
	BlockMaxSize uint32

	// TxMinFreeFee is the minimum fee in base units/1000 bytes that is
	// required for a transaction to be included in a block template.
	TxMinFreeFee btcutil.Amount
}

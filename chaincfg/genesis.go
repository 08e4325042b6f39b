// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// genesisPkScript is the pay-to-pubkey-hash script receiving the genesis
// allocation on the main and test networks.
var genesisPkScript = []byte{
	0x76, 0xa9, 0x14, 0x8b, 0x2e, 0x61, 0x04, 0x3f,
	0x5a, 0x91, 0xc7, 0x2d, 0x40, 0x6e, 0x19, 0xa7,
	0x3c, 0x55, 0xd0, 0x92, 0xee, 0x17, 0x4b, 0x88,
	0xac,
}

// regTestPkScript is an OP_TRUE script so the regression and simulation
// network allocations can be spent without keys.
var regTestPkScript = []byte{0x51}

// newGenesisCoinbase returns the coinbase transaction paying the genesis
// allocation to the provided script.
func newGenesisCoinbase(allocation int64, pkScript []byte) *wire.MsgTx {
	return &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{
			{
				PreviousOutPoint: wire.OutPoint{
					Hash:  chainhash.Hash{},
					Index: wire.MaxPrevOutIndex,
				},
				SignatureScript: []byte{
					0x04, 0xff, 0xff, 0x00, 0x1d, 0x01, 0x04, 0x1a,
					0x62, 0x69, 0x74, 0x67, 0x6f, 0x6c, 0x64, 0x20,
					0x68, 0x79, 0x62, 0x72, 0x69, 0x64, 0x20, 0x73,
					0x74, 0x61, 0x6b, 0x65, 0x20, 0x67, 0x65, 0x6e,
				},
				Sequence: wire.MaxTxInSequenceNum,
			},
		},
		TxOut: []*wire.TxOut{
			{
				Value:    allocation,
				PkScript: pkScript,
			},
		},
		LockTime: 0,
	}
}

// newGenesisBlock assembles a genesis block around the given coinbase.
func newGenesisBlock(coinbase *wire.MsgTx, timestamp int64, bits, nonce uint32) wire.MsgBlock {
	return wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    1,
			PrevBlock:  chainhash.Hash{},
			MerkleRoot: coinbase.TxHash(),
			Timestamp:  time.Unix(timestamp, 0),
			Bits:       bits,
			Nonce:      nonce,
		},
		Transactions: []*wire.MsgTx{coinbase},
	}
}

// genesisBlock defines the genesis block of the block chain which serves as the
// public transaction ledger for the main network.
var genesisBlock = newGenesisBlock(
	newGenesisCoinbase(3000000*Coin, genesisPkScript), 1704067200,
	0x1d00ffff, 0x7c2bac1d)

// genesisHash is the hash of the first block in the block chain for the main
// network (genesis block).
var genesisHash = genesisBlock.BlockHash()

// testNetGenesisBlock defines the genesis block of the block chain which serves
// as the public transaction ledger for the test network.
var testNetGenesisBlock = newGenesisBlock(
	newGenesisCoinbase(3000000*Coin, genesisPkScript), 1704067201,
	0x1d00ffff, 0x18aea41a)

// testNetGenesisHash is the hash of the first block in the block chain for the
// test network.
var testNetGenesisHash = testNetGenesisBlock.BlockHash()

// regTestGenesisBlock defines the genesis block of the block chain which serves
// as the public transaction ledger for the regression test network.
var regTestGenesisBlock = newGenesisBlock(
	newGenesisCoinbase(3000000*Coin, regTestPkScript), 1704067200,
	0x207fffff, 2)

// regTestGenesisHash is the hash of the first block in the block chain for the
// regression test network.
var regTestGenesisHash = regTestGenesisBlock.BlockHash()

// simNetGenesisBlock defines the genesis block of the block chain which serves
// as the public transaction ledger for the simulation test network.
var simNetGenesisBlock = newGenesisBlock(
	newGenesisCoinbase(3000000*Coin, regTestPkScript), 1704067200,
	0x207fffff, 2)

// simNetGenesisHash is the hash of the first block in the block chain for the
// simulation test network.
var simNetGenesisHash = simNetGenesisBlock.BlockHash()

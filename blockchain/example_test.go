// Copyright (c) 2014 The btcsuite developers
// Copyright (c) 2015 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain_test

import (
	"fmt"
	"math/big"

	"github.com/bitgoldsuite/bgd/bgutil"
	"github.com/bitgoldsuite/bgd/blockchain"
	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/bitgoldsuite/bgd/database/engine/leveldb"
)

// This example demonstrates how to create a new chain instance and use
// ProcessBlock to attempt to add a block to the chain.  As the package
// overview documentation describes, this includes all of the consensus
// rules.  This example intentionally attempts to insert a duplicate genesis
// block to illustrate how an invalid block is handled.
func ExampleBlockChain_ProcessBlock() {
	// Create a new database to store the accepted blocks into.  Typically
	// this would be opening an existing database and would not use a
	// memory-only database, but we create one here so this is a complete
	// working example.
	db, err := leveldb.NewMemDB()
	if err != nil {
		fmt.Printf("Failed to create database: %v\n", err)
		return
	}
	defer db.Close()

	// Create a new BlockChain instance using the underlying database for
	// the regression test network.  The genesis block is inserted when
	// the database is empty.
	chain, err := blockchain.New(&blockchain.Config{
		DB:          db,
		ChainParams: &chaincfg.RegressionNetParams,
		TimeSource:  blockchain.NewMedianTime(),
	})
	if err != nil {
		fmt.Printf("Failed to create chain instance: %v\n", err)
		return
	}

	// Process a block.  For this example, we are going to intentionally
	// cause an error by trying to process the genesis block which already
	// exists.
	genesisBlock := bgutil.NewBlock(chaincfg.RegressionNetParams.GenesisBlock)
	isMainChain, err := chain.ProcessBlock(genesisBlock)
	if err != nil {
		fmt.Printf("Failed to process block: %v\n",
			blockchain.RejectReason(err))
		return
	}
	fmt.Printf("Block accepted. Is it on the main chain?: %v", isMainChain)

	// Output:
	// Failed to process block: duplicate
}

// This example demonstrates how to convert the compact "bits" in a block header
// which represent the target difficulty to a big integer and display it using
// the typical hex notation.
func ExampleCompactToBig() {
	// Convert the bits of the regression test network proof of work limit.
	bits := uint32(0x207fffff)
	targetDifficulty := blockchain.CompactToBig(bits)

	// Display it in hex.
	fmt.Printf("%064x\n", targetDifficulty.Bytes())

	// Output:
	// 7fffff0000000000000000000000000000000000000000000000000000000000
}

// This example demonstrates how to convert a target difficulty into the compact
// "bits" in a block header which represent that target difficulty .
func ExampleBigToCompact() {
	// Convert a target difficulty of 2^224 - 2^200 to compact form.
	t := "00000000ffff0000000000000000000000000000000000000000000000000000"
	targetDifficulty, success := new(big.Int).SetString(t, 16)
	if !success {
		fmt.Println("invalid target difficulty")
		return
	}
	bits := blockchain.BigToCompact(targetDifficulty)

	fmt.Printf("%#x\n", bits)

	// Output:
	// 0x1d00ffff
}

// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bgutil

import (
	"bytes"
	"fmt"
	"io"

	"github.com/bitgoldsuite/bgd/blockchain/stake"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// MaxBlockSignatureLen is the largest block signature accepted when decoding a
// serialized block.  Compact recoverable signatures are 65 bytes.
const MaxBlockSignatureLen = 80

// BlockHeightUnknown is the value returned for a block height that is unknown.
// This is typically because the block has not been inserted into the main chain
// yet.
const BlockHeightUnknown = int32(-1)

// OutOfRangeError describes an error due to accessing an element that is out
// of range.
type OutOfRangeError string

// Error satisfies the error interface and prints human-readable errors.
func (e OutOfRangeError) Error() string {
	return string(e)
}

// Block defines a block that provides easier and more efficient manipulation
// of raw wire protocol blocks along with the proof of stake block signature,
// which is not part of the hashed header.  It also memoizes hashes for the
// block and its transactions on their first access so subsequent accesses
// don't have to repeat the relatively expensive hashing operations.
type Block struct {
	msgBlock      *wire.MsgBlock  // Underlying MsgBlock
	signature     []byte          // Staker signature over the block hash
	serialized    []byte          // Serialized bytes for the block
	blockHash     *chainhash.Hash // Cached block hash
	blockHeight   int32           // Height in the main block chain
	transactions  []*btcutil.Tx   // Transactions
	txnsGenerated bool            // ALL wrapped transactions generated
}

// MsgBlock returns the underlying wire.MsgBlock for the Block.
func (b *Block) MsgBlock() *wire.MsgBlock {
	return b.msgBlock
}

// Signature returns the block signature.  It is empty for proof of work
// blocks.
func (b *Block) Signature() []byte {
	return b.signature
}

// SetSignature replaces the block signature and drops any cached
// serialization.
func (b *Block) SetSignature(sig []byte) {
	b.signature = sig
	b.serialized = nil
}

// Bytes returns the serialized bytes for the Block: the wire encoded block
// followed by the variable length signature.
func (b *Block) Bytes() ([]byte, error) {
	if len(b.serialized) != 0 {
		return b.serialized, nil
	}

	w := bytes.NewBuffer(make([]byte, 0, b.msgBlock.SerializeSize()+
		len(b.signature)+1))
	if err := b.Serialize(w); err != nil {
		return nil, err
	}
	b.serialized = w.Bytes()
	return b.serialized, nil
}

// Serialize writes the block and its signature to w.
func (b *Block) Serialize(w io.Writer) error {
	if err := b.msgBlock.Serialize(w); err != nil {
		return err
	}
	return wire.WriteVarBytes(w, 0, b.signature)
}

// Hash returns the block identifier hash for the Block.  This is equivalent to
// calling BlockHash on the underlying wire.MsgBlock, however it caches the
// result so subsequent calls are more efficient.
func (b *Block) Hash() *chainhash.Hash {
	if b.blockHash != nil {
		return b.blockHash
	}

	hash := b.msgBlock.BlockHash()
	b.blockHash = &hash
	return &hash
}

// Tx returns a wrapped transaction (btcutil.Tx) for the transaction at the
// specified index in the Block.  The supplied index is 0 based.
func (b *Block) Tx(txNum int) (*btcutil.Tx, error) {
	numTx := uint64(len(b.msgBlock.Transactions))
	if txNum < 0 || uint64(txNum) >= numTx {
		str := fmt.Sprintf("transaction index %d is out of range - max %d",
			txNum, numTx-1)
		return nil, OutOfRangeError(str)
	}

	if len(b.transactions) == 0 {
		b.transactions = make([]*btcutil.Tx, numTx)
	}
	if b.transactions[txNum] != nil {
		return b.transactions[txNum], nil
	}

	newTx := btcutil.NewTx(b.msgBlock.Transactions[txNum])
	newTx.SetIndex(txNum)
	b.transactions[txNum] = newTx
	return newTx, nil
}

// Transactions returns a slice of wrapped transactions (btcutil.Tx) for all
// transactions in the Block.
func (b *Block) Transactions() []*btcutil.Tx {
	if b.txnsGenerated {
		return b.transactions
	}

	if len(b.transactions) == 0 {
		b.transactions = make([]*btcutil.Tx, len(b.msgBlock.Transactions))
	}
	for i, tx := range b.transactions {
		if tx == nil {
			newTx := btcutil.NewTx(b.msgBlock.Transactions[i])
			newTx.SetIndex(i)
			b.transactions[i] = newTx
		}
	}

	b.txnsGenerated = true
	return b.transactions
}

// IsProofOfStake returns whether the block's second transaction is a
// coinstake.
func (b *Block) IsProofOfStake() bool {
	txns := b.msgBlock.Transactions
	return len(txns) > 1 && stake.IsCoinStakeTx(txns[1])
}

// Height returns the saved height of the block in the block chain.  This value
// will be BlockHeightUnknown if it hasn't already explicitly been set.
func (b *Block) Height() int32 {
	return b.blockHeight
}

// SetHeight sets the height of the block in the block chain.
func (b *Block) SetHeight(height int32) {
	b.blockHeight = height
}

// NewBlock returns a new instance of a block given an underlying
// wire.MsgBlock.  See Block.
func NewBlock(msgBlock *wire.MsgBlock) *Block {
	return &Block{
		msgBlock:    msgBlock,
		blockHeight: BlockHeightUnknown,
	}
}

// NewSignedBlock returns a new instance of a block carrying the provided
// signature.
func NewSignedBlock(msgBlock *wire.MsgBlock, sig []byte) *Block {
	return &Block{
		msgBlock:    msgBlock,
		signature:   sig,
		blockHeight: BlockHeightUnknown,
	}
}

// NewBlockFromBytes returns a new instance of a block given the serialized
// bytes.  See Block.
func NewBlockFromBytes(serialized []byte) (*Block, error) {
	br := bytes.NewReader(serialized)
	b, err := NewBlockFromReader(br)
	if err != nil {
		return nil, err
	}
	b.serialized = serialized
	return b, nil
}

// NewBlockFromReader returns a new instance of a block given a Reader to
// deserialize the block.  See Block.
func NewBlockFromReader(r io.Reader) (*Block, error) {
	var msgBlock wire.MsgBlock
	if err := msgBlock.Deserialize(r); err != nil {
		return nil, err
	}

	sig, err := wire.ReadVarBytes(r, 0, MaxBlockSignatureLen, "blocksig")
	if err != nil {
		return nil, err
	}
	if len(sig) == 0 {
		sig = nil
	}

	return &Block{
		msgBlock:    &msgBlock,
		signature:   sig,
		blockHeight: BlockHeightUnknown,
	}, nil
}

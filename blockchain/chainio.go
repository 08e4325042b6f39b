// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2016-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"encoding/binary"
	"fmt"

	"github.com/bitgoldsuite/bgd/bgutil"
	"github.com/bitgoldsuite/bgd/blockchain/dividend"
	"github.com/bitgoldsuite/bgd/blockchain/internal/progresslog"
	"github.com/bitgoldsuite/bgd/database/engine"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
)

const (
	// currentDatabaseVersion indicates what the current database
	// version is.
	currentDatabaseVersion = 1
)

var (
	// byteOrder is the preferred byte order used for serializing numeric
	// fields for storage in the database.  Heights in keys are big endian
	// so iteration visits them in order.
	byteOrder = binary.LittleEndian

	// The following prefixes and keys lay out the chain state in the flat
	// key space of the storage engine.
	blockKeyPrefix    = []byte("b|")
	heightKeyPrefix   = []byte("h|")
	snapshotKeyPrefix = []byte("s|")
	claimKeyPrefix    = []byte("c|")
	tipKeyName        = []byte("t")
	versionKeyName    = []byte("v")
)

// errDeserialize signifies that a problem was encountered when deserializing
// data.
type errDeserialize string

// Error implements the error interface.
func (e errDeserialize) Error() string {
	return string(e)
}

func prefixedKey(prefix, suffix []byte) []byte {
	key := make([]byte, len(prefix)+len(suffix))
	copy(key, prefix)
	copy(key[len(prefix):], suffix)
	return key
}

func heightSuffix(height int32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(height))
	return buf[:]
}

// blockKey returns the key a block is stored under.
func blockKey(hash *chainhash.Hash) []byte {
	return prefixedKey(blockKeyPrefix, hash[:])
}

// heightKey returns the key holding the main chain hash at height.
func heightKey(height int32) []byte {
	return prefixedKey(heightKeyPrefix, heightSuffix(height))
}

// snapshotKey returns the key holding the dividend snapshot at height.
func snapshotKey(height int32) []byte {
	return prefixedKey(snapshotKeyPrefix, heightSuffix(height))
}

// claimKey returns the key holding the claimed total of a staker.
func claimKey(key dividend.Key) []byte {
	return prefixedKey(claimKeyPrefix, key[:])
}

// -----------------------------------------------------------------------------
// The best chain state consists of the best block hash and height.
//
// The serialized format is:
//
//   <block hash><block height>
//
//   Field             Type             Size
//   block hash        chainhash.Hash   chainhash.HashSize
//   block height      uint32           4 bytes
// -----------------------------------------------------------------------------

// bestChainState represents the data to be stored the database for the current
// best chain state.
type bestChainState struct {
	hash   chainhash.Hash
	height uint32
}

// serializeBestChainState returns the serialization of the passed block best
// chain state.
func serializeBestChainState(state bestChainState) []byte {
	serializedData := make([]byte, chainhash.HashSize+4)
	copy(serializedData[0:chainhash.HashSize], state.hash[:])
	byteOrder.PutUint32(serializedData[chainhash.HashSize:], state.height)
	return serializedData
}

// deserializeBestChainState deserializes the passed serialized best chain
// state.
func deserializeBestChainState(serializedData []byte) (bestChainState, error) {
	if len(serializedData) != chainhash.HashSize+4 {
		return bestChainState{}, errDeserialize(fmt.Sprintf("corrupt "+
			"best chain state size; want %v got %v",
			chainhash.HashSize+4, len(serializedData)))
	}

	var state bestChainState
	copy(state.hash[:], serializedData[0:chainhash.HashSize])
	state.height = byteOrder.Uint32(serializedData[chainhash.HashSize:])
	return state, nil
}

// dbUpdate runs fn in a storage transaction and commits it when fn succeeds.
func (b *BlockChain) dbUpdate(fn func(tx engine.Transaction) error) error {
	tx, err := b.db.Transaction()
	if err != nil {
		return errors.Wrap(err, "failed to open transaction")
	}
	defer tx.Discard()

	if err := fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

// dbView runs fn against a consistent snapshot of the storage engine.
func (b *BlockChain) dbView(fn func(snap engine.Snapshot) error) error {
	snap, err := b.db.Snapshot()
	if err != nil {
		return errors.Wrap(err, "failed to open snapshot")
	}
	defer snap.Release()
	return fn(snap)
}

// dbStoreBlock stores the passed block unless it is already present.
func (b *BlockChain) dbStoreBlock(block *bgutil.Block) error {
	serialized, err := block.Bytes()
	if err != nil {
		return errors.Wrapf(err, "failed to serialize block %v",
			block.Hash())
	}
	return b.dbUpdate(func(tx engine.Transaction) error {
		return errors.Wrapf(tx.Put(blockKey(block.Hash()), serialized),
			"failed to store block %v", block.Hash())
	})
}

// dbFetchBlock loads the block with the given hash from snap.
func dbFetchBlock(snap engine.Snapshot, hash *chainhash.Hash) (*bgutil.Block, error) {
	serialized, err := snap.Get(blockKey(hash))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch block %v", hash)
	}
	block, err := bgutil.NewBlockFromBytes(serialized)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode block %v", hash)
	}
	return block, nil
}

// dbFetchHashByHeight returns the main chain hash stored at height.
func dbFetchHashByHeight(snap engine.Snapshot, height int32) (*chainhash.Hash, error) {
	serialized, err := snap.Get(heightKey(height))
	if err != nil {
		return nil, err
	}
	return chainhash.NewHash(serialized)
}

// fetchBlockByHash loads the block with the given hash from the database.
func (b *BlockChain) fetchBlockByHash(hash *chainhash.Hash) (*bgutil.Block, error) {
	var block *bgutil.Block
	err := b.dbView(func(snap engine.Snapshot) error {
		var err error
		block, err = dbFetchBlock(snap, hash)
		return err
	})
	return block, err
}

// dbConnectBlock records node as the new main chain tip along with the
// dividend snapshot it recorded, if any.
func (b *BlockChain) dbConnectBlock(node *blockNode, snap *dividend.Snapshot) error {
	return b.dbUpdate(func(tx engine.Transaction) error {
		err := tx.Put(heightKey(node.height), node.hash[:])
		if err != nil {
			return errors.Wrapf(err, "failed to index block %v", node.hash)
		}
		if snap != nil {
			serialized, err := snap.Bytes()
			if err != nil {
				return errors.Wrapf(err, "failed to serialize "+
					"snapshot at height %d", snap.Height)
			}
			if err := tx.Put(snapshotKey(node.height), serialized); err != nil {
				return errors.Wrapf(err, "failed to store snapshot "+
					"at height %d", node.height)
			}
		}
		state := serializeBestChainState(bestChainState{
			hash:   node.hash,
			height: uint32(node.height),
		})
		return errors.Wrap(tx.Put(tipKeyName, state), "failed to store tip")
	})
}

// dbDisconnectBlock removes node from the main chain index and makes its
// parent the tip.
func (b *BlockChain) dbDisconnectBlock(node *blockNode) error {
	return b.dbUpdate(func(tx engine.Transaction) error {
		if err := tx.Delete(heightKey(node.height)); err != nil {
			return errors.Wrapf(err, "failed to unindex block %v",
				node.hash)
		}
		if err := tx.Delete(snapshotKey(node.height)); err != nil {
			return errors.Wrapf(err, "failed to remove snapshot at "+
				"height %d", node.height)
		}
		state := serializeBestChainState(bestChainState{
			hash:   node.parent.hash,
			height: uint32(node.parent.height),
		})
		return errors.Wrap(tx.Put(tipKeyName, state), "failed to store tip")
	})
}

// PutClaimed persists the claimed total of a staker.  It implements the
// dividend.ClaimStore interface.
func (b *BlockChain) PutClaimed(key dividend.Key, claimed int64) error {
	var buf [8]byte
	byteOrder.PutUint64(buf[:], uint64(claimed))
	return b.dbUpdate(func(tx engine.Transaction) error {
		return errors.Wrapf(tx.Put(claimKey(key), buf[:]),
			"failed to store claim of %v", key)
	})
}

// dbLoadClaims returns every persisted claimed total.
func dbLoadClaims(snap engine.Snapshot) (map[dividend.Key]int64, error) {
	claimed := make(map[dividend.Key]int64)
	iter := snap.NewIterator(engine.BytesPrefix(claimKeyPrefix))
	defer iter.Release()
	for iter.Next() {
		k, v := iter.Key(), iter.Value()
		if len(k) != len(claimKeyPrefix)+dividend.KeySize || len(v) != 8 {
			return nil, errDeserialize(fmt.Sprintf("corrupt claim "+
				"entry %x", k))
		}
		var key dividend.Key
		copy(key[:], k[len(claimKeyPrefix):])
		claimed[key] = int64(byteOrder.Uint64(v))
	}
	return claimed, errors.Wrap(iter.Error(), "failed to iterate claims")
}

// dbStaleSnapshots returns the keys of stored snapshots the replayed state
// did not record.  They are left behind by a shutdown between a disconnect
// and its tip update.
func dbStaleSnapshots(snap engine.Snapshot, state *dividend.State) ([][]byte, error) {
	var stale [][]byte
	iter := snap.NewIterator(engine.BytesPrefix(snapshotKeyPrefix))
	defer iter.Release()
	for iter.Next() {
		k := iter.Key()
		if len(k) != len(snapshotKeyPrefix)+4 {
			return nil, errDeserialize(fmt.Sprintf("corrupt snapshot "+
				"key %x", k))
		}
		height := int32(binary.BigEndian.Uint32(k[len(snapshotKeyPrefix):]))
		if _, ok := state.Snapshot(height); !ok {
			stale = append(stale, append([]byte(nil), k...))
		}
	}
	return stale, errors.Wrap(iter.Error(), "failed to iterate snapshots")
}

// createChainState initializes both the database and the chain state to the
// genesis block.  It must only be called on an uninitialized database.
func (b *BlockChain) createChainState() error {
	genesisBlock := bgutil.NewBlock(b.chainParams.GenesisBlock)
	serialized, err := genesisBlock.Bytes()
	if err != nil {
		return errors.Wrap(err, "failed to serialize genesis block")
	}

	hash := genesisBlock.Hash()
	return b.dbUpdate(func(tx engine.Transaction) error {
		var version [4]byte
		byteOrder.PutUint32(version[:], currentDatabaseVersion)
		if err := tx.Put(versionKeyName, version[:]); err != nil {
			return errors.Wrap(err, "failed to store database version")
		}
		if err := tx.Put(blockKey(hash), serialized); err != nil {
			return errors.Wrap(err, "failed to store genesis block")
		}
		if err := tx.Put(heightKey(0), hash[:]); err != nil {
			return errors.Wrap(err, "failed to index genesis block")
		}
		state := serializeBestChainState(bestChainState{hash: *hash})
		return errors.Wrap(tx.Put(tipKeyName, state), "failed to store tip")
	})
}

// connectGenesis adds the genesis block to the index and its outputs to the
// utxo set.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) connectGenesis() error {
	genesisBlock := bgutil.NewBlock(b.chainParams.GenesisBlock)
	header := &genesisBlock.MsgBlock().Header
	node := newBlockNode(header, nil, b.chainParams)
	node.status = statusDataStored | statusValid
	b.index.AddNode(node)
	b.bestChain.SetTip(node)

	view := newUtxoViewpoint(b.utxos)
	err := view.connectTransactions(genesisBlock, node,
		b.chainParams.DividendPayouts, nil)
	if err != nil {
		return err
	}
	view.commit()
	return nil
}

// replayBlock runs a stored main chain block through full validation and
// connects it to the tip.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) replayBlock(block *bgutil.Block) error {
	if err := checkBlockSanity(block, b.chainParams, b.timeSource); err != nil {
		return err
	}

	header := &block.MsgBlock().Header
	tip := b.bestChain.Tip()
	if !header.PrevBlock.IsEqual(&tip.hash) {
		return AssertError(fmt.Sprintf("stored block %v does not extend "+
			"the replayed tip %v", block.Hash(), tip.hash))
	}
	proofOfStake := block.IsProofOfStake()
	err := checkBlockHeaderContext(b.chainParams, header, tip, proofOfStake)
	if err != nil {
		return err
	}

	node := newBlockNode(header, tip, b.chainParams)
	node.proofOfStake = proofOfStake
	node.status = statusDataStored
	b.index.AddNode(node)

	view := b.tipView()
	var stxos []SpentTxOut
	contribution, err := b.checkConnectBlock(node, block, view, b.dividends,
		&stxos)
	if err != nil {
		return err
	}
	if err := b.connectBlock(node, block, view, stxos, contribution); err != nil {
		return err
	}
	b.trackStake(block)

	// Nothing can be subscribed while the chain is loading.
	b.takeNotifications()
	return nil
}

// initChainState attempts to load and initialize the chain state from the
// database.  When the db does not yet contain any chain state, both it and the
// chain state are initialized to the genesis block.  Otherwise every stored
// main chain block is replayed to rebuild the utxo set and dividend state.
func (b *BlockChain) initChainState() error {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	// Determine the state of the database.
	var tipState *bestChainState
	err := b.dbView(func(snap engine.Snapshot) error {
		serialized, err := snap.Get(tipKeyName)
		if errors.Is(err, engine.ErrNotFound) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "failed to load tip")
		}
		state, err := deserializeBestChainState(serialized)
		if err != nil {
			return err
		}
		tipState = &state
		return nil
	})
	if err != nil {
		return err
	}

	if tipState == nil {
		log.Infof("Initializing chain state with the %s genesis block",
			b.chainParams.Name)
		if err := b.createChainState(); err != nil {
			return err
		}
		tipState = &bestChainState{hash: *b.chainParams.GenesisHash}
	}

	if err := b.connectGenesis(); err != nil {
		return err
	}

	// Replay the main chain.
	snap, err := b.db.Snapshot()
	if err != nil {
		return errors.Wrap(err, "failed to open snapshot")
	}
	defer snap.Release()

	if tipState.height > 0 {
		log.Infof("Replaying %d blocks", tipState.height)
	}
	progress := progresslog.NewBlockProgressLogger("Replayed", log)
	for height := int32(1); height <= int32(tipState.height); height++ {
		hash, err := dbFetchHashByHeight(snap, height)
		if err != nil {
			return errors.Wrapf(err, "failed to load main chain hash "+
				"at height %d", height)
		}
		block, err := dbFetchBlock(snap, hash)
		if err != nil {
			return err
		}
		if err := b.replayBlock(block); err != nil {
			return errors.Wrapf(err, "failed to replay block %v "+
				"(height %d)", hash, height)
		}
		progress.LogBlockHeight(block)
	}
	if tip := b.bestChain.Tip(); tip.hash != tipState.hash {
		return AssertError(fmt.Sprintf("replayed tip %v does not match "+
			"stored tip %v", tip.hash, tipState.hash))
	}

	// Drop snapshots the replay did not produce and load the claims.
	stale, err := dbStaleSnapshots(snap, b.dividends)
	if err != nil {
		return err
	}
	if len(stale) > 0 {
		log.Warnf("Removing %d stale dividend snapshots", len(stale))
		err := b.dbUpdate(func(tx engine.Transaction) error {
			for _, k := range stale {
				if err := tx.Delete(k); err != nil {
					return errors.Wrap(err, "failed to remove snapshot")
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	claimed, err := dbLoadClaims(snap)
	if err != nil {
		return err
	}
	b.claims.Load(claimed)

	if tipState.height == 0 {
		b.updateStateSnapshot(uint64(len(b.chainParams.GenesisBlock.Transactions)))
	}
	return nil
}

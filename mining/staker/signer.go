// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package staker

import (
	"fmt"
	"sync"

	"github.com/bitgoldsuite/bgd/blockchain/stake"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// Signer produces the signatures a proof of stake block needs.  The staker
// never holds keys itself.
type Signer interface {
	// SignCoinStake fills in the signature script of every coinstake
	// input.  prevScripts holds the script of the output each input
	// spends.
	SignCoinStake(tx *wire.MsgTx, prevScripts [][]byte) error

	// SignBlock returns a compact signature of the block hash made with
	// the key whose public key hashes to pubKeyHash.
	SignBlock(hash *chainhash.Hash, pubKeyHash []byte) ([]byte, error)
}

// KeySigner is a Signer backed by private keys held in memory.  It suits
// test networks and tests.
type KeySigner struct {
	mtx  sync.RWMutex
	keys map[string]*btcec.PrivateKey
}

// Ensure KeySigner implements the Signer interface.
var _ Signer = (*KeySigner)(nil)

// NewKeySigner returns a signer for the given keys.  Compressed public keys
// are assumed.
func NewKeySigner(keys ...*btcec.PrivateKey) *KeySigner {
	s := &KeySigner{keys: make(map[string]*btcec.PrivateKey, len(keys))}
	for _, key := range keys {
		s.AddKey(key)
	}
	return s
}

// AddKey makes key available for signing.
func (s *KeySigner) AddKey(key *btcec.PrivateKey) {
	pkh := btcutil.Hash160(key.PubKey().SerializeCompressed())
	s.mtx.Lock()
	s.keys[string(pkh)] = key
	s.mtx.Unlock()
}

// key returns the key behind pubKeyHash.
func (s *KeySigner) key(pubKeyHash []byte) (*btcec.PrivateKey, error) {
	s.mtx.RLock()
	key, ok := s.keys[string(pubKeyHash)]
	s.mtx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no key for public key hash %x", pubKeyHash)
	}
	return key, nil
}

// SignCoinStake signs every coinstake input with SIGHASH_ALL.
func (s *KeySigner) SignCoinStake(tx *wire.MsgTx, prevScripts [][]byte) error {
	if len(prevScripts) != len(tx.TxIn) {
		return fmt.Errorf("have %d previous scripts for %d inputs",
			len(prevScripts), len(tx.TxIn))
	}
	for i, prevScript := range prevScripts {
		pubKeyHash := stake.ExtractPubKeyHash(prevScript)
		if pubKeyHash == nil {
			return fmt.Errorf("input %d does not spend a public "+
				"key hash output", i)
		}
		key, err := s.key(pubKeyHash)
		if err != nil {
			return err
		}
		sigScript, err := txscript.SignatureScript(tx, i, prevScript,
			txscript.SigHashAll, key, true)
		if err != nil {
			return err
		}
		tx.TxIn[i].SignatureScript = sigScript
	}
	return nil
}

// SignBlock returns a recoverable compact signature of hash.
func (s *KeySigner) SignBlock(hash *chainhash.Hash, pubKeyHash []byte) ([]byte, error) {
	key, err := s.key(pubKeyHash)
	if err != nil {
		return nil, err
	}
	return ecdsa.SignCompact(key, hash[:], true), nil
}

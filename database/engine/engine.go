// Package engine defines the key/value storage interface used by the chain
// for blocks, main chain height indexes, dividend snapshots and the claim
// ledger.  Implementations live in the leveldb and pebbledb subpackages.
package engine

import (
	"errors"
)

// ErrNotFound is returned by Get when the requested key does not exist.
// Backends translate their own not found errors to it.
var ErrNotFound = errors.New("engine: key not found")

type Engine interface {
	Transaction() (Transaction, error)
	Snapshot() (Snapshot, error)
	Close() error
}

// Transaction batches writes that are applied atomically on Commit.
type Transaction interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Commit() error
	Discard()
}

// Snapshot is a consistent read-only view of the engine.
type Snapshot interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	NewIterator(*Range) Iterator
	Releaser
}

type Releaser interface {
	Release()
}

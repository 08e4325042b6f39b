// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dividend

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
)

// maxScriptSize is the largest payout script accepted when decoding a
// snapshot.
const maxScriptSize = 10000

// byteOrder is the preferred byte order used for serializing numeric fields
// of snapshots.
var byteOrder = binary.LittleEndian

// RegistryRecord is the state of a registry entry captured by a snapshot.
type RegistryRecord struct {
	Key              Key
	Weight           int64
	LastPayoutHeight int32
	Settled          int64
}

// Snapshot is the immutable record of a quarter boundary.  A boundary that
// paid nothing still records a snapshot with no payouts.
type Snapshot struct {
	Height      int32
	Hash        chainhash.Hash
	PoolBefore  int64
	Distributed int64
	PoolAfter   int64
	Payouts     []Payout
	Registry    []RegistryRecord
}

// Serialize encodes the snapshot to w.
//
// The serialized format is:
//
//	<height><hash><pool before><distributed><pool after>
//	<num payouts>[<key><amount><script>]...
//	<num records>[<key><weight><last payout height><settled>]...
//
// Counts are variable length integers and scripts are variable length byte
// slices as encoded by the wire package.
func (s *Snapshot) Serialize(w io.Writer) error {
	write := func(v interface{}) error {
		return binary.Write(w, byteOrder, v)
	}

	if err := write(s.Height); err != nil {
		return err
	}
	if _, err := w.Write(s.Hash[:]); err != nil {
		return err
	}
	for _, v := range []int64{s.PoolBefore, s.Distributed, s.PoolAfter} {
		if err := write(v); err != nil {
			return err
		}
	}

	if err := wire.WriteVarInt(w, 0, uint64(len(s.Payouts))); err != nil {
		return err
	}
	for _, p := range s.Payouts {
		if _, err := w.Write(p.Key[:]); err != nil {
			return err
		}
		if err := write(p.Amount); err != nil {
			return err
		}
		if err := wire.WriteVarBytes(w, 0, p.Script); err != nil {
			return err
		}
	}

	if err := wire.WriteVarInt(w, 0, uint64(len(s.Registry))); err != nil {
		return err
	}
	for _, r := range s.Registry {
		if _, err := w.Write(r.Key[:]); err != nil {
			return err
		}
		if err := write(r.Weight); err != nil {
			return err
		}
		if err := write(r.LastPayoutHeight); err != nil {
			return err
		}
		if err := write(r.Settled); err != nil {
			return err
		}
	}
	return nil
}

// Bytes returns the serialized snapshot.
func (s *Snapshot) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Deserialize decodes a snapshot from r into s.
func (s *Snapshot) Deserialize(r io.Reader) error {
	read := func(v interface{}) error {
		return binary.Read(r, byteOrder, v)
	}

	if err := read(&s.Height); err != nil {
		return errors.Wrap(err, "snapshot height")
	}
	if _, err := io.ReadFull(r, s.Hash[:]); err != nil {
		return errors.Wrap(err, "snapshot hash")
	}
	for _, v := range []*int64{&s.PoolBefore, &s.Distributed, &s.PoolAfter} {
		if err := read(v); err != nil {
			return errors.Wrap(err, "snapshot pool")
		}
	}

	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return errors.Wrap(err, "snapshot payout count")
	}
	s.Payouts = nil
	for i := uint64(0); i < count; i++ {
		var p Payout
		if _, err := io.ReadFull(r, p.Key[:]); err != nil {
			return errors.Wrapf(err, "snapshot payout %d", i)
		}
		if err := read(&p.Amount); err != nil {
			return errors.Wrapf(err, "snapshot payout %d", i)
		}
		p.Script, err = wire.ReadVarBytes(r, 0, maxScriptSize, "payout script")
		if err != nil {
			return errors.Wrapf(err, "snapshot payout %d", i)
		}
		s.Payouts = append(s.Payouts, p)
	}

	count, err = wire.ReadVarInt(r, 0)
	if err != nil {
		return errors.Wrap(err, "snapshot registry count")
	}
	s.Registry = nil
	for i := uint64(0); i < count; i++ {
		var rec RegistryRecord
		if _, err := io.ReadFull(r, rec.Key[:]); err != nil {
			return errors.Wrapf(err, "snapshot record %d", i)
		}
		if err := read(&rec.Weight); err != nil {
			return errors.Wrapf(err, "snapshot record %d", i)
		}
		if err := read(&rec.LastPayoutHeight); err != nil {
			return errors.Wrapf(err, "snapshot record %d", i)
		}
		if err := read(&rec.Settled); err != nil {
			return errors.Wrapf(err, "snapshot record %d", i)
		}
		s.Registry = append(s.Registry, rec)
	}
	return nil
}

// SnapshotFromBytes decodes a serialized snapshot.
func SnapshotFromBytes(b []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := snap.Deserialize(bytes.NewReader(b)); err != nil {
		return nil, err
	}
	return &snap, nil
}

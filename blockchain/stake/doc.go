// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package stake contains the proof of stake primitives used by the chain and
the staker.

Important parts included in the stake package:

  - Stake modifier chaining (legacy and v3 preimages)
  - Kernel proof hashing and the stake weighted target check
  - A bounded, cancellable kernel search over candidate timestamps
  - Coinstake identification, reward splitting and output construction
  - Tracking of kernels already claimed by accepted blocks

The kernel and coinstake functions are deterministic given their inputs and
read no chain state.
*/
package stake

// Copyright (c) 2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package mining builds proof of stake block templates from a source of
unconfirmed transactions.

Overview

A template is assembled around a coinstake whose kernel the staker already
found.  Transactions are taken in the order the source returns them, which for
the memory pool is the active priority policy, with each transaction placed
after any in-pool parent it spends.  The coinstake claims the block subsidy
scaled by the kernel age plus the fees of the chosen transactions, funds the
dividend pool and carries the quarter payouts owed at the next height.

The staker subpackage drives kernel search and block submission.
*/
package mining

// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sampleconfig

// FileContents is a string containing the commented example config for bgd.
const FileContents = `[Application Options]

; ------------------------------------------------------------------------------
; Data settings
; ------------------------------------------------------------------------------

; The directory to store data such as the block chain and the dividend
; snapshots.  The default is ~/.bgd/data on POSIX OSes, $LOCALAPPDATA/Bgd/data
; on Windows, ~/Library/Application Support/Bgd/data on macOS, and
; $home/bgd/data on Plan9.  Environment variables are expanded so they may be
; used.  NOTE: Windows environment variables are typically %VARIABLE%, but they
; must be accessed with $VARIABLE here.
; datadir=~/.bgd/data                            ; Unix
; datadir=$LOCALAPPDATA/Bgd/data                 ; Windows
; datadir=~/Library/Application Support/Bgd/data ; macOS

; Database backend to use for the block chain.  Choices are leveldb and pebble.
; dbtype=leveldb


; ------------------------------------------------------------------------------
; Network settings
; ------------------------------------------------------------------------------

; Use testnet.
; testnet=1

; Use the regression test network.
; regtest=1

; Use simnet.
; simnet=1


; ------------------------------------------------------------------------------
; Dividend settings
; ------------------------------------------------------------------------------

; Pay dividends from the pool at quarter boundaries.  'network' follows the
; default of the active network, 'on' and 'off' override it.
; dividendpayouts=network


; ------------------------------------------------------------------------------
; Mempool settings
; ------------------------------------------------------------------------------

; Order the mempool by fee rate, then stake weight capped at priorityclamp coins,
; then arrival time instead of by fee rate alone.
; priorityengine=1

; Highest priority a single transaction can be credited with.
; priorityclamp=255

; Maximum memory the mempool may use in megabytes.  The lowest scoring
; transactions are evicted once it is reached.
; maxmempool=300

; Set the minimum transaction fee to be considered a non-zero fee.
; minrelaytxfee=0.00001

; Relay non-standard transactions regardless of the default settings for the
; active network.
; relaynonstd=0


; ------------------------------------------------------------------------------
; Staking settings
; ------------------------------------------------------------------------------

; Stake the unspent outputs of the staking keys.
; staking=1

; WIF encoded private keys whose outputs are staked.  This option may be
; specified multiple times.
; stakekey=

; Amount in coins kept out of staking.
; reservebalance=0

; Outputs of the kernel key are merged into the coinstake while its value is
; below this amount in coins.  0 disables merging.
; splitthreshold=0

; Number of kernel search workers.  0 selects the number of cores.
; stakeworkers=0

; Hex encoded public key hash of the owner receiving the stake and the rewards
; of staked blocks.  Only permitted on networks allowing cold staking.
; coldstaking=


; ------------------------------------------------------------------------------
; Debug
; ------------------------------------------------------------------------------

; Debug logging level.
; Valid levels are {trace, debug, info, warn, error, critical}
; You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set
; log level for individual subsystems.  Use bgd --debuglevel=show to list
; available subsystems.
; debuglevel=info
`

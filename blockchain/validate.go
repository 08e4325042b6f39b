// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/bitgoldsuite/bgd/bgutil"
	"github.com/bitgoldsuite/bgd/blockchain/dividend"
	"github.com/bitgoldsuite/bgd/blockchain/stake"
	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

const (
	// MaxTimeOffsetSeconds is the maximum number of seconds a block time
	// is allowed to be ahead of the current time.
	MaxTimeOffsetSeconds = 2 * 60 * 60

	// medianTimeBlocks is the number of previous blocks which should be
	// used to calculate the median time used to validate block timestamps.
	medianTimeBlocks = 11
)

var (
	// zeroHash is the zero value for a chainhash.Hash and is defined as
	// a package level variable to avoid the need to create a new instance
	// every time a check is needed.
	zeroHash chainhash.Hash
)

// isNullOutpoint determines whether or not a previous transaction output point
// is set.
func isNullOutpoint(outpoint *wire.OutPoint) bool {
	if outpoint.Index == math.MaxUint32 && outpoint.Hash == zeroHash {
		return true
	}
	return false
}

// IsCoinBaseTx determines whether or not a transaction is a coinbase.  A
// coinbase is a special transaction created by miners that has no inputs.
// This is represented in the block chain by a transaction with a single input
// that has a previous output transaction index set to the maximum value along
// with a zero hash.
func IsCoinBaseTx(msgTx *wire.MsgTx) bool {
	// A coin base must only have one transaction input.
	if len(msgTx.TxIn) != 1 {
		return false
	}

	// The previous output of a coin base must have a max value index and
	// a zero hash.
	return isNullOutpoint(&msgTx.TxIn[0].PreviousOutPoint)
}

// IsCoinBase determines whether or not a transaction is a coinbase.
func IsCoinBase(tx *btcutil.Tx) bool {
	return IsCoinBaseTx(tx.MsgTx())
}

// CheckTransactionSanity performs some preliminary checks on a transaction to
// ensure it is sane.  These checks are context free.
func CheckTransactionSanity(tx *btcutil.Tx) error {
	// A transaction must have at least one input.
	msgTx := tx.MsgTx()
	if len(msgTx.TxIn) == 0 {
		return ruleError(ErrNoTxInputs, "transaction has no inputs")
	}

	// A transaction must have at least one output.
	if len(msgTx.TxOut) == 0 {
		return ruleError(ErrNoTxOutputs, "transaction has no outputs")
	}

	// Ensure the transaction amounts are in range.  Each transaction
	// output must not be negative or more than the max allowed per
	// transaction.  Also, the total of all outputs must abide by the same
	// restrictions.
	var totalSatoshi int64
	for _, txOut := range msgTx.TxOut {
		satoshi := txOut.Value
		if satoshi < 0 {
			str := fmt.Sprintf("transaction output has negative "+
				"value of %v", satoshi)
			return ruleError(ErrBadTxOutValue, str)
		}
		if satoshi > btcutil.MaxSatoshi {
			str := fmt.Sprintf("transaction output value of %v is "+
				"higher than max allowed value of %v", satoshi,
				btcutil.MaxSatoshi)
			return ruleError(ErrBadTxOutValue, str)
		}

		// Two's complement int64 overflow guarantees that any overflow
		// is detected and reported.
		totalSatoshi += satoshi
		if totalSatoshi < 0 || totalSatoshi > btcutil.MaxSatoshi {
			str := fmt.Sprintf("total value of all transaction "+
				"outputs is %v which is higher than max "+
				"allowed value of %v", totalSatoshi,
				btcutil.MaxSatoshi)
			return ruleError(ErrBadTxOutValue, str)
		}
	}

	// Check for duplicate transaction inputs.
	existingTxOut := make(map[wire.OutPoint]struct{})
	for _, txIn := range msgTx.TxIn {
		if _, exists := existingTxOut[txIn.PreviousOutPoint]; exists {
			return ruleError(ErrDuplicateTxInputs, "transaction "+
				"contains duplicate inputs")
		}
		existingTxOut[txIn.PreviousOutPoint] = struct{}{}
	}

	// Previous transaction outputs referenced by the inputs to this
	// transaction must not be null unless it is a coinbase.
	if !IsCoinBase(tx) {
		for _, txIn := range msgTx.TxIn {
			if isNullOutpoint(&txIn.PreviousOutPoint) {
				return ruleError(ErrBadTxInput, "transaction "+
					"input refers to previous output that "+
					"is null")
			}
		}
	}

	return nil
}

// checkProofOfWork ensures the block header bits which indicate the target
// difficulty is in min/max range and that the block hash is less than the
// target difficulty as claimed.
func checkProofOfWork(header *wire.BlockHeader, powLimit *big.Int) error {
	// The target difficulty must be larger than zero.
	target := CompactToBig(header.Bits)
	if target.Sign() <= 0 {
		str := fmt.Sprintf("block target difficulty of %064x is too low",
			target)
		return ruleError(ErrUnexpectedDifficulty, str)
	}

	// The target difficulty must be less than the maximum allowed.
	if target.Cmp(powLimit) > 0 {
		str := fmt.Sprintf("block target difficulty of %064x is "+
			"higher than max of %064x", target, powLimit)
		return ruleError(ErrUnexpectedDifficulty, str)
	}

	// The block hash must be less than the claimed target.
	hash := header.BlockHash()
	hashNum := HashToBig(&hash)
	if hashNum.Cmp(target) > 0 {
		str := fmt.Sprintf("block hash of %064x is higher than "+
			"expected max of %064x", hashNum, target)
		return ruleError(ErrHighHash, str)
	}

	return nil
}

// checkCoinStakeShape performs the context free checks of a proof of stake
// block: timestamp granularity, the coinstake placement and inputs and the
// presence of a block signature.
func checkCoinStakeShape(block *bgutil.Block, params *chaincfg.Params) error {
	header := &block.MsgBlock().Header
	if header.Timestamp.Unix()&int64(params.StakeTimestampMask) != 0 {
		str := fmt.Sprintf("block timestamp %d does not satisfy the "+
			"stake timestamp mask %#x", header.Timestamp.Unix(),
			params.StakeTimestampMask)
		return ruleError(ErrBadTimeMask, str)
	}

	coinStake := block.MsgBlock().Transactions[1]
	seen := make(map[wire.OutPoint]struct{}, len(coinStake.TxIn))
	for _, txIn := range coinStake.TxIn {
		if _, ok := seen[txIn.PreviousOutPoint]; ok {
			str := fmt.Sprintf("coinstake spends %v more than once",
				txIn.PreviousOutPoint)
			return ruleError(ErrCoinStakeDuplicateInput, str)
		}
		seen[txIn.PreviousOutPoint] = struct{}{}
	}

	if int64(coinStake.LockTime) != header.Timestamp.Unix() {
		str := fmt.Sprintf("coinstake time %d does not match block "+
			"time %d", coinStake.LockTime, header.Timestamp.Unix())
		return ruleError(ErrBadKernel, str)
	}

	if len(block.Signature()) == 0 {
		return ruleError(ErrBadBlockSignature, "proof of stake block "+
			"is not signed")
	}
	return nil
}

// checkBlockSanity performs some preliminary checks on a block to ensure it is
// sane before continuing with block processing.  These checks are context
// free.
func checkBlockSanity(block *bgutil.Block, params *chaincfg.Params, timeSource MedianTimeSource) error {
	msgBlock := block.MsgBlock()
	header := &msgBlock.Header

	// Ensure the block time is not too far in the future.
	maxTimestamp := timeSource.AdjustedTime().Add(time.Second *
		MaxTimeOffsetSeconds)
	if header.Timestamp.After(maxTimestamp) {
		str := fmt.Sprintf("block timestamp of %v is too far in the "+
			"future", header.Timestamp)
		return ruleError(ErrTimeTooNew, str)
	}

	// A block must have at least one transaction.
	numTx := len(msgBlock.Transactions)
	if numTx == 0 {
		return ruleError(ErrNoTransactions, "block does not contain "+
			"any transactions")
	}

	// The first transaction in a block must be a coinbase.
	transactions := block.Transactions()
	if !IsCoinBase(transactions[0]) {
		return ruleError(ErrFirstTxNotCoinbase, "first transaction in "+
			"block is not a coinbase")
	}

	// A block must not have more than one coinbase.
	for i, tx := range transactions[1:] {
		if IsCoinBase(tx) {
			str := fmt.Sprintf("block contains second coinbase at "+
				"index %d", i+1)
			return ruleError(ErrMultipleCoinbases, str)
		}
	}

	// The proof of the block is either the coinstake kernel or the header
	// hash.  Work blocks carry no signature.
	if block.IsProofOfStake() {
		if err := checkCoinStakeShape(block, params); err != nil {
			return err
		}
	} else {
		if len(block.Signature()) != 0 {
			if numTx > 1 && !IsCoinBase(transactions[1]) &&
				len(msgBlock.Transactions[1].TxOut) >= 2 {
				return ruleError(ErrCoinStakeMarker, "signed block "+
					"coinstake does not start with an empty "+
					"marker output")
			}
			return ruleError(ErrCoinStakeMissing, "signed block "+
				"does not contain a coinstake")
		}
		if err := checkProofOfWork(header, params.PowLimit); err != nil {
			return err
		}
	}

	// Only the second transaction may be a coinstake.
	for i := 2; i < numTx; i++ {
		if stake.IsCoinStakeTx(msgBlock.Transactions[i]) {
			str := fmt.Sprintf("block contains coinstake at index %d", i)
			return ruleError(ErrMultipleCoinStakes, str)
		}
	}

	// Do some preliminary checks on each transaction to ensure they are
	// sane before continuing.
	for _, tx := range transactions {
		if err := CheckTransactionSanity(tx); err != nil {
			return err
		}
	}

	// Build merkle tree and ensure the calculated merkle root matches the
	// entry in the block header.
	calculatedMerkleRoot := CalcMerkleRoot(transactions)
	if !header.MerkleRoot.IsEqual(&calculatedMerkleRoot) {
		str := fmt.Sprintf("block merkle root is invalid - block "+
			"header indicates %v, but calculated value is %v",
			header.MerkleRoot, calculatedMerkleRoot)
		return ruleError(ErrBadMerkleRoot, str)
	}

	// Check for duplicate transactions.
	existingTxHashes := make(map[chainhash.Hash]struct{})
	for _, tx := range transactions {
		hash := tx.Hash()
		if _, exists := existingTxHashes[*hash]; exists {
			str := fmt.Sprintf("block contains duplicate "+
				"transaction %v", hash)
			return ruleError(ErrDuplicateTx, str)
		}
		existingTxHashes[*hash] = struct{}{}
	}

	return nil
}

// CheckBlockSanity performs some preliminary checks on a block to ensure it is
// sane before continuing with block processing.  These checks are context
// free.
func CheckBlockSanity(block *bgutil.Block, params *chaincfg.Params, timeSource MedianTimeSource) error {
	return checkBlockSanity(block, params, timeSource)
}

// checkBlockHeaderContext performs several validation checks on the block
// header which depend on its position within the block chain: the proof kind
// allowed at the height, the difficulty, the timestamp ordering and, for
// proof of stake blocks, the minimum spacing.
func checkBlockHeaderContext(params *chaincfg.Params, header *wire.BlockHeader,
	prevNode *blockNode, proofOfStake bool) error {

	height := prevNode.height + 1
	switch {
	case !proofOfStake && params.IsPoSHeight(height):
		str := fmt.Sprintf("proof of work block at height %d is at or "+
			"after the proof of stake activation height %d", height,
			params.PoSActivationHeight)
		return ruleError(ErrPoWAfterActivation, str)

	case proofOfStake && !params.IsPoSHeight(height):
		str := fmt.Sprintf("proof of stake block at height %d is "+
			"before the activation height %d", height,
			params.PoSActivationHeight)
		return ruleError(ErrPoSBeforeActivation, str)
	}

	// Ensure the difficulty specified in the block header matches the
	// calculated difficulty based on the previous block and difficulty
	// retarget rules.
	expectedDifficulty := calcNextRequiredDifficulty(params, prevNode,
		proofOfStake)
	if header.Bits != expectedDifficulty {
		str := fmt.Sprintf("block difficulty of %08x is not the "+
			"expected value of %08x", header.Bits, expectedDifficulty)
		return ruleError(ErrUnexpectedDifficulty, str)
	}

	// Block timestamps strictly increase along a chain.
	blockTime := header.Timestamp.Unix()
	if blockTime <= prevNode.timestamp {
		str := fmt.Sprintf("block timestamp of %v is not after the "+
			"previous block timestamp of %v", header.Timestamp,
			time.Unix(prevNode.timestamp, 0))
		return ruleError(ErrTimeTooOld, str)
	}

	if proofOfStake {
		spacing := int64(params.TargetTimePerBlock / time.Second)
		minTime := params.MaskTimestamp(prevNode.timestamp + spacing)
		if blockTime < minTime {
			str := fmt.Sprintf("proof of stake block timestamp %d is "+
				"before the minimum spacing time %d", blockTime,
				minTime)
			return ruleError(ErrBadTimeSpacing, str)
		}
	}

	return nil
}

// checkStakeInputMaturity ensures a coinstake input has the confirmations a
// stake requires and, when it comes from a coinbase or coinstake, has
// matured.
func checkStakeInputMaturity(params *chaincfg.Params, op wire.OutPoint,
	entry *UtxoEntry, height int32) error {

	confirmations := height - entry.BlockHeight()
	if confirmations < params.StakeMinConfirmations {
		str := fmt.Sprintf("coinstake input %v has %d confirmations, "+
			"requires %d", op, confirmations,
			params.StakeMinConfirmations)
		return ruleError(ErrCoinStakeImmatureInput, str)
	}
	if (entry.IsCoinBase() || entry.IsCoinStake()) &&
		confirmations < int32(params.CoinbaseMaturity) {

		str := fmt.Sprintf("coinstake input %v from a generation "+
			"transaction has %d confirmations, requires %d", op,
			confirmations, params.CoinbaseMaturity)
		return ruleError(ErrCoinStakeImmatureInput, str)
	}
	return nil
}

// checkBlockSignature ensures the block signature is a compact signature of
// the block hash made by the key the kernel output pays to.
func checkBlockSignature(block *bgutil.Block, pubKeyHash []byte) error {
	hash := block.Hash()
	pubKey, compressed, err := ecdsa.RecoverCompact(block.Signature(), hash[:])
	if err != nil {
		str := fmt.Sprintf("block signature is invalid: %v", err)
		return ruleError(ErrBadBlockSignature, str)
	}

	var serialized []byte
	if compressed {
		serialized = pubKey.SerializeCompressed()
	} else {
		serialized = pubKey.SerializeUncompressed()
	}
	if !bytes.Equal(btcutil.Hash160(serialized), pubKeyHash) {
		return ruleError(ErrBadBlockSignature, "block signature is not "+
			"made by the kernel owner")
	}
	return nil
}

// stakeInfo holds the parts of a validated coinstake needed to check its
// outputs.
type stakeInfo struct {
	kernel *UtxoEntry
	staked int64
}

// checkProofOfStake validates the provenance and kernel of the coinstake of
// a proof of stake block against the view at the block's connection point:
// every input must exist, be unspent and be mature, the kernel must meet the
// stake weighted target and the block must be signed by the kernel owner.
func checkProofOfStake(params *chaincfg.Params, node *blockNode,
	block *bgutil.Block, view *UtxoViewpoint) (*stakeInfo, error) {

	coinStake := block.MsgBlock().Transactions[1]
	info := &stakeInfo{}
	for i, txIn := range coinStake.TxIn {
		op := txIn.PreviousOutPoint
		entry := view.LookupEntry(op)
		if entry == nil || entry.IsSpent() {
			str := fmt.Sprintf("coinstake input %v does not exist or "+
				"is already spent", op)
			return nil, ruleError(ErrCoinStakeMissingInput, str)
		}
		err := checkStakeInputMaturity(params, op, entry, node.height)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			info.kernel = entry
		}
		info.staked += entry.Amount()
	}

	pubKeyHash := stake.ExtractPubKeyHash(info.kernel.PkScript())
	if pubKeyHash == nil {
		str := fmt.Sprintf("kernel %v does not pay to a public key hash",
			coinStake.TxIn[0].PreviousOutPoint)
		return nil, ruleError(ErrBadKernelScript, str)
	}

	kernel := &stake.KernelInput{
		OutPoint:   coinStake.TxIn[0].PreviousOutPoint,
		Amount:     info.kernel.Amount(),
		OriginHash: info.kernel.BlockHash(),
		OriginTime: info.kernel.BlockTime(),
	}
	_, _, err := stake.CheckKernel(params, node.parent.prevBlock(),
		node.bits, kernel, node.timestamp)
	if err != nil {
		if stake.IsErrorCode(err, stake.ErrStakeTimeMask) {
			return nil, ruleError(ErrBadTimeMask, err.Error())
		}
		return nil, ruleError(ErrBadKernel, err.Error())
	}

	if err := checkBlockSignature(block, pubKeyHash); err != nil {
		return nil, err
	}
	return info, nil
}

// checkTransactionInputs performs a series of checks on the inputs to a
// regular transaction to ensure they are valid and returns the fee it pays.
// The checks include verifying all inputs exist, ensuring coinbase and
// coinstake outputs have matured, and ensuring the transaction does not spend
// more than its inputs.
func checkTransactionInputs(params *chaincfg.Params, tx *btcutil.Tx,
	txHeight int32, view *UtxoViewpoint) (int64, error) {

	var totalSatoshiIn int64
	for txInIndex, txIn := range tx.MsgTx().TxIn {
		// Ensure the referenced input transaction is available.
		utxo := view.LookupEntry(txIn.PreviousOutPoint)
		if utxo == nil || utxo.IsSpent() {
			str := fmt.Sprintf("output %v referenced from "+
				"transaction %s:%d either does not exist or "+
				"has already been spent", txIn.PreviousOutPoint,
				tx.Hash(), txInIndex)
			return 0, ruleError(ErrMissingTxOut, str)
		}

		// Ensure the transaction is not spending coins which have not
		// yet reached the required coinbase maturity.
		if utxo.IsCoinBase() || utxo.IsCoinStake() {
			originHeight := utxo.BlockHeight()
			blocksSincePrev := txHeight - originHeight
			coinbaseMaturity := int32(params.CoinbaseMaturity)
			if blocksSincePrev < coinbaseMaturity {
				str := fmt.Sprintf("tried to spend generated "+
					"transaction output %v from height %v "+
					"at height %v before required maturity "+
					"of %v blocks", txIn.PreviousOutPoint,
					originHeight, txHeight, coinbaseMaturity)
				return 0, ruleError(ErrImmatureSpend, str)
			}
		}

		// The total of all outputs must not be more than the max
		// allowed per transaction.
		originTxSatoshi := utxo.Amount()
		totalSatoshiIn += originTxSatoshi
		if originTxSatoshi < 0 || totalSatoshiIn > btcutil.MaxSatoshi {
			str := fmt.Sprintf("total value of all transaction "+
				"inputs is %v which is higher than max "+
				"allowed value of %v", totalSatoshiIn,
				btcutil.MaxSatoshi)
			return 0, ruleError(ErrBadTxOutValue, str)
		}
	}

	// Calculate the total output amount for this transaction.  It is safe
	// to ignore overflow and out of range errors here because those error
	// conditions would have already been caught by checkTransactionSanity.
	var totalSatoshiOut int64
	for _, txOut := range tx.MsgTx().TxOut {
		totalSatoshiOut += txOut.Value
	}

	// Ensure the transaction does not spend more than its inputs.
	if totalSatoshiIn < totalSatoshiOut {
		str := fmt.Sprintf("total value of all transaction inputs for "+
			"transaction %v is %v which is less than the amount "+
			"spent of %v", tx.Hash(), totalSatoshiIn, totalSatoshiOut)
		return 0, ruleError(ErrSpendTooHigh, str)
	}

	return totalSatoshiIn - totalSatoshiOut, nil
}

// CheckTransactionInputs performs the same input checks applied to a regular
// transaction connected in a block at txHeight against the passed view and
// returns the fee it pays.  It is used by the memory pool.
func CheckTransactionInputs(tx *btcutil.Tx, txHeight int32,
	view *UtxoViewpoint, params *chaincfg.Params) (int64, error) {

	return checkTransactionInputs(params, tx, txHeight, view)
}

// checkPayoutOutputs ensures outs are exactly the expected quarter payouts in
// order.
func checkPayoutOutputs(outs []*wire.TxOut, payouts []dividend.Payout) error {
	if len(outs) > len(payouts) {
		str := fmt.Sprintf("block pays %d outputs beyond the canonical "+
			"set, expected %d payouts", len(outs), len(payouts))
		return ruleError(ErrDividendExtra, str)
	}
	if len(outs) < len(payouts) {
		str := fmt.Sprintf("block pays %d quarter payouts, expected %d",
			len(outs), len(payouts))
		return ruleError(ErrDividendPayout, str)
	}
	for i, p := range payouts {
		if outs[i].Value != p.Amount || !bytes.Equal(outs[i].PkScript, p.Script) {
			str := fmt.Sprintf("quarter payout %d pays %d, expected %d "+
				"to staker %v", i, outs[i].Value, p.Amount, p.Key)
			return ruleError(ErrDividendPayout, str)
		}
	}
	return nil
}

// checkDividendOutput ensures out is the dividend output paying amount.
func checkDividendOutput(out *wire.TxOut, amount int64) error {
	if out.Value != amount {
		str := fmt.Sprintf("dividend output pays %d, expected %d",
			out.Value, amount)
		return ruleError(ErrDividendAmount, str)
	}
	if !stake.IsDividendScript(out.PkScript) {
		return ruleError(ErrDividendScript, "dividend output does not "+
			"pay the dividend script")
	}
	return nil
}

// checkCoinStakeOutputs validates the reward split of a coinstake: the
// validator output pays the staked amount plus the validator share, the
// dividend output pays a tenth of the total reward and, at a quarter
// boundary, the payouts follow in key order.
func checkCoinStakeOutputs(params *chaincfg.Params, coinStake *wire.MsgTx,
	info *stakeInfo, totalReward int64, payouts []dividend.Payout) error {

	outs := coinStake.TxOut
	marker := outs[stake.CoinStakeMarkerIndex]
	if marker.Value != 0 || len(marker.PkScript) != 0 {
		return ruleError(ErrCoinStakeMarker, "coinstake marker output "+
			"is not empty")
	}

	validator := outs[stake.CoinStakeValidatorIndex]
	if !params.ColdStaking && !bytes.Equal(validator.PkScript,
		info.kernel.PkScript()) {

		return ruleError(ErrCoinStakePayee, "coinstake validator output "+
			"does not pay the kernel script")
	}

	if !params.DividendPayouts {
		if len(outs) > 2 {
			str := fmt.Sprintf("coinstake has %d outputs, expected 2",
				len(outs))
			return ruleError(ErrDividendExtra, str)
		}
		if validator.Value != info.staked+totalReward {
			str := fmt.Sprintf("validator output pays %d, expected %d",
				validator.Value, info.staked+totalReward)
			return ruleError(ErrValidatorAmount, str)
		}
		return nil
	}

	if len(outs) <= stake.CoinStakeDividendIndex {
		return ruleError(ErrDividendMissing, "coinstake is missing the "+
			"dividend output")
	}

	validatorReward, dividendReward := stake.SplitReward(totalReward)
	err := checkDividendOutput(outs[stake.CoinStakeDividendIndex],
		dividendReward)
	if err != nil {
		return err
	}
	if validator.Value != info.staked+validatorReward {
		str := fmt.Sprintf("validator output pays %d, expected %d",
			validator.Value, info.staked+validatorReward)
		return ruleError(ErrValidatorAmount, str)
	}

	return checkPayoutOutputs(outs[stake.CoinStakeDividendIndex+1:], payouts)
}

// checkCoinbaseOutputs validates the coinbase of a proof of work block: when
// payouts are enabled the dividend output follows the miner output and
// quarter payouts follow the dividend, and the miner may claim at most the
// validator share of the total reward.
func checkCoinbaseOutputs(params *chaincfg.Params, coinbase *wire.MsgTx,
	totalReward int64, payouts []dividend.Payout) error {

	outs := coinbase.TxOut
	minerReward := totalReward
	minerOuts := outs
	if params.DividendPayouts {
		if len(outs) < 2 {
			return ruleError(ErrDividendMissing, "coinbase is missing "+
				"the dividend output")
		}
		var dividendReward int64
		minerReward, dividendReward = stake.SplitReward(totalReward)
		if err := checkDividendOutput(outs[1], dividendReward); err != nil {
			return err
		}
		if err := checkPayoutOutputs(outs[2:], payouts); err != nil {
			return err
		}
		minerOuts = outs[:1]
	}

	var paid int64
	for _, out := range minerOuts {
		paid += out.Value
	}
	if paid > minerReward {
		str := fmt.Sprintf("coinbase transaction for block pays %v "+
			"which is more than expected value of %v", paid,
			minerReward)
		return ruleError(ErrBadCoinbaseValue, str)
	}
	return nil
}

// checkConnectBlock performs the checks which depend on the state of the chain
// at the connection point of the block and connects its transactions to the
// view, appending the spent outputs to stxos.  The dividend state is only
// read.  It returns the dividend contribution of the block.
//
// The view and the state must describe the chain ending at node.parent.
func (b *BlockChain) checkConnectBlock(node *blockNode, block *bgutil.Block,
	view *UtxoViewpoint, state *dividend.State,
	stxos *[]SpentTxOut) (*dividend.BlockContribution, error) {

	params := b.chainParams
	if !view.BestHash().IsEqual(&node.parent.hash) {
		return nil, AssertError("checkConnectBlock called with a view " +
			"that does not end at the parent")
	}

	var info *stakeInfo
	if node.proofOfStake {
		var err error
		info, err = checkProofOfStake(params, node, block, view)
		if err != nil {
			return nil, err
		}
	}

	// Connect the transactions in order so that spends of outputs created
	// earlier in the block are seen, summing the fees of every regular
	// transaction as it goes.
	var fees int64
	payouts := params.DividendPayouts
	for txIdx, tx := range block.Transactions() {
		regular := txIdx > 1 || (txIdx == 1 && !node.proofOfStake)
		if regular {
			fee, err := checkTransactionInputs(params, tx, node.height, view)
			if err != nil {
				return nil, err
			}
			fees += fee
			if fees < 0 || fees > btcutil.MaxSatoshi {
				return nil, ruleError(ErrBadTxOutValue, "total fees "+
					"for block overflows accumulator")
			}
		}
		err := view.connectTransaction(tx, txIdx, node, payouts, stxos)
		if err != nil {
			return nil, err
		}
	}
	view.SetBestHash(&node.hash)

	msgBlock := block.MsgBlock()
	subsidy := CalcBlockSubsidy(node.height, params)
	contribution := &dividend.BlockContribution{
		Height: node.height,
		Hash:   node.hash,
	}

	if node.proofOfStake {
		for _, out := range msgBlock.Transactions[0].TxOut {
			if out.Value != 0 {
				return nil, ruleError(ErrBadCoinbaseValue, "proof of "+
					"stake coinbase must not pay any value")
			}
		}

		age := time.Duration(node.timestamp-info.kernel.BlockTime()) *
			time.Second
		totalReward := stake.CalcStakeReward(params, subsidy, fees, age)
		coinStake := msgBlock.Transactions[1]

		_, contribution.Dividend = stake.SplitReward(totalReward)
		contribution.StakerScript = coinStake.TxOut[stake.CoinStakeValidatorIndex].PkScript
		contribution.Staked = info.staked

		err := checkCoinStakeOutputs(params, coinStake, info, totalReward,
			state.BlockPayouts(contribution))
		if err != nil {
			return nil, err
		}
		return contribution, nil
	}

	totalReward := subsidy + fees
	_, contribution.Dividend = stake.SplitReward(totalReward)
	err := checkCoinbaseOutputs(params, msgBlock.Transactions[0],
		totalReward, state.BlockPayouts(contribution))
	if err != nil {
		return nil, err
	}
	return contribution, nil
}

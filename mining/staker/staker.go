// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package staker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bitgoldsuite/bgd/bgutil"
	"github.com/bitgoldsuite/bgd/blockchain"
	"github.com/bitgoldsuite/bgd/blockchain/stake"
	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/bitgoldsuite/bgd/mining"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/scylladb/go-set/strset"
	"golang.org/x/sync/errgroup"
)

const (
	// minBackoff is the delay between stake attempts after a miss.  It
	// doubles on every consecutive miss up to maxBackoff.
	minBackoff = 500 * time.Millisecond

	// maxBackoff bounds the delay between stake attempts.
	maxBackoff = 8 * time.Second
)

var (
	// defaultNumWorkers is the default number of kernel search workers
	// and is based on the number of processor cores.
	defaultNumWorkers = runtime.NumCPU()
)

// StakeSource enumerates the outputs the staker may stake.
type StakeSource interface {
	// StakeCandidates returns every unspent output owned by the staking
	// keys.  The staker filters them for maturity itself.
	StakeCandidates() ([]*Candidate, error)
}

// Chain is the view of the block chain the staker needs.  It is satisfied by
// *blockchain.BlockChain.
type Chain interface {
	// BestSnapshot returns information about the current chain tip.
	BestSnapshot() *blockchain.BestState

	// StakeContext returns the kernel context for a block built on the
	// tip and the difficulty it must meet.
	StakeContext() (*stake.PrevBlock, uint32)

	// StakeSeen returns whether the stake of hit was already used by a
	// block the chain has seen.
	StakeSeen(hit *stake.KernelHit) bool
}

// Config is a descriptor containing the staker configuration.
type Config struct {
	// ChainParams identifies which chain parameters the staker is
	// associated with.
	ChainParams *chaincfg.Params

	// Chain provides the tip the staker builds on.
	Chain Chain

	// BlockTemplateGenerator identifies the instance to use in order to
	// generate block templates around a kernel.
	BlockTemplateGenerator *mining.BlkTmplGenerator

	// StakeSource provides the outputs to stake.
	StakeSource StakeSource

	// Signer signs the coinstake and the block.
	Signer Signer

	// ProcessBlock defines the function to call with any staked blocks.
	// It typically must run the provided block through the same set of
	// rules and handling as any other block coming from the network.
	ProcessBlock func(*bgutil.Block) (bool, error)

	// IsCurrent defines the function to use to obtain whether or not the
	// block chain is current.  Staking on a chain that is not current
	// only produces blocks that end up on a side chain.
	IsCurrent func() bool

	// ReserveBalance is the amount kept out of staking.
	ReserveBalance int64

	// SplitThreshold is the coinstake value below which outputs paying
	// to the kernel script are merged into it.  Zero disables merging.
	SplitThreshold int64

	// PayScript, when set, receives the stake and the validator reward
	// in place of the kernel script.  It delegates the proceeds of cold
	// staking to their owner and requires a network that permits it.
	PayScript []byte

	// NumWorkers is the number of kernel search workers.  Zero selects
	// the number of processor cores.
	NumWorkers int

	// Now returns the current time.  It defaults to time.Now.
	Now func() time.Time
}

// Stats houses the staking counters.
type Stats struct {
	// Attempts is the number of kernel searches run.
	Attempts uint64

	// Successes is the number of staked blocks accepted into the main
	// chain.
	Successes uint64

	// Rewards is the total reward claimed by accepted blocks.
	Rewards int64
}

// Staker searches for kernels over the outputs of its stake source and
// submits the proof of stake blocks they allow.  It consists of a single
// controller goroutine that fans each kernel search out to a set of workers.
type Staker struct {
	sync.Mutex
	g               *mining.BlkTmplGenerator
	cfg             Config
	numWorkers      int
	started         bool
	submitBlockLock sync.Mutex
	wg              sync.WaitGroup
	quit            chan struct{}
	cancel          context.CancelFunc

	searchMtx    sync.Mutex
	cancelSearch context.CancelFunc

	inFlightMtx sync.Mutex
	inFlight    *strset.Set

	attempts  atomic.Uint64
	successes atomic.Uint64
	rewards   atomic.Int64
}

// nextBackoff returns the delay that follows d after another miss.
func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// now returns the current time according to the configuration.
func (s *Staker) now() time.Time {
	if s.cfg.Now != nil {
		return s.cfg.Now()
	}
	return time.Now()
}

// searchContext returns a context for a kernel search derived from parent
// that is also cancelled whenever the chain tip changes.
func (s *Staker) searchContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	s.searchMtx.Lock()
	s.cancelSearch = cancel
	s.searchMtx.Unlock()
	return ctx, cancel
}

// abortSearch cancels the kernel search in progress, if any.
func (s *Staker) abortSearch() {
	s.searchMtx.Lock()
	if s.cancelSearch != nil {
		s.cancelSearch()
		s.cancelSearch = nil
	}
	s.searchMtx.Unlock()
}

// markInFlight records outpoints committed to a submitted block.
func (s *Staker) markInFlight(outpoints []wire.OutPoint) {
	s.inFlightMtx.Lock()
	for i := range outpoints {
		s.inFlight.Add(outpoints[i].String())
	}
	s.inFlightMtx.Unlock()
}

// clearInFlight forgets outpoints previously marked in flight.
func (s *Staker) clearInFlight(outpoints []wire.OutPoint) {
	s.inFlightMtx.Lock()
	for i := range outpoints {
		s.inFlight.Remove(outpoints[i].String())
	}
	s.inFlightMtx.Unlock()
}

// HandleChainNotification aborts the kernel search in progress whenever the
// tip changes and releases the outputs of connected coinstakes.
//
// This function is safe for concurrent access.
func (s *Staker) HandleChainNotification(n *blockchain.Notification) {
	switch n.Type {
	case blockchain.NTBlockConnected:
		block, ok := n.Data.(*bgutil.Block)
		if !ok {
			log.Warnf("Chain connected notification is not a block.")
			break
		}
		s.abortSearch()

		txns := block.MsgBlock().Transactions
		if len(txns) > 1 && stake.IsCoinStakeTx(txns[1]) {
			spent := make([]wire.OutPoint, 0, len(txns[1].TxIn))
			for _, txIn := range txns[1].TxIn {
				spent = append(spent, txIn.PreviousOutPoint)
			}
			s.clearInFlight(spent)
		}

	case blockchain.NTBlockDisconnected:
		s.abortSearch()
	}
}

// searchKernel shards the inputs over the workers and returns the earliest
// hit any of them finds.
func (s *Staker) searchKernel(ctx context.Context, prev *stake.PrevBlock,
	bits uint32, candidates []*Candidate, from, to int64) (*stake.KernelHit, error) {

	numWorkers := s.numWorkers
	if numWorkers > len(candidates) {
		numWorkers = len(candidates)
	}
	shards := make([][]*stake.KernelInput, numWorkers)
	for i, c := range candidates {
		shards[i%numWorkers] = append(shards[i%numWorkers], c.kernelInput())
	}

	hits := make([]*stake.KernelHit, numWorkers)
	g, gctx := errgroup.WithContext(ctx)
	for i := range shards {
		i := i
		g.Go(func() error {
			hit, err := stake.SearchKernel(gctx, s.cfg.ChainParams, prev,
				bits, shards[i], from, to)
			hits[i] = hit
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var best *stake.KernelHit
	for _, hit := range hits {
		if hit != nil && (best == nil || hit.Time < best.Time) {
			best = hit
		}
	}
	return best, nil
}

// createBlock builds and signs a block around hit.  Outputs of the kernel
// script below the split threshold are merged into the coinstake.
func (s *Staker) createBlock(hit *stake.KernelHit, kernel *Candidate,
	candidates []*Candidate) (*bgutil.Block, *mining.BlockTemplate, error) {

	payScript := kernel.PkScript
	if s.cfg.PayScript != nil {
		payScript = s.cfg.PayScript
	}
	req := &mining.StakeRequest{Hit: hit, PayScript: payScript}
	prevScripts := [][]byte{kernel.PkScript}
	for _, c := range mergeInputs(kernel, candidates, s.cfg.SplitThreshold) {
		req.Extra = append(req.Extra, c.kernelInput())
		prevScripts = append(prevScripts, c.PkScript)
	}

	tmpl, err := s.g.NewStakeTemplate(req)
	if err != nil {
		return nil, nil, err
	}
	msgBlock := tmpl.Block
	if err := s.cfg.Signer.SignCoinStake(msgBlock.Transactions[1], prevScripts); err != nil {
		return nil, nil, fmt.Errorf("unable to sign coinstake: %w", err)
	}

	// Signing changed the coinstake hash.
	txns := make([]*btcutil.Tx, 0, len(msgBlock.Transactions))
	for _, tx := range msgBlock.Transactions {
		txns = append(txns, btcutil.NewTx(tx))
	}
	msgBlock.Header.MerkleRoot = blockchain.CalcMerkleRoot(txns)

	hash := msgBlock.BlockHash()
	sig, err := s.cfg.Signer.SignBlock(&hash, stake.ExtractPubKeyHash(kernel.PkScript))
	if err != nil {
		return nil, nil, fmt.Errorf("unable to sign block: %w", err)
	}

	block := bgutil.NewSignedBlock(msgBlock, sig)
	block.SetHeight(tmpl.Height)
	return block, tmpl, nil
}

// submitBlock submits the passed block to the chain after ensuring it is not
// stale.  The coinstake inputs stay in flight while the block is on the main
// chain.
func (s *Staker) submitBlock(block *bgutil.Block) bool {
	s.submitBlockLock.Lock()
	defer s.submitBlockLock.Unlock()

	// Ensure the block is not stale since a new block could have shown up
	// while the kernel was being searched for.
	msgBlock := block.MsgBlock()
	if !msgBlock.Header.PrevBlock.IsEqual(&s.cfg.Chain.BestSnapshot().Hash) {
		log.Debugf("Staked block with previous block %s is stale",
			msgBlock.Header.PrevBlock)
		return false
	}

	coinStake := msgBlock.Transactions[1]
	spent := make([]wire.OutPoint, 0, len(coinStake.TxIn))
	for _, txIn := range coinStake.TxIn {
		spent = append(spent, txIn.PreviousOutPoint)
	}
	s.markInFlight(spent)

	isMainChain, err := s.cfg.ProcessBlock(block)
	if err != nil {
		s.clearInFlight(spent)

		// Anything other than a rule violation is an unexpected error,
		// so log that error as an internal error.
		var rerr blockchain.RuleError
		if !errors.As(err, &rerr) {
			log.Errorf("Unexpected error while processing staked "+
				"block: %v", err)
			return false
		}

		log.Debugf("Staked block rejected: %v", err)
		return false
	}
	if !isMainChain {
		s.clearInFlight(spent)
		log.Debugf("Staked block %s landed on a side chain", block.Hash())
		return false
	}

	log.Infof("Staked block accepted (hash %s, height %d, stake %v)",
		block.Hash(), block.Height(), btcutil.Amount(coinStake.TxOut[1].Value))
	return true
}

// tryStake runs one kernel search on the current tip and submits the block a
// hit allows.  It returns whether a block was accepted.
func (s *Staker) tryStake(ctx context.Context) (bool, error) {
	// Register the search before reading the tip so a tip change from here
	// on aborts it.
	searchCtx, cancel := s.searchContext(ctx)
	defer cancel()

	params := s.cfg.ChainParams
	best := s.cfg.Chain.BestSnapshot()
	nextHeight := best.Height + 1
	if !params.IsPoSHeight(nextHeight) {
		return false, nil
	}

	all, err := s.cfg.StakeSource.StakeCandidates()
	if err != nil {
		return false, fmt.Errorf("unable to fetch stake candidates: %w", err)
	}
	s.inFlightMtx.Lock()
	candidates := eligibleCandidates(params, all, nextHeight,
		s.cfg.ReserveBalance, s.inFlight)
	s.inFlightMtx.Unlock()
	if len(candidates) == 0 {
		log.Tracef("No stake candidates for height %d", nextHeight)
		return false, nil
	}

	prev, bits := s.cfg.Chain.StakeContext()
	if prev.Hash != best.Hash {
		return false, nil
	}

	from := s.now().Unix()
	if from <= prev.Time {
		from = prev.Time + 1
	}
	to := from + int64(params.MaxKernelSearchWindow/time.Second)

	s.attempts.Add(1)
	hit, err := s.searchKernel(searchCtx, prev, bits, candidates, from, to)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return false, nil
		}
		return false, err
	}
	if hit == nil {
		return false, nil
	}
	if s.cfg.Chain.StakeSeen(hit) {
		log.Debugf("Kernel %v at time %d was already staked",
			hit.Input.OutPoint, hit.Time)
		return false, nil
	}

	var kernel *Candidate
	for _, c := range candidates {
		if c.OutPoint == hit.Input.OutPoint {
			kernel = c
			break
		}
	}

	block, tmpl, err := s.createBlock(hit, kernel, candidates)
	if err != nil {
		return false, err
	}
	if !s.submitBlock(block) {
		return false, nil
	}

	s.successes.Add(1)
	s.rewards.Add(tmpl.Reward)
	return true, nil
}

// stakeBlocks is the controller loop.  It retries after a miss with an
// exponential backoff that resets on every accepted block.
//
// It must be run as a goroutine.
func (s *Staker) stakeBlocks(ctx context.Context) {
	log.Tracef("Staker started")

	backoff := minBackoff
	timer := time.NewTimer(0)
	defer timer.Stop()

out:
	for {
		select {
		case <-s.quit:
			break out
		case <-timer.C:
		}

		staked := false
		if s.cfg.IsCurrent == nil || s.cfg.IsCurrent() {
			var err error
			staked, err = s.tryStake(ctx)
			if err != nil {
				log.Errorf("Stake attempt failed: %v", err)
			}
		}

		if staked {
			backoff = minBackoff
		} else {
			backoff = nextBackoff(backoff)
		}
		timer.Reset(backoff)
	}

	s.wg.Done()
	log.Tracef("Staker stopped")
}

// Start begins the staking process.  Calling this function when the staker
// has already been started will have no effect.
//
// This function is safe for concurrent access.
func (s *Staker) Start() {
	s.Lock()
	defer s.Unlock()

	if s.started {
		return
	}

	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())
	s.quit = make(chan struct{})
	s.wg.Add(1)
	go s.stakeBlocks(ctx)

	s.started = true
	log.Infof("Staker started with %d workers", s.numWorkers)
}

// Stop gracefully stops the staking process by signalling the controller and
// any kernel search to quit.  Calling this function when the staker has not
// already been started will have no effect.
//
// This function is safe for concurrent access.
func (s *Staker) Stop() {
	s.Lock()
	defer s.Unlock()

	if !s.started {
		return
	}

	s.cancel()
	close(s.quit)
	s.wg.Wait()
	s.started = false
	log.Infof("Staker stopped")
}

// IsStaking returns whether or not the staker has been started.
//
// This function is safe for concurrent access.
func (s *Staker) IsStaking() bool {
	s.Lock()
	defer s.Unlock()

	return s.started
}

// Stats returns a copy of the staking counters.
//
// This function is safe for concurrent access.
func (s *Staker) Stats() Stats {
	return Stats{
		Attempts:  s.attempts.Load(),
		Successes: s.successes.Load(),
		Rewards:   s.rewards.Load(),
	}
}

// New returns a new instance of a staker for the provided configuration.
// Use Start to begin the staking process.  See the documentation for Staker
// type for more details.
func New(cfg *Config) (*Staker, error) {
	if cfg.PayScript != nil && !cfg.ChainParams.ColdStaking {
		return nil, fmt.Errorf("cold staking is not permitted on %s",
			cfg.ChainParams.Name)
	}

	numWorkers := cfg.NumWorkers
	if numWorkers <= 0 {
		numWorkers = defaultNumWorkers
	}
	return &Staker{
		g:          cfg.BlockTemplateGenerator,
		cfg:        *cfg,
		numWorkers: numWorkers,
		inFlight:   strset.New(),
	}, nil
}

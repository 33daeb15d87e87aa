// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

// Package miner implements the background proof-of-work task (C5): pick a
// mineable election, snapshot a batch of ballots and the tip under lock,
// seal a block outside the lock, then commit it back under lock.
package miner

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/blockvote/ledger/internal/log"
	"github.com/blockvote/ledger/internal/votechain"
	"github.com/blockvote/ledger/internal/votecrypto"
	"github.com/blockvote/ledger/internal/votestate"
)

// idlePoll is how long the miner sleeps between polls when no election has
// enough pending ballots to seal a block.
const idlePoll = time.Second

// Broadcaster fans a newly mined block out to peers.
type Broadcaster interface {
	BroadcastBlock(block votechain.Block)
}

// Notifier is told about mining start/stop so the observability channel can
// push a fresh node-info frame.
type Notifier interface {
	NotifyStateChanged()
}

// Stats tracks proof-of-work statistics, in the spirit of the teacher's
// PoWStats (consensus/equa/pow.go), read through Miner.Stats.
type Stats struct {
	mu             sync.Mutex
	BlocksMined    uint64
	TotalAttempts  uint64
	LastSolveTime  time.Duration
}

func (s *Stats) record(attempts uint64, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BlocksMined++
	s.TotalAttempts += attempts
	s.LastSolveTime = elapsed
}

// Snapshot returns a copy of the current stats.
func (s *Stats) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{BlocksMined: s.BlocksMined, TotalAttempts: s.TotalAttempts, LastSolveTime: s.LastSolveTime}
}

// Miner is the long-lived background task described in spec.md §4.5.
type Miner struct {
	state       *votestate.State
	broadcaster Broadcaster
	notifier    Notifier
	digest      votecrypto.Digest
	minedBy     string
	stats       Stats
	rng         *rand.Rand
	rngMu       sync.Mutex
}

// New builds a Miner identified to the rest of the network as minedBy (the
// node's own address, per spec.md §9's "this node's identity").
func New(state *votestate.State, broadcaster Broadcaster, notifier Notifier, digest votecrypto.Digest, minedBy string) *Miner {
	return &Miner{
		state:       state,
		broadcaster: broadcaster,
		notifier:    notifier,
		digest:      digest,
		minedBy:     minedBy,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Stats returns a snapshot of the miner's proof-of-work statistics.
func (m *Miner) Stats() Stats {
	return m.stats.Snapshot()
}

// Run executes the miner loop until ctx is cancelled. It is meant to be
// started on its own goroutine.
func (m *Miner) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		snap, ok := m.pickMineable()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(idlePoll):
			}
			continue
		}

		height := len(snap.Election.Chain)
		m.state.Lock(func(s *votestate.State) { s.SetMiningHeight(&height) })
		m.notifier.NotifyStateChanged()

		log.Info("started mining block", "election", snap.Election.ID, "height", height)
		block, attempts := m.seal(ctx, snap)
		if block == nil {
			// Cancelled mid-seal.
			m.state.Lock(func(s *votestate.State) { s.SetMiningHeight(nil) })
			m.notifier.NotifyStateChanged()
			return
		}
		log.Info("finished mining block", "election", snap.Election.ID, "height", height)

		committed := m.commit(snap.Election.ID, *block, snap.Ballots)
		m.state.Lock(func(s *votestate.State) { s.SetMiningHeight(nil) })
		m.notifier.NotifyStateChanged()
		_ = attempts

		if committed {
			m.broadcaster.BroadcastBlock(*block)
		}
	}
}

// pickMineable chooses, uniformly at random, an election whose mempool holds
// at least BlockBallotCount entries, and snapshots it (spec.md §4.5 steps 1-2).
func (m *Miner) pickMineable(
) (votestate.Snapshot, bool) {
	var (
		snap  votestate.Snapshot
		found bool
	)
	m.state.Lock(func(s *votestate.State) {
		var candidates []string
		for _, id := range s.ElectionIDs() {
			if s.Mempool(id).Len() >= votechain.BlockBallotCount {
				candidates = append(candidates, id)
			}
		}
		if len(candidates) == 0 {
			return
		}
		m.rngMu.Lock()
		chosen := candidates[m.rng.Intn(len(candidates))]
		m.rngMu.Unlock()
		snap = s.SnapshotForMining(chosen, votechain.BlockBallotCount)
		found = true
	})
	return snap, found
}

// seal performs proof-of-work outside the lock: increment the nonce until
// VerifyBlock holds, or ctx is cancelled.
func (m *Miner) seal(ctx context.Context, snap votestate.Snapshot) (*votechain.Block, uint64) {
	start := time.Now()
	prevHash, err := votechain.HashBlock(snap.Tip, m.digest)
	if err != nil {
		return nil, 0
	}
	block := votechain.CreateBlock(snap.Election.ID, snap.Ballots, prevHash, snap.Tip.Header.ID, m.minedBy)

	var attempts uint64
	for !votechain.VerifyBlock(block, m.digest) {
		select {
		case <-ctx.Done():
			return nil, attempts
		default:
		}
		block.Header.Nonce++
		attempts++
	}
	m.stats.record(attempts, time.Since(start))
	return &block, attempts
}

// commit re-validates under the lock that the tip snapshotted in step 2 is
// still the tip before appending — a deliberate correction of the original
// design's unconditional append, per spec.md §9's "corrected design
// re-validates under the lock in step 4 and discards on mismatch". It
// reports whether the block was appended.
func (m *Miner) commit(electionID string, block votechain.Block, ballots []votechain.BallotEnvelope) bool {
	var committed bool
	m.state.Lock(func(s *votestate.State) {
		election, ok := s.Election(electionID)
		if !ok {
			return
		}
		if election.Tip().Header.ID != block.Header.PreviousID {
			log.Warn("discarding mined block: tip moved during proof-of-work",
				"election", electionID, "expectedPrevious", block.Header.PreviousID, "actualTip", election.Tip().Header.ID)
			return
		}
		mempool := s.Mempool(electionID)
		for _, env := range ballots {
			mempool.Remove(env.Ballot.ID)
		}
		s.AppendBlock(electionID, block)
		committed = true
	})
	return committed
}

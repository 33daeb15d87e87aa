// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package votestate

import (
	"sync"

	"github.com/blockvote/ledger/internal/votechain"
)

// State is the node's single piece of shared mutable state: every known
// election, its mempool, and the peer list, guarded by one coarse mutex per
// spec.md §5. There is no other synchronisation primitive in the core.
type State struct {
	mu sync.Mutex

	elections map[string]votechain.Election
	mempools  map[string]*Mempool
	peers     []string // insertion-ordered peer addresses; duplicates never inserted

	isMiner      bool
	miningHeight *int // nil when idle, otherwise the chain length being extended
}

// New returns an empty State, optionally starting life as a miner.
func New(isMiner bool) *State {
	return &State{
		elections: make(map[string]votechain.Election),
		mempools:  make(map[string]*Mempool),
		isMiner:   isMiner,
	}
}

// Lock performs fn as a single critical section. Every multi-field read or
// mutation goes through this so that no caller ever observes or leaves the
// three collections in an inconsistent combination. fn must not block on
// anything that itself needs the lock (in particular: no proof-of-work, no
// network I/O) — spec.md §5 requires the lock to guard only bounded
// sections.
func (s *State) Lock(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// The methods below assume the caller is already inside a Lock callback; they
// exist to give that callback a readable vocabulary instead of reaching into
// the maps directly.

// ElectionKnown reports whether id has been admitted.
func (s *State) ElectionKnown(id string) bool {
	_, ok := s.elections[id]
	return ok
}

// Election returns the election and whether it is known.
func (s *State) Election(id string) (votechain.Election, bool) {
	e, ok := s.elections[id]
	return e, ok
}

// InsertElection registers a brand-new election and its empty mempool. The
// caller must have already checked ElectionKnown is false.
func (s *State) InsertElection(e votechain.Election) {
	s.elections[e.ID] = e
	s.mempools[e.ID] = NewMempool()
}

// AppendBlock appends block to the named election's chain.
func (s *State) AppendBlock(electionID string, block votechain.Block) {
	e := s.elections[electionID]
	e.Chain = append(e.Chain, block)
	s.elections[electionID] = e
}

// Mempool returns the mempool for a known election (nil if unknown).
func (s *State) Mempool(electionID string) *Mempool {
	return s.mempools[electionID]
}

// ElectionIDs returns a copy of the known-election-id set, safe to
// range over after the lock is released since the caller only needs ids.
func (s *State) ElectionIDs() []string {
	ids := make([]string, 0, len(s.elections))
	for id := range s.elections {
		ids = append(ids, id)
	}
	return ids
}

// AllElections returns a copy of every known election, deep enough that the
// caller may read (but not mutate through) it outside the lock: chains are
// appended-to, never mutated in place, so sharing the slice header here is
// safe as long as callers never write to indices of the returned slices.
func (s *State) AllElections() []votechain.Election {
	out := make([]votechain.Election, 0, len(s.elections))
	for _, e := range s.elections {
		out = append(out, e)
	}
	return out
}

// Peers returns a copy of the current peer list.
func (s *State) Peers() []string {
	out := make([]string, len(s.peers))
	copy(out, s.peers)
	return out
}

// AddPeer appends addr to the peer list if not already present, preserving
// insertion order. Reports whether it was newly added.
func (s *State) AddPeer(addr string) bool {
	for _, p := range s.peers {
		if p == addr {
			return false
		}
	}
	s.peers = append(s.peers, addr)
	return true
}

// IsMiner reports whether this node is configured to mine.
func (s *State) IsMiner() bool {
	return s.isMiner
}

// MiningHeight returns the height currently being mined, or nil if idle.
func (s *State) MiningHeight() *int {
	return s.miningHeight
}

// SetMiningHeight records the chain length the miner is currently extending
// towards, or clears it (nil) when the miner goes idle.
func (s *State) SetMiningHeight(height *int) {
	s.miningHeight = height
}

// Snapshot is a deep-enough-to-mine copy taken under the lock so the miner
// can work outside it, per spec.md §4.5 step 2.
type Snapshot struct {
	Election    votechain.Election
	Tip         votechain.Block
	Ballots     []votechain.BallotEnvelope
}

// SnapshotForMining copies the first count ballots of electionID's
// mempool (in insertion order) and the chain's current tip. The caller must
// already have verified the mempool holds enough ballots.
func (s *State) SnapshotForMining(electionID string, count int) Snapshot {
	election := s.elections[electionID]
	ballots := s.mempools[electionID].First(count)

	// Deep-copy so mutation of the mempool/chain during mining cannot alias
	// into the snapshot the miner works from outside the lock.
	ballotsCopy := make([]votechain.BallotEnvelope, len(ballots))
	copy(ballotsCopy, ballots)

	chainCopy := make([]votechain.Block, len(election.Chain))
	copy(chainCopy, election.Chain)
	electionCopy := election
	electionCopy.Chain = chainCopy

	return Snapshot{
		Election: electionCopy,
		Tip:      chainCopy[len(chainCopy)-1],
		Ballots:  ballotsCopy,
	}
}

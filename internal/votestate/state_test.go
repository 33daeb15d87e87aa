// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package votestate

import (
	"testing"

	"github.com/blockvote/ledger/internal/votechain"
	"github.com/stretchr/testify/require"
)

func TestInsertElectionCreatesEmptyMempool(t *testing.T) {
	s := New(false)
	genesis := votechain.CreateGenesis("E", []string{"A", "B"}, []string{"vk1"})
	election := votechain.CreateChain(genesis)

	var known bool
	s.Lock(func(s *State) {
		known = s.ElectionKnown(election.ID)
		s.InsertElection(election)
	})
	require.False(t, known)

	s.Lock(func(s *State) {
		require.True(t, s.ElectionKnown(election.ID))
		require.Equal(t, 0, s.Mempool(election.ID).Len())
	})
}

func TestMempoolInsertionOrderPreserved(t *testing.T) {
	m := NewMempool()
	for i := 0; i < 5; i++ {
		m.Insert(votechain.BallotEnvelope{Ballot: votechain.Ballot{ID: string(rune('a' + i))}})
	}
	first3 := m.First(3)
	require.Equal(t, "a", first3[0].Ballot.ID)
	require.Equal(t, "b", first3[1].Ballot.ID)
	require.Equal(t, "c", first3[2].Ballot.ID)
}

func TestMempoolRemoveToleratesMissing(t *testing.T) {
	m := NewMempool()
	m.Remove("does-not-exist") // must not panic
	m.Insert(votechain.BallotEnvelope{Ballot: votechain.Ballot{ID: "x"}})
	m.Remove("x")
	require.Equal(t, 0, m.Len())
	m.Remove("x") // second remove tolerated
}

func TestAddPeerDeduplicatesAndPreservesOrder(t *testing.T) {
	s := New(false)
	s.Lock(func(s *State) {
		require.True(t, s.AddPeer("http://localhost:5001"))
		require.True(t, s.AddPeer("http://localhost:5002"))
		require.False(t, s.AddPeer("http://localhost:5001"))
	})
	require.Equal(t, []string{"http://localhost:5001", "http://localhost:5002"}, s.Peers())
}

func TestSnapshotForMiningDeepCopiesMempoolAndChain(t *testing.T) {
	s := New(true)
	genesis := votechain.CreateGenesis("E", []string{"A", "B"}, []string{"vk1"})
	election := votechain.CreateChain(genesis)

	s.Lock(func(s *State) {
		s.InsertElection(election)
		for i := 0; i < votechain.BlockBallotCount; i++ {
			s.Mempool(election.ID).Insert(votechain.BallotEnvelope{
				Ballot: votechain.Ballot{ID: string(rune('a' + i)), Election: election.ID},
			})
		}
	})

	var snap Snapshot
	s.Lock(func(s *State) {
		snap = s.SnapshotForMining(election.ID, votechain.BlockBallotCount)
	})
	require.Len(t, snap.Ballots, votechain.BlockBallotCount)
	require.Equal(t, genesis.Header.ID, snap.Tip.Header.ID)

	// Mutating state after the snapshot must not affect it.
	s.Lock(func(s *State) {
		s.Mempool(election.ID).Insert(votechain.BallotEnvelope{Ballot: votechain.Ballot{ID: "extra"}})
	})
	require.Len(t, snap.Ballots, votechain.BlockBallotCount)
}

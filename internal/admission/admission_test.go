// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package admission

import (
	"context"
	"sync"
	"testing"

	"github.com/blockvote/ledger/internal/votechain"
	"github.com/blockvote/ledger/internal/votecrypto"
	"github.com/blockvote/ledger/internal/votestate"
	"github.com/stretchr/testify/require"
)

type recordingBroadcaster struct {
	mu        sync.Mutex
	elections int
	ballots   int
	blocks    int
}

func (r *recordingBroadcaster) BroadcastElection(votechain.Election) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.elections++
}

func (r *recordingBroadcaster) BroadcastBallot(votechain.BallotEnvelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ballots++
}

func (r *recordingBroadcaster) BroadcastBlock(votechain.Block) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks++
}

type noopNotifier struct{}

func (noopNotifier) NotifyStateChanged() {}

func newTestEngine() (*Engine, *votestate.State, *recordingBroadcaster) {
	s := votestate.New(false)
	b := &recordingBroadcaster{}
	return New(s, b, noopNotifier{}, votecrypto.XXHashDigest{}), s, b
}

func TestNewElectionAndCastBallotRoundTrip(t *testing.T) {
	e, s, b := newTestEngine()
	ctx := context.Background()

	result, err := e.NewElection(ctx, "mayor", []string{"alice", "bob"}, 2)
	require.NoError(t, err)
	require.Len(t, result.SigningKeys, 2)
	require.Len(t, result.VerifyingKeys, 2)
	require.Equal(t, 1, b.elections)

	env, err := e.CastBallot(ctx, result.SigningKeys[0], []string{"alice", "bob"}, result.Election.ID)
	require.NoError(t, err)
	require.True(t, votechain.VerifySignature(env.Ballot, env.Signature, env.Ballot.VerifyingKey))
	require.Equal(t, 1, b.ballots)

	s.Lock(func(s *votestate.State) {
		require.Equal(t, 1, s.Mempool(result.Election.ID).Len())
	})
}

func TestCastBallotRejectsUnknownElection(t *testing.T) {
	e, _, _ := newTestEngine()
	_, err := e.CastBallot(context.Background(), "deadbeef", []string{"alice"}, "no-such-election")
	require.ErrorIs(t, err, ErrElectionUnknown)
}

func TestCastBallotRejectsIneligibleKey(t *testing.T) {
	e, _, _ := newTestEngine()
	result, err := e.NewElection(context.Background(), "mayor", []string{"alice"}, 1)
	require.NoError(t, err)

	signing, _, err := votecrypto.GenerateKeypairs(1)
	require.NoError(t, err)

	_, err = e.CastBallot(context.Background(), signing[0], []string{"alice"}, result.Election.ID)
	require.ErrorIs(t, err, ErrKeyNotEligible)
}

func TestCastBallotRejectsReusedKey(t *testing.T) {
	e, _, _ := newTestEngine()
	result, err := e.NewElection(context.Background(), "mayor", []string{"alice"}, 1)
	require.NoError(t, err)

	_, err = e.CastBallot(context.Background(), result.SigningKeys[0], []string{"alice"}, result.Election.ID)
	require.NoError(t, err)

	_, err = e.CastBallot(context.Background(), result.SigningKeys[0], []string{"alice"}, result.Election.ID)
	require.ErrorIs(t, err, ErrKeyAlreadyUsed)
}

func TestAdmitBallotSilentlyDropsInvalidSignature(t *testing.T) {
	e, s, b := newTestEngine()
	result, err := e.NewElection(context.Background(), "mayor", []string{"alice"}, 1)
	require.NoError(t, err)

	forged := votechain.BallotEnvelope{
		Ballot: votechain.Ballot{
			ID:           votechain.NewID(),
			Election:     result.Election.ID,
			Candidates:   []string{"alice"},
			VerifyingKey: result.VerifyingKeys[0],
		},
		Signature: "not-a-real-signature",
	}
	e.AdmitBallot(context.Background(), forged)

	s.Lock(func(s *votestate.State) {
		require.Equal(t, 0, s.Mempool(result.Election.ID).Len())
	})
	require.Equal(t, 0, b.ballots)
}

func TestAdmitBlockRemovesBallotsFromTheElectionsOwnMempool(t *testing.T) {
	e, s, b := newTestEngine()
	result, err := e.NewElection(context.Background(), "mayor", []string{"alice"}, 1)
	require.NoError(t, err)

	env, err := e.CastBallot(context.Background(), result.SigningKeys[0], []string{"alice"}, result.Election.ID)
	require.NoError(t, err)

	var genesis votechain.Block
	s.Lock(func(s *votestate.State) {
		election, _ := s.Election(result.Election.ID)
		genesis = election.Tip()
	})

	digest := votecrypto.XXHashDigest{}
	prevHash, err := votechain.HashBlock(genesis, digest)
	require.NoError(t, err)
	block := votechain.CreateBlock(result.Election.ID, []votechain.BallotEnvelope{*env}, prevHash, genesis.Header.ID, "http://peer")
	for !votechain.VerifyBlock(block, digest) {
		block.Header.Nonce++
	}

	e.AdmitBlock(context.Background(), block)

	s.Lock(func(s *votestate.State) {
		require.Equal(t, 0, s.Mempool(result.Election.ID).Len())
		election, _ := s.Election(result.Election.ID)
		require.Len(t, election.Chain, 2)
	})
	require.Equal(t, 1, b.blocks)
}

func TestAdmitBlockRejectsWrongPreviousID(t *testing.T) {
	e, s, b := newTestEngine()
	result, err := e.NewElection(context.Background(), "mayor", []string{"alice"}, 1)
	require.NoError(t, err)

	digest := votecrypto.XXHashDigest{}
	block := votechain.CreateBlock(result.Election.ID, nil, "deadbeef", "not-the-tip", "http://peer")
	for !votechain.VerifyBlock(block, digest) {
		block.Header.Nonce++
	}

	e.AdmitBlock(context.Background(), block)

	s.Lock(func(s *votestate.State) {
		election, _ := s.Election(result.Election.ID)
		require.Len(t, election.Chain, 1)
	})
	require.Equal(t, 0, b.blocks)
}

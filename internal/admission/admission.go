// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

// Package admission implements the validation and ingestion of externally
// received elections, ballots, and blocks, and the two local-origination
// operations (new election, cast ballot). Every exported method here is the
// single funnel spec.md §4.4 describes: consult votechain predicates, mutate
// votestate under its lock, then hand off to the broadcaster asynchronously.
package admission

import (
	"context"
	"errors"

	"github.com/blockvote/ledger/internal/log"
	"github.com/blockvote/ledger/internal/votechain"
	"github.com/blockvote/ledger/internal/votecrypto"
	"github.com/blockvote/ledger/internal/votestate"
)

// ClientError is returned by the local-origination paths (NewElection,
// CastBallot) when a precondition is violated. Per spec.md §7 it never
// carries more detail than the generic reason below to the HTTP layer.
type ClientError struct {
	Reason string
}

func (e *ClientError) Error() string { return e.Reason }

var (
	ErrElectionUnknown  = &ClientError{Reason: "election unknown"}
	ErrKeyNotEligible   = &ClientError{Reason: "verifying key not eligible for this election"}
	ErrKeyAlreadyUsed   = &ClientError{Reason: "verifying key already cast a ballot"}
	ErrMissingFields    = &ClientError{Reason: "missing required fields"}
)

// Broadcaster fans an admitted artifact out to known peers. Implementations
// must not block the admission path; they run the fan-out on their own
// detached goroutine (spec.md §4.6).
type Broadcaster interface {
	BroadcastElection(election votechain.Election)
	BroadcastBallot(env votechain.BallotEnvelope)
	BroadcastBlock(block votechain.Block)
}

// Notifier is the observability collaborator: it is told about state
// transitions so it can push a fresh node-info frame (spec.md §6).
type Notifier interface {
	NotifyStateChanged()
}

// Engine is the admission engine (C4): it owns no state of its own beyond
// its collaborators, so it can be constructed once and shared by the HTTP
// handlers and the miner.
type Engine struct {
	state       *votestate.State
	broadcaster Broadcaster
	notifier    Notifier
	digest      votecrypto.Digest
}

// New builds an admission Engine.
func New(state *votestate.State, broadcaster Broadcaster, notifier Notifier, digest votecrypto.Digest) *Engine {
	return &Engine{state: state, broadcaster: broadcaster, notifier: notifier, digest: digest}
}

// AdmitElection ingests an externally-received Election. Re-delivery of an
// already-known election is a no-op (idempotent admission, spec.md §8).
func (e *Engine) AdmitElection(ctx context.Context, election votechain.Election) {
	var isNew bool
	e.state.Lock(func(s *votestate.State) {
		if s.ElectionKnown(election.ID) {
			return
		}
		s.InsertElection(election)
		isNew = true
	})
	if !isNew {
		return
	}
	log.Info("received election", "id", election.ID, "label", election.Label)
	e.notifier.NotifyStateChanged()
	e.broadcaster.BroadcastElection(election)
}

// AdmitBallot ingests an externally-received ballot envelope. Any admission
// failure is a silent drop: no error is returned, no log line is written
// (spec.md §4.4/§7).
func (e *Engine) AdmitBallot(ctx context.Context, env votechain.BallotEnvelope) {
	var accepted bool
	e.state.Lock(func(s *votestate.State) {
		election, ok := s.Election(env.Ballot.Election)
		if !ok {
			return
		}
		mempool := s.Mempool(env.Ballot.Election)
		if mempool.Has(env.Ballot.ID) {
			return
		}
		if !votechain.KeyInElection(env.Ballot.VerifyingKey, election) {
			return
		}
		if votechain.KeyAlreadyUsed(env.Ballot.VerifyingKey, election, mempool.All()) {
			return
		}
		if !votechain.VerifySignature(env.Ballot, env.Signature, env.Ballot.VerifyingKey) {
			return
		}
		mempool.Insert(env)
		accepted = true
	})
	if !accepted {
		return
	}
	log.Info("received ballot", "id", env.Ballot.ID, "election", env.Ballot.Election)
	e.broadcaster.BroadcastBallot(env)
}

// AdmitBlock ingests an externally-received block. Any admission failure is
// a silent drop. Accepting a block only ever appends it: fork resolution is
// out of scope (spec.md §1), so a block whose previous_id does not match the
// local tip is simply rejected rather than triggering a reorganisation.
func (e *Engine) AdmitBlock(ctx context.Context, block votechain.Block) {
	var accepted bool
	e.state.Lock(func(s *votestate.State) {
		electionID := block.Header.Election
		election, ok := s.Election(electionID)
		if !ok {
			return
		}
		if !votechain.VerifyBlock(block, e.digest) {
			return
		}
		for _, existing := range election.Chain {
			if existing.Header.ID == block.Header.ID {
				return
			}
		}
		if election.Tip().Header.ID != block.Header.PreviousID {
			return
		}

		s.AppendBlock(electionID, block)
		mempool := s.Mempool(electionID)
		for _, env := range block.Ballots {
			mempool.Remove(env.Ballot.ID)
		}
		accepted = true
	})
	if !accepted {
		return
	}
	log.Info("received block", "id", block.Header.ID, "election", block.Header.Election)
	e.broadcaster.BroadcastBlock(block)
}

// NewElectionResult is the election created by NewElection together with its
// key material.
type NewElectionResult struct {
	Election      votechain.Election
	SigningKeys   []string
	VerifyingKeys []string
}

// NewElection originates an election locally: generates ballot_count key
// pairs, builds and admits the genesis, and returns the key material to the
// caller. The signing keys never leave this return value.
func (e *Engine) NewElection(ctx context.Context, label string, candidates []string, ballotCount int) (*NewElectionResult, error) {
	if label == "" || len(candidates) == 0 || ballotCount <= 0 {
		return nil, ErrMissingFields
	}

	signing, verifying, err := votecrypto.GenerateKeypairs(ballotCount)
	if err != nil {
		return nil, errors.New("key generation failed")
	}

	genesis := votechain.CreateGenesis(label, candidates, verifying)
	election := votechain.CreateChain(genesis)

	e.state.Lock(func(s *votestate.State) {
		s.InsertElection(election)
	})

	log.Info("created election", "id", election.ID, "label", label)
	e.notifier.NotifyStateChanged()
	e.broadcaster.BroadcastElection(election)

	return &NewElectionResult{Election: election, SigningKeys: signing, VerifyingKeys: verifying}, nil
}

// CastBallot originates a ballot locally: derives the verifying key from the
// signing key, runs the same eligibility checks as AdmitBallot, then
// constructs, signs, and admits the ballot.
func (e *Engine) CastBallot(ctx context.Context, signingKey string, candidates []string, electionID string) (*votechain.BallotEnvelope, error) {
	if signingKey == "" || len(candidates) == 0 || electionID == "" {
		return nil, ErrMissingFields
	}

	verifyingKey, err := votecrypto.VerifyingKeyFromSigningKey(signingKey)
	if err != nil {
		return nil, ErrMissingFields
	}

	var env *votechain.BallotEnvelope
	var admitErr error
	e.state.Lock(func(s *votestate.State) {
		election, ok := s.Election(electionID)
		if !ok {
			admitErr = ErrElectionUnknown
			return
		}
		if !votechain.KeyInElection(verifyingKey, election) {
			admitErr = ErrKeyNotEligible
			return
		}
		mempool := s.Mempool(electionID)
		if votechain.KeyAlreadyUsed(verifyingKey, election, mempool.All()) {
			admitErr = ErrKeyAlreadyUsed
			return
		}

		ballot := votechain.CreateBallot(electionID, candidates, verifyingKey)
		signature, signErr := votechain.SignBallot(ballot, signingKey)
		if signErr != nil {
			admitErr = errors.New("signing failed")
			return
		}
		built := votechain.BallotEnvelope{Ballot: ballot, Signature: signature}
		mempool.Insert(built)
		env = &built
	})
	if admitErr != nil {
		return nil, admitErr
	}

	log.Info("cast ballot", "id", env.Ballot.ID, "election", electionID)
	e.broadcaster.BroadcastBallot(*env)
	return env, nil
}

// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package votechain

import (
	"time"

	"github.com/google/uuid"
)

// NewID produces a random identifier for an election, block, or ballot.
func NewID() string {
	return uuid.New().String()
}

// CreateGenesis builds a genesis block for a new election with a freshly
// generated id.
func CreateGenesis(label string, candidates, verifyingKeys []string) Block {
	return Block{
		Header: BlockHeader{
			ID:            NewID(),
			Timestamp:     float64(time.Now().UnixNano()) / 1e9,
			Label:         label,
			Candidates:    candidates,
			VerifyingKeys: verifyingKeys,
			Nonce:         0,
		},
		Ballots: []BallotEnvelope{},
	}
}

// CreateChain wraps a genesis block as a new, single-block Election.
func CreateChain(genesis Block) Election {
	return Election{
		ID:    genesis.Header.ID,
		Label: genesis.Header.Label,
		Chain: []Block{genesis},
	}
}

// CreateBlock builds an unsealed regular block (nonce 0) extending the given
// previous block, carrying ballots.
func CreateBlock(election string, ballots []BallotEnvelope, previousHash, previousID, minedBy string) Block {
	return Block{
		Header: BlockHeader{
			ID:           NewID(),
			Timestamp:    float64(time.Now().UnixNano()) / 1e9,
			Election:     election,
			PreviousID:   previousID,
			PreviousHash: previousHash,
			MinedBy:      minedBy,
			Nonce:        0,
		},
		Ballots: ballots,
	}
}

// CreateBallot builds a ballot with a freshly generated id.
func CreateBallot(election string, candidates []string, verifyingKey string) Ballot {
	return Ballot{
		ID:           NewID(),
		Election:     election,
		Candidates:   candidates,
		VerifyingKey: verifyingKey,
	}
}

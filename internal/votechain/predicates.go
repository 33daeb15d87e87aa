// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package votechain

import (
	"strings"

	"github.com/blockvote/ledger/internal/votecrypto"
)

// VerifyBlock reports whether a regular block's digest begins with
// MiningDifficulty hex zero nibbles. This is the only structural check
// performed on a received block: it does not revalidate ballot signatures,
// nor check that previous_hash actually hashes the local tip, nor that the
// ballots were drawn from any known mempool — spec.md §4.2/§9 call this out
// as an intentional simplification of the core, not an oversight.
func VerifyBlock(block Block, digest votecrypto.Digest) bool {
	hash, err := HashBlock(block, digest)
	if err != nil {
		return false
	}
	return strings.HasPrefix(hash, strings.Repeat("0", MiningDifficulty))
}

// HashBlock computes the canonical digest of a block using the given
// pluggable Digest implementation.
func HashBlock(block Block, digest votecrypto.Digest) (string, error) {
	canon, err := Canonical(block)
	if err != nil {
		return "", err
	}
	return digest.Sum(canon), nil
}

// KeyInElection reports whether a verifying key appears in the election's
// genesis key list.
func KeyInElection(verifyingKey string, election Election) bool {
	if len(election.Chain) == 0 {
		return false
	}
	for _, vk := range election.Chain[0].Header.VerifyingKeys {
		if vk == verifyingKey {
			return true
		}
	}
	return false
}

// KeyAlreadyUsed reports whether a verifying key has already cast a ballot,
// either confirmed in the chain or pending in the mempool.
func KeyAlreadyUsed(verifyingKey string, election Election, mempool map[string]BallotEnvelope) bool {
	for _, block := range election.Chain {
		for _, env := range block.Ballots {
			if env.Ballot.VerifyingKey == verifyingKey {
				return true
			}
		}
	}
	for _, env := range mempool {
		if env.Ballot.VerifyingKey == verifyingKey {
			return true
		}
	}
	return false
}

// VerifySignature reports whether signature is a valid ECDSA signature over
// the canonical serialisation of ballot by verifyingKey. It never panics or
// propagates a parse error; any failure is reported as false.
func VerifySignature(ballot Ballot, signature, verifyingKey string) bool {
	canon, err := Canonical(ballot)
	if err != nil {
		return false
	}
	return votecrypto.Verify(canon, signature, verifyingKey)
}

// SignBallot signs the canonical serialisation of ballot with signingKey.
func SignBallot(ballot Ballot, signingKey string) (string, error) {
	canon, err := Canonical(ballot)
	if err != nil {
		return "", err
	}
	return votecrypto.Sign(canon, signingKey)
}

// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

// Package votechain holds the pure data model and constructors/predicates for
// elections, blocks, and ballots. Nothing in this package performs I/O or
// takes a lock; it is safe to call from any goroutine on independently owned
// values.
package votechain

// BlockHeader carries the fields common to every block. Genesis blocks only
// populate the genesis-specific fields; regular blocks only populate the
// regular-specific fields. Both shapes share one Go type so that a Block's
// JSON round-trips the same way regardless of kind, matching the canonical
// serialisation requirement in spec.md §3/§9.
type BlockHeader struct {
	ID        string  `json:"id"`
	Timestamp float64 `json:"timestamp"`
	Nonce     uint64  `json:"nonce"`

	// Genesis-only fields.
	Label         string   `json:"label,omitempty"`
	Candidates    []string `json:"candidates,omitempty"`
	VerifyingKeys []string `json:"verifying_keys,omitempty"`

	// Regular-block-only fields.
	Election     string `json:"election,omitempty"`
	PreviousID   string `json:"previous_id,omitempty"`
	PreviousHash string `json:"previous_hash,omitempty"`
	MinedBy      string `json:"mined_by,omitempty"`
}

// IsGenesis reports whether h is a genesis header (no previous block).
func (h BlockHeader) IsGenesis() bool {
	return h.PreviousID == "" && h.Election == ""
}

// Block is either a genesis block (empty Ballots) or a regular block (exactly
// BlockBallotCount ballots).
type Block struct {
	Header  BlockHeader     `json:"header"`
	Ballots []BallotEnvelope `json:"ballots"`
}

// Ballot is a single ranked-choice vote within one election.
type Ballot struct {
	ID            string   `json:"id"`
	Election      string   `json:"election"`
	Candidates    []string `json:"candidates"`
	VerifyingKey  string   `json:"verifying_key"`
}

// BallotEnvelope pairs a ballot with its signature.
type BallotEnvelope struct {
	Ballot    Ballot `json:"ballot"`
	Signature string `json:"signature"`
}

// Election (a.k.a. Blockchain) is an independent append-only chain of blocks.
type Election struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Chain []Block `json:"chain"`
}

// Tip returns the last block of the chain. Callers must only invoke this on
// an Election known to have a non-empty chain (an invariant maintained by
// every constructor and admission path in this module).
func (e *Election) Tip() Block {
	return e.Chain[len(e.Chain)-1]
}

// BlockBallotCount is the fixed number of ballots sealed into a regular block.
const BlockBallotCount = 4

// MiningDifficulty is the number of leading hex zero nibbles a regular
// block's digest must have.
const MiningDifficulty = 2

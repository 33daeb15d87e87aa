// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

// Package votestate holds the single in-memory State the node mutates: known
// elections, their per-election mempools, and the peer list, all guarded by
// one coarse mutex as required by spec.md §5.
package votestate

import "github.com/blockvote/ledger/internal/votechain"

// Mempool is an insertion-ordered map from ballot id to BallotEnvelope. It is
// grounded on the same map-plus-order-tracking shape the teacher's
// FairOrderer (consensus/equa/ordering.go) uses to keep arrival order
// authoritative rather than incidental to Go's randomized map iteration.
type Mempool struct {
	order   []string
	entries map[string]votechain.BallotEnvelope
}

// NewMempool returns an empty Mempool.
func NewMempool() *Mempool {
	return &Mempool{entries: make(map[string]votechain.BallotEnvelope)}
}

// Has reports whether id is already present.
func (m *Mempool) Has(id string) bool {
	_, ok := m.entries[id]
	return ok
}

// Insert adds env under its ballot id if not already present. It is a no-op
// if the id is already present, matching the idempotent-admission invariant.
func (m *Mempool) Insert(env votechain.BallotEnvelope) {
	id := env.Ballot.ID
	if _, ok := m.entries[id]; ok {
		return
	}
	m.entries[id] = env
	m.order = append(m.order, id)
}

// Remove deletes id if present; removing an absent id is tolerated (the
// miner and block admission may race to remove the same ballot).
func (m *Mempool) Remove(id string) {
	if _, ok := m.entries[id]; !ok {
		return
	}
	delete(m.entries, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of pending ballots.
func (m *Mempool) Len() int {
	return len(m.entries)
}

// First returns the first n ballots in insertion order. If fewer than n are
// present, all of them are returned.
func (m *Mempool) First(n int) []votechain.BallotEnvelope {
	if n > len(m.order) {
		n = len(m.order)
	}
	out := make([]votechain.BallotEnvelope, 0, n)
	for _, id := range m.order[:n] {
		out = append(out, m.entries[id])
	}
	return out
}

// All returns every pending ballot as a fresh map keyed by ballot id; map
// iteration does not follow insertion order (use First for that). The
// envelopes are value types and safe to read after the lock is released.
func (m *Mempool) All() map[string]votechain.BallotEnvelope {
	out := make(map[string]votechain.BallotEnvelope, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}

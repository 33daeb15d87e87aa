// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

// Package simulated assembles several complete nodes in one process, wired
// together over real HTTP on loopback listeners, for exercising gossip
// convergence end to end without a real deployment. It plays the same role
// the teacher's ethclient/simulated.Backend plays for contract tests: a
// disposable, fully-wired stand-in for the real network.
package simulated

import (
	"context"
	"net/http/httptest"
	"time"

	"github.com/blockvote/ledger/internal/admission"
	"github.com/blockvote/ledger/internal/api"
	"github.com/blockvote/ledger/internal/broadcast"
	"github.com/blockvote/ledger/internal/miner"
	"github.com/blockvote/ledger/internal/votecrypto"
	"github.com/blockvote/ledger/internal/votestate"
)

// Node is one fully-wired node running against an httptest.Server.
type Node struct {
	Server  *httptest.Server
	State   *votestate.State
	Engine  *admission.Engine
	Fanout  *broadcast.Fanout
	Hub     *api.Hub

	cancel context.CancelFunc
}

// Address is the base URL peers use to reach this node.
func (n *Node) Address() string {
	return n.Server.URL
}

// Network is a set of nodes seeded to each other, suitable for asserting
// gossip convergence (spec.md §8 scenario 6).
type Network struct {
	Nodes []*Node
}

// NewNetwork starts n nodes, those whose index is true in miners running a
// miner, all seeded to
// every other node's address up front (bypassing the real get_nodes exchange,
// since this harness exists to test admission/mining/broadcast, not peer
// discovery).
func NewNetwork(n int, miners map[int]bool) *Network {
	net := &Network{Nodes: make([]*Node, n)}

	for i := 0; i < n; i++ {
		isMiner := miners[i]
		state := votestate.New(isMiner)
		hub := api.NewHub(state)
		digest := votecrypto.XXHashDigest{}

		node := &Node{State: state, Hub: hub}

		srv := httptest.NewServer(nil)
		node.Server = srv

		fanout := broadcast.New(state, srv.URL)
		node.Fanout = fanout
		engine := admission.New(state, fanout, hub, digest)
		node.Engine = engine

		server := api.NewServer(state, engine, hub, nil)
		srv.Config.Handler = server.Handler()

		if isMiner {
			ctx, cancel := context.WithCancel(context.Background())
			node.cancel = cancel
			m := miner.New(state, fanout, hub, digest, srv.URL)
			go m.Run(ctx)
		}

		net.Nodes[i] = node
	}

	for i, node := range net.Nodes {
		node.State.Lock(func(s *votestate.State) {
			for j, peer := range net.Nodes {
				if i != j {
					s.AddPeer(peer.Address())
				}
			}
		})
	}

	return net
}

// Close tears down every node's server and miner goroutine.
func (net *Network) Close() {
	for _, node := range net.Nodes {
		if node.cancel != nil {
			node.cancel()
		}
		node.Server.Close()
	}
}

// AwaitConvergence polls every node's view of electionID until they all
// agree on the same chain length, or timeout elapses.
func (net *Network) AwaitConvergence(electionID string, wantLength int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		converged := true
		for _, node := range net.Nodes {
			var length int
			node.State.Lock(func(s *votestate.State) {
				if e, ok := s.Election(electionID); ok {
					length = len(e.Chain)
				}
			})
			if length != wantLength {
				converged = false
				break
			}
		}
		if converged {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}

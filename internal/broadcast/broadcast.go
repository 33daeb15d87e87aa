// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package broadcast

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/blockvote/ledger/internal/log"
	"github.com/blockvote/ledger/internal/votechain"
	"github.com/blockvote/ledger/internal/votestate"
)

// maxConcurrentFanOut bounds how many peer requests run at once, so a large
// peer list cannot exhaust file descriptors on one fan-out call.
const maxConcurrentFanOut = 8

// perPeerRate caps the combined rate of this node's outbound fan-out
// requests: one limiter is shared by all peers, smoothing bursts of ballot
// admission into a steadier outbound rate.
const perPeerRate = 20 // requests/sec

// warmUpDelay is how long the node waits after start-up before requesting
// peer lists from its seed peers (spec.md §4.6/§9).
const warmUpDelay = 2 * time.Second

// Fanout is the C6 broadcast/peer layer: it owns the peer list's I/O side
// (the list itself lives in votestate.State) and fans admitted artifacts out
// to every known peer, best-effort.
type Fanout struct {
	state   *votestate.State
	self    string
	client  *http.Client
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// New builds a Fanout. self is this node's own address, inserted into every
// outbound node-port header so peers can record it.
func New(state *votestate.State, self string) *Fanout {
	return &Fanout{
		state:   state,
		self:    self,
		client:  &http.Client{Timeout: 5 * time.Second},
		sem:     semaphore.NewWeighted(maxConcurrentFanOut),
		limiter: rate.NewLimiter(rate.Limit(perPeerRate), perPeerRate),
	}
}

// BroadcastElection fans an election out to every known peer via
// /receive_election. It schedules the fan-out on its own goroutine so the
// caller (admission) never blocks on peer I/O.
func (f *Fanout) BroadcastElection(election votechain.Election) {
	go f.fanOut("/receive_election", map[string]any{"election": election})
}

// BroadcastBallot fans a ballot envelope out via /receive_ballot.
func (f *Fanout) BroadcastBallot(env votechain.BallotEnvelope) {
	go f.fanOut("/receive_ballot", map[string]any{"ballot": env})
}

// BroadcastBlock fans a mined or received block out via /receive_block.
func (f *Fanout) BroadcastBlock(block votechain.Block) {
	go f.fanOut("/receive_block", map[string]any{"block": block})
}

func (f *Fanout) fanOut(path string, payload any) {
	var peers []string
	f.state.Lock(func(s *votestate.State) { peers = s.Peers() })
	body, err := json.Marshal(payload)
	if err != nil {
		log.Warn("broadcast: failed to encode payload", "path", path, "err", err)
		return
	}

	ctx := context.Background()
	for _, peer := range peers {
		peer := peer
		if err := f.sem.Acquire(ctx, 1); err != nil {
			return
		}
		go func() {
			defer f.sem.Release(1)
			if err := f.limiter.Wait(ctx); err != nil {
				return
			}
			f.unicast(peer, path, body)
		}()
	}
}

// unicast issues one best-effort POST. Failures are swallowed per spec.md
// §4.6: no retry, no backpressure, no error surfaced to the caller.
func (f *Fanout) unicast(peer, path string, body []byte) {
	req, err := http.NewRequest(http.MethodPost, peer+path, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "text/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()
}

// RequestPeerLists asks every seed peer for its known peer list via
// /get_nodes after a warm-up delay. Per spec.md §9 the returned lists are
// deliberately NOT merged into the local peer list — only the requester-side
// effect (the seed recording this node) matters in the current design.
func (f *Fanout) RequestPeerLists(ctx context.Context, seeds []string) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(warmUpDelay):
	}
	for _, seed := range seeds {
		seed := seed
		go f.requestPeerList(ctx, seed)
	}
}

func (f *Fanout) requestPeerList(ctx context.Context, seed string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, seed+"/get_nodes", nil)
	if err != nil {
		return
	}
	req.Header.Set("node-port", f.self)
	resp, err := f.client.Do(req)
	if err != nil {
		log.Debug("peer list request failed", "seed", seed, "err", err)
		return
	}
	defer resp.Body.Close()
	log.Debug("requested peer list", "seed", seed, "status", resp.StatusCode)
}

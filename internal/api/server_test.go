// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockvote/ledger/internal/admission"
	"github.com/blockvote/ledger/internal/votechain"
	"github.com/blockvote/ledger/internal/votecrypto"
	"github.com/blockvote/ledger/internal/votestate"
)

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastElection(votechain.Election)      {}
func (noopBroadcaster) BroadcastBallot(votechain.BallotEnvelope) {}
func (noopBroadcaster) BroadcastBlock(votechain.Block)            {}

func newTestServer() (*httptest.Server, *votestate.State) {
	state := votestate.New(false)
	engine := admission.New(state, noopBroadcaster{}, NewHub(state), votecrypto.XXHashDigest{})
	hub := NewHub(state)
	srv := NewServer(state, engine, hub, nil)
	return httptest.NewServer(srv.Handler()), state
}

func TestAliveReturns200(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/alive")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetNodesInsertsRequesterAddress(t *testing.T) {
	srv, state := newTestServer()
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/get_nodes", nil)
	require.NoError(t, err)
	req.Header.Set("node-port", "http://localhost:6000")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var peers []string
	state.Lock(func(s *votestate.State) { peers = s.Peers() })
	require.Contains(t, peers, "http://localhost:6000")
}

func TestNewElectionThenCastBallotEndToEnd(t *testing.T) {
	srv, state := newTestServer()
	defer srv.Close()

	newElectionBody, _ := json.Marshal(map[string]any{
		"label":        "mayor",
		"candidates":   []string{"alice", "bob"},
		"ballot_count": 4,
	})
	resp, err := http.Post(srv.URL+"/new_election", "application/json", bytes.NewReader(newElectionBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created newElectionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.Len(t, created.SigningKeys, 4)

	castBody, _ := json.Marshal(map[string]any{
		"signing_key": created.SigningKeys[0],
		"candidates":  []string{"alice", "bob"},
		"election":    created.ID,
	})
	castResp, err := http.Post(srv.URL+"/cast_ballot", "application/json", bytes.NewReader(castBody))
	require.NoError(t, err)
	defer castResp.Body.Close()
	require.Equal(t, http.StatusOK, castResp.StatusCode)

	var env votechain.BallotEnvelope
	require.NoError(t, json.NewDecoder(castResp.Body).Decode(&env))
	require.NotEmpty(t, env.Signature)

	state.Lock(func(s *votestate.State) {
		require.Equal(t, 1, s.Mempool(created.ID).Len())
	})

	// Second cast with the same signing key is a precondition violation.
	castResp2, err := http.Post(srv.URL+"/cast_ballot", "application/json", bytes.NewReader(castBody))
	require.NoError(t, err)
	defer castResp2.Body.Close()
	require.Equal(t, http.StatusBadRequest, castResp2.StatusCode)
}

func TestElectionRouteRejectsUnknownID(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/election/does-not-exist")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/blockvote/ledger/internal/admission"
	"github.com/blockvote/ledger/internal/votechain"
	"github.com/blockvote/ledger/internal/votestate"
)

// Server wires the admission engine, state, and observability hub to the
// HTTP request surface enumerated in spec.md §6.
type Server struct {
	state   *votestate.State
	engine  *admission.Engine
	hub     *Hub
	metrics http.Handler
	mux     *http.ServeMux
}

// NewServer builds a Server. If metrics is nil, /metrics serves the default
// Prometheus registry instead.
func NewServer(state *votestate.State, engine *admission.Engine, hub *Hub, metrics http.Handler) *Server {
	s := &Server{state: state, engine: engine, hub: hub, metrics: metrics}
	s.mux = http.NewServeMux()
	s.routes()
	return s
}

// Handler returns the fully wired http.Handler, with CORS applied exactly as
// the teacher's observability surfaces require any browser-facing endpoint
// to be reachable cross-origin.
func (s *Server) Handler() http.Handler {
	return cors.AllowAll().Handler(s.mux)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/alive", s.handleAlive)
	s.mux.HandleFunc("/get_nodes", s.handleGetNodes)
	s.mux.HandleFunc("/elections", s.handleElections)
	s.mux.HandleFunc("/election/", s.handleElection)
	s.mux.HandleFunc("/new_election", s.handleNewElection)
	s.mux.HandleFunc("/cast_ballot", s.handleCastBallot)
	s.mux.HandleFunc("/receive_ballot", s.handleReceiveBallot)
	s.mux.HandleFunc("/receive_election", s.handleReceiveElection)
	s.mux.HandleFunc("/receive_block", s.handleReceiveBlock)
	s.mux.HandleFunc("/ws", s.hub.ServeHTTP)
	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics)
	} else {
		s.mux.Handle("/metrics", promhttp.Handler())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "text/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// clientFailure writes the generic, detail-free client error body required
// by spec.md §7 for malformed requests and local-origination precondition
// violations.
func clientFailure(w http.ResponseWriter) {
	w.WriteHeader(http.StatusBadRequest)
}

func (s *Server) handleAlive(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGetNodes(w http.ResponseWriter, r *http.Request) {
	if requester := r.Header.Get("node-port"); requester != "" {
		s.state.Lock(func(st *votestate.State) {
			st.AddPeer(requester)
		})
	}
	var peers []string
	s.state.Lock(func(st *votestate.State) { peers = st.Peers() })
	writeJSON(w, http.StatusOK, peers)
}

func (s *Server) handleElections(w http.ResponseWriter, r *http.Request) {
	var elections []votechain.Election
	s.state.Lock(func(st *votestate.State) { elections = st.AllElections() })
	writeJSON(w, http.StatusOK, elections)
}

func (s *Server) handleElection(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/election/")
	if id == "" {
		clientFailure(w)
		return
	}
	var (
		election votechain.Election
		ok       bool
	)
	s.state.Lock(func(st *votestate.State) { election, ok = st.Election(id) })
	if !ok {
		clientFailure(w)
		return
	}
	writeJSON(w, http.StatusOK, election.Chain)
}

type newElectionRequest struct {
	Label       string   `json:"label"`
	Candidates  []string `json:"candidates"`
	BallotCount int      `json:"ballot_count"`
}

type newElectionResponse struct {
	ID            string   `json:"id"`
	Label         string   `json:"label"`
	Time          float64  `json:"time"`
	Candidates    []string `json:"candidates"`
	VerifyingKeys []string `json:"verifying_keys"`
	SigningKeys   []string `json:"signing_keys"`
}

func (s *Server) handleNewElection(w http.ResponseWriter, r *http.Request) {
	var req newElectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		clientFailure(w)
		return
	}
	result, err := s.engine.NewElection(r.Context(), req.Label, req.Candidates, req.BallotCount)
	if err != nil {
		clientFailure(w)
		return
	}
	genesis := result.Election.Chain[0]
	writeJSON(w, http.StatusOK, newElectionResponse{
		ID:            result.Election.ID,
		Label:         result.Election.Label,
		Time:          genesis.Header.Timestamp,
		Candidates:    genesis.Header.Candidates,
		VerifyingKeys: result.VerifyingKeys,
		SigningKeys:   result.SigningKeys,
	})
}

type castBallotRequest struct {
	SigningKey string   `json:"signing_key"`
	Candidates []string `json:"candidates"`
	Election   string   `json:"election"`
}

func (s *Server) handleCastBallot(w http.ResponseWriter, r *http.Request) {
	var req castBallotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		clientFailure(w)
		return
	}
	env, err := s.engine.CastBallot(r.Context(), req.SigningKey, req.Candidates, req.Election)
	if err != nil {
		clientFailure(w)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

type receiveBallotRequest struct {
	Ballot votechain.BallotEnvelope `json:"ballot"`
}

func (s *Server) handleReceiveBallot(w http.ResponseWriter, r *http.Request) {
	var req receiveBallotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		clientFailure(w)
		return
	}
	s.engine.AdmitBallot(r.Context(), req.Ballot)
	writeJSON(w, http.StatusOK, nil)
}

type receiveElectionRequest struct {
	Election votechain.Election `json:"election"`
}

func (s *Server) handleReceiveElection(w http.ResponseWriter, r *http.Request) {
	var req receiveElectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		clientFailure(w)
		return
	}
	s.engine.AdmitElection(r.Context(), req.Election)
	writeJSON(w, http.StatusOK, nil)
}

type receiveBlockRequest struct {
	Block votechain.Block `json:"block"`
}

func (s *Server) handleReceiveBlock(w http.ResponseWriter, r *http.Request) {
	var req receiveBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		clientFailure(w)
		return
	}
	s.engine.AdmitBlock(r.Context(), req.Block)
	writeJSON(w, http.StatusOK, nil)
}

// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

// Package api is the public interface (C7): thin HTTP adapters over the
// admission engine, miner, and broadcaster, plus the observability
// websocket push channel described in spec.md §6.
package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/blockvote/ledger/internal/log"
	"github.com/blockvote/ledger/internal/votestate"
)

// NodeInfo is the record pushed on connect and on every state transition.
type NodeInfo struct {
	Nodes           []string `json:"nodes"`
	BlockchainCount int      `json:"blockchain_count"`
	IsMiner         bool     `json:"is_miner"`
	Mining          *int     `json:"mining"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub is the observability channel's implementation: it tracks connected
// websocket clients and pushes a NodeInfo frame to all of them whenever
// NotifyStateChanged is called, satisfying admission.Notifier and
// miner.Notifier.
type Hub struct {
	state *votestate.State

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewHub builds a Hub sampling info from state.
func NewHub(state *votestate.State) *Hub {
	return &Hub{state: state, clients: make(map[*websocket.Conn]struct{})}
}

// snapshot computes the current NodeInfo under the state lock.
func (h *Hub) snapshot() NodeInfo {
	var info NodeInfo
	h.state.Lock(func(s *votestate.State) {
		info = NodeInfo{
			Nodes:           s.Peers(),
			BlockchainCount: len(s.AllElections()),
			IsMiner:         s.IsMiner(),
			Mining:          s.MiningHeight(),
		}
	})
	return info
}

// ServeHTTP upgrades the connection and pushes the current NodeInfo
// immediately, then keeps the connection open for subsequent pushes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug("websocket upgrade failed", "err", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	if err := conn.WriteJSON(h.snapshot()); err != nil {
		h.drop(conn)
		return
	}

	// Drain and discard any client-sent frames so we notice the connection
	// closing.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// NotifyStateChanged pushes a fresh NodeInfo frame to every connected client.
func (h *Hub) NotifyStateChanged() {
	info := h.snapshot()

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.WriteJSON(info); err != nil {
			h.drop(c)
		}
	}
}

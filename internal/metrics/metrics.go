// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

// Package metrics exposes the node's observable state as Prometheus gauges,
// supplementing the push-channel observability surface (spec.md §6) with a
// pull-based one for operators who already scrape Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/blockvote/ledger/internal/votestate"
)

// Registry holds the node's gauges and a reference to the state they sample
// from. The gauges change only when Refresh is called.
type Registry struct {
	state *votestate.State

	mempoolSize  *prometheus.GaugeVec
	chainLength  *prometheus.GaugeVec
	isMiner      prometheus.Gauge
	miningHeight prometheus.Gauge
	peersTotal   prometheus.Gauge
}

// NewRegistry registers the node's gauges against reg and returns a Registry
// that refreshes them from state on demand.
func NewRegistry(reg prometheus.Registerer, state *votestate.State) *Registry {
	factory := promauto.With(reg)
	return &Registry{
		state: state,
		mempoolSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "blockvote_mempool_size",
			Help: "Number of pending ballots in an election's mempool.",
		}, []string{"election"}),
		chainLength: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "blockvote_chain_length",
			Help: "Number of blocks in an election's chain, including genesis.",
		}, []string{"election"}),
		isMiner: factory.NewGauge(prometheus.GaugeOpts{
			Name: "blockvote_is_miner",
			Help: "1 if this node is configured to mine, 0 otherwise.",
		}),
		miningHeight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "blockvote_mining_height",
			Help: "Chain length currently being extended by the miner, or -1 when idle.",
		}),
		peersTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "blockvote_peers_total",
			Help: "Number of peers in the local peer list.",
		}),
	}
}

// Refresh samples state under its lock and updates every gauge. It should be
// called periodically (e.g. on a ticker) or just before each scrape.
func (r *Registry) Refresh() {
	r.state.Lock(func(s *votestate.State) {
		for _, election := range s.AllElections() {
			r.chainLength.WithLabelValues(election.ID).Set(float64(len(election.Chain)))
			r.mempoolSize.WithLabelValues(election.ID).Set(float64(s.Mempool(election.ID).Len()))
		}
		if s.IsMiner() {
			r.isMiner.Set(1)
		} else {
			r.isMiner.Set(0)
		}
		if h := s.MiningHeight(); h != nil {
			r.miningHeight.Set(float64(*h))
		} else {
			r.miningHeight.Set(-1)
		}
		r.peersTotal.Set(float64(len(s.Peers())))
	})
}

// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/blockvote/ledger/internal/votechain"
	"github.com/blockvote/ledger/internal/votestate"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func TestRefreshReflectsState(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := votestate.New(true)
	r := NewRegistry(reg, s)

	genesis := votechain.CreateGenesis("E", []string{"A"}, []string{"vk"})
	election := votechain.CreateChain(genesis)
	s.Lock(func(s *votestate.State) {
		s.InsertElection(election)
		s.Mempool(election.ID).Insert(votechain.BallotEnvelope{Ballot: votechain.Ballot{ID: "b1"}})
		s.AddPeer("http://localhost:5001")
	})

	r.Refresh()

	require.Equal(t, float64(1), gaugeValue(t, r.isMiner))
	require.Equal(t, float64(-1), gaugeValue(t, r.miningHeight))
	require.Equal(t, float64(1), gaugeValue(t, r.peersTotal))
	require.Equal(t, float64(1), gaugeValue(t, r.mempoolSize.WithLabelValues(election.ID)))
	require.Equal(t, float64(1), gaugeValue(t, r.chainLength.WithLabelValues(election.ID)))
}

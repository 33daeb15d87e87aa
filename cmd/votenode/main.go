// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

// Command votenode runs one peer-to-peer voting ledger node: the admission
// engine, the optional background miner, the broadcast/peer layer, and the
// HTTP/websocket public interface described in spec.md §6.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/blockvote/ledger/internal/admission"
	"github.com/blockvote/ledger/internal/api"
	"github.com/blockvote/ledger/internal/broadcast"
	"github.com/blockvote/ledger/internal/log"
	"github.com/blockvote/ledger/internal/metrics"
	"github.com/blockvote/ledger/internal/miner"
	"github.com/blockvote/ledger/internal/votecrypto"
	"github.com/blockvote/ledger/internal/voteconfig"
	"github.com/blockvote/ledger/internal/votestate"
)

// statsInterval is how often the node logs a one-line status summary, in the
// spirit of the teacher's stats ticker in cmd/equa-beacon-engine/main.go.
const statsInterval = 30 * time.Second

func main() {
	app := &cli.App{
		Name:  "votenode",
		Usage: "run a peer-to-peer voting ledger node",
		Flags: voteconfig.Flags(),
		Action: func(c *cli.Context) error {
			cfg, err := voteconfig.FromContext(c)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg voteconfig.Config) error {
	setupLogging(cfg.LogLevel)

	log.Info("starting node", "port", cfg.Port, "mine", cfg.Mine, "digest", cfg.DigestAlgorithm)

	digest := votecrypto.DigestByName(cfg.DigestAlgorithm)
	state := votestate.New(cfg.Mine)
	hub := api.NewHub(state)
	self := cfg.SelfAddress()
	fanout := broadcast.New(state, self)
	engine := admission.New(state, fanout, hub, digest)

	registry := prometheus.NewRegistry()
	metricsRegistry := metrics.NewRegistry(registry, state)

	server := api.NewServer(state, engine, hub, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	httpServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: server.Handler()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, seed := range cfg.SeedAddresses() {
		state.Lock(func(s *votestate.State) { s.AddPeer(seed) })
	}
	go fanout.RequestPeerLists(ctx, cfg.SeedAddresses())

	if cfg.Mine {
		m := miner.New(state, fanout, hub, digest, self)
		go m.Run(ctx)
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Crit("http server failed", "err", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	statsTicker := time.NewTicker(statsInterval)
	defer statsTicker.Stop()

	for {
		select {
		case <-sigCh:
			log.Info("received shutdown signal")
			cancel()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return httpServer.Shutdown(shutdownCtx)

		case <-statsTicker.C:
			metricsRegistry.Refresh()
			logStats(state)
		}
	}
}

func logStats(state *votestate.State) {
	var (
		electionCount int
		peerCount     int
		miningHeight  *int
	)
	state.Lock(func(s *votestate.State) {
		electionCount = len(s.AllElections())
		peerCount = len(s.Peers())
		miningHeight = s.MiningHeight()
	})
	log.Info("node stats", "elections", electionCount, "peers", peerCount, "miningHeight", miningHeight)
}

func setupLogging(level string) {
	glogger := log.NewGlogHandler(log.NewTerminalHandler(os.Stderr, true))
	glogger.Verbosity(parseLevel(level))
	log.SetDefault(log.NewLogger(glogger))
}

func parseLevel(level string) log.Level {
	switch level {
	case "crit":
		return log.LvlCrit
	case "error":
		return log.LvlError
	case "warn":
		return log.LvlWarn
	case "debug":
		return log.LvlDebug
	default:
		return log.LvlInfo
	}
}

// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package voteconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestSelfAddressAndSeedAddresses(t *testing.T) {
	cfg := Config{Port: 5001, Servers: []int{5000, 5002}}
	require.Equal(t, "http://localhost:5001", cfg.SelfAddress())
	require.Equal(t, []string{"http://localhost:5000", "http://localhost:5002"}, cfg.SeedAddresses())
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("servers: [5000, 5001]\n"), 0o644))

	sf, err := LoadSeedFile(path)
	require.NoError(t, err)
	require.Equal(t, []int{5000, 5001}, sf.Servers)
}

func TestFromContextMergesConfigFileServers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("servers: [5002]\n"), 0o644))

	app := &cli.App{
		Flags: Flags(),
		Action: func(c *cli.Context) error {
			cfg, err := FromContext(c)
			require.NoError(t, err)
			require.Equal(t, 5000, cfg.Port)
			require.Equal(t, []int{5001, 5002}, cfg.Servers)
			return nil
		},
	}
	require.NoError(t, app.Run([]string{"votenode", "--servers", "5001", "--config", path}))
}

// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

// Package voteconfig parses the node's start-up configuration: command-line
// flags per spec.md §6, plus an optional YAML seed-peer file for deployments
// that would rather not pass a long --servers list on the command line.
package voteconfig

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// Config is the fully resolved start-up configuration for one node.
type Config struct {
	Port            int
	Servers         []int
	Mine            bool
	DigestAlgorithm string
	LogLevel        string
}

// SeedFile is the optional YAML document loaded via --config, letting a
// deployment check a peer list into source control instead of repeating
// --servers on every invocation.
type SeedFile struct {
	Servers []int `yaml:"servers"`
}

// LoadSeedFile reads and parses a YAML seed-peer file.
func LoadSeedFile(path string) (SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SeedFile{}, fmt.Errorf("read seed file: %w", err)
	}
	var sf SeedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return SeedFile{}, fmt.Errorf("parse seed file: %w", err)
	}
	return sf, nil
}

// Flags returns the urfave/cli flag set used to populate a Config.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "port", Value: 5000, Usage: "port this node listens on"},
		&cli.IntSliceFlag{Name: "servers", Usage: "seed peer ports"},
		&cli.BoolFlag{Name: "mine", Usage: "run the background proof-of-work miner"},
		&cli.StringFlag{Name: "digest", Value: "xxhash", Usage: "block digest algorithm: xxhash or blake2b"},
		&cli.StringFlag{Name: "loglevel", Value: "info", Usage: "crit, error, warn, info, or debug"},
		&cli.StringFlag{Name: "config", Usage: "optional YAML file with a seed peer list"},
	}
}

// FromContext builds a Config from a parsed cli.Context, merging in any
// --config seed file's servers after the flag-provided ones.
func FromContext(c *cli.Context) (Config, error) {
	cfg := Config{
		Port:            c.Int("port"),
		Servers:         c.IntSlice("servers"),
		Mine:            c.Bool("mine"),
		DigestAlgorithm: c.String("digest"),
		LogLevel:        c.String("loglevel"),
	}
	if path := c.String("config"); path != "" {
		sf, err := LoadSeedFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg.Servers = append(cfg.Servers, sf.Servers...)
	}
	return cfg, nil
}

// SelfAddress is the distinguished base address a node is known to peers by
// (spec.md §6: "nodes are addressed by port number alone").
func (c Config) SelfAddress() string {
	return fmt.Sprintf("http://localhost:%d", c.Port)
}

// SeedAddresses converts the configured seed ports into full peer addresses.
func (c Config) SeedAddresses() []string {
	out := make([]string, 0, len(c.Servers))
	for _, port := range c.Servers {
		out = append(out, fmt.Sprintf("http://localhost:%d", port))
	}
	return out
}

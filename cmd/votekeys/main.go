// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

// Command votekeys generates standalone ballot key pairs, for operators who
// want to hand out signing keys to voters ahead of an election rather than
// mint them inline via /new_election.
package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/blockvote/ledger/internal/votecrypto"
)

func main() {
	app := &cli.App{
		Name:  "votekeys",
		Usage: "generate secp256k1 ballot key pairs",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 1, Usage: "number of key pairs to generate"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	n := c.Int("count")
	if n <= 0 {
		return fmt.Errorf("count must be positive, got %d", n)
	}

	signing, verifying, err := votecrypto.GenerateKeypairs(n)
	if err != nil {
		return fmt.Errorf("generate keypairs: %w", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Signing key", "Verifying key"})
	for i := range signing {
		table.Append([]string{fmt.Sprintf("%d", i), signing[i], verifying[i]})
	}
	table.Render()
	return nil
}

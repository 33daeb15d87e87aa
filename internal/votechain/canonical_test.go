// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package votechain

import (
	"testing"

	"github.com/blockvote/ledger/internal/votecrypto"
	"github.com/stretchr/testify/require"
)

func TestCanonicalIgnoresMapInsertionOrder(t *testing.T) {
	a := map[string]any{"b": 1, "a": 2, "c": map[string]any{"z": 1, "y": 2}}
	b := map[string]any{"c": map[string]any{"y": 2, "z": 1}, "a": 2, "b": 1}

	ca, err := Canonical(a)
	require.NoError(t, err)
	cb, err := Canonical(b)
	require.NoError(t, err)
	require.Equal(t, string(ca), string(cb))
}

func TestHashCanonicalityAcrossDeepCopy(t *testing.T) {
	block := CreateBlock("election-1", nil, "prevhash", "previd", "5000")
	digest := votecrypto.XXHashDigest{}

	h1, err := HashBlock(block, digest)
	require.NoError(t, err)

	copied := block
	copied.Header.VerifyingKeys = append([]string{}, block.Header.VerifyingKeys...)
	h2, err := HashBlock(copied, digest)
	require.NoError(t, err)

	require.Equal(t, h1, h2)
}

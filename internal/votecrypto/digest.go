// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package votecrypto

import (
	"encoding/hex"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
)

// Digest hashes canonical bytes into a hex string. HashBlock (votechain) is
// deliberately parameterised over this interface: the design note in
// spec.md §9 requires the block digest to be a pluggable choice, so that a
// cryptographically strong digest can be substituted for the fast,
// non-cryptographic one used during mining experiments without touching any
// caller.
type Digest interface {
	// Sum returns the lowercase hex digest of b.
	Sum(b []byte) string
}

// XXHashDigest is the default digest: a fast, non-cryptographic hash sized to
// support the toy MINING_DIFFICULTY used by the miner. It is not suitable for
// any setting where an adversary can choose ballot/block contents to target
// the hash function itself.
type XXHashDigest struct{}

func (XXHashDigest) Sum(b []byte) string {
	sum := xxhash.Sum64(b)
	return fmt.Sprintf("%016x", sum)
}

// Blake2bDigest is a cryptographically strong alternative, substitutable for
// XXHashDigest wherever the node is configured to require one.
type Blake2bDigest struct{}

func (Blake2bDigest) Sum(b []byte) string {
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// DigestByName resolves a configured digest algorithm name to an
// implementation. Unknown names fall back to the fast default so a typo in
// configuration never prevents the node from mining.
func DigestByName(name string) Digest {
	switch name {
	case "blake2b":
		return Blake2bDigest{}
	default:
		return XXHashDigest{}
	}
}

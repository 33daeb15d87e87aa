// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

// Package votecrypto provides key generation, signing, and verification over
// the canonical serialisation of ballots, plus the pluggable block digest.
package votecrypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// GenerateKeypairs emits n fresh secp256k1 key pairs as hex strings. Signing
// keys are returned only to the caller that originates an election; they are
// never persisted by the node itself.
func GenerateKeypairs(n int) (signingKeys []string, verifyingKeys []string, err error) {
	signingKeys = make([]string, 0, n)
	verifyingKeys = make([]string, 0, n)
	for i := 0; i < n; i++ {
		priv, err := secp256k1.GeneratePrivateKey()
		if err != nil {
			return nil, nil, fmt.Errorf("generate keypair: %w", err)
		}
		signingKeys = append(signingKeys, hex.EncodeToString(priv.Serialize()))
		verifyingKeys = append(verifyingKeys, hex.EncodeToString(priv.PubKey().SerializeCompressed()))
	}
	return signingKeys, verifyingKeys, nil
}

// VerifyingKeyFromSigningKey derives the hex verifying key for a hex signing key.
func VerifyingKeyFromSigningKey(signingKeyHex string) (string, error) {
	priv, err := parseSigningKey(signingKeyHex)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(priv.PubKey().SerializeCompressed()), nil
}

// Sign computes the ECDSA signature, as a hex string, over the SHA-256 hash
// of msg using the hex signing key.
func Sign(msg []byte, signingKeyHex string) (string, error) {
	priv, err := parseSigningKey(signingKeyHex)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256(msg)
	sig := ecdsa.Sign(priv, hash[:])
	return hex.EncodeToString(sig.Serialize()), nil
}

// Verify reports whether signatureHex is a valid ECDSA signature over the
// SHA-256 hash of msg by the holder of verifyingKeyHex. It never returns an error: any malformed
// input, key, or signature is treated as a failed verification.
func Verify(msg []byte, signatureHex, verifyingKeyHex string) bool {
	pub, err := parseVerifyingKey(verifyingKeyHex)
	if err != nil {
		return false
	}
	sigBytes, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false
	}
	hash := sha256.Sum256(msg)
	return sig.Verify(hash[:], pub)
}

func parseSigningKey(hexKey string) (*secp256k1.PrivateKey, error) {
	b, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode signing key: %w", err)
	}
	priv := secp256k1.PrivKeyFromBytes(b)
	if priv == nil {
		return nil, fmt.Errorf("invalid signing key")
	}
	return priv, nil
}

func parseVerifyingKey(hexKey string) (*secp256k1.PublicKey, error) {
	b, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode verifying key: %w", err)
	}
	return secp256k1.ParsePubKey(b)
}

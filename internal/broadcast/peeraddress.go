// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

// Package broadcast fans admitted elections, ballots, and blocks out to
// known peers over HTTP, and maintains the peer list via the get_nodes
// exchange described in spec.md §4.6.
package broadcast

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// PeerAddress identifies one other node by scheme and host:port, the same
// two-field shape the teacher's accounts.URL uses for a keystore account
// locator — here repurposed to locate a peer's HTTP endpoint rather than a
// key file.
type PeerAddress struct {
	Scheme string
	Path   string
}

// ParsePeerAddress splits a peer address of the form "scheme://host:port"
// into its components. A missing scheme or path is an error.
func ParsePeerAddress(s string) (PeerAddress, error) {
	parts := strings.SplitN(s, "://", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return PeerAddress{}, errors.New("invalid peer address: " + s)
	}
	return PeerAddress{Scheme: parts[0], Path: parts[1]}, nil
}

func (p PeerAddress) String() string {
	if p.Scheme != "" {
		return p.Scheme + "://" + p.Path
	}
	return p.Path
}

// MarshalJSON implements json.Marshaler, matching the teacher's
// accounts.URL: peer addresses serialize as a plain JSON string, not an
// object.
func (p PeerAddress) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *PeerAddress) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid peer address %q: %w", data, err)
	}
	parsed, err := ParsePeerAddress(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Cmp orders two PeerAddresses first by scheme, then by path, so peer lists
// can be deduplicated and sorted deterministically.
func (p PeerAddress) Cmp(other PeerAddress) int {
	if p.Scheme == other.Scheme {
		return strings.Compare(p.Path, other.Path)
	}
	if p.Scheme < other.Scheme {
		return -1
	}
	return 1
}

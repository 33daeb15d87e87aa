// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package votechain

import "encoding/json"

// Canonical renders v as JSON with map keys sorted lexicographically at
// every nesting level. Hashes and signatures are always computed over this
// form, per spec.md §3/§9, so that the same logical value hashes identically
// regardless of struct field order or map insertion order.
//
// encoding/json already sorts map[string]any keys when marshaling; round
// tripping v through an untyped value forces every nested object (including
// ones that started life as a Go struct, whose fields are emitted in
// declaration order rather than sorted order) through that same path.
func Canonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

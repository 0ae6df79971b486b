// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package discovery

import (
	"bytes"
	"sync"

	"github.com/bitmark-inc/relaynode/avl"
)

// fingerprintKey orders candidates by their discovery fingerprint, the
// same way the connector needs to iterate known peers in a stable,
// duplicate-free order
type fingerprintKey string

// Compare - fingerprint comparison for the avl.Item interface
func (f fingerprintKey) Compare(q interface{}) int {
	return bytes.Compare([]byte(f), []byte(q.(fingerprintKey)))
}

// registry keeps the most recently resolved candidates, one per
// fingerprint, in sorted order
type registry struct {
	mu   sync.Mutex
	tree *avl.Tree
}

func newRegistry() *registry {
	return &registry{tree: avl.New()}
}

// replace discards every previously known candidate and inserts a
// fresh set, the same one-shot semantics as the original package's
// lookupNodesDomain refresh
func (r *registry) replace(candidates []Candidate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tree = avl.New()
	for _, c := range candidates {
		key := fingerprintKey(c.Fingerprint)
		r.tree.Insert(key, c)
	}
}

// Candidates returns every known candidate, sorted by fingerprint
func (r *registry) Candidates() []Candidate {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Candidate, 0, r.tree.Count())
	for node := r.tree.First(); node != nil; node = node.Next() {
		out = append(out, node.Value().(Candidate))
	}
	return out
}

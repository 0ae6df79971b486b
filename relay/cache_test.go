// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package relay

import (
	"testing"

	"github.com/bitmark-inc/relaynode/digest"
	"github.com/stretchr/testify/assert"
)

func digestFromByte(b byte) digest.Digest {
	var d digest.Digest
	d[0] = b
	return d
}

func TestHashSetAddContains(t *testing.T) {
	s := newHashSet(2)
	h1 := digestFromByte(1)

	assert.True(t, s.Add(h1))
	assert.True(t, s.Contains(h1))
	assert.False(t, s.Add(h1), "re-adding the same hash must be a no-op")
}

func TestHashSetEvictsOldestOnOverflow(t *testing.T) {
	s := newHashSet(2)
	h1 := digestFromByte(1)
	h2 := digestFromByte(2)
	h3 := digestFromByte(3)

	s.Add(h1)
	s.Add(h2)
	s.Add(h3)

	assert.False(t, s.Contains(h1), "oldest entry should have been evicted")
	assert.True(t, s.Contains(h2))
	assert.True(t, s.Contains(h3))
}

func TestHashSetIndexOfIsStable(t *testing.T) {
	s := newHashSet(3)
	h1 := digestFromByte(1)
	h2 := digestFromByte(2)
	h3 := digestFromByte(3)
	h4 := digestFromByte(4)

	s.Add(h1)
	s.Add(h2)
	idx2, _ := s.IndexOf(h2)

	s.Add(h3)
	s.Add(h4) // evicts h1

	idx2After, ok := s.IndexOf(h2)
	assert.True(t, ok)
	assert.Equal(t, idx2, idx2After, "position must never change once assigned")
}

func TestShortHashMapAddGet(t *testing.T) {
	m := newShortHashMap(4)
	tx := Transaction{Hash: digestFromByte(7), Bytes: []byte("payload")}
	sh := NewShortHash(tx.Hash)

	assert.True(t, m.Add(sh, tx))
	got, ok := m.Get(sh)
	assert.True(t, ok)
	assert.Equal(t, tx, got)

	_, ok = m.Get(NewShortHash(digestFromByte(99)))
	assert.False(t, ok)
}

func TestTxIndexSetConsumeByIndex(t *testing.T) {
	s := newTxIndexSet(4)
	tx1 := Transaction{Hash: digestFromByte(1), Bytes: []byte("a")}
	tx2 := Transaction{Hash: digestFromByte(2), Bytes: []byte("b")}

	s.Add(tx1)
	s.Add(tx2)

	idx1, ok := s.ordered.indexOf(tx1.Hash)
	assert.True(t, ok)

	got, ok := s.ConsumeByIndex(idx1)
	assert.True(t, ok)
	assert.Equal(t, tx1, got)

	// a consumed index is gone for good, never reused
	_, ok = s.ConsumeByIndex(idx1)
	assert.False(t, ok)
}

func TestTxIndexSetEvictionLeavesPositionsStable(t *testing.T) {
	s := newTxIndexSet(2)
	tx1 := Transaction{Hash: digestFromByte(1), Bytes: []byte("a")}
	tx2 := Transaction{Hash: digestFromByte(2), Bytes: []byte("b")}
	tx3 := Transaction{Hash: digestFromByte(3), Bytes: []byte("c")}

	s.Add(tx1)
	idx2Want := 1
	s.Add(tx2)
	s.Add(tx3) // evicts tx1 at index 0

	got, ok := s.ConsumeByIndex(idx2Want)
	assert.True(t, ok)
	assert.Equal(t, tx2, got)

	_, ok = s.ConsumeByIndex(0)
	assert.False(t, ok, "evicted index must not resolve to tx3")
}

// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package relay

import (
	"github.com/bitmark-inc/relaynode/digest"
)

// boundedOrdered is a fixed-capacity, insertion-ordered container.
// Every entry is assigned a position from a monotonically increasing
// counter; positions are never reused, even across FIFO eviction or
// explicit removal, so a position handed out on the wire as a cache
// index stays meaningful until its entry is actually gone.
//
// sent_tx_set, received_tx_map and received_tx_set are all built on
// this one mechanism; relayed_block_set needs no positional lookup
// and is backed directly by the ambient limitedset.LimitedSet
// instead.
type slot struct {
	key   interface{}
	value interface{}
}

type boundedOrdered struct {
	capacity  int
	nextPos   int
	oldestPos int
	count     int
	positions map[interface{}]int
	slots     map[int]slot
}

func newBoundedOrdered(capacity int) *boundedOrdered {
	return &boundedOrdered{
		capacity:  capacity,
		positions: make(map[interface{}]int),
		slots:     make(map[int]slot),
	}
}

// add inserts key/value if key is not already present, evicting the
// oldest live entry first if the container is full. Returns false
// (no-op) if key is already present.
func (b *boundedOrdered) add(key interface{}, value interface{}) bool {
	if _, ok := b.positions[key]; ok {
		return false
	}
	if b.count >= b.capacity {
		b.evictOldest()
	}
	pos := b.nextPos
	b.nextPos++
	b.positions[key] = pos
	b.slots[pos] = slot{key: key, value: value}
	b.count++
	return true
}

// evictOldest drops the oldest live entry to make room for a new one.
func (b *boundedOrdered) evictOldest() {
	for {
		if s, ok := b.slots[b.oldestPos]; ok {
			delete(b.slots, b.oldestPos)
			delete(b.positions, s.key)
			b.oldestPos++
			b.count--
			return
		}
		b.oldestPos++
	}
}

// contains reports whether key is currently present.
func (b *boundedOrdered) contains(key interface{}) bool {
	_, ok := b.positions[key]
	return ok
}

// get returns the value stored for key.
func (b *boundedOrdered) get(key interface{}) (interface{}, bool) {
	pos, ok := b.positions[key]
	if !ok {
		return nil, false
	}
	return b.slots[pos].value, true
}

// indexOf returns the stable position of key.
func (b *boundedOrdered) indexOf(key interface{}) (int, bool) {
	pos, ok := b.positions[key]
	return pos, ok
}

// byIndex returns the value stored at a known position. A position
// that has been evicted or explicitly removed returns "absent".
func (b *boundedOrdered) byIndex(idx int) (interface{}, bool) {
	s, ok := b.slots[idx]
	if !ok {
		return nil, false
	}
	return s.value, true
}

// remove deletes key if present. Returns false if key was absent.
func (b *boundedOrdered) remove(key interface{}) bool {
	pos, ok := b.positions[key]
	if !ok {
		return false
	}
	delete(b.positions, key)
	delete(b.slots, pos)
	b.count--
	b.advanceOldest(pos)
	return true
}

// removeByIndex deletes the entry at a known position, returning its
// value. Used when CACHE_ID mode consumes a cache entry by index.
func (b *boundedOrdered) removeByIndex(idx int) (interface{}, bool) {
	s, ok := b.slots[idx]
	if !ok {
		return nil, false
	}
	delete(b.slots, idx)
	delete(b.positions, s.key)
	b.count--
	b.advanceOldest(idx)
	return s.value, true
}

// advanceOldest moves the FIFO eviction pointer past a hole just
// punched at pos, if pos was in fact the current oldest position.
func (b *boundedOrdered) advanceOldest(pos int) {
	if pos != b.oldestPos {
		return
	}
	for b.oldestPos < b.nextPos {
		if _, ok := b.slots[b.oldestPos]; ok {
			return
		}
		b.oldestPos++
	}
}

// ---------------------------------------------------------------
// hashSet - bounded ordered set of transaction hashes. Backs
// sent_tx_set: prevents redundant sends, and (in CACHE_ID mode)
// doubles as the index map for outbound cache references.

type hashSet struct {
	ordered *boundedOrdered
}

func newHashSet(capacity int) *hashSet {
	return &hashSet{ordered: newBoundedOrdered(capacity)}
}

func (s *hashSet) Add(hash digest.Digest) bool {
	return s.ordered.add(hash, hash)
}

func (s *hashSet) Contains(hash digest.Digest) bool {
	return s.ordered.contains(hash)
}

func (s *hashSet) IndexOf(hash digest.Digest) (int, bool) {
	return s.ordered.indexOf(hash)
}

func (s *hashSet) Remove(hash digest.Digest) bool {
	return s.ordered.remove(hash)
}

// ---------------------------------------------------------------
// shortHashMap - bounded ordered map from short hash to transaction.
// Backs received_tx_map in ABBREV_HASH mode.

type shortHashMap struct {
	ordered *boundedOrdered
}

func newShortHashMap(capacity int) *shortHashMap {
	return &shortHashMap{ordered: newBoundedOrdered(capacity)}
}

func (m *shortHashMap) Add(sh ShortHash, tx Transaction) bool {
	return m.ordered.add(sh, tx)
}

func (m *shortHashMap) Get(sh ShortHash) (Transaction, bool) {
	v, ok := m.ordered.get(sh)
	if !ok {
		return Transaction{}, false
	}
	return v.(Transaction), true
}

// ---------------------------------------------------------------
// txIndexSet - bounded ordered set of transactions, addressable by
// positional index and consumed (removed) on use. Backs
// received_tx_set in CACHE_ID mode.

type txIndexSet struct {
	ordered *boundedOrdered
}

func newTxIndexSet(capacity int) *txIndexSet {
	return &txIndexSet{ordered: newBoundedOrdered(capacity)}
}

func (s *txIndexSet) Add(tx Transaction) bool {
	return s.ordered.add(tx.Hash, tx)
}

// ConsumeByIndex removes and returns the transaction at idx, the
// entry it once held is never reused.
func (s *txIndexSet) ConsumeByIndex(idx int) (Transaction, bool) {
	v, ok := s.ordered.byIndex(idx)
	if !ok {
		return Transaction{}, false
	}
	tx := v.(Transaction)
	_, removed := s.ordered.removeByIndex(idx)
	if !removed {
		return Transaction{}, false
	}
	return tx, true
}

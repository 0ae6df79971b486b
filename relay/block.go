// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package relay

import (
	"github.com/bitmark-inc/relaynode/fault"
)

// blockSlot - one transaction position within a block under assembly.
// Unresolved slots carry the short hash they are waiting on; this only
// happens in ABBREV_HASH mode, since CACHE_ID resolves every slot
// (cache hit or inline) synchronously as its wire record is parsed.
type blockSlot struct {
	resolved  bool
	shortHash ShortHash
	tx        Transaction
}

// pendingBlock - a block header plus the in-progress assembly state
// of its transaction list. Created on BLOCK, consumed on a successful
// buildBlock, and kept around (not cleared) afterwards only so a
// subsequent END_BLOCK can find it and be a guarded no-op.
type pendingBlock struct {
	header        BlockHeader
	slots         []blockSlot
	pendingCount  int
	seenShortHash map[ShortHash]bool
	waiting       map[ShortHash]int

	built bool
}

func newPendingBlock(header BlockHeader) *pendingBlock {
	return &pendingBlock{header: header}
}

// markSeen records sh as resolved somewhere in this block, failing if
// it was already seen - the block-wide duplicate check that applies
// uniformly across both relay modes.
func (p *pendingBlock) markSeen(sh ShortHash) error {
	if p.seenShortHash == nil {
		p.seenShortHash = make(map[ShortHash]bool)
	}
	if p.seenShortHash[sh] {
		return fault.ErrDuplicateInBlock
	}
	p.seenShortHash[sh] = true
	return nil
}

// appendResolved appends a slot whose transaction is already known in
// full - an ABBREV_HASH cache hit or a CACHE_ID valid-index lookup.
func (p *pendingBlock) appendResolved(tx Transaction) error {
	sh := NewShortHash(tx.Hash)
	if err := p.markSeen(sh); err != nil {
		return err
	}
	p.slots = append(p.slots, blockSlot{resolved: true, shortHash: sh, tx: tx})
	return nil
}

// appendUnresolvedAbbrev appends a slot awaiting an out-of-block
// trailer transaction matching sh - an ABBREV_HASH cache miss.
func (p *pendingBlock) appendUnresolvedAbbrev(sh ShortHash) (int, error) {
	if err := p.markSeen(sh); err != nil {
		return 0, err
	}
	idx := len(p.slots)
	p.slots = append(p.slots, blockSlot{shortHash: sh})
	if p.waiting == nil {
		p.waiting = make(map[ShortHash]int)
	}
	p.waiting[sh] = idx
	p.pendingCount++
	return idx, nil
}

// resolveOutOfBlock fills the slot waiting on tx's short hash, for the
// ABBREV_HASH trailer records that follow a short-hash list.
func (p *pendingBlock) resolveOutOfBlock(tx Transaction) error {
	sh := NewShortHash(tx.Hash)
	idx, ok := p.waiting[sh]
	if !ok {
		return fault.ErrUnexpectedTransaction
	}
	p.slots[idx] = blockSlot{resolved: true, shortHash: sh, tx: tx}
	delete(p.waiting, sh)
	p.pendingCount--
	return nil
}

// ready reports whether every slot has been resolved.
func (p *pendingBlock) ready() bool {
	return p.pendingCount == 0
}

// transactions returns the assembled transaction list, in slot order.
func (p *pendingBlock) transactions() []Transaction {
	txs := make([]Transaction, len(p.slots))
	for i, s := range p.slots {
		txs[i] = s.tx
	}
	return txs
}

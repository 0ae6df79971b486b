// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package relay

import (
	"encoding/binary"
	"time"

	"github.com/bitmark-inc/relaynode/fault"
	"golang.org/x/time/rate"
)

// workerPool rate-limits one class of outbound traffic (blocks or
// transactions) to a fixed steady rate with a burst allowance, the
// same reservation pattern the host application uses for inbound RPC
// limiting.
type workerPool struct {
	limiter *rate.Limiter
}

func newWorkerPool(perSecond int, burst int) *workerPool {
	return &workerPool{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// reserve blocks the caller until the pool's rate allows one more
// send, then returns. It never fails outright; exceeding the burst
// just adds latency, matching the engine's single-threaded send path.
func (w *workerPool) reserve() {
	r := w.limiter.Reserve()
	time.Sleep(r.Delay())
}

// SendTransaction relays a locally-originated or forwarded
// transaction to the peer, honouring sent_tx_set so the same
// transaction is never sent twice to one peer.
func (e *Engine) SendTransaction(tx Transaction) error {
	if e.peerVersion.k == 0 || len(tx.Bytes) > e.peerVersion.l {
		return nil // no version negotiated, or larger than L
	}
	e.transactionPool.reserve()

	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	if e.sentTxSet.Contains(tx.Hash) {
		return nil
	}

	frame := append(encodeFrameHeader(msgTransaction, uint32(len(tx.Bytes))), tx.Bytes...)
	if err := e.embedder.Send(frame); err != nil {
		return err
	}
	e.sentTxSet.Add(tx.Hash)
	e.sentTxCount.Increment()
	return nil
}

// SendBlock relays a block to the peer, referencing every transaction
// already known to be in the peer's sent_tx_set and, in ABBREV_HASH
// mode, trailing any unknown ones as raw out-of-block records - the
// wire shape differs enough between the two relay modes that each
// gets its own encoder. A block already present in relayed_block_set
// (one this peer has already been sent, directly or by a prior call
// racing in) is silently dropped rather than sent twice.
func (e *Engine) SendBlock(block Block) error {
	if e.peerVersion.k == 0 {
		return nil // no version negotiated
	}
	e.blockPool.reserve()

	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	key := string(block.Header[:])
	if e.relayedBlocks.Exists(key) {
		return nil
	}

	var err error
	switch e.peerVersion.mode {
	case AbbrevHash:
		err = e.sendAbbrevHashBlock(block)
	case CacheID:
		err = e.sendCacheIDBlock(block)
	default:
		err = fault.ErrUnknownVersion
	}
	if err != nil {
		return err
	}
	e.relayedBlocks.Add(key)
	return nil
}

// sendAbbrevHashBlock writes the 80-byte header, a mandatory 32-bit
// transaction count, then one 8-byte short hash per transaction,
// followed by a trailer record for every transaction the peer has not
// already been sent.
func (e *Engine) sendAbbrevHashBlock(block Block) error {
	refs := make([]byte, 4)
	binary.BigEndian.PutUint32(refs, uint32(len(block.Transactions)))

	var trailer []Transaction
	for _, tx := range block.Transactions {
		sh := NewShortHash(tx.Hash)
		refs = append(refs, sh[:]...)
		if !e.sentTxSet.Contains(tx.Hash) {
			trailer = append(trailer, tx)
		}
		e.sentTxSet.Add(tx.Hash)
	}

	payload := append(append([]byte{}, block.Header[:]...), refs...)
	frame := append(encodeFrameHeader(msgBlock, uint32(len(payload))), payload...)
	if err := e.embedder.Send(frame); err != nil {
		return err
	}
	for _, tx := range trailer {
		record := append(encodeRawLength(uint32(len(tx.Bytes))), tx.Bytes...)
		if err := e.embedder.Send(record); err != nil {
			return err
		}
	}
	return e.finishBlock()
}

// sendCacheIDBlock writes the 80-byte header followed by one record
// per transaction: a 16-bit cache index for anything already in
// sent_tx_set, consuming it on write, or a 0xFFFF marker plus a
// 24-bit length and the raw transaction bytes for anything new.
// Unlike ABBREV_HASH there is no trailer - the frame's length field
// carries the transaction count, not a byte length, and every
// transaction is fully represented inside the one BLOCK frame.
func (e *Engine) sendCacheIDBlock(block Block) error {
	var refs []byte
	for _, tx := range block.Transactions {
		if idx, ok := e.sentTxSet.IndexOf(tx.Hash); ok {
			if idx >= cacheIndexOverflowThreshold {
				return e.failLocking(fault.ErrCacheIndexOverflow)
			}
			refs = append(refs, byte(idx>>8), byte(idx))
			e.sentTxSet.Remove(tx.Hash)
			continue
		}
		if len(tx.Bytes) >= maxInlineTransactionSize {
			return e.failLocking(fault.ErrOversizedInlineTransaction)
		}
		refs = append(refs, byte(cacheIDInlineMarker>>8), byte(cacheIDInlineMarker&0xff))
		refs = append(refs, byte(len(tx.Bytes)>>16), byte(len(tx.Bytes)>>8), byte(len(tx.Bytes)))
		refs = append(refs, tx.Bytes...)
		e.sentTxSet.Add(tx.Hash)
	}

	payload := append(append([]byte{}, block.Header[:]...), refs...)
	frame := append(encodeFrameHeader(msgBlock, uint32(len(block.Transactions))), payload...)
	if err := e.embedder.Send(frame); err != nil {
		return err
	}
	return e.finishBlock()
}

// finishBlock sends the mandatory END_BLOCK frame that closes out
// either mode's BLOCK.
func (e *Engine) finishBlock() error {
	end := encodeFrameHeader(msgEndBlock, 0)
	if err := e.embedder.Send(end); err != nil {
		return err
	}
	e.sentBlocks.Increment()
	return nil
}

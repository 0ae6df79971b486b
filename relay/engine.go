// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package relay

import (
	"encoding/binary"
	"sync"

	"github.com/bitmark-inc/relaynode/counter"
	"github.com/bitmark-inc/relaynode/fault"
	"github.com/bitmark-inc/relaynode/limitedset"
	"github.com/bitmark-inc/logger"
)

// Role - which side of the connection this engine is playing, the
// only asymmetry in an otherwise symmetric protocol: only the
// responder replies with its own VERSION/MAX_VERSION upon receiving
// the peer's VERSION.
type Role int

const (
	Initiator Role = iota
	Responder
)

// sessionState - the per-connection receive-side state machine
type sessionState int

const (
	stateAwaitingVersion sessionState = iota
	stateIdle
	stateReadingCacheRefs
	stateReadingBlockRecords
	stateClosed
)

// Writer - the raw duplex byte stream the engine writes framed
// messages to; satisfied by a net.Conn.
type Writer interface {
	Write(p []byte) (n int, err error)
}

// Closer - closes the underlying connection.
type Closer interface {
	Close() error
}

// Embedder - the host application's socket/session collaborator. Its
// On* callbacks must not block; every raw write and every terminal
// failure is also routed through it so the engine never owns a socket
// directly.
type Embedder interface {
	// OnBlockHeader fires the moment a BLOCK frame's header is
	// parsed, before any transaction in it is resolved.
	OnBlockHeader(header BlockHeader)
	// OnBlock fires once assembly of a block completes.
	OnBlock(block Block)
	// OnTransaction fires for each out-of-block transaction accepted
	// into the receive caches.
	OnTransaction(tx Transaction)

	OnLog(line string)
	OnLogStats(line string)
	OnConnected(line string)

	Send(data []byte) error
	Fail(err error)
}

// Validator - semantic (consensus-level) checks and hashing the
// engine defers to its host, since it has no block-chain or mempool
// state, and no hash primitive, of its own.
type Validator interface {
	// VerifyTransaction computes the hash of and semantically
	// validates raw transaction bytes read off the wire.
	VerifyTransaction(raw []byte) (Transaction, error)
	// VerifyBlock semantically validates a fully assembled block.
	VerifyBlock(block Block) error
	// InternTransaction returns the process-wide canonical copy of a
	// transaction already known to be equal by hash.
	InternTransaction(tx Transaction) Transaction
}

// Engine - one relay peer connection's protocol state: version
// negotiation, the bounded caches, and block assembly.
type Engine struct {
	log  *logger.L
	role Role

	embedder  Embedder
	validator Validator

	mu    sync.Mutex
	state sessionState

	localVersion  versionEntry
	peerVersion   versionEntry
	peerVersionStr string

	sentTxSet     *hashSet
	receivedTxMap *shortHashMap
	receivedTxSet *txIndexSet

	// relayedBlocks - relayed_block_set: the bounded, recency-ordered
	// set of block headers already sent to this peer, so a block this
	// peer relayed back to us (or that reached us by more than one
	// route) is never sent to it twice. Unlike sent_tx_set it needs no
	// positional lookup, only membership, so the generic ring-backed
	// limitedset serves it directly.
	relayedBlocks *limitedset.LimitedSet

	pending *pendingBlock

	// cacheRefsRemaining - entries still to be read from a CACHE_ID
	// BLOCK's reference list. Meaningless outside stateReadingCacheRefs.
	cacheRefsRemaining int

	buf []byte

	sendMu        sync.Mutex
	blockPool     *workerPool
	transactionPool *workerPool

	receivedBlocks  counter.Counter
	receivedTxCount counter.Counter
	sentBlocks      counter.Counter
	sentTxCount     counter.Counter
}

// NewEngine creates an engine for one connection. role determines
// whether this side sends its VERSION immediately (Initiator) or
// waits for the peer's (Responder).
func NewEngine(role Role, embedder Embedder, validator Validator, log *logger.L) *Engine {
	local, _ := lookupVersion(currentVersion)
	e := &Engine{
		log:             log,
		role:            role,
		embedder:        embedder,
		validator:       validator,
		state:           stateAwaitingVersion,
		localVersion:    local,
		sentTxSet:       newHashSet(local.k),
		receivedTxMap:   newShortHashMap(local.k),
		receivedTxSet:   newTxIndexSet(local.k),
		relayedBlocks:   limitedset.New(relayedBlockSetCapacity),
		blockPool:       newWorkerPool(4, 50),
		transactionPool: newWorkerPool(4, 25),
	}
	if role == Initiator {
		e.sendVersion()
	}
	return e
}

// Feed supplies newly-received bytes to the engine. It may be called
// repeatedly with arbitrarily small chunks, including one byte at a
// time; the engine accumulates an internal buffer and only consumes
// from it once a full message is available.
func (e *Engine) Feed(data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == stateClosed {
		return
	}
	e.buf = append(e.buf, data...)
	for {
		consumed, err := e.step()
		if err != nil {
			e.fail(err)
			return
		}
		if consumed == 0 {
			return
		}
		e.buf = e.buf[consumed:]
	}
}

// step attempts to parse and act on one message from the front of
// e.buf. It returns (0, nil) if e.buf does not yet hold a complete
// message - the normal "need more data" outcome, since every step
// re-peeks from the start of the cumulative unconsumed buffer rather
// than tracking partial per-field reads.
func (e *Engine) step() (int, error) {
	switch e.state {
	case stateAwaitingVersion:
		return e.stepAwaitingVersion()
	case stateIdle:
		return e.stepIdle()
	case stateReadingCacheRefs:
		return e.stepReadingCacheRefs()
	case stateReadingBlockRecords:
		return e.stepReadingBlockRecords()
	default:
		return 0, fault.ErrInconsistentState
	}
}

func (e *Engine) stepAwaitingVersion() (int, error) {
	if len(e.buf) < frameHeaderSize {
		return 0, nil
	}
	hdr, err := decodeFrameHeader(e.buf)
	if err != nil {
		return 0, err
	}
	total := frameHeaderSize + int(hdr.length)
	if len(e.buf) < total {
		return 0, nil
	}
	if hdr.msgType != msgVersion {
		return 0, fault.ErrInconsistentState
	}
	payload := e.buf[frameHeaderSize:total]
	versionStr := sanitizeVersion(payload)
	v, ok := lookupVersion(versionStr)
	if !ok {
		return 0, fault.ErrUnknownVersion
	}
	e.peerVersion = v
	e.peerVersionStr = versionStr

	if e.role == Responder {
		e.sendVersion()
		if versionStr != currentVersion {
			e.sendMaxVersion()
		}
	}

	e.state = stateIdle
	return total, nil
}

// stepIdle dispatches on the frame header alone for VERSION and
// TRANSACTION, but BLOCK diverges sharply by mode: in ABBREV_HASH the
// header's length field is a genuine payload byte count and the whole
// frame can be sliced up front; in CACHE_ID it is the transaction
// count, and the true byte length of the reference list that follows
// the 80-byte header cannot be known until it is parsed entry by
// entry, so only the fixed-size block header is consumed here and the
// engine moves to stateReadingCacheRefs for the rest.
func (e *Engine) stepIdle() (int, error) {
	if len(e.buf) < frameHeaderSize {
		return 0, nil
	}
	hdr, err := decodeFrameHeader(e.buf)
	if err != nil {
		return 0, err
	}

	if hdr.msgType == msgBlock && e.peerVersion.mode == CacheID {
		total := frameHeaderSize + BlockHeaderSize
		if len(e.buf) < total {
			return 0, nil
		}
		header, _, err := decodeBlockHeader(e.buf[frameHeaderSize:total])
		if err != nil {
			return 0, err
		}
		e.embedder.OnBlockHeader(header)
		e.pending = newPendingBlock(header)
		e.cacheRefsRemaining = int(hdr.length)
		e.state = stateReadingCacheRefs
		if e.cacheRefsRemaining == 0 {
			if err := e.buildBlock(); err != nil {
				return 0, err
			}
			e.state = stateReadingBlockRecords
		}
		return total, nil
	}

	total := frameHeaderSize + int(hdr.length)
	if len(e.buf) < total {
		return 0, nil
	}
	payload := e.buf[frameHeaderSize:total]

	switch hdr.msgType {
	case msgVersion:
		// a renegotiation attempt mid-session is not supported
		return 0, fault.ErrInconsistentState

	case msgTransaction:
		if err := e.acceptFreeTransaction(payload); err != nil {
			return 0, err
		}
		return total, nil

	case msgBlock:
		header, body, err := decodeBlockHeader(payload)
		if err != nil {
			return 0, err
		}
		e.embedder.OnBlockHeader(header)
		e.pending = newPendingBlock(header)
		if err := e.consumeAbbrevHashBody(body); err != nil {
			return 0, err
		}
		if e.pending.ready() {
			if err := e.buildBlock(); err != nil {
				return 0, err
			}
		}
		e.state = stateReadingBlockRecords
		return total, nil

	default:
		return 0, fault.ErrBadMessageType
	}
}

// stepReadingCacheRefs parses one CACHE_ID reference-list entry at a
// time off the front of e.buf: a 16-bit index, resolved directly
// against received_tx_set and consumed on use, or a 0xFFFF marker
// followed by a 24-bit length and that many inline transaction bytes.
// Per spec, filling the last slot - whichever form it takes - triggers
// immediate assembly, without waiting for END_BLOCK.
func (e *Engine) stepReadingCacheRefs() (int, error) {
	if len(e.buf) < 2 {
		return 0, nil
	}
	idx := int(e.buf[0])<<8 | int(e.buf[1])

	if idx != cacheIDInlineMarker {
		tx, ok := e.receivedTxSet.ConsumeByIndex(idx)
		if !ok {
			return 0, fault.ErrInvalidCacheIndex
		}
		if err := e.pending.appendResolved(tx); err != nil {
			return 0, err
		}
		return e.finishCacheRef(2)
	}

	if len(e.buf) < 5 {
		return 0, nil
	}
	length := int(e.buf[2])<<16 | int(e.buf[3])<<8 | int(e.buf[4])
	if length >= maxInlineTransactionSize {
		return 0, fault.ErrFrameTooLarge
	}
	total := 5 + length
	if len(e.buf) < total {
		return 0, nil
	}
	tx, err := e.verifyAndIntern(e.buf[5:total])
	if err != nil {
		return 0, err
	}
	if err := e.pending.appendResolved(tx); err != nil {
		return 0, err
	}
	return e.finishCacheRef(total)
}

// finishCacheRef accounts for one consumed reference-list entry of
// wireLen bytes, triggering assembly once none remain.
func (e *Engine) finishCacheRef(wireLen int) (int, error) {
	e.cacheRefsRemaining--
	if e.cacheRefsRemaining == 0 {
		if err := e.buildBlock(); err != nil {
			return 0, err
		}
		e.state = stateReadingBlockRecords
	}
	return wireLen, nil
}

// stepReadingBlockRecords handles the ambiguous-dispatch window that
// opens once a block is pending: the next 4 bytes are either the
// frame magic (a fully-framed message, TRANSACTION or END_BLOCK) or a
// raw length prefix for an implicit out-of-block TRANSACTION record.
func (e *Engine) stepReadingBlockRecords() (int, error) {
	if len(e.buf) < 4 {
		return 0, nil
	}
	if peekMagic(e.buf) {
		if len(e.buf) < frameHeaderSize {
			return 0, nil
		}
		hdr, err := decodeFrameHeader(e.buf)
		if err != nil {
			return 0, err
		}
		total := frameHeaderSize + int(hdr.length)
		if len(e.buf) < total {
			return 0, nil
		}
		payload := e.buf[frameHeaderSize:total]

		switch hdr.msgType {
		case msgTransaction:
			tx, err := e.verifyAndIntern(payload)
			if err != nil {
				return 0, err
			}
			if err := e.resolvePendingSlot(tx); err != nil {
				return 0, err
			}
			if e.pending.ready() {
				if err := e.buildBlock(); err != nil {
					return 0, err
				}
			}
			return total, nil

		case msgEndBlock:
			if !e.pending.built {
				if err := e.buildBlock(); err != nil {
					return 0, err
				}
			}
			e.pending = nil
			e.state = stateIdle
			return total, nil

		default:
			return 0, fault.ErrBadMessageType
		}
	}

	// raw length-prefixed out-of-block transaction record
	length, err := decodeRawLength(e.buf)
	if err != nil {
		return 0, err
	}
	total := 4 + int(length)
	if len(e.buf) < total {
		return 0, nil
	}
	tx, err := e.verifyAndIntern(e.buf[4:total])
	if err != nil {
		return 0, err
	}
	if err := e.resolvePendingSlot(tx); err != nil {
		return 0, err
	}
	if e.pending.ready() {
		if err := e.buildBlock(); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// verifyAndIntern hands raw transaction bytes to the validator for
// hashing and semantic verification, then interns the result.
func (e *Engine) verifyAndIntern(raw []byte) (Transaction, error) {
	tx, err := e.validator.VerifyTransaction(raw)
	if err != nil {
		return Transaction{}, err
	}
	return e.validator.InternTransaction(tx), nil
}

// resolvePendingSlot resolves a received out-of-block transaction
// against the ABBREV_HASH trailer mechanism. CACHE_ID has no trailer -
// every one of its slots resolves synchronously while the reference
// list itself is parsed, in stepReadingCacheRefs - so any transaction
// arriving here while a CACHE_ID block is pending does not match a
// waiting slot and is rejected.
func (e *Engine) resolvePendingSlot(tx Transaction) error {
	return e.pending.resolveOutOfBlock(tx)
}

// consumeAbbrevHashBody parses an ABBREV_HASH BLOCK's reference list:
// a mandatory 32-bit transaction count, cross-checked against the
// payload's real byte length, followed by that many 8-byte short
// hashes.
func (e *Engine) consumeAbbrevHashBody(body []byte) error {
	if len(body) < 4 {
		return fault.ErrBadMessageType
	}
	count := binary.BigEndian.Uint32(body[0:4])
	body = body[4:]
	if uint32(len(body)) != count*ShortHashLength {
		return fault.ErrBadTransactionCount
	}
	for i := 0; i < len(body); i += ShortHashLength {
		var sh ShortHash
		copy(sh[:], body[i:i+ShortHashLength])
		if tx, ok := e.receivedTxMap.Get(sh); ok {
			if err := e.pending.appendResolved(tx); err != nil {
				return err
			}
			continue
		}
		if _, err := e.pending.appendUnresolvedAbbrev(sh); err != nil {
			return err
		}
	}
	return nil
}

// buildBlock assembles and dispatches the pending block. Callable
// more than once for the same pendingBlock (early completion followed
// by the mandatory END_BLOCK); the built flag makes the second call a
// no-op rather than re-delivering the block. A rejection from the
// validator is returned to the caller as a fatal connection error.
func (e *Engine) buildBlock() error {
	if e.pending.built {
		return nil
	}
	block := Block{
		Header:       e.pending.header,
		Transactions: e.pending.transactions(),
	}
	if err := e.validator.VerifyBlock(block); err != nil {
		return err
	}
	e.pending.built = true
	e.receivedBlocks.Increment()
	e.log.Infof("assembled block with %d transactions", len(block.Transactions))
	e.embedder.OnBlock(block)
	return nil
}

func (e *Engine) acceptFreeTransaction(raw []byte) error {
	if len(raw) > e.localVersion.l {
		return fault.ErrOversizedTransaction
	}
	tx, err := e.verifyAndIntern(raw)
	if err != nil {
		return err
	}
	e.receivedTxCount.Increment()
	switch e.peerVersion.mode {
	case AbbrevHash:
		e.receivedTxMap.Add(NewShortHash(tx.Hash), tx)
	case CacheID:
		e.receivedTxSet.Add(tx)
	}
	e.embedder.OnTransaction(tx)
	return nil
}

func (e *Engine) fail(err error) {
	e.state = stateClosed
	e.log.Errorf("session failure: %s", err)
	e.embedder.Fail(err)
}

// failLocking is fail for callers on the send path, which hold sendMu
// rather than mu when they discover a fatal internal inconsistency.
func (e *Engine) failLocking(err error) error {
	e.mu.Lock()
	e.fail(err)
	e.mu.Unlock()
	return err
}

// Close terminates the session from the local side.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = stateClosed
}

func (e *Engine) sendVersion() {
	payload := []byte(currentVersion)
	frame := append(encodeFrameHeader(msgVersion, uint32(len(payload))), payload...)
	_ = e.embedder.Send(frame)
}

// sendMaxVersion tells the peer the highest version string this side
// actually supports, sent whenever the peer's (recognised) version is
// not itself currentVersion - every other entry in versionTable is, by
// construction, older.
func (e *Engine) sendMaxVersion() {
	payload := []byte(currentVersion)
	frame := append(encodeFrameHeader(msgMaxVersion, uint32(len(payload))), payload...)
	_ = e.embedder.Send(frame)
}

// sanitizeVersion strips any trailing NUL padding a peer might send.
func sanitizeVersion(payload []byte) string {
	for i, b := range payload {
		if b == 0 {
			return string(payload[:i])
		}
	}
	return string(payload)
}

// decodeBlockHeader splits a BLOCK payload into its fixed header and
// the remaining cache-reference/short-hash body.
func decodeBlockHeader(payload []byte) (BlockHeader, []byte, error) {
	if len(payload) < BlockHeaderSize {
		return BlockHeader{}, nil, fault.ErrBadMessageType
	}
	var header BlockHeader
	copy(header[:], payload[:BlockHeaderSize])
	return header, payload[BlockHeaderSize:], nil
}

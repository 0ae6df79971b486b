// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package relay

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/bitmark-inc/logger"
	"github.com/bitmark-inc/relaynode/digest"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "relay-test-log")
	if err != nil {
		panic(err)
	}
	if err := logger.Initialise(logger.Configuration{
		Directory: dir,
		File:      "test.log",
		Size:      1048576,
		Count:     10,
	}); err != nil {
		panic(err)
	}
	code := m.Run()
	logger.Finalise()
	os.RemoveAll(dir)
	os.Exit(code)
}

// fakeEmbedder records every frame this side would write to the wire
// and every block/transaction/header the engine hands upward.
type fakeEmbedder struct {
	sent         [][]byte
	failed       error
	headers      []BlockHeader
	blocks       []Block
	transactions []Transaction
}

func (f *fakeEmbedder) Send(data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	f.sent = append(f.sent, cp)
	return nil
}

func (f *fakeEmbedder) Fail(err error) { f.failed = err }

func (f *fakeEmbedder) OnBlockHeader(header BlockHeader) { f.headers = append(f.headers, header) }

func (f *fakeEmbedder) OnBlock(block Block) { f.blocks = append(f.blocks, block) }

func (f *fakeEmbedder) OnTransaction(tx Transaction) {
	f.transactions = append(f.transactions, tx)
}

func (f *fakeEmbedder) OnLog(line string)       {}
func (f *fakeEmbedder) OnLogStats(line string)  {}
func (f *fakeEmbedder) OnConnected(line string) {}

// acceptAllValidator approves every transaction and block, standing in
// for the host's consensus engine in these tests. It computes the
// double-SHA-256 digest the same way a real validator would, since
// hashing is no longer the engine's job.
type acceptAllValidator struct{}

func (acceptAllValidator) VerifyTransaction(raw []byte) (Transaction, error) {
	return Transaction{Hash: digest.Sum(raw), Bytes: raw}, nil
}

func (acceptAllValidator) VerifyBlock(Block) error { return nil }

func (acceptAllValidator) InternTransaction(tx Transaction) Transaction { return tx }

func testLog() *logger.L {
	return logger.New("relay-test")
}

func newTestPair() (*Engine, *fakeEmbedder, *Engine, *fakeEmbedder) {
	ie := &fakeEmbedder{}
	re := &fakeEmbedder{}
	initiator := NewEngine(Initiator, ie, acceptAllValidator{}, testLog())
	responder := NewEngine(Responder, re, acceptAllValidator{}, testLog())
	return initiator, ie, responder, re
}

func TestVersionNegotiationInitiatorSendsFirst(t *testing.T) {
	initiator, ie, _, _ := newTestPair()
	assert.NotNil(t, initiator)
	assert.Len(t, ie.sent, 1, "initiator should send VERSION immediately on construction")
}

func TestVersionNegotiationResponderRepliesOnce(t *testing.T) {
	_, ie, responder, re := newTestPair()
	assert.Empty(t, re.sent, "responder must not send until it sees the peer's VERSION")

	// feed the initiator's VERSION frame into the responder
	responder.Feed(ie.sent[0])
	assert.Len(t, re.sent, 1, "responder replies with its own VERSION")
	assert.Equal(t, currentVersion, responder.peerVersionStr)
}

func TestUnknownVersionFailsSession(t *testing.T) {
	_, _, responder, re := newTestPair()
	payload := []byte("nonexistent version")
	frame := append(encodeFrameHeader(msgVersion, uint32(len(payload))), payload...)
	responder.Feed(frame)
	assert.Error(t, re.failed)
}

func connectedPair() (*Engine, *fakeEmbedder, *Engine, *fakeEmbedder) {
	initiator, ie, responder, re := newTestPair()
	responder.Feed(ie.sent[0])
	initiator.Feed(re.sent[0])
	return initiator, ie, responder, re
}

func TestFreeTransactionRelay(t *testing.T) {
	_, _, responder, re := connectedPair()

	txBytes := []byte("a free-floating transaction")
	frame := append(encodeFrameHeader(msgTransaction, uint32(len(txBytes))), txBytes...)
	responder.Feed(frame)

	assert.Len(t, re.transactions, 1)
	assert.Equal(t, txBytes, re.transactions[0].Bytes)
}

func TestOversizedFreeTransactionRejected(t *testing.T) {
	_, _, responder, re := connectedPair()

	big := make([]byte, responder.localVersion.l+1)
	frame := append(encodeFrameHeader(msgTransaction, uint32(len(big))), big...)
	responder.Feed(frame)

	assert.Error(t, re.failed)
}

func TestEmptyBlockRelay(t *testing.T) {
	_, _, responder, re := connectedPair()

	// responder negotiated CacheID mode: the frame length field is the
	// transaction count (zero here), not a payload byte count.
	var header BlockHeader
	header[0] = 0x42
	frame := append(encodeFrameHeader(msgBlock, 0), header[:]...)
	responder.Feed(frame)
	responder.Feed(encodeFrameHeader(msgEndBlock, 0))

	assert.Len(t, re.headers, 1, "OnBlockHeader must fire as soon as the header is parsed")
	assert.Equal(t, header, re.headers[0])
	assert.Len(t, re.blocks, 1)
	assert.Equal(t, header, re.blocks[0].Header)
	assert.Empty(t, re.blocks[0].Transactions)
}

func TestOneByteAtATimeFeedEquivalence(t *testing.T) {
	_, _, wholeResponder, wholeRe := connectedPair()
	_, _, byteResponder, byteRe := connectedPair()

	txBytes := []byte("equivalence-checked transaction payload")
	frame := append(encodeFrameHeader(msgTransaction, uint32(len(txBytes))), txBytes...)

	wholeResponder.Feed(frame)

	for _, b := range frame {
		byteResponder.Feed([]byte{b})
	}

	assert.Equal(t, wholeRe.transactions, byteRe.transactions)
}

func TestCacheIDBlockWithInlineAndCachedTransactions(t *testing.T) {
	initiator, ie, responder, re := connectedPair()
	_ = initiator
	_ = ie

	// responder negotiated "determined dragonfly" => CacheID mode
	assert.Equal(t, CacheID, responder.peerVersion.mode)

	cachedTx := []byte("already seen by responder")
	frame := append(encodeFrameHeader(msgTransaction, uint32(len(cachedTx))), cachedTx...)
	responder.Feed(frame)
	cachedHash := re.transactions[0].Hash
	idx, ok := responder.receivedTxSet.ordered.indexOf(cachedHash)
	assert.True(t, ok)

	var header BlockHeader
	header[1] = 0x7

	inlineTx := []byte("inline transaction bytes")
	refs := []byte{byte(idx >> 8), byte(idx)}
	refs = append(refs, 0xFF, 0xFF)
	refs = append(refs, byte(len(inlineTx)>>16), byte(len(inlineTx)>>8), byte(len(inlineTx)))
	refs = append(refs, inlineTx...)
	payload := append(append([]byte{}, header[:]...), refs...)
	// length field is the transaction count (2: one cached index, one inline), not a byte length
	blockFrame := append(encodeFrameHeader(msgBlock, 2), payload...)
	responder.Feed(blockFrame)

	assert.Len(t, re.blocks, 1, "block should assemble as soon as the inline slot resolves")
	assert.Len(t, re.blocks[0].Transactions, 2)
	assert.Equal(t, cachedHash, re.blocks[0].Transactions[0].Hash)
	assert.Equal(t, inlineTx, re.blocks[0].Transactions[1].Bytes)

	responder.Feed(encodeFrameHeader(msgEndBlock, 0))
	assert.Len(t, re.blocks, 1, "END_BLOCK after early assembly must be a no-op, not a second delivery")
}

// abbrevHashResponder negotiates a responder straight into ABBREV_HASH
// mode ("charming chameleon"), bypassing the usual currentVersion
// (CacheID) handshake so the mandatory count field and trailer-record
// path can be exercised directly.
func abbrevHashResponder() (*Engine, *fakeEmbedder) {
	re := &fakeEmbedder{}
	responder := NewEngine(Responder, re, acceptAllValidator{}, testLog())
	payload := []byte("charming chameleon")
	frame := append(encodeFrameHeader(msgVersion, uint32(len(payload))), payload...)
	responder.Feed(frame)
	return responder, re
}

func TestAbbrevHashBlockWithCachedAndTrailerTransactions(t *testing.T) {
	responder, re := abbrevHashResponder()
	assert.Equal(t, AbbrevHash, responder.peerVersion.mode)

	knownTx := []byte("known by responder already")
	txFrame := append(encodeFrameHeader(msgTransaction, uint32(len(knownTx))), knownTx...)
	responder.Feed(txFrame)
	knownHash := re.transactions[0].Hash

	var header BlockHeader
	header[2] = 0x9

	count := make([]byte, 4)
	binary.BigEndian.PutUint32(count, 2)
	refs := append([]byte{}, count...)
	knownShortHash := NewShortHash(knownHash)
	refs = append(refs, knownShortHash[:]...)

	trailerTx := []byte("unseen until the trailer record")
	trailerShortHash := NewShortHash(digest.Sum(trailerTx))
	refs = append(refs, trailerShortHash[:]...)

	payload := append(append([]byte{}, header[:]...), refs...)
	blockFrame := append(encodeFrameHeader(msgBlock, uint32(len(payload))), payload...)
	responder.Feed(blockFrame)
	assert.Empty(t, re.blocks, "block must wait on the trailer record for the unseen transaction")

	trailerRecord := append(encodeRawLength(uint32(len(trailerTx))), trailerTx...)
	responder.Feed(trailerRecord)
	responder.Feed(encodeFrameHeader(msgEndBlock, 0))

	assert.Len(t, re.blocks, 1)
	assert.Len(t, re.blocks[0].Transactions, 2)
	assert.Equal(t, knownHash, re.blocks[0].Transactions[0].Hash)
	assert.Equal(t, trailerTx, re.blocks[0].Transactions[1].Bytes)
}

func TestAbbrevHashBlockMissingCountFieldFails(t *testing.T) {
	responder, re := abbrevHashResponder()

	// payload is the 80-byte header alone: no room left for the
	// mandatory 32-bit transaction count.
	var header BlockHeader
	blockFrame := append(encodeFrameHeader(msgBlock, uint32(BlockHeaderSize)), header[:]...)
	responder.Feed(blockFrame)

	assert.Error(t, re.failed)
}

func TestDuplicateShortHashInBlockFails(t *testing.T) {
	_, _, responder, re := connectedPair()

	tx := []byte("a transaction relayed twice in one block")
	frame := append(encodeFrameHeader(msgTransaction, uint32(len(tx))), tx...)
	responder.Feed(frame)
	hash := re.transactions[0].Hash
	idx, _ := responder.receivedTxSet.ordered.indexOf(hash)

	var header BlockHeader
	refs := []byte{byte(idx >> 8), byte(idx), byte(idx >> 8), byte(idx)}
	payload := append(append([]byte{}, header[:]...), refs...)
	// two ref entries, both the same cache index - the second lookup
	// fails since the first already consumed it, which is itself a
	// sufficient (if different) failure mode from the duplicate-hash
	// check; either way the session must fail.
	blockFrame := append(encodeFrameHeader(msgBlock, 2), payload...)
	responder.Feed(blockFrame)

	assert.Error(t, re.failed)
}

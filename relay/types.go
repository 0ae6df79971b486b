// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package relay

import (
	"github.com/bitmark-inc/relaynode/digest"
)

// BlockHeaderSize - number of bytes in a fixed-size block header
const BlockHeaderSize = 80

// MaxBlockSize - the reference network's block size ceiling; also
// used uniformly as the frame length sanity limit for every message
// type, VERSION payloads included
const MaxBlockSize = 4000000

// maxInlineTransactionSize - inline transactions in CACHE_ID mode are
// length-prefixed with a 24-bit field, so they must fit in 2^24 bytes
const maxInlineTransactionSize = 1 << 24

// cacheIndexOverflowThreshold - 2*(2^15-1). sent_tx_set/received_tx_set
// positions are never reused, so a long-lived connection's position
// counter eventually exceeds what fits safely below the 0xFFFF inline
// marker. Reaching this is a fatal internal inconsistency, not a
// recoverable cache miss.
const cacheIndexOverflowThreshold = 0xFFFE

// relayedBlockSetCapacity - relayed_block_set holds only enough recent
// block headers to dedupe a block arriving back over the same
// connection it was sent on; it does not need to span the chain's
// whole history.
const relayedBlockSetCapacity = 50

// BlockHeader - fixed 80-byte block header. Its double-SHA-256 digest
// identifies the block, but the engine never computes that digest
// itself - hashing is always performed by the embedder/validator and
// handed to the engine already done.
type BlockHeader [BlockHeaderSize]byte

// Transaction - an opaque blob of raw bytes, identified by its hash;
// the engine never interprets the bytes and never computes the hash,
// both are the validator's responsibility
type Transaction struct {
	Hash  digest.Digest
	Bytes []byte
}

// Block - a header plus an ordered list of transactions; once
// assembled by the engine it is handed to the embedder and the engine
// no longer owns it
type Block struct {
	Header       BlockHeader
	Transactions []Transaction
}

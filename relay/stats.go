// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package relay

// Stats - a point-in-time snapshot of one connection's traffic
// counters, as returned by Snapshot; the engine does not pass it to
// any sink itself.
type Stats struct {
	PeerVersion     string
	ReceivedBlocks  uint64
	ReceivedTx      uint64
	SentBlocks      uint64
	SentTx          uint64
}

// Snapshot returns the current counter values for this engine.
func (e *Engine) Snapshot() Stats {
	return Stats{
		PeerVersion:    e.peerVersionStr,
		ReceivedBlocks: e.receivedBlocks.Uint64(),
		ReceivedTx:     e.receivedTxCount.Uint64(),
		SentBlocks:     e.sentBlocks.Uint64(),
		SentTx:         e.sentTxCount.Uint64(),
	}
}

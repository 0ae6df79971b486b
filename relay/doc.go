// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package relay implements the bidirectional, framed relay peer
// protocol engine for propagating blocks and unconfirmed transactions
// between two cooperating nodes with minimum redundant bandwidth.
//
// An Engine is attached to one duplex byte stream (one relay peer).
// It negotiates a protocol version, maintains the bounded transaction
// caches that make abbreviated transmission possible, reconstructs
// full blocks from a mix of cache references and inline transaction
// bytes, and enforces strict framing and size invariants against an
// adversarial peer. Socket handling, TLS, peer discovery, and the
// semantic validation of blocks and transactions are all external
// collaborators, injected through the Embedder and Validator
// interfaces - this package only ever talks to those interfaces, never
// to a socket or a consensus engine directly.
package relay

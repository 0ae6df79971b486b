// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/bitmark-inc/relaynode/digest"
	"github.com/bitmark-inc/relaynode/internpool"
	"github.com/bitmark-inc/relaynode/relay"
)

// daemonValidator is the demonstration stand-in for the consensus
// engine relay.Engine assumes is provided: it computes transaction
// hashes with the digest package and interns transactions in a
// process-wide expiring pool so two connections that relay the same
// transaction converge on one shared copy, the same role the original
// node's reservoir played between its separate peer connections.
type daemonValidator struct {
	pool *internpool.Pool
}

func newDaemonValidator() *daemonValidator {
	return &daemonValidator{pool: internpool.New()}
}

// VerifyTransaction computes the double-SHA-256 digest of raw
// transaction bytes. This demonstration validator has no mempool or
// consensus rules to check against, so every correctly-hashed
// transaction is accepted.
func (v *daemonValidator) VerifyTransaction(raw []byte) (relay.Transaction, error) {
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return relay.Transaction{Hash: digest.Sum(cp), Bytes: cp}, nil
}

// VerifyBlock has no block-chain state to check a block's proof of
// work or transaction set against, so it always accepts.
func (v *daemonValidator) VerifyBlock(relay.Block) error {
	return nil
}

// InternTransaction returns the first copy of tx seen within the
// pool's expiration window, so two connections relaying the same
// transaction in quick succession end up pointing at identical bytes.
func (v *daemonValidator) InternTransaction(tx relay.Transaction) relay.Transaction {
	return v.pool.Intern(string(tx.Hash[:]), tx).(relay.Transaction)
}

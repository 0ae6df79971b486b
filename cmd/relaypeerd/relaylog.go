// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/bitmark-inc/logger"
	"github.com/bitmark-inc/relaynode/messagebus"
	"github.com/bitmark-inc/relaynode/relay"
)

// relayLog drains the process-wide message bus that every connEmbedder
// publishes assembled blocks and transactions onto, and logs a summary
// of each. It stands in for whatever real consumer (a mempool, a
// storage layer, a further relay fan-out) would otherwise subscribe.
type relayLog struct {
	log *logger.L
}

func newRelayLog() *relayLog {
	return &relayLog{log: logger.New("relaylog")}
}

// Run implements background.Process, draining messagebus.Chan() until
// shutdown is closed.
func (r *relayLog) Run(args interface{}, shutdown <-chan bool, done chan<- bool) {
	defer close(done)

	queue := messagebus.Chan()
	for {
		select {
		case <-shutdown:
			return
		case item := <-queue:
			switch v := item.Item.(type) {
			case relay.Block:
				r.log.Infof("%s: block relayed: %d transactions", item.From, len(v.Transactions))
			case relay.Transaction:
				r.log.Infof("%s: transaction relayed: %s", item.From, v.Hash)
			default:
				r.log.Debugf("%s: unhandled message bus item: %#v", item.From, item.Item)
			}
		}
	}
}

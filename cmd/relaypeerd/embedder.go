// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"net"

	"github.com/bitmark-inc/logger"
	"github.com/bitmark-inc/relaynode/messagebus"
	"github.com/bitmark-inc/relaynode/relay"
	"github.com/bitmark-inc/relaynode/statspublisher"
)

// connEmbedder is the demonstration relay.Embedder backing one
// net.Conn. Its On* callbacks fan blocks and transactions out on the
// process-wide message bus, and republish every textual stats/connect
// line through the daemon's stats publisher, so the engine itself
// never has to know a socket or a ZMQ publisher exist.
type connEmbedder struct {
	conn    net.Conn
	log     *logger.L
	pub     *statspublisher.Publisher
	engine  *relay.Engine
	closeCh chan struct{}
}

func newConnEmbedder(conn net.Conn, pub *statspublisher.Publisher) *connEmbedder {
	return &connEmbedder{
		conn:    conn,
		log:     logger.New("relaypeer:" + conn.RemoteAddr().String()),
		pub:     pub,
		closeCh: make(chan struct{}),
	}
}

func (e *connEmbedder) Send(data []byte) error {
	_, err := e.conn.Write(data)
	return err
}

func (e *connEmbedder) Fail(err error) {
	e.log.Errorf("connection failed: %s", err)
	e.publish("failed", err.Error())
	e.conn.Close()
	close(e.closeCh)
}

func (e *connEmbedder) OnBlockHeader(header relay.BlockHeader) {
	e.log.Debugf("block header received: %x", header[:8])
}

func (e *connEmbedder) OnBlock(block relay.Block) {
	e.log.Infof("block assembled: %d transactions", len(block.Transactions))
	messagebus.Send("relay", block)
	e.publish("block", "assembled")
}

func (e *connEmbedder) OnTransaction(tx relay.Transaction) {
	messagebus.Send("relay", tx)
	e.publish("transaction", "received")
}

func (e *connEmbedder) OnLog(line string) {
	e.log.Info(line)
}

func (e *connEmbedder) OnLogStats(line string) {
	e.log.Info(line)
	e.publish("stats", line)
}

func (e *connEmbedder) OnConnected(line string) {
	e.log.Info(line)
	e.publish("connected", line)
}

func (e *connEmbedder) publish(event string, line string) {
	if e.pub == nil {
		return
	}
	if err := e.pub.Publish(e.conn.RemoteAddr().String(), event, line); err != nil {
		e.log.Warnf("stats publish failed: %s", err)
	}
}

// readLoop feeds everything read from conn into engine until the
// connection errors or is closed.
func (e *connEmbedder) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := e.conn.Read(buf)
		if n > 0 {
			e.engine.Feed(buf[:n])
		}
		if err != nil {
			e.log.Infof("connection closed: %s", err)
			return
		}
		select {
		case <-e.closeCh:
			return
		default:
		}
	}
}

// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package statspublisher republishes the textual connection/stats
// events a relay.Engine would otherwise only log, so other local
// processes can subscribe to them over ZMQ instead of scraping log
// files. It is the daemon-level analogue of the engine's on_log_stats
// callback, grounded on the original node's peer.broadcaster (ZMQ PUB,
// SNDMORE-framed parts).
package statspublisher

import (
	"github.com/bitmark-inc/logger"
	"github.com/bitmark-inc/relaynode/util"
	"github.com/bitmark-inc/relaynode/zmqutil"
	zmq "github.com/pebbe/zmq4"
)

// Publisher publishes connection/stats lines over a ZMQ PUB socket.
type Publisher struct {
	log    *logger.L
	socket *zmq.Socket
}

// New binds a publisher to every address in listen (e.g. "*:3000",
// prefixed with "tcp://" by the caller's configuration loader).
func New(listen []string) (*Publisher, error) {
	log := logger.New("statspublisher")
	socket, err := zmqutil.NewBind(log, zmq.PUB, listen)
	if err != nil {
		return nil, err
	}
	return &Publisher{log: log, socket: socket}, nil
}

// Publish sends one event: a topic part (so subscribers can filter by
// ZMQ subscription prefix), a varint-length-prefixed envelope of
// (peer address, event name), and finally the free-text line itself.
func (p *Publisher) Publish(peerAddress string, event string, line string) error {
	envelope := []byte{}
	envelope = append(envelope, util.ToVarint64(uint64(len(peerAddress)))...)
	envelope = append(envelope, []byte(peerAddress)...)
	envelope = append(envelope, util.ToVarint64(uint64(len(event)))...)
	envelope = append(envelope, []byte(event)...)

	if _, err := p.socket.Send(event, zmq.SNDMORE|zmq.DONTWAIT); err != nil {
		return err
	}
	if _, err := p.socket.SendBytes(envelope, zmq.SNDMORE|zmq.DONTWAIT); err != nil {
		return err
	}
	_, err := p.socket.SendBytes([]byte(line), zmq.DONTWAIT)
	return err
}

// Run is a background.Process: it keeps the publisher's socket open
// until told to shut down, so cmd/relaypeerd can supervise it
// alongside the discovery refresher under one background.T.
func (p *Publisher) Run(args interface{}, shutdown <-chan bool, done chan<- bool) {
	defer close(done)
	<-shutdown
	p.socket.Close()
}

// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net"

	"github.com/bitmark-inc/logger"
	"github.com/bitmark-inc/relaynode/configuration"
	"github.com/bitmark-inc/relaynode/discovery"
	"github.com/bitmark-inc/relaynode/relay"
	"github.com/bitmark-inc/relaynode/statspublisher"
)

// connector dials every statically configured peer plus every peer
// discovery currently knows about, and hands each connection off to
// its own relay.Engine as Initiator.
type connector struct {
	log       *logger.L
	validator *daemonValidator
	pub       *statspublisher.Publisher
}

func newConnector(pub *statspublisher.Publisher) *connector {
	return &connector{
		log:       logger.New("connector"),
		validator: newDaemonValidator(),
		pub:       pub,
	}
}

func (c *connector) dialAll(cfg *configuration.Configuration, refresher *discovery.Refresher) {
	for _, conn := range cfg.Connect {
		go c.dial(conn.Address)
	}
	if refresher != nil {
		for _, candidate := range refresher.Candidates() {
			go c.dial(candidateAddress(candidate))
		}
	}
}

func candidateAddress(c discovery.Candidate) string {
	ip := c.IPv4
	if ip == nil {
		ip = c.IPv6
	}
	return net.JoinHostPort(ip.String(), fmt.Sprintf("%d", c.Port))
}

func (c *connector) dial(address string) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		c.log.Errorf("dial %q failed: %s", address, err)
		return
	}
	c.log.Infof("connected to %q", address)

	embedder := newConnEmbedder(conn, c.pub)
	embedder.engine = relay.NewEngine(relay.Initiator, embedder, c.validator, logger.New("engine:"+address))
	embedder.OnConnected(fmt.Sprintf("connected to %s", address))
	embedder.readLoop()
}

// listen accepts inbound connections on listenAddress, handing each
// off to its own relay.Engine as Responder.
func (c *connector) listen(listenAddress string) error {
	ln, err := net.Listen("tcp", listenAddress)
	if err != nil {
		return err
	}
	c.log.Infof("listening on %q", listenAddress)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				c.log.Errorf("accept failed: %s", err)
				return
			}
			go func() {
				embedder := newConnEmbedder(conn, c.pub)
				embedder.engine = relay.NewEngine(relay.Responder, embedder, c.validator, logger.New("engine:"+conn.RemoteAddr().String()))
				embedder.OnConnected(fmt.Sprintf("accepted from %s", conn.RemoteAddr()))
				embedder.readLoop()
			}()
		}
	}()
	return nil
}

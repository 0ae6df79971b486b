// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package zmqutil collects small ZeroMQ socket helpers shared by the
// daemon's stats publisher. It is a deliberately thin slice of the
// original node's zmqutil package: no CURVE authentication and no
// split IPv4/IPv6 binding, since a local stats sink has neither peers
// to authenticate nor a need for dual-stack listeners.
package zmqutil

import (
	"github.com/bitmark-inc/logger"
	zmq "github.com/pebbe/zmq4"
)

// NewBind creates a socket of socketType and binds it to every address
// in listen, closing the socket and returning on the first bind
// failure.
func NewBind(log *logger.L, socketType zmq.Type, listen []string) (*zmq.Socket, error) {
	socket, err := zmq.NewSocket(socketType)
	if err != nil {
		return nil, err
	}
	socket.SetLinger(0)

	for i, address := range listen {
		if err := socket.Bind(address); err != nil {
			log.Errorf("cannot bind[%d]: %q  error: %v", i, address, err)
			socket.Close()
			return nil, err
		}
		log.Infof("bind[%d]: %q", i, address)
	}
	return socket, nil
}

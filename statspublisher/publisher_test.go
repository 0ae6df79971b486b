// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package statspublisher

import (
	"testing"
	"time"

	"github.com/bitmark-inc/relaynode/util"
	zmq "github.com/pebbe/zmq4"
	"github.com/stretchr/testify/assert"
)

func TestPublishRoundTrip(t *testing.T) {
	pub, err := New([]string{"tcp://127.0.0.1:*"})
	assert.NoError(t, err)
	defer pub.socket.Close()

	endpoint, err := pub.socket.GetLastEndpoint()
	assert.NoError(t, err)

	sub, err := zmq.NewSocket(zmq.SUB)
	assert.NoError(t, err)
	defer sub.Close()
	assert.NoError(t, sub.Connect(endpoint))
	assert.NoError(t, sub.SetSubscribe(""))

	// give the subscriber time to complete its connection handshake
	time.Sleep(100 * time.Millisecond)

	assert.NoError(t, pub.Publish("10.0.0.1:4000", "connected", "peer handshake complete"))

	parts, err := sub.RecvMessage(0)
	assert.NoError(t, err)
	assert.Len(t, parts, 3)
	assert.Equal(t, "connected", parts[0])

	envelope := []byte(parts[1])
	addrLen, n := util.FromVarint64(envelope)
	addr := string(envelope[n : n+int(addrLen)])
	envelope = envelope[n+int(addrLen):]
	eventLen, n2 := util.FromVarint64(envelope)
	event := string(envelope[n2 : n2+int(eventLen)])

	assert.Equal(t, "10.0.0.1:4000", addr)
	assert.Equal(t, "connected", event)
	assert.Equal(t, "peer handshake complete", parts[2])
}

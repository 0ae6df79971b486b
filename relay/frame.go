// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package relay

import (
	"encoding/binary"

	"github.com/bitmark-inc/relaynode/fault"
)

// frameMagic - 4-byte marker that distinguishes a framed message
// header from a raw length-prefixed record
const frameMagic = uint32(0xF2BEEF42)

// frameHeaderSize - magic + message type + length, each 4 bytes
const frameHeaderSize = 12

// messageType - the 4-byte type field of a framed message
type messageType uint32

const (
	msgVersion     messageType = 0
	msgBlock       messageType = 1
	msgTransaction messageType = 2
	msgEndBlock    messageType = 3
	msgMaxVersion  messageType = 4
)

func (t messageType) String() string {
	switch t {
	case msgVersion:
		return "VERSION"
	case msgBlock:
		return "BLOCK"
	case msgTransaction:
		return "TRANSACTION"
	case msgEndBlock:
		return "END_BLOCK"
	case msgMaxVersion:
		return "MAX_VERSION"
	default:
		return "UNKNOWN"
	}
}

// frameHeader - the decoded fields of a 12-byte frame header
type frameHeader struct {
	msgType messageType
	length  uint32
}

// peekMagic reports whether the first 4 bytes of buf equal the frame
// magic. buf must have at least 4 bytes.
func peekMagic(buf []byte) bool {
	return binary.BigEndian.Uint32(buf[0:4]) == frameMagic
}

// decodeFrameHeader parses a 12-byte header. Caller guarantees len(buf) >= frameHeaderSize.
func decodeFrameHeader(buf []byte) (frameHeader, error) {
	magic := binary.BigEndian.Uint32(buf[0:4])
	if magic != frameMagic {
		return frameHeader{}, fault.ErrBadMagic
	}
	mt := messageType(binary.BigEndian.Uint32(buf[4:8]))
	length := binary.BigEndian.Uint32(buf[8:12])
	if length > MaxBlockSize {
		return frameHeader{}, fault.ErrFrameTooLarge
	}
	return frameHeader{msgType: mt, length: length}, nil
}

// encodeFrameHeader serializes a 12-byte header for msgType with the
// given payload length.
func encodeFrameHeader(msgType messageType, length uint32) []byte {
	buf := make([]byte, frameHeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], frameMagic)
	binary.BigEndian.PutUint32(buf[4:8], uint32(msgType))
	binary.BigEndian.PutUint32(buf[8:12], length)
	return buf
}

// decodeRawLength parses a bare 4-byte length prefix, used for the
// implicit-TRANSACTION records that follow an ABBREV_HASH block's
// short-hash list.
func decodeRawLength(buf []byte) (uint32, error) {
	length := binary.BigEndian.Uint32(buf[0:4])
	if length > maxInlineTransactionSize {
		return 0, fault.ErrFrameTooLarge
	}
	return length, nil
}

func encodeRawLength(length uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, length)
	return buf
}

// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/bitmark-inc/relaynode/fault"
)

// Length - number of bytes in a digest
const Length = 32

// Digest - double SHA-256 hash
//
// stored as little endian byte array
// represented as big endian hex value for print
// represented as little endian hex text for JSON encoding
type Digest [Length]byte

// Sum - compute the double-SHA-256 digest of a byte slice
func Sum(record []byte) Digest {
	first := sha256.Sum256(record)
	second := sha256.Sum256(first[:])

	var d Digest
	copy(d[:], second[:])
	return d
}

// internal function to return a reversed byte order copy of a digest
func reversed(d Digest) []byte {
	result := make([]byte, Length)
	for i := 0; i < Length; i += 1 {
		result[i] = d[Length-1-i]
	}
	return result
}

// String - convert a binary digest to hex string for use by the fmt
// package (for %s)
//
// the stored version is in little endian, but the output string is
// big endian
func (digest Digest) String() string {
	return hex.EncodeToString(reversed(digest))
}

// GoString - convert a binary digest to big endian hex string for use
// by the fmt package (for %#v)
func (digest Digest) GoString() string {
	return "<sha256d:" + hex.EncodeToString(reversed(digest)) + ">"
}

// Scan - convert a big endian hex representation to a digest for use
// by the format package scan routines
func (digest *Digest) Scan(state fmt.ScanState, verb rune) error {
	token, err := state.Token(true, func(c rune) bool {
		if c >= '0' && c <= '9' {
			return true
		}
		if c >= 'A' && c <= 'F' {
			return true
		}
		if c >= 'a' && c <= 'f' {
			return true
		}
		return false
	})
	if nil != err {
		return err
	}
	buffer := make([]byte, hex.DecodedLen(len(token)))
	byteCount, err := hex.Decode(buffer, token)
	if nil != err {
		return err
	}

	for i, v := range buffer[:byteCount] {
		digest[Length-1-i] = v
	}
	return nil
}

// MarshalText - convert digest to little endian hex text
func (digest Digest) MarshalText() ([]byte, error) {
	size := hex.EncodedLen(len(digest))
	buffer := make([]byte, size)
	hex.Encode(buffer, digest[:])
	return buffer, nil
}

// UnmarshalText - convert little endian hex text into a digest
func (digest *Digest) UnmarshalText(s []byte) error {
	buffer := make([]byte, hex.DecodedLen(len(s)))
	byteCount, err := hex.Decode(buffer, s)
	if nil != err {
		return err
	}
	for i, v := range buffer[:byteCount] {
		digest[i] = v
	}
	return nil
}

// FromBytes - convert and validate a little endian binary byte slice
// to a digest
func FromBytes(digest *Digest, buffer []byte) error {
	if Length != len(buffer) {
		return fault.ErrInvalidDigestLength
	}
	for i := 0; i < Length; i += 1 {
		digest[i] = buffer[i]
	}
	return nil
}

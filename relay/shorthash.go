// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package relay

import (
	"encoding/hex"

	"github.com/bitmark-inc/relaynode/digest"
)

// ShortHashLength - number of bytes in a short hash
const ShortHashLength = 8

// ShortHash - first 8 bytes of a 32-byte transaction hash, used as a
// compact wire key in ABBREV_HASH mode
type ShortHash [ShortHashLength]byte

// NewShortHash - truncate a full transaction hash to its short hash
func NewShortHash(hash digest.Digest) ShortHash {
	var sh ShortHash
	copy(sh[:], hash[:ShortHashLength])
	return sh
}

// String - hex representation, for logging
func (sh ShortHash) String() string {
	return hex.EncodeToString(sh[:])
}

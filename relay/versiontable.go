// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package relay

// RelayMode - how unconfirmed transactions inside a relayed block are
// referenced on the wire
type RelayMode int

const (
	// AbbrevHash - transactions are referenced by an 8-byte short
	// hash, resolved against received_tx_map; unresolved references
	// become out-of-block trailer records
	AbbrevHash RelayMode = iota

	// CacheID - transactions are referenced by a 16-bit positional
	// index into received_tx_set; 0xFFFF marks an inline transaction
	CacheID
)

// cacheIDInlineMarker - sentinel cache index meaning "transaction
// bytes follow inline, do not look up the cache"
const cacheIDInlineMarker = 0xFFFF

// versionEntry - the negotiated parameters carried by one version
// string: K is the short-hash/cache capacity, L is the maximum
// free-relay transaction size.
type versionEntry struct {
	k    int
	l    int
	mode RelayMode
}

// versionTable - every version string this engine understands, oldest
// first. A version not present here is rejected during negotiation.
var versionTable = map[string]versionEntry{
	"efficient eagle":  {k: 2000, l: MaxBlockSize, mode: AbbrevHash},
	"charming chameleon": {k: 1000, l: 10000, mode: AbbrevHash},
	"determined dragonfly": {k: 1000, l: 25000, mode: CacheID},
}

// currentVersion - the version string this engine offers when
// initiating or responding
const currentVersion = "determined dragonfly"

// lookupVersion resolves a version string to its negotiated
// parameters, or false if unrecognised.
func lookupVersion(version string) (versionEntry, bool) {
	v, ok := versionTable[version]
	return v, ok
}

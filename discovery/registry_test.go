// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package discovery

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryReplaceIsSortedByFingerprint(t *testing.T) {
	r := newRegistry()
	r.replace([]Candidate{
		{IPv4: net.ParseIP("10.0.0.3"), Port: 1, Fingerprint: []byte("cccc")},
		{IPv4: net.ParseIP("10.0.0.1"), Port: 1, Fingerprint: []byte("aaaa")},
		{IPv4: net.ParseIP("10.0.0.2"), Port: 1, Fingerprint: []byte("bbbb")},
	})

	got := r.Candidates()
	assert.Len(t, got, 3)
	assert.Equal(t, "10.0.0.1", got[0].IPv4.String())
	assert.Equal(t, "10.0.0.2", got[1].IPv4.String())
	assert.Equal(t, "10.0.0.3", got[2].IPv4.String())
}

func TestRegistryReplaceDiscardsPreviousSet(t *testing.T) {
	r := newRegistry()
	r.replace([]Candidate{{Fingerprint: []byte("aaaa")}})
	r.replace([]Candidate{{Fingerprint: []byte("bbbb")}})

	got := r.Candidates()
	assert.Len(t, got, 1)
	assert.Equal(t, []byte("bbbb"), got[0].Fingerprint)
}

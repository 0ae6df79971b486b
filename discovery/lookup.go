// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package discovery resolves a domain's DNS TXT records into a set of
// candidate relay peer addresses, the concrete stand-in for peering to
// the underlying cryptocurrency network. relay.Engine never imports
// this package - it is wired in by cmd/relaypeerd only.
package discovery

import (
	"net"
	"strings"

	"github.com/bitmark-inc/logger"
	"github.com/bitmark-inc/relaynode/fault"
)

// Lookup resolves domain's TXT records into candidate relay peer
// addresses. Records that do not match the tag grammar are logged and
// skipped rather than failing the whole lookup.
func Lookup(domain string, log *logger.L) ([]Candidate, error) {
	if domain == "" {
		return nil, fault.ErrInvalidDnsTxtRecord
	}

	texts, err := net.LookupTXT(domain)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(texts))
	for i, t := range texts {
		t = strings.TrimSpace(t)
		c, err := parseTag(t)
		if err != nil {
			log.Infof("ignoring TXT[%d] %q: %s", i, t, err)
			continue
		}
		log.Infof("candidate[%d]: ipv4=%s ipv6=%s port=%d fingerprint=%x", i, c.IPv4, c.IPv6, c.Port, c.Fingerprint)
		candidates = append(candidates, c)
	}
	return candidates, nil
}

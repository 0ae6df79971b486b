// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package discovery

import (
	"encoding/hex"
	"net"
	"strconv"
	"strings"

	"github.com/bitmark-inc/relaynode/fault"
)

// fingerprintLength - hex characters in a SHA3-256 fingerprint
const fingerprintLength = 2 * 32

// Candidate - one relay peer address advertised by a DNS TXT record
type Candidate struct {
	IPv4        net.IP
	IPv6        net.IP
	Port        uint16
	Fingerprint []byte
}

// parseTag decodes one DNS TXT record of the form
//
//	ipv4=<addr>;ipv6=<addr>;port=<port>;fingerprint=<hex>
//
// ipv4 and ipv6 are each optional but at least one must be present;
// port and fingerprint are mandatory. Unknown fields and extra
// whitespace are ignored; malformed fields are a hard parse error.
func parseTag(s string) (Candidate, error) {
	var c Candidate
	haveAddress := false
	havePort := false
	haveFingerprint := false

	for _, field := range strings.Split(strings.TrimSpace(s), ";") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		eq := strings.IndexByte(field, '=')
		if eq < 0 {
			return Candidate{}, fault.ErrInvalidDnsTxtRecord
		}
		key, value := field[:eq], field[eq+1:]

		switch key {
		case "ipv4":
			ip := net.ParseIP(value)
			if ip == nil || ip.To4() == nil {
				return Candidate{}, fault.ErrInvalidIpAddress
			}
			c.IPv4 = ip
			haveAddress = true

		case "ipv6":
			ip := net.ParseIP(value)
			if ip == nil || ip.To4() != nil {
				return Candidate{}, fault.ErrInvalidIpAddress
			}
			c.IPv6 = ip
			haveAddress = true

		case "port":
			port, err := strconv.Atoi(value)
			if err != nil || port < 1 || port > 65535 {
				return Candidate{}, fault.ErrInvalidPortNumber
			}
			c.Port = uint16(port)
			havePort = true

		case "fingerprint":
			if len(value) != fingerprintLength {
				return Candidate{}, fault.ErrInvalidFingerprint
			}
			fp, err := hex.DecodeString(value)
			if err != nil {
				return Candidate{}, fault.ErrInvalidFingerprint
			}
			c.Fingerprint = fp
			haveFingerprint = true

		default:
			// unrecognised field, ignore
		}
	}

	if !haveAddress || !havePort || !haveFingerprint {
		return Candidate{}, fault.ErrInvalidDnsTxtRecord
	}
	return c, nil
}

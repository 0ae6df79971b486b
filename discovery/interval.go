// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package discovery

import (
	"net"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/miekg/dns"
)

// defaultInterval - how often to re-resolve the discovery domain when
// the SOA record's own TTL does not suggest something shorter
const defaultInterval = 1 * time.Hour

const resolvConf = "/etc/resolv.conf"

// nextInterval queries domain's SOA record and shortens the default
// re-resolution interval to the record's TTL, if that TTL is smaller.
// Any failure along the way (missing resolver config, no name server,
// failed exchange) falls back to defaultInterval rather than erroring,
// since a discovery refresh cadence is advisory, not load-bearing.
func nextInterval(domain string, log *logger.L) time.Duration {
	t := defaultInterval

	conf, err := dns.ClientConfigFromFile(resolvConf)
	if err != nil {
		log.Errorf("reading %s: %s", resolvConf, err)
		return t
	}
	if len(conf.Servers) == 0 {
		log.Error("no dns name server configured")
		return t
	}

	server := net.JoinHostPort(conf.Servers[0], conf.Port)
	c := dns.Client{}
	msg := dns.Msg{}
	msg.SetQuestion(domain+".", dns.TypeSOA)

	r, _, err := c.Exchange(&msg, server)
	if err != nil {
		log.Errorf("soa exchange with %s: %s", server, err)
		return t
	}
	if len(r.Ns) == 0 {
		log.Error("soa response has no authority section")
		return t
	}

	for _, ns := range r.Ns {
		soa, ok := ns.(*dns.SOA)
		if !ok || soa.Hdr.Ttl == 0 {
			continue
		}
		ttl := time.Duration(soa.Hdr.Ttl) * time.Second
		if ttl < t {
			t = ttl
		}
	}
	log.Infof("next discovery refresh in %v", t)
	return t
}

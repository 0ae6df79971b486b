// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package discovery

import (
	"time"

	"github.com/bitmark-inc/logger"
)

// Refresher periodically re-resolves a discovery domain and keeps the
// most recent set of candidates available for the connector to read.
type Refresher struct {
	domain string
	log    *logger.L
	reg    *registry
}

// NewRefresher creates a refresher for domain. It performs one
// synchronous lookup immediately so Candidates() has something to
// return before the background process's first tick.
func NewRefresher(domain string) (*Refresher, error) {
	log := logger.New("discovery")
	r := &Refresher{
		domain: domain,
		log:    log,
		reg:    newRegistry(),
	}
	candidates, err := Lookup(domain, log)
	if err != nil {
		return nil, err
	}
	r.reg.replace(candidates)
	return r, nil
}

// Candidates returns the most recently resolved set of peer
// candidates, sorted by fingerprint.
func (r *Refresher) Candidates() []Candidate {
	return r.reg.Candidates()
}

// Run is a background.Process: it re-resolves the domain on a
// TTL-derived interval until told to shut down.
func (r *Refresher) Run(args interface{}, shutdown <-chan bool, done chan<- bool) {
	defer close(done)

	timer := time.NewTimer(nextInterval(r.domain, r.log))
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			if candidates, err := Lookup(r.domain, r.log); err != nil {
				r.log.Errorf("refresh failed: %s", err)
			} else {
				r.reg.replace(candidates)
			}
			timer.Reset(nextInterval(r.domain, r.log))

		case <-shutdown:
			return
		}
	}
}

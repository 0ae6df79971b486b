// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package internpool provides a process-wide expiring cache of
// canonical values, adapted from storage/cache.go's dbCache wrapper
// around the same third-party cache.
package internpool

import (
	"time"

	cache "github.com/patrickmn/go-cache"
)

const (
	defaultTimeout    = 1 * time.Minute
	defaultExpiration = 2 * time.Minute
)

// Pool interns values under a string key, returning the first copy
// seen until it expires, at which point the next Intern call replaces
// it.
type Pool struct {
	cache *cache.Cache
}

// New returns a Pool using the package's default timeout/expiration,
// the same pair storage/cache.go uses for its database write-behind
// cache.
func New() *Pool {
	return NewWithTTL(defaultTimeout, defaultExpiration)
}

// NewWithTTL returns a Pool with an explicit entry expiration
// (timeout) and cleanup interval (expiration), for callers (tests, mainly) that need a shorter
// horizon than the package defaults.
func NewWithTTL(timeout, expiration time.Duration) *Pool {
	return &Pool{cache: cache.New(timeout, expiration)}
}

// Intern returns the existing value stored under key if it has not
// yet expired, otherwise stores value as the new canonical copy and
// returns it.
func (p *Pool) Intern(key string, value interface{}) interface{} {
	if existing, ok := p.cache.Get(key); ok {
		return existing
	}
	p.cache.SetDefault(key, value)
	return value
}

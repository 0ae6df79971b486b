// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package digest - double-SHA-256 hashing for block headers and
// transactions
//
// the concrete instance of the relay protocol's "double-hash
// primitive... assumed to be provided"
package digest

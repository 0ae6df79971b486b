// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

// ensure that git has a tag: "vX.Y" corresponding to major and minor
const (
	Major      = "1"
	Minor      = "0"
	binVersion = Major + "." + Minor
)

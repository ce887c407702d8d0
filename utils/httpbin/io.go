// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package httpbin

import (
	"io"
)

// repeatReader yields pattern repeated until n bytes are read.
// The pattern continues across reads regardless of the buffer size.
type repeatReader struct {
	pattern []byte
	off     int
	n       int64
}

func newRepeatReader(pattern string, n int64) *repeatReader {
	return &repeatReader{pattern: []byte(pattern), n: n}
}

func (r *repeatReader) Read(p []byte) (int, error) {
	if r.n <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > r.n {
		p = p[:r.n]
	}

	n := 0
	for n < len(p) {
		c := copy(p[n:], r.pattern[r.off:])
		n += c
		r.off = (r.off + c) % len(r.pattern)
	}
	r.n -= int64(n)
	return n, nil
}

// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package httplog

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"time"
)

const maxBodyLogSize = 1024

var redactedHeaders = []string{ //nolint:gochecknoglobals // constant list
	"Authorization",
	"Proxy-Authorization",
	"Cookie",
	"Set-Cookie",
}

type entry struct {
	req      *http.Request
	res      *http.Response
	err      error
	duration time.Duration
}

type structuredLogBuilder struct {
	args []any
}

func (b *structuredLogBuilder) Args() []any {
	return b.args
}

func (b *structuredLogBuilder) add(args ...any) {
	b.args = append(b.args, args...)
}

func (b *structuredLogBuilder) withStatus(e entry) {
	if e.err != nil {
		b.add("error", e.err.Error())
	} else {
		b.add("status", e.res.StatusCode)
	}
	b.add("duration", e.duration.String())
}

func (b *structuredLogBuilder) WithShortURL(e entry) {
	u := *e.req.URL
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	b.add("method", e.req.Method, "url", u.String())
	b.withStatus(e)
}

func (b *structuredLogBuilder) WithURL(e entry) {
	b.add("method", e.req.Method, "url", redactURL(e.req.URL))
	b.withStatus(e)
}

func (b *structuredLogBuilder) WithHeaders(e entry) {
	b.add("request_headers", redactHeader(e.req.Header))
	if e.res != nil {
		b.add("response_headers", redactHeader(e.res.Header))
	}
}

// WithBody logs the beginning of the response body, the body remains readable.
func (b *structuredLogBuilder) WithBody(e entry) {
	if e.res == nil || e.res.Body == nil || e.res.Body == http.NoBody {
		return
	}

	buf := make([]byte, maxBodyLogSize)
	n, err := io.ReadFull(e.res.Body, buf)
	buf = buf[:n]
	switch err {
	case nil, io.EOF, io.ErrUnexpectedEOF:
	default:
		b.add("body_error", err.Error())
	}
	b.add("body", string(buf))

	e.res.Body = &peekedBody{
		Reader: io.MultiReader(bytes.NewReader(buf), e.res.Body),
		Closer: e.res.Body,
	}
}

type peekedBody struct {
	io.Reader
	io.Closer
}

func redactURL(u *url.URL) string {
	c := *u
	q := c.Query()
	for k := range q {
		if k == "key" || k == "api_key" || k == "token" {
			q.Set(k, "xxxxx")
		}
	}
	if len(q) > 0 {
		c.RawQuery = q.Encode()
	}
	return c.Redacted()
}

func redactHeader(h http.Header) http.Header {
	c := h.Clone()
	for _, k := range redactedHeaders {
		if v := c.Values(k); len(v) > 0 {
			r := make([]string, len(v))
			for i := range r {
				r[i] = "<redacted>"
			}
			c[k] = r
		}
	}
	return c
}

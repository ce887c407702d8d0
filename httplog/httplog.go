// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package httplog logs requests sent through the proxy client.
// Credentials in headers and API keys in URLs are redacted.
package httplog

import (
	"net/http"
	"time"
)

// Mode defines the logging verbosity.
type Mode string

const (
	None     Mode = "none"
	ShortURL Mode = "short-url"
	URL      Mode = "url"
	Headers  Mode = "headers"
	Body     Mode = "body"
	// Errors logs like Headers, but only failed requests and responses with status 400 and above.
	Errors Mode = "errors"
)

var DefaultMode = Errors

func (m Mode) String() string {
	if m == "" {
		return DefaultMode.String()
	}
	return string(m)
}

// NewTransport returns a RoundTripper logging requests sent with base.
// The log function is called with a message and key value pairs.
func NewTransport(base http.RoundTripper, logFunc func(msg string, args ...any), mode Mode) http.RoundTripper {
	if mode == "" {
		mode = DefaultMode
	}
	if mode == None {
		return base
	}
	return &transport{base: base, log: logFunc, mode: mode}
}

type transport struct {
	base http.RoundTripper
	log  func(msg string, args ...any)
	mode Mode
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	res, err := t.base.RoundTrip(req)
	e := entry{req: req, res: res, err: err, duration: time.Since(start)}

	failed := err != nil || res.StatusCode >= http.StatusBadRequest
	if t.mode == Errors && !failed {
		return res, err
	}

	var b structuredLogBuilder
	if t.mode == URL {
		b.WithURL(e)
	} else {
		b.WithShortURL(e)
	}
	if t.mode == Headers || t.mode == Body || t.mode == Errors {
		b.WithHeaders(e)
	}
	if t.mode == Body {
		b.WithBody(e)
	}

	msg := "HTTP request"
	if failed {
		msg = "HTTP request failed"
	}
	t.log(msg, b.Args()...)

	return res, err
}

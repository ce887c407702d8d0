// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxyprobe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxNegotiateAttempts bounds the number of requests sent for a single RoundTrip,
// one for the initial request and one per challenge from the proxy and the origin.
const maxNegotiateAttempts = 3

// NegotiateTransport answers Negotiate challenges with SPNEGO tokens.
// A 407 response is answered with Proxy-Authorization for the proxy SPN,
// a 401 response with Authorization for the target SPN.
// Mutual authentication of the response is not verified.
type NegotiateTransport struct {
	Base http.RoundTripper
	// Header returns a header value for the given service principal name.
	Header func(ctx context.Context, spn string) (string, error)
	// ProxyURL is the proxy requests are sent through, nil disables proxy challenges.
	ProxyURL *url.URL
}

func (t *NegotiateTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *NegotiateTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		b, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		body = b
	}

	var authz, proxyAuthz string
	for attempt := 0; attempt < maxNegotiateAttempts; attempt++ {
		r := req.Clone(req.Context())
		if body != nil {
			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
		} else if attempt > 0 && req.GetBody != nil {
			b, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			r.Body = b
		}
		if authz != "" {
			r.Header.Set("Authorization", authz)
		}
		if proxyAuthz != "" {
			r.Header.Set("Proxy-Authorization", proxyAuthz)
		}

		res, err := t.base().RoundTrip(r)
		if err != nil {
			return nil, err
		}

		switch {
		case res.StatusCode == http.StatusProxyAuthRequired && proxyAuthz == "" && t.ProxyURL != nil &&
			isNegotiateChallenge(res.Header.Values("Proxy-Authenticate")):
			proxyAuthz, err = t.Header(req.Context(), spnForHost(t.ProxyURL.Hostname()))
		case res.StatusCode == http.StatusUnauthorized && authz == "" &&
			isNegotiateChallenge(res.Header.Values("WWW-Authenticate")):
			authz, err = t.Header(req.Context(), spnForHost(req.URL.Hostname()))
		default:
			return res, nil
		}

		discardBody(res)
		if err != nil {
			return nil, fmt.Errorf("negotiate: %w", err)
		}
	}

	return nil, fmt.Errorf("negotiate authentication failed after %d attempts", maxNegotiateAttempts)
}

func spnForHost(hostname string) string {
	return "HTTP/" + hostname
}

func isNegotiateChallenge(values []string) bool {
	for _, v := range values {
		for _, c := range strings.Split(v, ",") {
			scheme, _, _ := strings.Cut(strings.TrimSpace(c), " ")
			if strings.EqualFold(scheme, "Negotiate") {
				return true
			}
		}
	}
	return false
}

func discardBody(res *http.Response) {
	io.Copy(io.Discard, io.LimitReader(res.Body, 64*1024)) //nolint:errcheck // best effort
	res.Body.Close()
}

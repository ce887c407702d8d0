// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBasicAuthCredentials(t *testing.T) {
	tests := []struct {
		name   string
		header string
		user   string
		pass   string
		ok     bool
	}{
		{name: "empty"},
		{name: "valid", header: "Basic YWxpY2U6c2VjcmV0", user: "alice", pass: "secret", ok: true},
		{name: "lower case scheme", header: "basic YWxpY2U6c2VjcmV0", user: "alice", pass: "secret", ok: true},
		{name: "colon in password", header: "Basic YWxpY2U6c2U6Y3JldA==", user: "alice", pass: "se:cret", ok: true},
		{name: "other scheme", header: "Bearer YWxpY2U6c2VjcmV0"},
		{name: "bad base64", header: "Basic !!!"},
		{name: "no colon", header: "Basic YWxpY2U="},
	}

	ba := NewBasicAuth()
	for i := range tests {
		tc := tests[i]
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tc.header != "" {
				r.Header.Set(AuthorizationHeader, tc.header)
			}
			user, pass, ok := ba.Credentials(r)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.user, user)
			require.Equal(t, tc.pass, pass)
		})
	}
}

func TestBasicAuthWrap(t *testing.T) {
	tests := []struct {
		name      string
		ba        *BasicAuth
		set       bool
		status    int
		challenge string
	}{
		{name: "origin ok", ba: NewBasicAuth(), set: true, status: http.StatusOK},
		{name: "origin missing", ba: NewBasicAuth(), status: http.StatusUnauthorized, challenge: "WWW-Authenticate"},
		{name: "proxy ok", ba: NewProxyBasicAuth(), set: true, status: http.StatusOK},
		{name: "proxy missing", ba: NewProxyBasicAuth(), status: http.StatusProxyAuthRequired, challenge: "Proxy-Authenticate"},
	}

	for i := range tests {
		tc := tests[i]
		t.Run(tc.name, func(t *testing.T) {
			h := tc.ba.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Empty(t, r.Header.Get(tc.ba.Header), "credentials must not be forwarded")
				w.WriteHeader(http.StatusOK)
			}), "alice", "secret")

			r := httptest.NewRequest(http.MethodGet, "http://example.com/", http.NoBody)
			if tc.set {
				tc.ba.Set(r, "alice", "secret")
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			res := w.Result()
			defer res.Body.Close()
			require.Equal(t, tc.status, res.StatusCode)
			if tc.challenge != "" {
				require.Equal(t, `Basic realm="proxyprobe"`, res.Header.Get(tc.challenge))
			}
		})
	}
}

func TestSetUserinfo(t *testing.T) {
	ba := NewProxyBasicAuth()

	r := httptest.NewRequest(http.MethodConnect, "/", http.NoBody)
	ba.SetUserinfo(r, nil)
	require.Empty(t, r.Header.Get(ProxyAuthorizationHeader))

	ba.SetUserinfo(r, url.UserPassword("alice", "secret"))
	require.Equal(t, "Basic YWxpY2U6c2VjcmV0", r.Header.Get(ProxyAuthorizationHeader))
	require.True(t, ba.Verify(r, "alice", "secret"))
	require.False(t, ba.Verify(r, "alice", "wrong"))
}

// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package middleware implements Basic authentication for the proxy side
// (Proxy-Authorization, 407) and the origin side (Authorization, 401).
package middleware

import (
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
)

const (
	AuthorizationHeader      = "Authorization"
	ProxyAuthorizationHeader = "Proxy-Authorization"

	DefaultRealm = "proxyprobe"
)

// BasicAuth reads and writes Basic credentials in a single header.
type BasicAuth struct {
	Header string
	Realm  string
}

func NewBasicAuth() *BasicAuth {
	return &BasicAuth{Header: AuthorizationHeader, Realm: DefaultRealm}
}

func NewProxyBasicAuth() *BasicAuth {
	return &BasicAuth{Header: ProxyAuthorizationHeader, Realm: DefaultRealm}
}

func (ba *BasicAuth) proxy() bool {
	return ba.Header == ProxyAuthorizationHeader
}

// Credentials returns the user and password sent in the header.
func (ba *BasicAuth) Credentials(r *http.Request) (user, pass string, ok bool) {
	scheme, token, found := strings.Cut(r.Header.Get(ba.Header), " ")
	if !found || !strings.EqualFold(scheme, "Basic") {
		return "", "", false
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return "", "", false
	}
	return strings.Cut(string(raw), ":")
}

// Verify reports whether the request carries exactly the given credentials.
func (ba *BasicAuth) Verify(r *http.Request, user, pass string) bool {
	u, p, ok := ba.Credentials(r)
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(u), []byte(user))
	passOK := subtle.ConstantTimeCompare([]byte(p), []byte(pass))
	return userOK&passOK == 1
}

// SetUserinfo writes the header from u, nil leaves the request untouched.
// Credentials are not URL encoded, see RFC 7617 section 2.
func (ba *BasicAuth) SetUserinfo(r *http.Request, u *url.Userinfo) {
	if u == nil {
		return
	}
	pass, _ := u.Password()
	ba.Set(r, u.Username(), pass)
}

func (ba *BasicAuth) Set(r *http.Request, user, pass string) {
	r.Header.Set(ba.Header, "Basic "+base64.StdEncoding.EncodeToString([]byte(user+":"+pass)))
}

// Challenge writes a 401 or 407 response asking for Basic credentials.
func (ba *BasicAuth) Challenge(w http.ResponseWriter) {
	v := `Basic realm="` + ba.Realm + `"`
	if ba.proxy() {
		w.Header().Set("Proxy-Authenticate", v)
		w.Header().Set("Proxy-Connection", "close")
		w.WriteHeader(http.StatusProxyAuthRequired)
		return
	}
	w.Header().Set("WWW-Authenticate", v)
	w.Header().Set("Connection", "close")
	w.WriteHeader(http.StatusUnauthorized)
}

// Wrap calls h only for requests authenticated as user.
// The credentials header is removed before h is called.
func (ba *BasicAuth) Wrap(h http.Handler, user, pass string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ba.Verify(r, user, pass) {
			ba.Challenge(w)
			return
		}
		r.Header.Del(ba.Header)
		h.ServeHTTP(w, r)
	})
}

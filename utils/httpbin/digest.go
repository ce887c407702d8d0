// Copyright 2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package httpbin

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/icholy/digest"
)

// DigestRealm is the realm announced by the /digest-auth/ endpoint.
const DigestRealm = "proxyprobe"

// digestAuthHandler implements the /digest-auth/{qop}/{user}/{passwd} endpoint.
// Only qop=auth and the MD5 algorithm are supported.
// See https://httpbin.org/#/Auth/get_digest_auth__qop___user___passwd_
func digestAuthHandler(w http.ResponseWriter, r *http.Request) {
	if qop := r.PathValue("qop"); qop != "auth" {
		http.Error(w, fmt.Sprintf("unsupported qop %q, only auth is supported", qop), http.StatusBadRequest)
		return
	}
	user, pass := r.PathValue("user"), r.PathValue("passwd")

	if h := r.Header.Get("Authorization"); h != "" && verifyDigest(r, h, user, pass) {
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"user":          user,
		})
		return
	}

	chal := digest.Challenge{
		Realm:     DigestRealm,
		Nonce:     randomHex(16),
		Opaque:    randomHex(16),
		Algorithm: "MD5",
		QOP:       []string{"auth"},
	}
	w.Header().Set("WWW-Authenticate", chal.String())
	w.WriteHeader(http.StatusUnauthorized)
}

func verifyDigest(r *http.Request, header, user, pass string) bool {
	cred, err := digest.ParseCredentials(header)
	if err != nil || cred.Username != user || cred.Realm != DigestRealm {
		return false
	}

	chal := &digest.Challenge{
		Realm:     cred.Realm,
		Nonce:     cred.Nonce,
		Opaque:    cred.Opaque,
		Algorithm: "MD5",
		QOP:       []string{"auth"},
	}
	want, err := digest.Digest(chal, digest.Options{
		Method:   r.Method,
		URI:      cred.URI,
		Count:    cred.Nc,
		Cnonce:   cred.Cnonce,
		Username: user,
		Password: pass,
	})
	if err != nil {
		return false
	}

	return want.Response == cred.Response
}

func randomHex(n int) string {
	b := make([]byte, n)
	rand.Read(b) //nolint:errcheck // crypto/rand does not fail
	return hex.EncodeToString(b)
}

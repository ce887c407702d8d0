// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package httpbin is the upstream used by tests and by "proxyprobe test httpbin".
// It implements the parts of the httpbin.org API the probes need
// and a mock of the Google Custom Search JSON API.
package httpbin

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/saucelabs/proxyprobe/middleware"
)

func Handler() http.Handler {
	m := http.NewServeMux()
	m.HandleFunc("/anything", anythingHandler)
	m.HandleFunc("/anything/", anythingHandler)
	m.HandleFunc("GET /basic-auth/{user}/{passwd}", basicAuthHandler)
	m.HandleFunc("GET /digest-auth/{qop}/{user}/{passwd}", digestAuthHandler)
	m.HandleFunc("/delay/{ms}", delayHandler)
	m.HandleFunc("/status/{code}", statusHandler)
	m.HandleFunc("GET /stream-bytes/{n}", streamBytesHandler)
	m.HandleFunc("POST /count-bytes/", countBytesHandler)
	m.HandleFunc("/headers/", headersHandler)
	m.HandleFunc("GET /customsearch/v1", customSearchHandler)
	return m
}

// anythingHandler echoes the request as JSON.
func anythingHandler(w http.ResponseWriter, r *http.Request) {
	b, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	headers := make(map[string]string, len(r.Header))
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"method":  r.Method,
		"url":     r.URL.String(),
		"headers": headers,
		"data":    string(b),
	})
}

func basicAuthHandler(w http.ResponseWriter, r *http.Request) {
	user, pass := r.PathValue("user"), r.PathValue("passwd")

	if ba := middleware.NewBasicAuth(); !ba.Verify(r, user, pass) {
		ba.Challenge(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          user,
	})
}

// delayHandler responds after ms milliseconds or when the request is canceled.
func delayHandler(w http.ResponseWriter, r *http.Request) {
	ms, ok := pathInt(w, r, "ms")
	if !ok {
		return
	}

	t := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer t.Stop()

	select {
	case <-r.Context().Done():
	case <-t.C:
	}

	w.WriteHeader(http.StatusOK)
}

// statusHandler responds with the status code from the path.
// The body query parameter sets the response body, body=true sends the status text.
func statusHandler(w http.ResponseWriter, r *http.Request) {
	code, ok := pathInt(w, r, "code")
	if !ok {
		return
	}
	if code < 100 || code > 999 {
		http.Error(w, fmt.Sprintf("invalid status code %d", code), http.StatusBadRequest)
		return
	}

	body := r.URL.Query().Get("body")
	if body == "true" {
		body = http.StatusText(code)
	}
	if body != "" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.WriteHeader(code)
	io.WriteString(w, body) //nolint:errcheck // best effort
}

// streamBytesHandler streams n bytes of a repeated pattern in chunks of chunk_size.
func streamBytesHandler(w http.ResponseWriter, r *http.Request) {
	n, ok := pathInt(w, r, "n")
	if !ok {
		return
	}

	chunkSize := 10 * 1024
	if cs := r.URL.Query().Get("chunk_size"); cs != "" {
		v, err := strconv.Atoi(cs)
		if err != nil || v <= 0 {
			http.Error(w, fmt.Sprintf("invalid chunk_size %q", cs), http.StatusBadRequest)
			return
		}
		chunkSize = v
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)

	// The struct hides WriterTo so that the buffer size is respected.
	io.CopyBuffer(w, struct{ io.Reader }{newRepeatReader("proxyprobe", int64(n))}, make([]byte, chunkSize)) //nolint:errcheck // best effort
}

// countBytesHandler reads the request body and sends back its size in the Body-Size header.
func countBytesHandler(w http.ResponseWriter, r *http.Request) {
	n, _ := io.Copy(io.Discard, r.Body) //nolint:errcheck // best effort
	w.Header().Set("Body-Size", strconv.FormatInt(n, 10))
	w.WriteHeader(http.StatusOK)
}

// headersHandler echoes the request headers as response headers.
func headersHandler(w http.ResponseWriter, r *http.Request) {
	for k, vv := range r.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	s := r.PathValue(name)
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		http.Error(w, fmt.Sprintf("invalid %s %q", name, s), http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best effort
}

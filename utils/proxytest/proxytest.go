// Copyright 2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package proxytest provides a recording HTTP forward proxy for tests.
package proxytest

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/saucelabs/proxyprobe/middleware"
)

// ProxyAgent is the value of the Proxy-Agent header sent in CONNECT responses.
const ProxyAgent = "proxytest"

// Record is a request received by the proxy, captured before authentication.
type Record struct {
	Method     string
	Host       string
	RequestURI string
	Header     http.Header
}

// ProxyAuthorization returns the Proxy-Authorization header of the request.
func (r Record) ProxyAuthorization() string {
	return r.Header.Get("Proxy-Authorization")
}

// Authorization returns the Authorization header of the request.
func (r Record) Authorization() string {
	return r.Header.Get("Authorization")
}

type Option func(*Server)

// WithBasicAuth requires Basic proxy authentication with the given credentials.
func WithBasicAuth(user, pass string) Option {
	return func(s *Server) {
		s.basicUser, s.basicPass = user, pass
	}
}

// WithNegotiate requires the Proxy-Authorization header to carry a Negotiate token.
// The token itself is not validated.
func WithNegotiate() Option {
	return func(s *Server) {
		s.negotiate = true
	}
}

// WithUpstream sets the transport used to forward plain HTTP requests.
func WithUpstream(rt http.RoundTripper) Option {
	return func(s *Server) {
		s.upstream = rt
	}
}

// Server is an HTTP forward proxy supporting plain requests and CONNECT tunnels.
type Server struct {
	*httptest.Server

	basicUser string
	basicPass string
	negotiate bool
	upstream  http.RoundTripper

	mu      sync.Mutex
	records []Record
	conns   map[net.Conn]struct{}
	wg      sync.WaitGroup
}

// NewServer starts a proxy server that is closed when the test ends.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()

	s := &Server{
		conns: make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.upstream == nil {
		s.upstream = &http.Transport{
			Proxy:             nil,
			DisableKeepAlives: true,
		}
	}

	s.Server = httptest.NewServer(s.handler())
	t.Cleanup(s.Close)

	return s
}

func (s *Server) handler() http.Handler {
	var h http.Handler = http.HandlerFunc(s.forward)
	if s.negotiate {
		h = requireNegotiate(h)
	}
	if s.basicUser != "" {
		h = middleware.NewProxyBasicAuth().Wrap(h, s.basicUser, s.basicPass)
	}
	return s.record(h)
}

func (s *Server) record(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.records = append(s.records, Record{
			Method:     r.Method,
			Host:       r.Host,
			RequestURI: r.RequestURI,
			Header:     r.Header.Clone(),
		})
		s.mu.Unlock()

		h.ServeHTTP(w, r)
	})
}

func requireNegotiate(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := r.Header.Get("Proxy-Authorization")
		if len(v) <= len("Negotiate ") || !strings.EqualFold(v[:len("Negotiate ")], "Negotiate ") {
			w.Header().Set("Proxy-Authenticate", "Negotiate")
			w.WriteHeader(http.StatusProxyAuthRequired)
			return
		}
		r.Header.Del("Proxy-Authorization")
		h.ServeHTTP(w, r)
	})
}

func (s *Server) forward(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodConnect {
		s.tunnel(w, r)
		return
	}

	if !r.URL.IsAbs() {
		http.Error(w, "proxy requires absolute request URI", http.StatusBadRequest)
		return
	}

	req := r.Clone(r.Context())
	req.RequestURI = ""
	req.Header.Del("Proxy-Connection")
	req.Header.Del("Proxy-Authorization")

	res, err := s.upstream.RoundTrip(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	defer res.Body.Close()

	for k, vv := range res.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(res.StatusCode)
	io.Copy(w, res.Body) //nolint:errcheck // best effort
}

func (s *Server) tunnel(w http.ResponseWriter, r *http.Request) {
	upstream, err := net.DialTimeout("tcp", r.Host, 5*time.Second)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	hj, ok := w.(http.Hijacker)
	if !ok {
		upstream.Close()
		http.Error(w, "hijacking not supported", http.StatusInternalServerError)
		return
	}

	conn, brw, err := hj.Hijack()
	if err != nil {
		upstream.Close()
		return
	}
	if _, err := fmt.Fprintf(conn, "HTTP/1.1 200 Connection established\r\nProxy-Agent: %s\r\n\r\n", ProxyAgent); err != nil {
		conn.Close()
		upstream.Close()
		return
	}

	s.track(conn, upstream)
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		if n := brw.Reader.Buffered(); n > 0 {
			b, _ := brw.Reader.Peek(n) //nolint:errcheck // n bytes are buffered
			upstream.Write(b)          //nolint:errcheck // best effort
		}
		io.Copy(upstream, conn) //nolint:errcheck // best effort
		s.untrack(conn, upstream)
	}()
	go func() {
		defer s.wg.Done()
		io.Copy(conn, upstream) //nolint:errcheck // best effort
		s.untrack(conn, upstream)
	}()
}

func (s *Server) track(conns ...net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range conns {
		s.conns[c] = struct{}{}
	}
}

func (s *Server) untrack(conns ...net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range conns {
		c.Close()
		delete(s.conns, c)
	}
}

// Close shuts down the server and closes all tunnels.
func (s *Server) Close() {
	s.Server.Close()

	s.mu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// Records returns a copy of the requests received so far.
func (s *Server) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...)
}

// Host returns the host name and port the proxy listens on.
func (s *Server) Host() (host string, port int) {
	u, err := url.Parse(s.Server.URL)
	if err != nil {
		panic(err)
	}
	port, err = strconv.Atoi(u.Port())
	if err != nil {
		panic(err)
	}
	return u.Hostname(), port
}

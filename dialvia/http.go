// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package dialvia

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/saucelabs/proxyprobe/middleware"
)

// maxErrorBody is the number of body bytes kept in ConnectError.
const maxErrorBody = 1024

// ConnectError is returned when the proxy answers CONNECT with a non 2xx status.
type ConnectError struct {
	StatusCode int
	Status     string
	// Challenges are the Proxy-Authenticate values, a 407 response lists the schemes the proxy accepts.
	Challenges []string
	Body       string
}

func (e *ConnectError) Error() string {
	if len(e.Challenges) > 0 {
		return fmt.Sprintf("proxy CONNECT failed: %s, proxy accepts: %s", e.Status, strings.Join(e.Challenges, ", "))
	}
	return "proxy CONNECT failed: " + e.Status
}

// HTTPProxyDialer opens tunnels through an HTTP proxy with the CONNECT method.
// Credentials in the proxy URL are sent as Basic Proxy-Authorization.
type HTTPProxyDialer struct {
	dial     ContextDialerFunc
	proxyURL *url.URL

	// GetProxyConnectHeader optionally returns headers to send to the proxy with the CONNECT request,
	// it has the same semantics as http.Transport.GetProxyConnectHeader.
	// Headers returned here replace the Basic credentials from the proxy URL.
	GetProxyConnectHeader func(ctx context.Context, proxyURL *url.URL, target string) (http.Header, error)
}

func HTTPProxy(dial ContextDialerFunc, proxyURL *url.URL) *HTTPProxyDialer {
	if dial == nil {
		panic("dial is required")
	}
	if proxyURL == nil || proxyURL.Scheme != "http" {
		panic("proxy URL with http scheme is required")
	}

	return &HTTPProxyDialer{
		dial:     dial,
		proxyURL: proxyURL,
	}
}

// DialContext returns the tunnel connection, or *ConnectError if the proxy refused it.
func (d *HTTPProxyDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	res, conn, err := d.DialContextR(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if err := CheckConnectResponse(res); err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}

// CheckConnectResponse returns *ConnectError if res does not establish a tunnel.
// It reads up to 1KiB of the body of a refusal.
func CheckConnectResponse(res *http.Response) error {
	if res.StatusCode/100 == 2 {
		return nil
	}

	b, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	return &ConnectError{
		StatusCode: res.StatusCode,
		Status:     res.Status,
		Challenges: res.Header.Values("Proxy-Authenticate"),
		Body:       string(b),
	}
}

// DialContextR is like DialContext but returns the proxy response regardless of the status.
// The caller closes the response body and the connection.
func (d *HTTPProxyDialer) DialContextR(ctx context.Context, network, addr string) (*http.Response, net.Conn, error) {
	switch network {
	case "tcp", "tcp4", "tcp6":
	default:
		return nil, nil, fmt.Errorf("unsupported network: %s", network)
	}

	req, err := d.connectRequest(ctx, addr)
	if err != nil {
		return nil, nil, err
	}

	conn, err := d.dial(ctx, "tcp", d.proxyURL.Host)
	if err != nil {
		return nil, nil, err
	}

	res, br, err := roundTrip(ctx, conn, req)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	if br.Buffered() > 0 {
		return res, &bufferedConn{Conn: conn, r: br}, nil
	}
	return res, conn, nil
}

// bufferedConn returns tunnel bytes read together with the CONNECT response first.
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *bufferedConn) Read(b []byte) (int, error) {
	return c.r.Read(b)
}

func (d *HTTPProxyDialer) connectRequest(ctx context.Context, addr string) (*http.Request, error) {
	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Host: addr},
		Host:   addr,
		Header: http.Header{},
	}
	// Empty User-Agent is not sent, the proxy sees no Go default.
	req.Header.Set("User-Agent", "")
	middleware.NewProxyBasicAuth().SetUserinfo(req, d.proxyURL.User)

	if f := d.GetProxyConnectHeader; f != nil {
		h, err := f(ctx, d.proxyURL, addr)
		if err != nil {
			return nil, fmt.Errorf("proxy connect header: %w", err)
		}
		for k, v := range h {
			req.Header[k] = v
		}
	}
	return req, nil
}

func roundTrip(ctx context.Context, conn net.Conn, req *http.Request) (*http.Response, *bufio.Reader, error) {
	type result struct {
		res *http.Response
		err error
	}
	ch := make(chan result, 1)
	br := bufio.NewReaderSize(conn, 1024)

	go func() {
		bw := bufio.NewWriterSize(conn, 1024)
		if err := req.Write(bw); err != nil {
			ch <- result{err: err}
			return
		}
		if err := bw.Flush(); err != nil {
			ch <- result{err: err}
			return
		}
		res, err := http.ReadResponse(br, req) //nolint:bodyclose // returned to the caller
		ch <- result{res, err}
	}()

	select {
	case <-ctx.Done():
		conn.Close()
		return nil, nil, ctx.Err()
	case r := <-ch:
		return r.res, br, r.err
	}
}

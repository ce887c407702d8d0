// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package dialvia

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type proxyStub struct {
	l net.Listener
}

func newProxyStub(t *testing.T) *proxyStub {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return &proxyStub{l: l}
}

func (p *proxyStub) URL(user *url.Userinfo) *url.URL {
	return &url.URL{Scheme: "http", Host: p.l.Addr().String(), User: user}
}

// serveOne accepts a single connection, reads the CONNECT request and passes it to h.
func (p *proxyStub) serveOne(h func(conn net.Conn, req *http.Request) error) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		conn, err := p.l.Accept()
		if err != nil {
			errCh <- err
			return
		}
		defer conn.Close()

		req, err := http.ReadRequest(bufio.NewReader(conn))
		if err != nil {
			errCh <- err
			return
		}
		if req.Method != http.MethodConnect {
			errCh <- fmt.Errorf("unexpected method %s", req.Method)
			return
		}
		errCh <- h(conn, req)
	}()
	return errCh
}

func newResponse(code int, body string, req *http.Request) *http.Response {
	return &http.Response{
		StatusCode:    code,
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        make(http.Header),
		Body:          io.NopCloser(bytes.NewBufferString(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

func dialer() ContextDialerFunc {
	return (&net.Dialer{Timeout: 5 * time.Second}).DialContext
}

func TestHTTPProxyDialerTunnel(t *testing.T) {
	p := newProxyStub(t)
	d := HTTPProxy(dialer(), p.URL(nil))

	errCh := p.serveOne(func(conn net.Conn, req *http.Request) error {
		if req.Host != "www.google.com:443" {
			return fmt.Errorf("unexpected host %s", req.Host)
		}
		if v := req.Header.Get("Proxy-Authorization"); v != "" {
			return fmt.Errorf("unexpected Proxy-Authorization %q", v)
		}
		// The response and the first tunnel bytes arrive in a single write.
		bw := bufio.NewWriter(conn)
		if err := newResponse(http.StatusOK, "", req).Write(bw); err != nil {
			return err
		}
		for i := range 100 {
			fmt.Fprintf(bw, "tunnel %d\n", i)
		}
		return bw.Flush()
	})

	conn, err := d.DialContext(context.Background(), "tcp", "www.google.com:443")
	require.NoError(t, err)
	defer conn.Close()

	n := 0
	s := bufio.NewScanner(conn)
	for s.Scan() {
		require.Equal(t, fmt.Sprintf("tunnel %d", n), s.Text())
		n++
	}
	require.NoError(t, s.Err())
	require.Equal(t, 100, n)
	require.NoError(t, <-errCh)
}

func TestHTTPProxyDialerBasicCredentials(t *testing.T) {
	p := newProxyStub(t)
	d := HTTPProxy(dialer(), p.URL(url.UserPassword("alice", "secret")))

	errCh := p.serveOne(func(conn net.Conn, req *http.Request) error {
		if v := req.Header.Get("Proxy-Authorization"); v != "Basic YWxpY2U6c2VjcmV0" {
			return fmt.Errorf("unexpected Proxy-Authorization %q", v)
		}
		return newResponse(http.StatusOK, "", req).Write(conn)
	})

	res, conn, err := d.DialContextR(context.Background(), "tcp", "example.com:443")
	require.NoError(t, err)
	res.Body.Close()
	conn.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NoError(t, <-errCh)
}

func TestHTTPProxyDialerConnectHeader(t *testing.T) {
	p := newProxyStub(t)
	d := HTTPProxy(dialer(), p.URL(url.UserPassword("alice", "secret")))
	d.GetProxyConnectHeader = func(_ context.Context, _ *url.URL, target string) (http.Header, error) {
		h := make(http.Header)
		h.Set("Proxy-Authorization", "Negotiate "+target)
		return h, nil
	}

	errCh := p.serveOne(func(conn net.Conn, req *http.Request) error {
		if v := req.Header.Values("Proxy-Authorization"); len(v) != 1 || v[0] != "Negotiate example.com:443" {
			return fmt.Errorf("unexpected Proxy-Authorization %q", v)
		}
		return newResponse(http.StatusOK, "", req).Write(conn)
	})

	conn, err := d.DialContext(context.Background(), "tcp", "example.com:443")
	require.NoError(t, err)
	conn.Close()
	require.NoError(t, <-errCh)
}

func TestHTTPProxyDialerConnectHeaderError(t *testing.T) {
	d := HTTPProxy(dialer(), &url.URL{Scheme: "http", Host: "127.0.0.1:1"})
	d.GetProxyConnectHeader = func(context.Context, *url.URL, string) (http.Header, error) {
		return nil, errors.New("no ticket")
	}

	_, err := d.DialContext(context.Background(), "tcp", "example.com:443")
	require.ErrorContains(t, err, "no ticket")
}

func TestHTTPProxyDialerProxyAuthRequired(t *testing.T) {
	p := newProxyStub(t)
	d := HTTPProxy(dialer(), p.URL(nil))

	errCh := p.serveOne(func(conn net.Conn, req *http.Request) error {
		res := newResponse(http.StatusProxyAuthRequired, "authentication required", req)
		res.Header.Add("Proxy-Authenticate", "Negotiate")
		res.Header.Add("Proxy-Authenticate", `Basic realm="proxy"`)
		return res.Write(conn)
	})

	conn, err := d.DialContext(context.Background(), "tcp", "example.com:443")
	require.Nil(t, conn)

	var ce *ConnectError
	require.True(t, errors.As(err, &ce), "got %v", err)
	require.Equal(t, http.StatusProxyAuthRequired, ce.StatusCode)
	require.Equal(t, []string{"Negotiate", `Basic realm="proxy"`}, ce.Challenges)
	require.Equal(t, "authentication required", ce.Body)
	require.ErrorContains(t, err, "proxy accepts: Negotiate")
	require.NoError(t, <-errCh)
}

func TestHTTPProxyDialerConnClosed(t *testing.T) {
	p := newProxyStub(t)
	d := HTTPProxy(dialer(), p.URL(nil))

	errCh := p.serveOne(func(net.Conn, *http.Request) error {
		return nil
	})

	conn, err := d.DialContext(context.Background(), "tcp", "example.com:443")
	require.Error(t, err)
	require.Nil(t, conn)
	require.NoError(t, <-errCh)
}

func TestHTTPProxyDialerContextCanceled(t *testing.T) {
	p := newProxyStub(t)
	d := HTTPProxy(dialer(), p.URL(nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	errCh := p.serveOne(func(net.Conn, *http.Request) error {
		cancel()
		<-done
		return nil
	})

	conn, err := d.DialContext(ctx, "tcp", "example.com:443")
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, conn)

	close(done)
	require.NoError(t, <-errCh)
}

func TestHTTPProxyDialerUnsupportedNetwork(t *testing.T) {
	d := HTTPProxy(dialer(), &url.URL{Scheme: "http", Host: "127.0.0.1:1"})
	_, err := d.DialContext(context.Background(), "udp", "example.com:53")
	require.ErrorContains(t, err, "unsupported network")
}

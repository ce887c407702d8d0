// Copyright 2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tunnel

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/saucelabs/proxyprobe/dialvia"
	"github.com/saucelabs/proxyprobe/utils/httpbin"
	"github.com/saucelabs/proxyprobe/utils/proxytest"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (stdout string, err error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := Command()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func tunnelArgs(p *proxytest.Server, addr string) []string {
	host, port := p.Host()
	return []string{addr, "--proxy-host", host, "--proxy-port", strconv.Itoa(port)}
}

func TestTunnelEstablished(t *testing.T) {
	origin := httptest.NewServer(httpbin.Handler())
	defer origin.Close()
	p := proxytest.NewServer(t, proxytest.WithBasicAuth("alice", "secret"))

	args := append(tunnelArgs(p, origin.Listener.Addr().String()), "--username", "alice", "--password", "secret")
	out, err := execute(t, args...)
	require.NoError(t, err)
	require.Contains(t, out, "status: 200")
	require.Contains(t, out, "proxy-agent: "+proxytest.ProxyAgent)
}

func TestTunnelRefused(t *testing.T) {
	origin := httptest.NewServer(httpbin.Handler())
	defer origin.Close()
	p := proxytest.NewServer(t, proxytest.WithBasicAuth("alice", "secret"))

	out, err := execute(t, tunnelArgs(p, origin.Listener.Addr().String())...)
	require.Contains(t, out, "status: 407")
	require.Contains(t, out, "proxy-authenticate: Basic")

	var cerr *dialvia.ConnectError
	require.True(t, errors.As(err, &cerr), "got %v", err)
	require.Equal(t, http.StatusProxyAuthRequired, cerr.StatusCode)
	require.ErrorContains(t, err, "not established")
}

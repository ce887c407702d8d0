// Copyright 2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package probe

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/saucelabs/proxyprobe"
	"github.com/saucelabs/proxyprobe/utils/httpbin"
	"github.com/saucelabs/proxyprobe/utils/proxytest"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, cmd *cobra.Command, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func proxyArgs(p *proxytest.Server) []string {
	host, port := p.Host()
	return []string{"--proxy-host", host, "--proxy-port", strconv.Itoa(port)}
}

func TestBasicDryRunPrintsConfig(t *testing.T) {
	out, _, err := execute(t, BasicCommand(),
		"--dry-run",
		"--proxy-host", "proxy.example.com",
		"--proxy-port", "8080",
		"--username", "alice",
		"--password", "secret",
	)
	require.NoError(t, err)
	require.Contains(t, out, "proxy-host: proxy.example.com")
	require.Contains(t, out, "username: alice")
	require.NotContains(t, out, "secret")
}

func TestKerberosDryRunMissingFiles(t *testing.T) {
	dir := t.TempDir()
	_, _, err := execute(t, KerberosCommand(),
		"--dry-run",
		"--proxy-host", "proxy.example.com",
		"--proxy-port", "8080",
		"--kerberos-principal", "HTTP/proxy.example.com@EXAMPLE.COM",
		"--keytab", filepath.Join(dir, "missing.keytab"),
		"--krb5-conf", filepath.Join(dir, "krb5.conf"),
	)

	var cerr *proxyprobe.ConfigurationMissingError
	require.True(t, errors.As(err, &cerr), "got %v", err)
}

func TestBasicMissingCredentials(t *testing.T) {
	_, _, err := execute(t, BasicCommand(),
		"--proxy-host", "proxy.example.com",
		"--proxy-port", "8080",
		"--username", "alice",
	)

	var perr *proxyprobe.InvalidCredentialPairError
	require.True(t, errors.As(err, &perr), "got %v", err)
}

func TestNoneRunsSuite(t *testing.T) {
	origin := httptest.NewServer(httpbin.Handler())
	defer origin.Close()
	p := proxytest.NewServer(t)

	textfile := filepath.Join(t.TempDir(), "proxyprobe.prom")
	args := append(proxyArgs(p),
		"--url", origin.URL+"/status/200",
		"--prom-textfile", textfile,
	)
	_, logs, err := execute(t, NoneCommand(), args...)
	require.NoError(t, err)
	require.Contains(t, logs, "all tests passed")

	b, err := os.ReadFile(textfile)
	require.NoError(t, err)
	require.Contains(t, string(b), "proxyprobe_requests_total")
}

func TestBasicAsyncRunsSuite(t *testing.T) {
	origin := httptest.NewServer(httpbin.Handler())
	defer origin.Close()
	p := proxytest.NewServer(t, proxytest.WithBasicAuth("alice", "secret"))

	args := append(proxyArgs(p),
		"--url", origin.URL+"/status/200",
		"--username", "alice",
		"--password", "secret",
		"--async",
	)
	_, _, err := execute(t, BasicCommand(), args...)
	require.NoError(t, err)

	for _, r := range p.Records() {
		require.Equal(t, "Basic YWxpY2U6c2VjcmV0", r.ProxyAuthorization())
	}
}

func TestNoneFailingSuite(t *testing.T) {
	origin := httptest.NewServer(httpbin.Handler())
	defer origin.Close()
	p := proxytest.NewServer(t)

	args := append(proxyArgs(p), "--url", origin.URL+"/status/500")
	_, _, err := execute(t, NoneCommand(), args...)
	require.ErrorIs(t, err, ErrTestsFailed)
}

func TestNoTestBuildsSessionOnly(t *testing.T) {
	p := proxytest.NewServer(t)

	args := append(proxyArgs(p), "--no-test")
	_, _, err := execute(t, NoneCommand(), args...)
	require.NoError(t, err)
	require.Empty(t, p.Records())
}

func TestAuthOnlyRequiresKerberosFiles(t *testing.T) {
	_, _, err := execute(t, KerberosCommand(),
		"--auth-only",
		"--proxy-host", "proxy.example.com",
		"--proxy-port", "8080",
		"--kerberos-principal", "user@EXAMPLE.COM",
	)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "keytab"), "got %v", err)
}

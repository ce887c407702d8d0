// Copyright 2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package harness

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/saucelabs/proxyprobe"
	plog "github.com/saucelabs/proxyprobe/log"
	"github.com/saucelabs/proxyprobe/log/slog"
	"github.com/saucelabs/proxyprobe/search"
	"github.com/saucelabs/proxyprobe/utils/httpbin"
	"github.com/saucelabs/proxyprobe/utils/proxytest"
	"github.com/stretchr/testify/require"
)

func newProxyClient(t *testing.T, p *proxytest.Server) *proxyprobe.ProxyClient {
	t.Helper()

	host, port := p.Host()
	cfg := proxyprobe.DefaultProxyClientConfig()
	cfg.Proxy = proxyprobe.ProxyEndpoint{Host: host, Port: port}
	c := proxyprobe.NewProxyClient(cfg, proxyprobe.NoAuth{}, plog.NopLogger)
	t.Cleanup(func() { c.Close() })
	return c
}

func searchConfig(baseURL string) *search.Config {
	c := search.DefaultConfig()
	c.URL = baseURL + "/customsearch/v1"
	c.APIKey = "key"
	c.EngineID = "cx"
	return c
}

func TestSuiteRun(t *testing.T) {
	origin := httptest.NewServer(httpbin.Handler())
	defer origin.Close()

	tests := []struct {
		name    string
		url     string
		search  func() *search.Config
		passed  int
		skipped bool
	}{
		{
			name:   "all passed",
			url:    origin.URL + "/status/200",
			search: func() *search.Config { return searchConfig(origin.URL) },
			passed: 2,
		},
		{
			name:    "search skipped",
			url:     origin.URL + "/status/200",
			search:  search.DefaultConfig,
			passed:  2,
			skipped: true,
		},
		{
			name:   "fetch failed",
			url:    origin.URL + "/status/500",
			search: func() *search.Config { return searchConfig(origin.URL) },
			passed: 1,
		},
		{
			name: "search failed",
			url:  origin.URL + "/status/200",
			search: func() *search.Config {
				c := searchConfig(origin.URL)
				c.URL = origin.URL + "/status/403"
				return c
			},
			passed: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := proxytest.NewServer(t)
			s := Suite{
				Client: newProxyClient(t, p),
				URL:    tc.url,
				Search: tc.search(),
			}
			r := s.Run(context.Background(), "none")

			require.Equal(t, 2, r.Total())
			require.Equal(t, tc.passed, r.Passed())
			require.Equal(t, tc.skipped, r.Results[0].Skipped)
			if tc.passed == 2 {
				require.True(t, r.OK())
				require.Equal(t, 0, r.ExitCode())
				require.NoError(t, r.Err())
			} else {
				require.Equal(t, 1, r.ExitCode())
				var se *proxyprobe.UnexpectedStatusError
				require.True(t, errors.As(r.Err(), &se))
			}

			for _, rec := range p.Records() {
				require.Equal(t, "proxyprobe", rec.Header.Get(proxyprobe.ApplicationNameHeader))
			}
		})
	}
}

func TestSuiteRunTransportError(t *testing.T) {
	p := proxytest.NewServer(t)
	s := Suite{
		Client: newProxyClient(t, p),
		URL:    "http://127.0.0.1:1/",
	}
	r := s.Run(context.Background(), "none")
	require.Equal(t, 1, r.Passed())

	var se *proxyprobe.UnexpectedStatusError
	require.True(t, errors.As(r.Err(), &se))
	require.Equal(t, http.StatusBadGateway, se.StatusCode)
}

func TestSuiteLogs(t *testing.T) {
	origin := httptest.NewServer(httpbin.Handler())
	defer origin.Close()

	var buf bytes.Buffer
	cfg := plog.DefaultConfig()
	cfg.Format = plog.JSONFormat
	l, err := slog.New(cfg, slog.WithWriter(&buf))
	require.NoError(t, err)

	s := Suite{
		Client: newProxyClient(t, proxytest.NewServer(t)),
		URL:    origin.URL + "/stream-bytes/500",
		Search: searchConfig(origin.URL),
		Log:    l,
	}
	s.Run(context.Background(), "none")

	out := buf.String()
	require.Contains(t, out, `"total_results":"1230"`)
	require.Contains(t, out, `"content_type":"application/octet-stream"`)
	require.Contains(t, out, `"passed":2`)
	require.Contains(t, out, `proxyprobeproxyprobe`)
	require.Contains(t, out, `...`)
}

func TestSuiteSearchPages(t *testing.T) {
	origin := httptest.NewServer(httpbin.Handler())
	defer origin.Close()

	var buf bytes.Buffer
	cfg := plog.DefaultConfig()
	cfg.Format = plog.JSONFormat
	l, err := slog.New(cfg, slog.WithWriter(&buf))
	require.NoError(t, err)

	p := proxytest.NewServer(t)
	sc := searchConfig(origin.URL)
	sc.Num = 25
	s := Suite{
		Client: newProxyClient(t, p),
		URL:    origin.URL + "/status/200",
		Search: sc,
		Log:    l,
	}
	r := s.Run(context.Background(), "none")
	require.True(t, r.OK())

	var starts []string
	for _, rec := range p.Records() {
		u, err := url.Parse(rec.RequestURI)
		require.NoError(t, err)
		if strings.HasSuffix(u.Path, "/customsearch/v1") {
			starts = append(starts, u.Query().Get("start")+":"+u.Query().Get("num"))
		}
	}
	require.Equal(t, []string{":10", "11:10", "21:5"}, starts)
	require.Contains(t, buf.String(), `"results":25`)
}

func TestPreview(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 200, "short"},
		{"line1\r\nline2\n", 200, "line1 line2"},
		{strings.Repeat("a", 201), 200, strings.Repeat("a", 200) + "..."},
		{"ąęść", 2, "ąę..."},
	}
	for _, tc := range tests {
		if got := Preview(tc.in, tc.n); got != tc.want {
			t.Errorf("Preview(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}

func TestHeaderPrint(t *testing.T) {
	var buf bytes.Buffer
	cfg := plog.DefaultConfig()
	cfg.Format = plog.JSONFormat
	l, err := slog.New(cfg, slog.WithWriter(&buf))
	require.NoError(t, err)

	Header{
		Title:   "BASIC AUTH TEST",
		Details: []Detail{{"username", "alice"}, {"password", ""}},
		URL:     "http://example.com",
	}.Print(l)

	out := buf.String()
	require.Contains(t, out, `"username":"alice"`)
	require.NotContains(t, out, `"password"`)
	require.Contains(t, out, `"proxy":"N/A"`)
}

var _ Requester = (*proxyprobe.ProxyClient)(nil)
var _ Requester = (*proxyprobe.AsyncSession)(nil)

// Copyright 2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package harness runs the connectivity test suite through an authenticated proxy client.
package harness

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/saucelabs/proxyprobe"
	"github.com/saucelabs/proxyprobe/log"
	"github.com/saucelabs/proxyprobe/search"
	"go.uber.org/multierr"
)

// DefaultPreviewLen is the number of body characters shown in previews and error reports.
const DefaultPreviewLen = 200

// Requester is implemented by proxyprobe.ProxyClient and proxyprobe.AsyncSession.
type Requester interface {
	MakeRequest(ctx context.Context, method, rawURL string, opts ...proxyprobe.RequestOption) (*http.Response, error)
}

type Suite struct {
	Client     Requester
	URL        string
	Search     *search.Config
	Log        log.StructuredLogger
	PreviewLen int
}

// TestResult is the outcome of a single test.
// A skipped test counts as passed.
type TestResult struct {
	Name    string
	Passed  bool
	Skipped bool
	Err     error
}

type Report struct {
	Method  string
	Results []TestResult
}

func (r Report) Passed() int {
	n := 0
	for _, t := range r.Results {
		if t.Passed {
			n++
		}
	}
	return n
}

func (r Report) Total() int {
	return len(r.Results)
}

func (r Report) OK() bool {
	return r.Passed() == r.Total()
}

// Err combines the errors of all failed tests.
func (r Report) Err() error {
	var err error
	for _, t := range r.Results {
		if t.Err != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", t.Name, t.Err))
		}
	}
	return err
}

// ExitCode returns 0 if all tests passed and 1 otherwise.
func (r Report) ExitCode() int {
	if r.OK() {
		return 0
	}
	return 1
}

// Run runs the search API test followed by the URL fetch test and logs a summary.
// The fetch test runs even if the search test failed.
func (s *Suite) Run(ctx context.Context, method string) Report {
	l := s.logger()
	l.Info("running test suite", "auth", method)

	report := Report{Method: method}
	for i, t := range []struct {
		name string
		fn   func(context.Context, log.StructuredLogger) TestResult
	}{
		{"search API", s.searchTest},
		{"URL fetch", s.fetchTest},
	} {
		l.Info(fmt.Sprintf("TEST %d: %s", i+1, t.name))
		res := t.fn(ctx, l.With("test", t.name))
		res.Name = t.name
		report.Results = append(report.Results, res)
	}

	l.Info("test summary", "passed", report.Passed(), "total", report.Total())
	if report.OK() {
		l.Info("all tests passed")
	} else {
		l.Error("tests failed", "failed", report.Total()-report.Passed())
	}

	return report
}

func (s *Suite) searchTest(ctx context.Context, l log.StructuredLogger) TestResult {
	cfg := s.Search
	if cfg == nil || !cfg.Enabled() {
		l.Warn("search API not configured, skipping search test",
			"hint", "set GOOGLE_SEARCH_API_KEY and GOOGLE_SEARCH_ENGINE_ID to enable search test")
		return TestResult{Passed: true, Skipped: true}
	}

	l.Info("testing search API", "url", cfg.URL, "query", cfg.Query)

	var (
		info  search.Information
		items []search.Item
	)
	for i, start := range cfg.Starts() {
		page, res := s.searchPage(ctx, l, cfg, start)
		if page == nil {
			return res
		}
		if i == 0 {
			info = page.Information
		}
		items = append(items, page.Items...)
		if n := cfg.PageSize(start); n == 0 || len(page.Items) < n {
			break
		}
	}

	l.Info("search API test successful",
		"total_results", info.TotalResults,
		"search_time", info.SearchTime,
		"results", len(items),
	)
	if len(items) == 0 {
		l.Info("no search results found")
	} else {
		first := items[0]
		l.Info("first result",
			"title", first.Title,
			"url", first.Link,
			"description", Preview(first.Snippet, 100),
		)
	}

	return TestResult{Passed: true}
}

// searchPage fetches the page of results starting at start.
// On failure it returns nil and the failed result.
func (s *Suite) searchPage(ctx context.Context, l log.StructuredLogger, cfg *search.Config, start int) (*search.Response, TestResult) {
	l.Debug("fetching search results", "start", start, "num", cfg.PageSize(start))

	res, err := s.Client.MakeRequest(ctx, http.MethodGet, cfg.URL, proxyprobe.WithQuery(cfg.Values(start)))
	if err != nil {
		l.Error("search API test failed", "error", err)
		return nil, TestResult{Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, s.unexpectedStatus(l, "search API test failed", res)
	}

	sr, err := search.Decode(res.Body)
	if err != nil {
		l.Error("search API test failed", "error", err)
		return nil, TestResult{Err: err}
	}
	return sr, TestResult{}
}

func (s *Suite) fetchTest(ctx context.Context, l log.StructuredLogger) TestResult {
	l.Info("testing URL fetch", "url", s.URL)

	res, err := s.Client.MakeRequest(ctx, http.MethodGet, s.URL)
	if err != nil {
		l.Error("URL fetch test failed", "error", err)
		return TestResult{Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return s.unexpectedStatus(l, "URL fetch test failed", res)
	}

	b, err := io.ReadAll(res.Body)
	if err != nil {
		l.Error("URL fetch test failed", "error", err)
		return TestResult{Err: err}
	}

	l.Info("URL fetch test successful",
		"length", len(b),
		"content_type", headerOrUnknown(res.Header, "Content-Type"),
		"server", headerOrUnknown(res.Header, "Server"),
		"preview", Preview(string(b), s.previewLen()),
	)

	return TestResult{Passed: true}
}

func (s *Suite) unexpectedStatus(l log.StructuredLogger, msg string, res *http.Response) TestResult {
	b, _ := io.ReadAll(io.LimitReader(res.Body, int64(s.previewLen()))) //nolint:errcheck // best effort
	err := &proxyprobe.UnexpectedStatusError{StatusCode: res.StatusCode, Body: string(b)}
	l.Error(msg, "status", res.StatusCode, "response", string(b))
	return TestResult{Err: err}
}

func (s *Suite) logger() log.StructuredLogger {
	return log.OrNop(s.Log)
}

func (s *Suite) previewLen() int {
	if s.PreviewLen <= 0 {
		return DefaultPreviewLen
	}
	return s.PreviewLen
}

func headerOrUnknown(h http.Header, key string) string {
	if v := h.Get(key); v != "" {
		return v
	}
	return "unknown"
}

// Preview returns the first n characters of s with line breaks collapsed.
// If s is longer than n "..." is appended.
func Preview(s string, n int) string {
	r := []rune(s)
	truncated := len(r) > n
	if truncated {
		r = r[:n]
	}
	p := strings.NewReplacer("\r", "", "\n", " ").Replace(string(r))
	p = strings.TrimSpace(p)
	if truncated {
		p += "..."
	}
	return p
}

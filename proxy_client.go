// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxyprobe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/saucelabs/proxyprobe/header"
	"github.com/saucelabs/proxyprobe/httplog"
	"github.com/saucelabs/proxyprobe/log"
	"go.uber.org/multierr"
	"golang.org/x/net/http/httpproxy"
)

// ApplicationNameHeader identifies the application on every request.
const ApplicationNameHeader = "ApplicationName"

var (
	ErrClientClosed = errors.New("proxy client closed")
	ErrSessionInUse = errors.New("proxy client already has a session of a different kind")
)

type ProxyClientConfig struct {
	HTTPTransportConfig

	Proxy ProxyEndpoint
	// AppName is sent in the ApplicationName header.
	AppName string
	// Headers are applied to every request after the ApplicationName header.
	Headers []header.Header
	// RequestTimeout limits the time of a request including reading the body, zero means no limit.
	RequestTimeout time.Duration
	LogHTTPMode    httplog.Mode
	// MaxConcurrency limits the number of in-flight requests of an AsyncSession.
	MaxConcurrency int
	// RequestRate limits the requests per second an AsyncSession starts, zero means no limit.
	RequestRate float64
	PromRegistry   prometheus.Registerer
	PromNamespace  string
}

func DefaultProxyClientConfig() *ProxyClientConfig {
	return &ProxyClientConfig{
		HTTPTransportConfig: *DefaultHTTPTransportConfig(),
		AppName:             "proxyprobe",
		RequestTimeout:      30 * time.Second,
		LogHTTPMode:         httplog.Errors,
		MaxConcurrency:      8,
		PromNamespace:       "proxyprobe",
	}
}

// ProxyClient sends requests through a forward proxy authenticating with an AuthMethod.
// The proxy is always set explicitly, proxy settings from the environment are ignored.
type ProxyClient struct {
	config   ProxyClientConfig
	auth     AuthMethod
	log      log.StructuredLogger
	metrics  *clientMetrics
	envProxy func() *httpproxy.Config

	mu      sync.Mutex
	session *Session
	async   *AsyncSession
	closed  bool
}

func NewProxyClient(cfg *ProxyClientConfig, auth AuthMethod, l log.StructuredLogger) *ProxyClient {
	return &ProxyClient{
		config:   *cfg,
		auth:     auth,
		log:      log.OrNop(l),
		metrics:  newClientMetrics(cfg.PromRegistry, cfg.PromNamespace),
		envProxy: httpproxy.FromEnvironment,
	}
}

func (c *ProxyClient) Auth() AuthMethod {
	return c.auth
}

// ProxyURL returns the URL of the proxy, credentials included.
func (c *ProxyClient) ProxyURL() *url.URL {
	return ProxyURL(c.config.Proxy, c.auth)
}

// Session is a configured transport with the proxy and authentication applied.
type Session struct {
	ProxyURL *url.URL

	client        *http.Client
	transport     *http.Transport
	connectHeader func(ctx context.Context, proxyURL *url.URL, target string) (http.Header, error)
}

// Build creates the session if it does not exist.
// It fails with ErrMissingAuthStrategy if no AuthMethod is set, before any I/O.
func (c *ProxyClient) Build(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClientClosed
	}
	if c.session != nil {
		return c.session, nil
	}
	if c.async != nil {
		return nil, ErrSessionInUse
	}

	s, err := c.newSession(ctx, func(ctx context.Context, ac *AuthConfig) error {
		sc := SessionConfig{AuthConfig: *ac}
		err := c.auth.ConfigureSync(ctx, &sc)
		*ac = sc.AuthConfig
		return err
	})
	if err != nil {
		return nil, err
	}
	c.session = s
	return s, nil
}

func (c *ProxyClient) newSession(ctx context.Context, configure func(context.Context, *AuthConfig) error) (*Session, error) {
	if c.auth == nil {
		return nil, ErrMissingAuthStrategy
	}
	if err := c.config.Proxy.Validate(); err != nil {
		return nil, err
	}
	proxyURL := ProxyURL(c.config.Proxy, c.auth)

	tr, err := NewHTTPTransport(&c.config.HTTPTransportConfig, proxyURL, c.log)
	if err != nil {
		return nil, err
	}

	if args := ambientProxyArgs(c.envProxy()); len(args) > 0 {
		c.log.Warn("ignoring proxy settings from environment", args...)
	}

	ac := AuthConfig{
		ProxyURL:        proxyURL,
		TLSClientConfig: tr.TLSClientConfig,
		Log:             c.log,
	}
	if err := configure(ctx, &ac); err != nil {
		return nil, err
	}
	tr.TLSClientConfig = ac.TLSClientConfig
	tr.GetProxyConnectHeader = ac.GetProxyConnectHeader

	var rt http.RoundTripper = httplog.NewTransport(tr, c.log.Info, c.config.LogHTTPMode)
	rt = ac.wrap(rt)
	rt = header.Headers(c.headers()).Transport(rt)
	rt = c.metrics.instrument(c.auth.Kind().String(), rt)

	c.log.Info("session created",
		"auth", c.auth.DisplayName(),
		"proxy", proxyURL.Redacted(),
		"ca_bundle", c.config.CABundle,
	)

	return &Session{
		ProxyURL: proxyURL,
		client: &http.Client{
			Transport: rt,
			Timeout:   c.config.RequestTimeout,
		},
		transport:     tr,
		connectHeader: ac.GetProxyConnectHeader,
	}, nil
}

func (c *ProxyClient) headers() []header.Header {
	hs := make([]header.Header, 0, len(c.config.Headers)+1)
	if c.config.AppName != "" {
		hs = append(hs, header.New(ApplicationNameHeader, c.config.AppName))
	}
	return append(hs, c.config.Headers...)
}

// MakeRequest sends a request, it builds the session on first use.
// The response is returned unmodified, the caller must close the body.
func (c *ProxyClient) MakeRequest(ctx context.Context, method, rawURL string, opts ...RequestOption) (*http.Response, error) {
	s, err := c.Build(ctx)
	if err != nil {
		return nil, err
	}
	return s.Do(ctx, method, rawURL, opts...)
}

// TestConnection sends a GET request to rawURL and reports whether the response status is 200.
func (c *ProxyClient) TestConnection(ctx context.Context, rawURL string) ConnectionResult {
	return connectionResult(c.MakeRequest(ctx, http.MethodGet, rawURL))
}

// Close releases the session and the credentials of the AuthMethod.
// It is safe to call Close multiple times or without a session.
func (c *ProxyClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var err error
	if c.session != nil {
		c.session.close()
		c.session = nil
	}
	if c.async != nil {
		err = multierr.Append(err, c.async.Close())
		c.async = nil
	}
	if k, ok := c.auth.(*KerberosAuth); ok {
		k.Release()
	}
	c.log.Debug("proxy client closed")

	return err
}

// Do sends a request through the session.
// Failures to build or send the request are returned as *TransportError.
func (s *Session) Do(ctx context.Context, method, rawURL string, opts ...RequestOption) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, http.NoBody)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, &TransportError{Method: method, URL: redactURL(rawURL), Err: fmt.Errorf("create request: %w", err)}
	}
	for _, opt := range opts {
		if err := opt(req); err != nil {
			return nil, &TransportError{Method: method, URL: req.URL.Redacted(), Err: fmt.Errorf("request option: %w", err)}
		}
	}

	res, err := s.client.Do(req) //nolint:bodyclose // returned to the caller
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, &TransportError{Method: method, URL: req.URL.Redacted(), Err: err}
	}
	return res, nil
}

func (s *Session) close() {
	s.transport.CloseIdleConnections()
}

// RequestOption modifies a request before it is sent.
type RequestOption func(*http.Request) error

// WithQuery adds v to the query of the request URL.
func WithQuery(v url.Values) RequestOption {
	return func(req *http.Request) error {
		q := req.URL.Query()
		for k, vv := range v {
			for _, s := range vv {
				q.Add(k, s)
			}
		}
		req.URL.RawQuery = q.Encode()
		return nil
	}
}

func WithHeader(name, value string) RequestOption {
	return func(req *http.Request) error {
		req.Header.Set(name, value)
		return nil
	}
}

// WithBody sets the request body, it is read at most once per attempt.
func WithBody(contentType string, body []byte) RequestOption {
	return func(req *http.Request) error {
		req.ContentLength = int64(len(body))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		b, err := req.GetBody()
		if err != nil {
			return err
		}
		req.Body = b
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		return nil
	}
}

// ConnectionResult is the outcome of TestConnection.
// Err is *UnexpectedStatusError for a non 200 response and *TransportError when no response was received.
// Errors building the session, such as ErrMissingAuthStrategy, are reported as returned by Build.
type ConnectionResult struct {
	OK          bool
	Status      int
	Body        string
	ContentType string
	Server      string
	Err         error
}

func connectionResult(res *http.Response, err error) ConnectionResult {
	if err != nil {
		return ConnectionResult{Body: err.Error(), Err: err}
	}
	defer res.Body.Close()

	r := ConnectionResult{
		Status:      res.StatusCode,
		ContentType: res.Header.Get("Content-Type"),
		Server:      res.Header.Get("Server"),
	}

	b, err := io.ReadAll(res.Body)
	if err != nil {
		te := &TransportError{Method: res.Request.Method, URL: res.Request.URL.Redacted(), Err: fmt.Errorf("read body: %w", err)}
		r.Body = te.Error()
		r.Err = te
		return r
	}
	r.Body = string(b)

	if res.StatusCode != http.StatusOK {
		r.Err = &UnexpectedStatusError{StatusCode: res.StatusCode, Body: r.Body}
		return r
	}
	r.OK = true
	return r
}

// redactURL hides the password of a URL that failed to parse.
func redactURL(rawURL string) string {
	i := strings.Index(rawURL, "://")
	if i < 0 {
		return rawURL
	}
	authority := rawURL[i+3:]
	if end := strings.IndexAny(authority, "/?#"); end >= 0 {
		authority = authority[:end]
	}
	at := strings.LastIndex(authority, "@")
	if at < 0 {
		return rawURL
	}
	colon := strings.Index(authority[:at], ":")
	if colon < 0 {
		return rawURL
	}
	return rawURL[:i+3] + authority[:colon] + ":xxxxx" + rawURL[i+3+at:]
}

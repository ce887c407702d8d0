// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxyprobe

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Result is the outcome of a request started with AsyncSession.Go.
type Result struct {
	Response *http.Response
	Err      error
}

// AsyncSession runs requests concurrently, at most MaxConcurrency at a time.
// Requests are not ordered.
type AsyncSession struct {
	session *Session
	limiter *rate.Limiter

	mu     sync.RWMutex
	g      errgroup.Group
	closed bool
}

// BuildAsync creates the async session if it does not exist.
// Authentication is configured with ConfigureAsync.
func (c *ProxyClient) BuildAsync(ctx context.Context) (*AsyncSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClientClosed
	}
	if c.async != nil {
		return c.async, nil
	}
	if c.session != nil {
		return nil, ErrSessionInUse
	}

	asc := AsyncConfig{MaxConcurrency: c.config.MaxConcurrency, RequestRate: rate.Inf}
	if c.config.RequestRate > 0 {
		asc.RequestRate = rate.Limit(c.config.RequestRate)
	}
	s, err := c.newSession(ctx, func(ctx context.Context, ac *AuthConfig) error {
		asc.AuthConfig = *ac
		err := c.auth.ConfigureAsync(ctx, &asc)
		*ac = asc.AuthConfig
		return err
	})
	if err != nil {
		return nil, err
	}

	as := &AsyncSession{session: s}
	if asc.MaxConcurrency > 0 {
		as.g.SetLimit(asc.MaxConcurrency)
	}
	if asc.RequestRate != rate.Inf {
		as.limiter = rate.NewLimiter(asc.RequestRate, 1)
	}
	c.async = as
	return as, nil
}

func (s *AsyncSession) ProxyURL() string {
	return s.session.ProxyURL.Redacted()
}

// Go starts a request and returns a channel receiving its result.
// It blocks while MaxConcurrency requests are in flight.
// With a RequestRate the request waits for its turn before it is sent.
func (s *AsyncSession) Go(ctx context.Context, method, rawURL string, opts ...RequestOption) <-chan Result {
	ch := make(chan Result, 1)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		ch <- Result{Err: ErrClientClosed}
		return ch
	}

	s.g.Go(func() error {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				ch <- Result{Err: err}
				return err
			}
		}
		res, err := s.session.Do(ctx, method, rawURL, opts...)
		ch <- Result{Response: res, Err: err}
		return err
	})
	return ch
}

// MakeRequest sends a request and waits for the result.
func (s *AsyncSession) MakeRequest(ctx context.Context, method, rawURL string, opts ...RequestOption) (*http.Response, error) {
	r := <-s.Go(ctx, method, rawURL, opts...)
	return r.Response, r.Err
}

func (s *AsyncSession) TestConnection(ctx context.Context, rawURL string) ConnectionResult {
	return connectionResult(s.MakeRequest(ctx, http.MethodGet, rawURL))
}

// Wait blocks until all started requests finish and returns the first request error.
func (s *AsyncSession) Wait() error {
	return s.g.Wait()
}

// Close waits for in-flight requests and releases the transport.
// Request errors are reported by the results, not by Close.
func (s *AsyncSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.g.Wait() //nolint:errcheck // errors are delivered with results
	s.session.close()
	return nil
}

// Copyright 2023-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxyprobe

import (
	"crypto/tls"
	"net/http"
	"net/url"
	"time"

	"github.com/saucelabs/proxyprobe/log"
)

// HTTPTransportConfig is the part of the session transport that does not depend on the AuthMethod.
type HTTPTransportConfig struct {
	DialConfig

	TLSClientConfig

	// MaxIdleConnsPerHost is the number of idle connections kept to the proxy.
	MaxIdleConnsPerHost int

	// IdleConnTimeout closes idle connections to the proxy, zero means no limit.
	IdleConnTimeout time.Duration

	// ResponseHeaderTimeout bounds waiting for response headers after the request is written.
	// It does not include reading the body, zero means no limit.
	ResponseHeaderTimeout time.Duration
}

func DefaultHTTPTransportConfig() *HTTPTransportConfig {
	return &HTTPTransportConfig{
		DialConfig: *DefaultDialConfig(),
		TLSClientConfig: TLSClientConfig{
			HandshakeTimeout: 10 * time.Second,
		},
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConnsPerHost: 4,
	}
}

// NewHTTPTransport returns a transport that sends every request to proxyURL.
// Proxy settings from the environment are never used, and the dialer refuses any other address.
func NewHTTPTransport(cfg *HTTPTransportConfig, proxyURL *url.URL, l log.StructuredLogger) (*http.Transport, error) {
	tlsCfg := new(tls.Config)
	if err := cfg.ConfigureTLSConfig(tlsCfg); err != nil {
		return nil, err
	}

	return &http.Transport{
		Proxy:                 http.ProxyURL(proxyURL),
		DialContext:           NewProxyDialer(&cfg.DialConfig, proxyURL.Host, l).DialContext,
		TLSClientConfig:       tlsCfg,
		TLSHandshakeTimeout:   cfg.TLSClientConfig.HandshakeTimeout,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}, nil
}

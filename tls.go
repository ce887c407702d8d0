// Copyright 2023-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxyprobe

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"time"
)

type TLSClientConfig struct {
	// HandshakeTimeout specifies the maximum amount of time to
	// wait for a TLS handshake. Zero means no timeout.
	HandshakeTimeout time.Duration

	// InsecureSkipVerify controls whether a client verifies the server's
	// certificate chain and host name. If InsecureSkipVerify is true, crypto/tls
	// accepts any certificate presented by the server and any host name in that
	// certificate. This should be used only for testing.
	InsecureSkipVerify bool

	// CABundle is a PEM file or data:base64 URI with trusted root certificates.
	// It replaces the system trust store for all authentication methods.
	// If empty the system trust store is used.
	CABundle string
}

func (c *TLSClientConfig) ConfigureTLSConfig(tlsCfg *tls.Config) error {
	tlsCfg.InsecureSkipVerify = c.InsecureSkipVerify //nolint:gosec // user choice

	if c.CABundle == "" {
		return nil
	}

	pool, err := loadCABundle(c.CABundle)
	if err != nil {
		return err
	}
	tlsCfg.RootCAs = pool
	return nil
}

func loadCABundle(name string) (*x509.CertPool, error) {
	b, err := ReadFileOrBase64(name)
	if err != nil {
		return nil, &ConfigurationMissingError{What: "CA bundle", Path: name, Err: err}
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(b) {
		return nil, fmt.Errorf("CA bundle %s: %w", name, errors.New("no PEM certificates found"))
	}
	return pool, nil
}

// Copyright 2023-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxyprobe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/saucelabs/proxyprobe/log"
)

// ErrDirectDial is returned when a session would connect anywhere but the proxy.
var ErrDirectDial = errors.New("direct connection refused, all traffic goes through the proxy")

type DialConfig struct {
	// DialTimeout bounds connecting to the proxy, the operating system may time out earlier.
	DialTimeout time.Duration

	// KeepAlive enables TCP keep-alive probes with OS specific intervals.
	KeepAlive bool
}

func DefaultDialConfig() *DialConfig {
	return &DialConfig{
		DialTimeout: 10 * time.Second,
		KeepAlive:   true,
	}
}

// ProxyDialer connects to a single proxy address and refuses any other address.
type ProxyDialer struct {
	nd    net.Dialer
	proxy string
	log   log.StructuredLogger
}

func NewProxyDialer(cfg *DialConfig, proxyAddr string, l log.StructuredLogger) *ProxyDialer {
	nd := net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: -1,
	}
	if cfg.KeepAlive {
		nd.Control = func(network, address string, c syscall.RawConn) error {
			return c.Control(enableTCPKeepAlive)
		}
	}
	return &ProxyDialer{
		nd:    nd,
		proxy: proxyAddr,
		log:   log.OrNop(l),
	}
}

func (d *ProxyDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if !strings.EqualFold(address, d.proxy) {
		return nil, fmt.Errorf("%w: %s", ErrDirectDial, address)
	}

	start := time.Now()
	conn, err := d.nd.DialContext(ctx, network, address)
	if err != nil {
		d.log.Debug("proxy dial failed", "proxy", address, "error", err)
		return nil, err
	}
	d.log.Debug("proxy connected",
		"proxy", address,
		"local_addr", conn.LocalAddr().String(),
		"duration", time.Since(start).String(),
	)
	return conn, nil
}

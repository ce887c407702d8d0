// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxyprobe

import (
	"context"

	"github.com/saucelabs/proxyprobe/dialvia"
)

// TunnelResult is the proxy response to a CONNECT request.
type TunnelResult struct {
	Status     int
	StatusText string
	ProxyAgent string
	// Challenges lists the Proxy-Authenticate schemes of a 407 response.
	Challenges []string
	// Err is *dialvia.ConnectError if the proxy refused the tunnel.
	Err error
}

// Established reports whether the proxy accepted the CONNECT request.
func (r TunnelResult) Established() bool {
	return r.Err == nil
}

// ProbeTunnel sends a CONNECT request for addr to the proxy with the proxy credentials
// and CONNECT headers of the AuthMethod, and closes the tunnel immediately.
// A refused tunnel is not an error, it is reported by TunnelResult.Err.
func (c *ProxyClient) ProbeTunnel(ctx context.Context, addr string) (TunnelResult, error) {
	s, err := c.Build(ctx)
	if err != nil {
		return TunnelResult{}, err
	}

	d := dialvia.HTTPProxy(NewProxyDialer(&c.config.DialConfig, s.ProxyURL.Host, c.log).DialContext, s.ProxyURL)
	d.GetProxyConnectHeader = s.connectHeader

	res, conn, err := d.DialContextR(ctx, "tcp", addr)
	if err != nil {
		return TunnelResult{}, &TransportError{Method: "CONNECT", URL: addr, Err: err}
	}
	defer conn.Close()
	defer res.Body.Close()

	r := TunnelResult{
		Status:     res.StatusCode,
		StatusText: res.Status,
		ProxyAgent: res.Header.Get("Proxy-Agent"),
		Challenges: res.Header.Values("Proxy-Authenticate"),
		Err:        dialvia.CheckConnectResponse(res),
	}
	if r.Err != nil {
		c.log.Info("tunnel refused", "addr", addr, "status", res.StatusCode)
	} else {
		c.log.Info("tunnel established", "addr", addr, "status", res.StatusCode)
	}
	return r, nil
}

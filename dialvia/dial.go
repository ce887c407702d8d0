// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package dialvia opens connections through an HTTP proxy with CONNECT requests.
package dialvia

import (
	"context"
	"net"
)

// ContextDialerFunc dials the proxy itself, usually it is (*net.Dialer).DialContext.
type ContextDialerFunc func(ctx context.Context, network, addr string) (net.Conn, error)

func (f ContextDialerFunc) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return f(ctx, network, addr)
}

// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package proxyprobe provides an HTTP client that sends requests through a forward proxy
// and authenticates with one of Kerberos (SPNEGO), a TLS client certificate,
// Basic or Digest credentials, or no authentication.
//
// A ProxyClient is built once per AuthMethod, either as a blocking Session or as an AsyncSession
// running requests concurrently. Both are configured by the same code, so a request has the same
// credentials on the wire in either mode.
package proxyprobe

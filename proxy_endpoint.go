// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxyprobe

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/saucelabs/proxyprobe/validation"
)

// ProxyEndpoint is the forward proxy all requests are sent through.
type ProxyEndpoint struct {
	Host string `validate:"required,proxyHost"`
	Port int    `validate:"min=1,max=65535"`
}

func (e ProxyEndpoint) Validate() error {
	if err := validation.Validator().Struct(e); err != nil {
		return fmt.Errorf("invalid proxy endpoint %s: %w", e, err)
	}
	return nil
}

// Address returns host:port.
func (e ProxyEndpoint) Address() string {
	return net.JoinHostPort(strings.Trim(e.Host, "[]"), strconv.Itoa(e.Port))
}

func (e ProxyEndpoint) String() string {
	return e.Address()
}

// ProxyURL returns the URL of the proxy with the proxy credentials of auth embedded.
// Credentials for the target server are never embedded.
func ProxyURL(e ProxyEndpoint, auth AuthMethod) *url.URL {
	u := &url.URL{
		Scheme: "http",
		Host:   e.Address(),
	}
	if auth != nil {
		u.User = auth.ProxyCredentials()
	}
	return u
}

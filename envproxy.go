// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxyprobe

import (
	"net/url"
	"strings"

	"golang.org/x/net/http/httpproxy"
)

// ambientProxyArgs returns the proxy settings found in the environment as log key value pairs.
// It returns nil if there are none.
func ambientProxyArgs(cfg *httpproxy.Config) []any {
	var args []any
	for _, kv := range [...][2]string{
		{"http_proxy", cfg.HTTPProxy},
		{"https_proxy", cfg.HTTPSProxy},
		{"no_proxy", cfg.NoProxy},
	} {
		if kv[1] != "" {
			args = append(args, kv[0], redactProxyURL(kv[1]))
		}
	}
	return args
}

func redactProxyURL(v string) string {
	s := v
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.User == nil {
		return v
	}
	return u.Redacted()
}

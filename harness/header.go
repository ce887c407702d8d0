// Copyright 2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package harness

import (
	"github.com/saucelabs/proxyprobe/log"
)

// Detail is a named value printed in the test header, empty values are omitted.
type Detail struct {
	Name  string
	Value string
}

// Header describes the test run.
type Header struct {
	Title   string
	Details []Detail
	Proxy   string
	URL     string
}

// Print logs the header.
func (h Header) Print(l log.StructuredLogger) {
	args := []any{}
	for _, d := range h.Details {
		if d.Value != "" {
			args = append(args, d.Name, d.Value)
		}
	}
	proxy := h.Proxy
	if proxy == "" {
		proxy = "N/A"
	}
	args = append(args, "proxy", proxy, "test_url", h.URL)

	l.Info(h.Title, args...)
}

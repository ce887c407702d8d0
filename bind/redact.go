// Copyright 2023-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bind

import (
	"fmt"
	"strings"

	"github.com/saucelabs/proxyprobe/header"
)

// Redact functions render secret flag values in help, logs and dry-run output.

func RedactPassword(s string) string {
	if s == "" {
		return ""
	}
	return "xxxxx"
}

func RedactHeader(h header.Header) string {
	if h.Action == header.Add && h.Sensitive() {
		return fmt.Sprintf("%q", h.Name+":xxxxx")
	}
	return fmt.Sprintf("%q", h.String())
}

// RedactBase64 hides inline data, file paths are shown as is.
func RedactBase64(s string) string {
	if strings.HasPrefix(s, "data:") {
		return "data:xxxxx"
	}

	return s
}

// Copyright 2023-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxyprobe

import (
	"encoding/base64"
	"errors"
	"os"
	"strings"
)

// ReadFileOrBase64 reads a file or decodes a "data:[base64,]<encoded data>" URI.
func ReadFileOrBase64(name string) ([]byte, error) {
	if v, ok := strings.CutPrefix(name, "data:"); ok {
		return readData(v)
	}

	return os.ReadFile(name)
}

func readData(v string) ([]byte, error) {
	v = strings.TrimPrefix(v, "//")

	idx := strings.IndexByte(v, ',')
	if idx != -1 {
		if v[:idx] != "base64" {
			return nil, errors.New("invalid data URI, the only supported format is: data:base64,<encoded data>")
		}
		v = v[idx+1:]
	}

	return base64.StdEncoding.DecodeString(v)
}

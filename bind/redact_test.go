// Copyright 2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bind

import (
	"strings"
	"testing"

	"github.com/saucelabs/proxyprobe"
	"github.com/saucelabs/proxyprobe/header"
	"github.com/saucelabs/proxyprobe/utils/cobrautil"
	"github.com/spf13/pflag"
)

func TestRedact(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) string
		in   string
		want string
	}{
		{"empty password", RedactPassword, "", ""},
		{"password", RedactPassword, "secret", "xxxxx"},
		{"ca bundle path", RedactBase64, "/etc/ssl/proxy-ca.pem", "/etc/ssl/proxy-ca.pem"},
		{"ca bundle data", RedactBase64, "data:base64,AAAA", "data:xxxxx"},
	}
	for _, tc := range tests {
		if got := tc.fn(tc.in); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestDescribeRedactsSecrets(t *testing.T) {
	var user, pass string
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	Credentials(fs, &user, &pass)
	HTTPTransportConfig(fs, proxyprobe.DefaultHTTPTransportConfig())

	if err := fs.Parse([]string{"--username", "alice", "--password", "secret", "--ca-bundle", "data:base64,AAAA"}); err != nil {
		t.Fatal(err)
	}
	if pass != "secret" {
		t.Fatalf("password not set: %q", pass)
	}

	out, err := cobrautil.DescribeFlags(fs, cobrautil.Plain)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "secret") || strings.Contains(out, "AAAA") {
		t.Fatalf("secret leaked:\n%s", out)
	}
	if !strings.Contains(out, "username=alice") || !strings.Contains(out, "password=xxxxx") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRedactHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"X-Team: qa", `"X-Team:qa"`},
		{"Proxy-Authorization: Basic YWxpY2U6c2VjcmV0", `"Proxy-Authorization:xxxxx"`},
		{"-Authorization", `"-Authorization"`},
	}
	for _, tc := range tests {
		h, err := header.ParseHeader(tc.in)
		if err != nil {
			t.Fatal(err)
		}
		if got := RedactHeader(h); got != tc.want {
			t.Errorf("RedactHeader(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

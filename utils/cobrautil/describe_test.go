// Copyright 2023-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cobrautil

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
)

func TestDescribeFlags(t *testing.T) {
	tests := []struct {
		name     string
		flags    func(fs *pflag.FlagSet)
		decorate func(*FlagsDescriber)
		plain    string
		json     string
		yaml     string
	}{
		{
			name: "keys are sorted",
			flags: func(fs *pflag.FlagSet) {
				fs.Bool("insecure", true, "")
				fs.Bool("dry-run", false, "")
				fs.Bool("async", true, "")
			},
			plain: "async=true\ndry-run=false\ninsecure=true",
			json:  `{"async":true,"dry-run":false,"insecure":true}`,
			yaml:  "async: true\ndry-run: false\ninsecure: true",
		},
		{
			name: "string and int",
			flags: func(fs *pflag.FlagSet) {
				fs.String("proxy-host", "proxy.example.com", "")
				fs.Int("proxy-port", 8080, "")
			},
			plain: "proxy-host=proxy.example.com\nproxy-port=8080",
			json:  `{"proxy-host":"proxy.example.com","proxy-port":"8080"}`,
			yaml:  "proxy-host: proxy.example.com\nproxy-port: \"8080\"",
		},
		{
			name: "help is not shown",
			flags: func(fs *pflag.FlagSet) {
				fs.Bool("async", false, "")
				fs.Bool("help", true, "")
			},
			plain: "async=false",
			json:  `{"async":false}`,
			yaml:  "async: false",
		},
		{
			name: "hidden is shown",
			flags: func(fs *pflag.FlagSet) {
				fs.Bool("kerberos-disable-fast", true, "")
				_ = fs.MarkHidden("kerberos-disable-fast")
			},
			decorate: func(d *FlagsDescriber) {
				d.ShowHidden = true
			},
			plain: "kerberos-disable-fast=true",
			json:  `{"kerberos-disable-fast":true}`,
			yaml:  "kerberos-disable-fast: true",
		},
		{
			name: "hidden is not shown",
			flags: func(fs *pflag.FlagSet) {
				fs.Bool("kerberos-disable-fast", true, "")
				_ = fs.MarkHidden("kerberos-disable-fast")
			},
			plain: "",
			json:  `{}`,
			yaml:  "{}",
		},
		{
			name: "list of values",
			flags: func(fs *pflag.FlagSet) {
				fs.StringSlice("header", []string{"X-Run: 1", "X-Team: qa"}, "")
			},
			plain: "header=X-Run: 1,X-Team: qa",
			json:  `{"header":["X-Run: 1","X-Team: qa"]}`,
			yaml:  "header:\n  - 'X-Run: 1'\n  - 'X-Team: qa'",
		},
	}

	for i := range tests {
		tc := tests[i]
		for _, f := range []struct {
			format DescribeFormat
			want   string
		}{
			{Plain, tc.plain},
			{JSON, tc.json},
			{YAML, tc.yaml},
		} {
			t.Run(tc.name, func(t *testing.T) {
				fs := pflag.NewFlagSet("flags", pflag.ContinueOnError)
				tc.flags(fs)

				d := FlagsDescriber{Format: f.format}
				if tc.decorate != nil {
					tc.decorate(&d)
				}
				got, err := d.DescribeFlags(fs)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if diff := cmp.Diff(f.want, strings.TrimSpace(got)); diff != "" {
					t.Errorf("format %d (-want +got):\n%s", f.format, diff)
				}
			})
		}
	}
}

func TestDescribeFlagsChangedOnly(t *testing.T) {
	fs := pflag.NewFlagSet("flags", pflag.ContinueOnError)
	fs.String("proxy-host", "", "")
	fs.Int("proxy-port", 8080, "")
	if err := fs.Set("proxy-host", "proxy.example.com"); err != nil {
		t.Fatal(err)
	}

	got, err := FlagsDescriber{Format: YAML, ShowChangedOnly: true}.DescribeFlags(fs)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("proxy-host: proxy.example.com\n", got); diff != "" {
		t.Errorf("unexpected result (-want +got):\n%s", diff)
	}
}

func TestDescribeFlagsUnknownFormat(t *testing.T) {
	fs := pflag.NewFlagSet("flags", pflag.ContinueOnError)
	if _, err := DescribeFlags(fs, DescribeFormat(42)); err == nil {
		t.Fatal("expected error")
	}
}

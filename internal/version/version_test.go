// Copyright 2021-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package version

import (
	"strings"
	"testing"
)

func TestFillFromBuildInfo(t *testing.T) {
	tests := []struct {
		name string
		in   Version
		want []string
	}{
		{
			name: "set at build time",
			in:   Version{Commit: "1223423321234sdf", Time: "2021-09-21T12:49:39-07:00", Version: "v0.0.1"},
			want: []string{"v0.0.1", "1223423321234sdf", "2021-09-21T12:49:39-07:00"},
		},
		{
			name: "not set",
			in:   Version{},
			want: []string{"Version:", "Git commit:"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.in
			fillFromBuildInfo(&v)

			if v.Version == "" || v.Commit == "" || v.Time == "" {
				t.Fatalf("empty field in %+v", v)
			}
			for _, w := range tt.want {
				if !strings.Contains(v.String(), w) {
					t.Errorf("String() = %v, expected to contain %v", v.String(), w)
				}
			}
		})
	}
}

// Copyright 2021-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
)

// Set with -ldflags "-X github.com/saucelabs/proxyprobe/internal/version.buildVersion=..." at build time.
var (
	buildCommit  = ""
	buildTime    = ""
	buildVersion = ""
)

type Version struct {
	Commit  string `json:"commit"`
	Time    string `json:"time"`
	Version string `json:"version"`
}

// Short returns "<version> (<commit>)".
func (v *Version) Short() string {
	return fmt.Sprintf("%s (%s)", v.Version, v.Commit)
}

func (v *Version) String() string {
	buf := new(strings.Builder)

	fmt.Fprintln(buf, "Version:\t", v.Version)
	fmt.Fprintln(buf, "Built time:\t", v.Time)
	fmt.Fprintln(buf, "Git commit:\t", v.Commit)
	fmt.Fprintln(buf, "Go Arch:\t", runtime.GOARCH)
	fmt.Fprintln(buf, "Go OS:\t\t", runtime.GOOS)
	fmt.Fprintln(buf, "Go Version:\t", runtime.Version())

	return buf.String()
}

var get = sync.OnceValue(func() *Version {
	v := &Version{
		Commit:  buildCommit,
		Time:    buildTime,
		Version: buildVersion,
	}
	fillFromBuildInfo(v)
	return v
})

// fillFromBuildInfo sets the fields not set at build time from the module build info.
func fillFromBuildInfo(v *Version) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		bi = &debug.BuildInfo{}
	}
	if v.Version == "" {
		v.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if v.Commit == "" {
				v.Commit = s.Value
			}
		case "vcs.time":
			if v.Time == "" {
				v.Time = s.Value
			}
		}
	}

	if v.Version == "" || v.Version == "(devel)" {
		v.Version = "devel"
	}
	if v.Commit == "" {
		v.Commit = "unknown"
	}
	if v.Time == "" {
		v.Time = "unknown"
	}
}

func Get() *Version {
	return get()
}

// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"context"
	"errors"
	"os"

	"github.com/saucelabs/proxyprobe/command/proxyprobe"
	"github.com/saucelabs/proxyprobe/runctx"
)

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, runctx.ErrInterrupted), errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}

func main() {
	cmd := proxyprobe.Command()
	err := runctx.NewGroup(func(ctx context.Context) error {
		return cmd.ExecuteContext(ctx)
	}).Run()
	os.Exit(exitCode(err))
}

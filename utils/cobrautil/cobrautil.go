// Copyright 2023-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package cobrautil holds the cobra helpers shared by the proxyprobe commands.
package cobrautil

import (
	"github.com/spf13/cobra"
)

// Finalize applies the common command settings to cmd and its subcommands.
// The help subcommand is hidden and Long starts with Short.
func Finalize(cmd *cobra.Command, fn func(*cobra.Command)) {
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	walk(cmd, func(c *cobra.Command) {
		if c.Short != "" {
			long := c.Short + "."
			if c.Long != "" {
				long += "\n\n" + c.Long
			}
			c.Long = long
		}
		if fn != nil {
			fn(c)
		}
	})
}

func walk(cmd *cobra.Command, fn func(*cobra.Command)) {
	fn(cmd)
	for _, c := range cmd.Commands() {
		walk(c, fn)
	}
}

// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package httpbin

import (
	"context"
	"fmt"
	"net"

	"github.com/saucelabs/proxyprobe/bind"
	"github.com/saucelabs/proxyprobe/log"
	"github.com/saucelabs/proxyprobe/log/slog"
	"github.com/saucelabs/proxyprobe/runctx"
	"github.com/saucelabs/proxyprobe/utils/httpbin"
	"github.com/saucelabs/proxyprobe/utils/httpx"
	"github.com/spf13/cobra"
)

type command struct {
	addr      string
	logConfig *log.Config
}

func (c *command) runE(cmd *cobra.Command, _ []string) (cmdErr error) {
	l, err := slog.New(c.logConfig, slog.WithWriter(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	logger := l.Named("httpbin")
	defer func() {
		if err := logger.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "close logger: %s\n", err)
		}
	}()
	defer func() {
		if cmdErr != nil {
			logger.Error("fatal error exiting", "error", cmdErr)
			cmd.SilenceErrors = true
		}
	}()

	g := runctx.NewGroup()
	g.Add(func(ctx context.Context) error {
		return httpx.ListenAndServe(ctx, httpbin.Handler(), c.addr, func(a net.Addr) {
			logger.Info("HTTP server listen", "address", a.String())
		})
	})
	return g.RunContext(cmd.Context())
}

// Command returns a command that serves the httpbin API used as a test target.
// It includes the /digest-auth/ endpoint and a search API mock under /customsearch/v1.
func Command() *cobra.Command {
	c := command{
		addr:      "localhost:10080",
		logConfig: log.DefaultConfig(),
	}

	cmd := &cobra.Command{
		Use:   "httpbin [--address <host:port>]",
		Short: "Start HTTP server that serves httpbin.org API and a search API mock",
		Args:  cobra.NoArgs,
		RunE:  c.runE,
	}

	fs := cmd.Flags()
	fs.StringVar(&c.addr, "address", c.addr, "<host:port>"+
		"The server address to listen on. ")
	bind.LogConfig(fs, c.logConfig)
	bind.AutoMarkFlagFilename(cmd)

	return cmd
}

// Copyright 2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tunnel

import (
	"errors"
	"fmt"
	"net"

	"github.com/saucelabs/proxyprobe"
	"github.com/saucelabs/proxyprobe/bind"
	"github.com/saucelabs/proxyprobe/dialvia"
	"github.com/saucelabs/proxyprobe/log"
	"github.com/saucelabs/proxyprobe/log/slog"
	"github.com/spf13/cobra"
)

const defaultAddr = "www.google.com:443"

type command struct {
	clientConfig *proxyprobe.ProxyClientConfig
	logConfig    *log.Config
	username     string
	password     string
}

func (c *command) runE(cmd *cobra.Command, args []string) (cmdErr error) {
	addr := defaultAddr
	if len(args) > 0 {
		addr = args[0]
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("address: %w", err)
	}
	if err := c.clientConfig.Proxy.Validate(); err != nil {
		return fmt.Errorf("proxy: %w", err)
	}

	logger, err := slog.New(c.logConfig, slog.WithWriter(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer func() {
		if err := logger.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "close logger: %s\n", err)
		}
	}()

	var auth proxyprobe.AuthMethod = proxyprobe.NoAuth{}
	if c.username != "" || c.password != "" {
		a, err := proxyprobe.NewBasicAuth(c.username, c.password)
		if err != nil {
			return err
		}
		auth = a
	}

	client := proxyprobe.NewProxyClient(c.clientConfig, auth, logger.Named("client"))
	defer client.Close()

	res, err := client.ProbeTunnel(cmd.Context(), addr)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "status: %s\n", res.StatusText)
	if res.ProxyAgent != "" {
		fmt.Fprintf(w, "proxy-agent: %s\n", res.ProxyAgent)
	}
	for _, v := range res.Challenges {
		fmt.Fprintf(w, "proxy-authenticate: %s\n", v)
	}
	var cerr *dialvia.ConnectError
	if errors.As(res.Err, &cerr) {
		return fmt.Errorf("tunnel to %s not established: %w", addr, cerr)
	}
	return res.Err
}

// Command returns a command that checks if the proxy accepts a CONNECT request for the given address.
func Command() *cobra.Command {
	c := command{
		clientConfig: proxyprobe.DefaultProxyClientConfig(),
		logConfig:    log.DefaultConfig(),
	}

	cmd := &cobra.Command{
		Use:   "tunnel [<host:port>] --proxy-host <host> --proxy-port <port> [flags]",
		Short: "Check that the proxy establishes a CONNECT tunnel",
		Long: "Send a CONNECT request to the proxy and print the response status. " +
			"If username and password are set the request carries Basic proxy credentials. " +
			"The default address is " + defaultAddr + ".",
		Args: cobra.MaximumNArgs(1),
		RunE: c.runE,
	}

	fs := cmd.Flags()
	bind.ProxyClientConfig(fs, c.clientConfig)
	bind.Credentials(fs, &c.username, &c.password)
	bind.LogConfig(fs, c.logConfig)
	bind.AutoMarkFlagFilename(cmd)

	return cmd
}

// Copyright 2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package probe

import (
	"github.com/saucelabs/proxyprobe"
	"github.com/saucelabs/proxyprobe/bind"
	"github.com/spf13/cobra"
)

func KerberosCommand() *cobra.Command {
	c := makeCommand(proxyprobe.KerberosKind)
	cmd := c.command(&cobra.Command{
		Use:     "kerberos --kerberos-principal <user@REALM> --keytab <path> --krb5-conf <path> [flags]",
		Short:   "Test the proxy with Kerberos (SPNEGO) authentication",
		Long:    kerberosLong,
		Example: kerberosExample,
	})

	fs := cmd.Flags()
	bind.KerberosConfig(fs, c.kerberosConfig)
	fs.BoolVar(&c.authOnly, "auth-only", false,
		"Only acquire Kerberos credentials, do not connect to the proxy. ")
	fs.BoolVar(&c.diagnostics, "kerberos-diagnostics", false,
		"Print diagnostics of the keytab and krb5.conf before connecting. ")
	cmd.MarkFlagsMutuallyExclusive("auth-only", "async")

	return finish(cmd)
}

func CertCommand() *cobra.Command {
	c := makeCommand(proxyprobe.ClientCertKind)
	cmd := c.command(&cobra.Command{
		Use:   "cert --cert-path <path> [--key-path <path>] [flags]",
		Short: "Test the proxy with SSL client certificate authentication",
		Long: "The client certificate is presented in every TLS handshake, " +
			"in particular to HTTPS targets reached through a CONNECT tunnel. " +
			"Use --ca-bundle to trust a private certificate authority.",
	})
	bind.ClientCert(cmd.Flags(), &c.certFile, &c.keyFile)
	return finish(cmd)
}

func BasicCommand() *cobra.Command {
	c := makeCommand(proxyprobe.BasicKind)
	cmd := c.command(&cobra.Command{
		Use:   "basic --username <username> --password <password> [flags]",
		Short: "Test the proxy with Basic authentication",
		Long:  "The credentials are sent in the Proxy-Authorization header of every request and CONNECT tunnel.",
	})
	bind.Credentials(cmd.Flags(), &c.username, &c.password)
	return finish(cmd)
}

func DigestCommand() *cobra.Command {
	c := makeCommand(proxyprobe.DigestKind)
	cmd := c.command(&cobra.Command{
		Use:   "digest --username <username> --password <password> [flags]",
		Short: "Test with HTTP Digest authentication",
		Long:  "Digest authentication answers 401 challenges of the target server, the proxy itself is used without authentication.",
	})
	bind.Credentials(cmd.Flags(), &c.username, &c.password)
	return finish(cmd)
}

func NoneCommand() *cobra.Command {
	c := makeCommand(proxyprobe.NoneKind)
	return finish(c.command(&cobra.Command{
		Use:   "none [flags]",
		Short: "Test the proxy without authentication",
	}))
}

// command binds the flags shared by all probe commands.
func (c *command) command(cmd *cobra.Command) *cobra.Command {
	cmd.Args = cobra.NoArgs
	cmd.RunE = c.runE

	fs := cmd.Flags()
	bind.TestURL(fs, &c.testURL)
	bind.ProxyClientConfig(fs, c.clientConfig)
	bind.SearchConfig(fs, c.searchConfig)
	bind.LogConfig(fs, c.logConfig)

	fs.BoolVar(&c.debug, "debug", false,
		"Enable debug logging, same as --log-level debug. ")
	fs.BoolVarP(&c.dryRun, "dry-run", "n", false,
		"Check the configuration and files, print what would be done and exit without network I/O. ")
	fs.BoolVar(&c.noTest, "no-test", false,
		"Create the proxy client and exit without running the test suite. ")
	fs.BoolVar(&c.async, "async", false,
		"Run the test suite with the asynchronous client. ")
	fs.StringVar(&c.promTextfile, "prom-textfile", "", "<path>"+
		"Write collected metrics in the Prometheus text format to the file on exit. ")

	return cmd
}

func finish(cmd *cobra.Command) *cobra.Command {
	bind.AutoMarkFlagFilename(cmd)
	return cmd
}

const kerberosLong = `Credentials are acquired from the keytab with the first method that succeeds:
store (the keytab file), env (KRB5_KTNAME and KRB5_CONFIG exported for the process) and default
(the credential cache named by KRB5CCNAME). Requests answered with 407 or 401 and a Negotiate challenge
are retried with a SPNEGO token, CONNECT tunnels carry a token for the HTTP/<proxy host> service.`

const kerberosExample = `  # Test with a keytab
  proxyprobe kerberos --proxy-host proxy.example.com --proxy-port 8080 \
    --kerberos-principal alice@EXAMPLE.COM --keytab alice.keytab --krb5-conf krb5.conf

  # Only check that credentials can be acquired
  proxyprobe kerberos --auth-only --kerberos-principal alice@EXAMPLE.COM --keytab alice.keytab --krb5-conf krb5.conf
`

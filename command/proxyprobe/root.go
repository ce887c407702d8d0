// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxyprobe

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/saucelabs/proxyprobe/bind"
	"github.com/saucelabs/proxyprobe/command/httpbin"
	"github.com/saucelabs/proxyprobe/command/probe"
	"github.com/saucelabs/proxyprobe/command/tunnel"
	"github.com/saucelabs/proxyprobe/command/version"
	"github.com/saucelabs/proxyprobe/utils/cobrautil"
	"github.com/spf13/cobra"
)

const (
	EnvPrefix          = "PROXYPROBE"
	ConfigFileFlagName = "config-file"
	EnvFileFlagName    = "env-file"
	DefaultEnvFile     = ".env"
)

// EnvAliases are the unprefixed environment variables read in addition to PROXYPROBE_<FLAG>.
func EnvAliases() cobrautil.EnvAliases {
	return cobrautil.EnvAliases{
		"proxy-host":         "PROXY_HOST",
		"proxy-port":         "PROXY_PORT",
		"kerberos-principal": "KERBEROS_PRINCIPAL",
		"keytab":             "KEYTAB_FILE_PATH",
		"krb5-conf":          "KRB5_CONF_PATH",
		"url":                "TEST_URL",
		"app-name":           "APPLICATION_NAME",
		"ca-bundle":          "SSL_CA_BUNDLE_PATH",
		"cert-path":          "SSL_CERT_PATH",
		"key-path":           "SSL_KEY_PATH",
		"username":           "AUTH_USERNAME",
		"password":           "AUTH_PASSWORD",
		"search-api-key":     "GOOGLE_SEARCH_API_KEY",
		"search-engine-id":   "GOOGLE_SEARCH_ENGINE_ID",
		"query":              "GOOGLE_SEARCH_CONTEXT",
		"search-url":         "GOOGLE_SEARCH_URL",
		"dry-run":            "DRY_RUN",
		"no-test":            "NO_TEST",
		"debug":              "DEBUG",
	}
}

// LoadEnvFile loads variables from a dotenv file, variables already set are kept.
// A missing file is not an error.
func LoadEnvFile(name string) error {
	if name == "" {
		return nil
	}
	if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func Command() *cobra.Command {
	var (
		configFile string
		envFile    = DefaultEnvFile
	)

	binder := cobrautil.Binder{
		EnvPrefix:      EnvPrefix,
		ConfigFileFlag: ConfigFileFlagName,
		Aliases:        EnvAliases(),
	}

	cmd := &cobra.Command{
		Use:   "proxyprobe",
		Short: "Test HTTP proxy connectivity with Kerberos, client certificate, Basic, Digest or no authentication",
		Long: "Each authentication method is a subcommand. " +
			"A run creates a proxy client for the method, fetches the test URL through the proxy, " +
			"optionally queries a search API, and exits with a non zero status if any test fails.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := LoadEnvFile(envFile); err != nil {
				return err
			}
			return binder.Bind(cmd)
		},
	}
	pfs := cmd.PersistentFlags()
	bind.ConfigFile(pfs, &configFile)
	bind.EnvFile(pfs, &envFile)

	cmd.AddGroup(&cobra.Group{ID: "probe", Title: "Authentication methods:"})
	for _, c := range []*cobra.Command{
		probe.KerberosCommand(),
		probe.CertCommand(),
		probe.BasicCommand(),
		probe.DigestCommand(),
		probe.NoneCommand(),
	} {
		c.GroupID = "probe"
		cmd.AddCommand(c)
	}

	cmd.AddCommand(tunnel.Command())

	// Add test commands.
	test := &cobra.Command{
		Use:   "test",
		Short: "Run test servers",
	}
	test.AddCommand(httpbin.Command())
	cmd.AddCommand(test)

	// Add version command.
	cmd.AddCommand(version.Command())

	cobrautil.Finalize(cmd, func(c *cobra.Command) {
		if c.Runnable() {
			binder.AnnotateUsage(c)
		}
	})

	return cmd
}

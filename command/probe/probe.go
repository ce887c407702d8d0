// Copyright 2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package probe implements the commands that test a proxy with a single authentication method.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/saucelabs/proxyprobe"
	"github.com/saucelabs/proxyprobe/bind"
	"github.com/saucelabs/proxyprobe/harness"
	"github.com/saucelabs/proxyprobe/httplog"
	"github.com/saucelabs/proxyprobe/internal/version"
	"github.com/saucelabs/proxyprobe/log"
	"github.com/saucelabs/proxyprobe/log/slog"
	"github.com/saucelabs/proxyprobe/search"
	"github.com/saucelabs/proxyprobe/utils/cobrautil"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

const promNs = "proxyprobe"

// ErrTestsFailed is returned when the test suite ran and at least one test failed.
var ErrTestsFailed = errors.New("tests failed")

type command struct {
	kind proxyprobe.AuthKind

	promReg        *prometheus.Registry
	logErrors      *prometheus.CounterVec
	clientConfig   *proxyprobe.ProxyClientConfig
	kerberosConfig *proxyprobe.KerberosConfig
	searchConfig   *search.Config
	logConfig      *log.Config

	testURL  string
	certFile string
	keyFile  string
	username string
	password string

	debug        bool
	dryRun       bool
	noTest       bool
	async        bool
	authOnly     bool
	diagnostics  bool
	promTextfile string
}

func makeCommand(kind proxyprobe.AuthKind) *command {
	c := &command{
		kind:           kind,
		promReg:        prometheus.NewRegistry(),
		clientConfig:   proxyprobe.DefaultProxyClientConfig(),
		kerberosConfig: proxyprobe.DefaultKerberosConfig(),
		searchConfig:   search.DefaultConfig(),
		logConfig:      log.DefaultConfig(),
		testURL:        "https://www.google.com",
	}
	c.logErrors = promauto.With(c.promReg).NewCounterVec(prometheus.CounterOpts{
		Namespace: promNs,
		Name:      "log_errors_total",
		Help:      "Number of errors logged per component.",
	}, []string{"name"})
	c.clientConfig.PromRegistry = c.promReg
	c.clientConfig.PromNamespace = promNs
	c.kerberosConfig.PromRegistry = c.promReg
	c.kerberosConfig.PromNamespace = promNs
	return c
}

func (c *command) runE(cmd *cobra.Command, _ []string) (cmdErr error) {
	if c.debug {
		c.logConfig.Level = log.DebugLevel
	}
	if c.logConfig.Verbose(log.DebugLevel) && !cmd.Flags().Changed("log-http") {
		c.clientConfig.LogHTTPMode = httplog.Headers
	}
	logger, err := slog.New(c.logConfig,
		slog.WithWriter(cmd.ErrOrStderr()),
		slog.WithAttributes("run_id", uuid.NewString()),
		slog.WithOnError(func(name string) { c.logErrors.WithLabelValues(name).Inc() }),
	)
	if err != nil {
		return err
	}

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
	if c.promTextfile != "" {
		defer func() {
			if err := prometheus.WriteToTextfile(c.promTextfile, c.promReg); err != nil {
				cmdErr = multierr.Append(cmdErr, fmt.Errorf("write metrics: %w", err))
			}
		}()
	}

	logger.Info("proxyprobe " + version.Get().Short())
	if err := c.logFlags(cmd, logger); err != nil {
		return err
	}

	if err := c.validate(); err != nil {
		return err
	}

	auth, details, err := c.authMethod(logger.Named("kerberos"))
	if err != nil {
		return err
	}

	harness.Header{
		Title:   fmt.Sprintf("%s PROXY TEST", auth.DisplayName()),
		Details: details,
		Proxy:   c.clientConfig.Proxy.String(),
		URL:     c.testURL,
	}.Print(logger)

	if c.dryRun {
		return c.simulate(cmd, logger, auth)
	}

	if c.diagnostics {
		if err := proxyprobe.KerberosDiagnostics(cmd.OutOrStdout(), c.kerberosConfig); err != nil {
			return err
		}
	}

	client := proxyprobe.NewProxyClient(c.clientConfig, auth, logger.Named("client"))
	defer func() {
		if err := client.Close(); err != nil {
			cmdErr = multierr.Append(cmdErr, fmt.Errorf("close client: %w", err))
		}
	}()

	ctx := cmd.Context()

	if c.authOnly {
		return c.acquireOnly(ctx, logger, auth)
	}

	req, err := c.requester(ctx, client)
	if err != nil {
		return err
	}
	logger.Info("proxy client ready", "proxy", client.ProxyURL().Redacted(), "auth", auth.DisplayName())

	if c.noTest {
		logger.Info("skipping tests")
		return nil
	}

	s := harness.Suite{
		Client: req,
		URL:    c.testURL,
		Search: c.searchConfig,
		Log:    logger.Named("harness"),
	}
	r := s.Run(ctx, auth.Kind().String())
	if err := ctx.Err(); err != nil {
		return err
	}
	if !r.OK() {
		return fmt.Errorf("%w: %d of %d passed: %w", ErrTestsFailed, r.Passed(), r.Total(), r.Err())
	}
	return nil
}

func (c *command) validate() error {
	if err := c.clientConfig.Proxy.Validate(); err != nil {
		return fmt.Errorf("proxy: %w", err)
	}
	if err := c.searchConfig.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if c.testURL == "" && !c.noTest && !c.authOnly {
		return errors.New("test URL not specified")
	}

	switch c.kind {
	case proxyprobe.KerberosKind:
		return c.kerberosConfig.Validate()
	case proxyprobe.ClientCertKind:
		if c.certFile == "" {
			return errors.New("client certificate file not specified")
		}
	}
	return nil
}

func (c *command) authMethod(klog log.StructuredLogger) (proxyprobe.AuthMethod, []harness.Detail, error) {
	switch c.kind {
	case proxyprobe.KerberosKind:
		a := proxyprobe.NewKerberosAuth(c.kerberosConfig, proxyprobe.NewKerberosAcquirer(c.kerberosConfig, klog))
		return a, []harness.Detail{
			{Name: "principal", Value: c.kerberosConfig.Principal.String()},
			{Name: "keytab", Value: c.kerberosConfig.KeytabFile},
			{Name: "krb5_conf", Value: c.kerberosConfig.Krb5ConfFile},
			{Name: "auth_proxy", Value: strconv.FormatBool(c.kerberosConfig.AuthProxy)},
		}, nil
	case proxyprobe.ClientCertKind:
		return proxyprobe.NewClientCertAuth(c.certFile, c.keyFile), []harness.Detail{
			{Name: "cert", Value: c.certFile},
			{Name: "key", Value: c.keyFile},
			{Name: "ca_bundle", Value: bind.RedactBase64(c.clientConfig.CABundle)},
		}, nil
	case proxyprobe.BasicKind:
		a, err := proxyprobe.NewBasicAuth(c.username, c.password)
		return a, []harness.Detail{{Name: "username", Value: c.username}}, err
	case proxyprobe.DigestKind:
		a, err := proxyprobe.NewDigestAuth(c.username, c.password)
		return a, []harness.Detail{{Name: "username", Value: c.username}}, err
	case proxyprobe.NoneKind:
		return proxyprobe.NoAuth{}, nil, nil
	default:
		panic(fmt.Sprintf("unknown auth kind %v", c.kind))
	}
}

// logFlags logs the flags set by the user, as a JSON object when logging JSON.
func (c *command) logFlags(cmd *cobra.Command, logger log.StructuredLogger) error {
	format := cobrautil.Plain
	if c.logConfig.Format == log.JSONFormat {
		format = cobrautil.JSON
	}
	cfg, err := cobrautil.FlagsDescriber{
		Format:          format,
		ShowChangedOnly: true,
	}.DescribeFlags(cmd.Flags())
	if err != nil {
		return err
	}

	switch {
	case cmd.Flags().NFlag() == 0:
		logger.Info("using default configuration")
	case format == cobrautil.JSON:
		logger.Info("configuration", "flags", json.RawMessage(cfg))
	default:
		logger.Info("configuration\n" + cfg)
	}
	return nil
}

// simulate checks the configured files and logs what would be done, no network I/O is made.
// The configuration is printed as YAML that can be passed back with --config-file.
func (c *command) simulate(cmd *cobra.Command, logger log.StructuredLogger, auth proxyprobe.AuthMethod) error {
	var files [][2]string
	switch c.kind {
	case proxyprobe.KerberosKind:
		files = append(files,
			[2]string{"keytab file", c.kerberosConfig.KeytabFile},
			[2]string{"kerberos configuration file", c.kerberosConfig.Krb5ConfFile},
		)
	case proxyprobe.ClientCertKind:
		files = append(files, [2]string{"client certificate file", c.certFile})
		if c.keyFile != "" {
			files = append(files, [2]string{"client key file", c.keyFile})
		}
	}

	var err error
	for _, f := range files {
		if _, serr := os.Stat(f[1]); serr != nil {
			err = multierr.Append(err, &proxyprobe.ConfigurationMissingError{What: f[0], Path: f[1], Err: serr})
			continue
		}
		logger.Info("dry run: file found", "what", f[0], "path", f[1])
	}
	if err != nil {
		return err
	}

	u := proxyprobe.ProxyURL(c.clientConfig.Proxy, auth)
	logger.Info("dry run: would create proxy client", "proxy", u.Redacted(), "auth", auth.DisplayName())
	if !c.noTest {
		logger.Info("dry run: would run test suite", "url", c.testURL, "search", c.searchConfig.Enabled())
	}

	cfg, err := cobrautil.FlagsDescriber{
		Format:          cobrautil.YAML,
		ShowChangedOnly: true,
	}.DescribeFlags(cmd.Flags())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "# %s configuration, secrets are redacted\n%s", cmd.Name(), cfg)
	return nil
}

func (c *command) acquireOnly(ctx context.Context, logger log.StructuredLogger, auth proxyprobe.AuthMethod) error {
	k, ok := auth.(*proxyprobe.KerberosAuth)
	if !ok {
		return fmt.Errorf("authentication only check is not supported for %s", auth.DisplayName())
	}
	cred, err := k.Acquire(ctx)
	if err != nil {
		var aerr *proxyprobe.AllAcquisitionMethodsFailedError
		if errors.As(err, &aerr) {
			logger.Error(aerr.Hint())
		}
		return err
	}
	logger.Info("kerberos authentication successful",
		"principal", cred.Principal,
		"method", cred.Method,
		"lifetime_seconds", cred.LifetimeSeconds(cred.AcquiredAt),
		"expires_at", cred.ExpiresAt(),
	)
	return nil
}

func (c *command) requester(ctx context.Context, client *proxyprobe.ProxyClient) (harness.Requester, error) {
	if c.async {
		s, err := client.BuildAsync(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	if _, err := client.Build(ctx); err != nil {
		var aerr *proxyprobe.AllAcquisitionMethodsFailedError
		if errors.As(err, &aerr) {
			return nil, fmt.Errorf("%w\n%s", err, aerr.Hint())
		}
		return nil, err
	}
	return client, nil
}

// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bind

import (
	"strings"

	"github.com/mmatczuk/anyflag"
	"github.com/saucelabs/proxyprobe"
	"github.com/saucelabs/proxyprobe/header"
	"github.com/saucelabs/proxyprobe/httplog"
	"github.com/saucelabs/proxyprobe/log"
	"github.com/saucelabs/proxyprobe/search"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func ConfigFile(fs *pflag.FlagSet, configFile *string) {
	fs.StringVarP(configFile,
		"config-file", "c", *configFile, "<path>"+
			"Configuration file to load options from. "+
			"The supported formats are: JSON, YAML, TOML, HCL, and Java properties. "+
			"The file format is determined by the file extension, if not specified the default format is YAML. "+
			"The following precedence order of configuration sources is used: command flags, environment variables, config file, default values. ")
}

func EnvFile(fs *pflag.FlagSet, envFile *string) {
	fs.StringVar(envFile,
		"env-file", *envFile, "<path>"+
			"Dotenv file to load environment variables from before reading the configuration. "+
			"Variables already set in the environment are not overridden. "+
			"A missing file is ignored. ")
}

func ProxyEndpoint(fs *pflag.FlagSet, e *proxyprobe.ProxyEndpoint) {
	fs.StringVar(&e.Host,
		"proxy-host", e.Host, "<host>"+
			"Proxy server hostname or IP address. ")
	fs.IntVar(&e.Port,
		"proxy-port", e.Port, "<port>"+
			"Proxy server port. ")
}

func TestURL(fs *pflag.FlagSet, u *string) {
	fs.StringVarP(u,
		"url", "u", *u, "<url>"+
			"URL to fetch through the proxy. ")
}

func ProxyClientConfig(fs *pflag.FlagSet, cfg *proxyprobe.ProxyClientConfig) {
	ProxyEndpoint(fs, &cfg.Proxy)
	HTTPTransportConfig(fs, &cfg.HTTPTransportConfig)

	fs.StringVar(&cfg.AppName,
		"app-name", cfg.AppName, "<name>"+
			"Value of the ApplicationName header sent with every request. ")

	RequestHeaders(fs, &cfg.Headers)

	fs.DurationVar(&cfg.RequestTimeout,
		"request-timeout", cfg.RequestTimeout,
		"The maximum amount of time a request may take, including reading the response body. "+
			"Zero means no limit. ")

	fs.IntVar(&cfg.MaxConcurrency,
		"max-concurrency", cfg.MaxConcurrency,
		"The maximum number of in-flight requests when running with --async. ")

	fs.Float64Var(&cfg.RequestRate,
		"request-rate", cfg.RequestRate, "<n>"+
			"The maximum number of requests per second when running with --async. "+
			"Zero means no limit. ")

	LogHTTP(fs, &cfg.LogHTTPMode)
}

func RequestHeaders(fs *pflag.FlagSet, headers *[]header.Header) {
	fs.VarP(anyflag.NewSliceValueWithRedact[header.Header](*headers, headers, header.ParseHeader, RedactHeader),
		"header", "H", "<header>"+
			"Add or remove HTTP request headers. "+
			"Use the format \"name: value\" to add a header, "+
			"\"name;\" to set the header to empty value, "+
			"\"-name\" to remove the header, "+
			"\"-name*\" to remove headers by prefix. "+
			"The value may be a template: {{uuid}} or {{host}}. "+
			"The flag can be specified multiple times. "+
			"Example: -H \"X-Request-Id: {{uuid}}\" -H \"-User-Agent\". ")
}

func HTTPTransportConfig(fs *pflag.FlagSet, cfg *proxyprobe.HTTPTransportConfig) {
	fs.DurationVar(&cfg.DialTimeout,
		"http-dial-timeout", cfg.DialTimeout,
		"The maximum amount of time a dial will wait for a connect to complete. "+
			"With or without a timeout, the operating system may impose its own earlier timeout. For instance, TCP timeouts are often around 3 minutes. ")

	fs.DurationVar(&cfg.HandshakeTimeout,
		"http-tls-handshake-timeout", cfg.HandshakeTimeout,
		"The maximum amount of time waiting to wait for a TLS handshake. Zero means no limit.")

	fs.DurationVar(&cfg.IdleConnTimeout,
		"http-idle-conn-timeout", cfg.IdleConnTimeout,
		"The maximum amount of time an idle (keep-alive) connection will remain idle before closing itself. "+
			"Zero means no limit. ")

	fs.DurationVar(&cfg.ResponseHeaderTimeout,
		"http-response-header-timeout", cfg.ResponseHeaderTimeout,
		"The amount of time to wait for a server's response headers after fully writing the request (including its body, if any)."+
			"This time does not include the time to read the response body. "+
			"Zero means no limit. ")

	fs.VarP(anyflag.NewValueWithRedact[string](cfg.CABundle, &cfg.CABundle, parseString, RedactBase64),
		"ca-bundle", "", "<path or base64>"+
			"Trusted root certificates in PEM format, replaces the system trust store. "+
			"The value can be a file path or a base64 encoded data URI \"data:base64,...\". ")

	fs.BoolVar(&cfg.InsecureSkipVerify, "insecure", cfg.InsecureSkipVerify,
		"Don't verify the server's certificate chain and host name. "+
			"Enable to work with self-signed certificates. ")
}

func LogHTTP(fs *pflag.FlagSet, mode *httplog.Mode) {
	httpLogModes := []httplog.Mode{
		httplog.None,
		httplog.ShortURL,
		httplog.URL,
		httplog.Headers,
		httplog.Body,
		httplog.Errors,
	}
	fs.Var(anyflag.NewValue[httplog.Mode](*mode, mode, anyflag.EnumParser[httplog.Mode](httpLogModes...)),
		"log-http", "<none|short-url|url|headers|body|errors>"+
			"HTTP request and response logging mode. "+
			"By default, request line and headers are logged if response status code is greater than or equal to 500. "+
			"Setting this to none disables logging. ")
}

func KerberosConfig(fs *pflag.FlagSet, cfg *proxyprobe.KerberosConfig) {
	fs.Var(anyflag.NewValue[proxyprobe.Principal](cfg.Principal, &cfg.Principal, parsePrincipal),
		"kerberos-principal", "<user@REALM>"+
			"Kerberos principal to authenticate as. ")

	fs.StringVar(&cfg.KeytabFile,
		"keytab", cfg.KeytabFile, "<path>"+
			"Path to the keytab file. ")

	fs.StringVar(&cfg.Krb5ConfFile,
		"krb5-conf", cfg.Krb5ConfFile, "<path>"+
			"Path to the krb5.conf file. ")

	fs.StringVar(&cfg.CCacheName,
		"kerberos-ccache", cfg.CCacheName, "<name>"+
			"Credential cache name exported as KRB5CCNAME while acquiring credentials. ")

	fs.BoolVar(&cfg.AuthProxy,
		"kerberos-auth-proxy", cfg.AuthProxy,
		"Send a Negotiate Proxy-Authorization header with CONNECT requests. ")

	fs.BoolVar(&cfg.DisablePAFXFAST,
		"kerberos-disable-fast", cfg.DisablePAFXFAST,
		"Disable PA-FX-FAST pre-authentication, required by KDCs without FAST support e.g. Active Directory. ")
}

func ClientCert(fs *pflag.FlagSet, certFile, keyFile *string) {
	fs.StringVar(certFile,
		"cert-path", *certFile, "<path>"+
			"Client certificate in PEM format, it may also contain the private key. ")
	fs.StringVar(keyFile,
		"key-path", *keyFile, "<path>"+
			"Client private key in PEM format, if empty the key is read from the certificate file. ")
}

func Credentials(fs *pflag.FlagSet, username, password *string) {
	fs.StringVar(username,
		"username", *username, "<username>"+
			"Username for proxy authentication. ")
	fs.Var(anyflag.NewValueWithRedact[string](*password, password, parseString, RedactPassword),
		"password", "<password>"+
			"Password for proxy authentication. ")
}

func SearchConfig(fs *pflag.FlagSet, cfg *search.Config) {
	fs.StringVar(&cfg.URL,
		"search-url", cfg.URL, "<url>"+
			"Search API endpoint. ")
	fs.Var(anyflag.NewValueWithRedact[string](cfg.APIKey, &cfg.APIKey, parseString, RedactPassword),
		"search-api-key", "<key>"+
			"Search API key, if empty the search test is skipped. ")
	fs.StringVar(&cfg.EngineID,
		"search-engine-id", cfg.EngineID, "<id>"+
			"Search engine id, if empty the search test is skipped. ")
	fs.StringVarP(&cfg.Query,
		"query", "q", cfg.Query, "<query>"+
			"Search query. ")
	fs.IntVar(&cfg.Num,
		"search-num", cfg.Num,
		"Number of search results to request, at most 100, fetched in pages of 10. ")
}

func LogConfig(fs *pflag.FlagSet, cfg *log.Config) {
	fs.StringVar(&cfg.File,
		"log-file", cfg.File, "<path>"+
			"Path to the log file, if empty, logs to stderr. "+
			"The file is reopened on SIGHUP. ")

	fs.Var(anyflag.NewValue[log.Level](cfg.Level, &cfg.Level, anyflag.EnumParser[log.Level](log.Levels()...)),
		"log-level", "<error|warn|info|debug>"+
			"Log level. ")

	fs.Var(anyflag.NewValue[log.Format](cfg.Format, &cfg.Format, anyflag.EnumParser[log.Format](log.Formats()...)),
		"log-format", "<text|json>"+
			"Log format. ")
}

func MarkFlagHidden(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.Flags().MarkHidden(name); err != nil {
			panic(err)
		}
	}
}

func AutoMarkFlagFilename(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if strings.HasPrefix(f.Usage, "<path") ||
			strings.HasSuffix(f.Name, "-file") ||
			strings.HasSuffix(f.Name, "-path") {
			MarkFlagFilename(cmd, f.Name)
		}
	})
}

func MarkFlagFilename(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.MarkFlagFilename(name); err != nil {
			panic(err)
		}
	}
}

func parseString(val string) (string, error) {
	return val, nil
}

func parsePrincipal(val string) (proxyprobe.Principal, error) {
	return proxyprobe.Principal(val), nil
}


// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxyprobe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"sync"

	"github.com/icholy/digest"
	"github.com/saucelabs/proxyprobe/log"
	"github.com/saucelabs/proxyprobe/validation"
	"golang.org/x/time/rate"
)

type AuthKind int

// Kinds start from 1 to avoid zero value in help printer.
const (
	KerberosKind AuthKind = 1 + iota
	ClientCertKind
	BasicKind
	DigestKind
	NoneKind
)

func (k AuthKind) String() string {
	return [5]string{"kerberos", "cert", "basic", "digest", "none"}[k-1]
}

// AuthMethod is one of *KerberosAuth, *ClientCertAuth, *BasicAuth, *DigestAuth or NoAuth.
// The set is closed, other implementations are not possible.
type AuthMethod interface {
	Kind() AuthKind
	// DisplayName is a human readable label used in logs.
	DisplayName() string
	// ProxyCredentials returns credentials to embed in the proxy URL, only BasicAuth returns them.
	ProxyCredentials() *url.Userinfo
	ConfigureSync(ctx context.Context, cfg *SessionConfig) error
	ConfigureAsync(ctx context.Context, cfg *AsyncConfig) error

	authMethod()
}

// AuthConfig is the part of a transport configuration an AuthMethod may change.
type AuthConfig struct {
	// ProxyURL is the proxy all requests are routed through.
	ProxyURL *url.URL
	// TLSClientConfig is the TLS configuration of the transport.
	TLSClientConfig *tls.Config
	// GetProxyConnectHeader returns headers to send with CONNECT requests to the proxy.
	GetProxyConnectHeader func(ctx context.Context, proxyURL *url.URL, target string) (http.Header, error)
	// Wrappers are applied to the transport in order, the last one is the outermost.
	Wrappers []func(http.RoundTripper) http.RoundTripper

	Log log.StructuredLogger
}

func (c *AuthConfig) wrap(rt http.RoundTripper) http.RoundTripper {
	for _, w := range c.Wrappers {
		rt = w(rt)
	}
	return rt
}

func (c *AuthConfig) logger() log.StructuredLogger {
	return log.OrNop(c.Log)
}

// SessionConfig configures a blocking client.
type SessionConfig struct {
	AuthConfig
}

// AsyncConfig configures a client running requests concurrently.
type AsyncConfig struct {
	AuthConfig
	MaxConcurrency int
	// RequestRate limits requests started per second, rate.Inf means no limit.
	RequestRate rate.Limit
}

// applyAuth is the only place where the behavior of AuthMethod variants is implemented,
// both the sync and the async configuration go through it.
func applyAuth(ctx context.Context, m AuthMethod, c *AuthConfig) error {
	switch m := m.(type) {
	case *KerberosAuth:
		return m.configure(ctx, c)
	case *ClientCertAuth:
		return m.configure(c)
	case *BasicAuth:
		c.logger().Debug("basic auth credentials embedded in proxy URL", "user", m.Username)
		return nil
	case *DigestAuth:
		c.Wrappers = append(c.Wrappers, func(rt http.RoundTripper) http.RoundTripper {
			return &digest.Transport{
				Username:  m.Username,
				Password:  m.Password,
				Transport: rt,
			}
		})
		return nil
	case NoAuth:
		return nil
	default:
		panic(fmt.Sprintf("unknown auth method %T", m))
	}
}

// KerberosAuth authenticates with SPNEGO tokens for credentials acquired from a keytab.
type KerberosAuth struct {
	Principal Principal
	Keytab    Keytab
	Krb5Conf  string
	AuthProxy bool

	acquirer *KerberosAcquirer

	mu   sync.Mutex
	cred *Credential
}

func NewKerberosAuth(cfg *KerberosConfig, acquirer *KerberosAcquirer) *KerberosAuth {
	return &KerberosAuth{
		Principal: cfg.Principal,
		Keytab:    Keytab{Path: cfg.KeytabFile},
		Krb5Conf:  cfg.Krb5ConfFile,
		AuthProxy: cfg.AuthProxy,
		acquirer:  acquirer,
	}
}

func (a *KerberosAuth) Kind() AuthKind                  { return KerberosKind }
func (a *KerberosAuth) DisplayName() string             { return "Kerberos (" + a.Principal.String() + ")" }
func (a *KerberosAuth) ProxyCredentials() *url.Userinfo { return nil }
func (a *KerberosAuth) authMethod()                     {}

func (a *KerberosAuth) ConfigureSync(ctx context.Context, cfg *SessionConfig) error {
	return applyAuth(ctx, a, &cfg.AuthConfig)
}

func (a *KerberosAuth) ConfigureAsync(ctx context.Context, cfg *AsyncConfig) error {
	return applyAuth(ctx, a, &cfg.AuthConfig)
}

// Credential returns the acquired credential or nil.
func (a *KerberosAuth) Credential() *Credential {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cred
}

// Acquire returns the held credential while it is cached and valid,
// otherwise it acquires a new one and releases the old.
func (a *KerberosAuth) Acquire(ctx context.Context) (*Credential, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cred != nil {
		if cur, ok := a.acquirer.Cache().Get(a.Principal, a.acquirer.now()); ok && cur == a.cred {
			return a.cred, nil
		}
	}
	cred, err := a.acquirer.Acquire(ctx, a.Principal, a.Keytab, a.Krb5Conf)
	if err != nil {
		return nil, err
	}
	if a.cred != nil {
		a.acquirer.Cache().Remove(a.cred)
		a.cred.release()
	}
	a.cred = cred
	return cred, nil
}

// Release removes the credential from the cache and destroys it.
// It is safe to call Release multiple times.
func (a *KerberosAuth) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cred == nil {
		return
	}
	a.acquirer.Cache().Remove(a.cred)
	a.cred.release()
	a.cred = nil
}

// negotiateHeader resolves the credential on every use so that expired or
// evicted credentials are re-acquired.
func (a *KerberosAuth) negotiateHeader(ctx context.Context, spn string) (string, error) {
	cred, err := a.Acquire(ctx)
	if err != nil {
		return "", err
	}
	return cred.NegotiateHeader(spn)
}

func (a *KerberosAuth) configure(ctx context.Context, c *AuthConfig) error {
	cred, err := a.Acquire(ctx)
	if err != nil {
		return err
	}

	proxyURL := c.ProxyURL
	c.Wrappers = append(c.Wrappers, func(rt http.RoundTripper) http.RoundTripper {
		return &NegotiateTransport{
			Base:     rt,
			Header:   a.negotiateHeader,
			ProxyURL: proxyURL,
		}
	})
	if a.AuthProxy {
		c.GetProxyConnectHeader = func(ctx context.Context, proxyURL *url.URL, _ string) (http.Header, error) {
			cred, err := a.Acquire(ctx)
			if err != nil {
				return nil, err
			}
			return proxyAuthHeader(cred, proxyURL)
		}
	}
	c.logger().Debug("kerberos negotiate configured", "principal", cred.Principal, "auth_proxy", a.AuthProxy)
	return nil
}

func proxyAuthHeader(cred *Credential, proxyURL *url.URL) (http.Header, error) {
	spn := spnForHost(proxyURL.Hostname())

	v, err := cred.NegotiateHeader(spn)
	if err != nil {
		return nil, fmt.Errorf("failed to get Kerberos SPNEGO authentication header for proxy SPN: %s: %w", spn, err)
	}

	h := make(http.Header, 1)
	h.Set("Proxy-Authorization", v)
	return h, nil
}

// ClientCertAuth authenticates with a TLS client certificate.
// If KeyFile is empty CertFile must contain both the certificate and the key.
type ClientCertAuth struct {
	CertFile string
	KeyFile  string
}

func NewClientCertAuth(certFile, keyFile string) *ClientCertAuth {
	return &ClientCertAuth{
		CertFile: certFile,
		KeyFile:  keyFile,
	}
}

func (a *ClientCertAuth) Kind() AuthKind                  { return ClientCertKind }
func (a *ClientCertAuth) DisplayName() string             { return "SSL Client Certificate (" + a.CertFile + ")" }
func (a *ClientCertAuth) ProxyCredentials() *url.Userinfo { return nil }
func (a *ClientCertAuth) authMethod()                     {}

func (a *ClientCertAuth) ConfigureSync(ctx context.Context, cfg *SessionConfig) error {
	return applyAuth(ctx, a, &cfg.AuthConfig)
}

func (a *ClientCertAuth) ConfigureAsync(ctx context.Context, cfg *AsyncConfig) error {
	return applyAuth(ctx, a, &cfg.AuthConfig)
}

func (a *ClientCertAuth) configure(c *AuthConfig) error {
	if c.TLSClientConfig == nil {
		c.TLSClientConfig = new(tls.Config)
	}
	keyFile := a.KeyFile
	if keyFile == "" {
		keyFile = a.CertFile
	}
	cert, err := tls.LoadX509KeyPair(a.CertFile, keyFile)
	if err != nil {
		var perr *fs.PathError
		if errors.As(err, &perr) {
			return &ConfigurationMissingError{What: "client certificate", Path: perr.Path, Err: perr.Err}
		}
		return fmt.Errorf("load client certificate: %w", err)
	}
	c.TLSClientConfig.Certificates = []tls.Certificate{cert}
	return nil
}

// BasicAuth authenticates to the proxy with credentials embedded in the proxy URL.
type BasicAuth struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

func NewBasicAuth(username, password string) (*BasicAuth, error) {
	a := &BasicAuth{Username: username, Password: password}
	if err := validation.Validator().Struct(a); err != nil {
		return nil, &InvalidCredentialPairError{Method: "basic", Err: err}
	}
	return a, nil
}

func (a *BasicAuth) Kind() AuthKind      { return BasicKind }
func (a *BasicAuth) DisplayName() string { return "Basic Auth (" + a.Username + ")" }
func (a *BasicAuth) authMethod()         {}

func (a *BasicAuth) ProxyCredentials() *url.Userinfo {
	return url.UserPassword(a.Username, a.Password)
}

func (a *BasicAuth) ConfigureSync(ctx context.Context, cfg *SessionConfig) error {
	return applyAuth(ctx, a, &cfg.AuthConfig)
}

func (a *BasicAuth) ConfigureAsync(ctx context.Context, cfg *AsyncConfig) error {
	return applyAuth(ctx, a, &cfg.AuthConfig)
}

// DigestAuth answers Digest challenges of the target server.
type DigestAuth struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

func NewDigestAuth(username, password string) (*DigestAuth, error) {
	a := &DigestAuth{Username: username, Password: password}
	if err := validation.Validator().Struct(a); err != nil {
		return nil, &InvalidCredentialPairError{Method: "digest", Err: err}
	}
	return a, nil
}

func (a *DigestAuth) Kind() AuthKind                  { return DigestKind }
func (a *DigestAuth) DisplayName() string             { return "Digest Auth (" + a.Username + ")" }
func (a *DigestAuth) ProxyCredentials() *url.Userinfo { return nil }
func (a *DigestAuth) authMethod()                     {}

func (a *DigestAuth) ConfigureSync(ctx context.Context, cfg *SessionConfig) error {
	return applyAuth(ctx, a, &cfg.AuthConfig)
}

func (a *DigestAuth) ConfigureAsync(ctx context.Context, cfg *AsyncConfig) error {
	return applyAuth(ctx, a, &cfg.AuthConfig)
}

// NoAuth sends requests without credentials.
type NoAuth struct{}

func (NoAuth) Kind() AuthKind                  { return NoneKind }
func (NoAuth) DisplayName() string             { return "No Authentication" }
func (NoAuth) ProxyCredentials() *url.Userinfo { return nil }
func (NoAuth) authMethod()                     {}

func (a NoAuth) ConfigureSync(ctx context.Context, cfg *SessionConfig) error {
	return applyAuth(ctx, a, &cfg.AuthConfig)
}

func (a NoAuth) ConfigureAsync(ctx context.Context, cfg *AsyncConfig) error {
	return applyAuth(ctx, a, &cfg.AuthConfig)
}

// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxyprobe

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/credentials"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/jcmturner/gokrb5/v8/krberror"
	"github.com/jcmturner/gokrb5/v8/spnego"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/saucelabs/proxyprobe/log"
)

// Principal is a Kerberos identity in the form user@REALM or service/host@REALM.
type Principal string

// Name returns the part before the last '@'.
func (p Principal) Name() string {
	if i := strings.LastIndexByte(string(p), '@'); i >= 0 {
		return string(p)[:i]
	}
	return string(p)
}

// Realm returns the part after the last '@'.
func (p Principal) Realm() string {
	if i := strings.LastIndexByte(string(p), '@'); i >= 0 {
		return string(p)[i+1:]
	}
	return ""
}

func (p Principal) Validate() error {
	s := string(p)
	if strings.Count(s, "@") != 1 || strings.ContainsAny(s, " \t\r\n") {
		return &InvalidPrincipalError{Name: s}
	}
	name, realm := p.Name(), p.Realm()
	if name == "" || realm == "" || strings.Contains(realm, "/") {
		return &InvalidPrincipalError{Name: s}
	}
	parts := strings.Split(name, "/")
	if len(parts) > 2 {
		return &InvalidPrincipalError{Name: s}
	}
	for _, part := range parts {
		if part == "" {
			return &InvalidPrincipalError{Name: s}
		}
	}
	return nil
}

func (p Principal) String() string {
	return string(p)
}

// Keytab is a reference to a keytab file on disk.
// Existence is checked before any acquisition attempt.
type Keytab struct {
	Path string
}

// Credential is a Kerberos identity acquired from the KDC or a credential cache.
// It is owned by a single KerberosAuth and released on close.
type Credential struct {
	Principal  Principal
	Method     string
	AcquiredAt time.Time
	Lifetime   time.Duration

	client *client.Client
	spnego func(spn string) ([]byte, error)
	// key is the requested principal the credential is cached under.
	key Principal
}

func newCredential(cl *client.Client, p Principal, cfg *config.Config, now time.Time) *Credential {
	lifetime := cfg.LibDefaults.TicketLifetime
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	c := &Credential{
		Principal:  p,
		AcquiredAt: now,
		Lifetime:   lifetime,
		client:     cl,
	}
	c.spnego = c.initSecContext
	return c
}

// ExpiresAt returns the end of the ticket lifetime.
func (c *Credential) ExpiresAt() time.Time {
	return c.AcquiredAt.Add(c.Lifetime)
}

// Remaining returns the remaining validity at now, it is never negative.
func (c *Credential) Remaining(now time.Time) time.Duration {
	d := c.ExpiresAt().Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// LifetimeSeconds returns the remaining validity at now in seconds.
func (c *Credential) LifetimeSeconds(now time.Time) int64 {
	return int64(c.Remaining(now) / time.Second)
}

func (c *Credential) Expired(now time.Time) bool {
	return c.Remaining(now) == 0
}

// NegotiateHeader returns a value for the Authorization or Proxy-Authorization header
// carrying a SPNEGO token for the service principal spn.
func (c *Credential) NegotiateHeader(spn string) (string, error) {
	if c.spnego == nil {
		return "", errors.New("credential released")
	}
	nb, err := c.spnego(spn)
	if err != nil {
		return "", err
	}
	return "Negotiate " + base64.StdEncoding.EncodeToString(nb), nil
}

func (c *Credential) initSecContext(spn string) ([]byte, error) {
	cli := spnego.SPNEGOClient(c.client, spn)

	if err := cli.AcquireCred(); err != nil {
		return nil, fmt.Errorf("could not acquire SPNEGO client credential: %w", err)
	}

	secContext, err := cli.InitSecContext()
	if err != nil {
		return nil, fmt.Errorf("could not initialize SPNEGO context for SPN %s: %w", spn, err)
	}
	nb, err := secContext.Marshal()
	if err != nil {
		return nil, krberror.Errorf(err, krberror.EncodingError, "could not marshal SPNEGO")
	}
	return nb, nil
}

func (c *Credential) release() {
	if c.client != nil {
		c.client.Destroy()
		c.client = nil
	}
	c.spnego = nil
}

type KerberosConfig struct {
	Principal    Principal
	KeytabFile   string
	Krb5ConfFile string
	// CCacheName is exported as KRB5CCNAME when credentials are resolved from the environment.
	CCacheName string
	// AuthProxy sends a SPNEGO Proxy-Authorization header with CONNECT requests.
	AuthProxy       bool
	DisablePAFXFAST bool
	PromRegistry    prometheus.Registerer
	PromNamespace   string
}

func DefaultKerberosConfig() *KerberosConfig {
	return &KerberosConfig{
		CCacheName:      DefaultCCacheName,
		AuthProxy:       true,
		DisablePAFXFAST: true,
		PromNamespace:   "proxyprobe",
	}
}

func (c *KerberosConfig) Validate() error {
	if c.KeytabFile == "" {
		return errors.New("kerberos keytab file not specified")
	}
	if c.Krb5ConfFile == "" {
		return errors.New("kerberos config file (krb5.conf) not specified")
	}
	if c.Principal == "" {
		return errors.New("kerberos principal not specified")
	}
	return nil
}

const (
	methodStore   = "store"
	methodEnv     = "env"
	methodDefault = "default"
)

type acquisitionRequest struct {
	principal Principal
	keytab    Keytab
	krb5Conf  string
	env       *Krb5Environment
	settings  []func(*client.Settings)
	now       time.Time
}

type acquisitionMethod interface {
	name() string
	acquire(ctx context.Context, r *acquisitionRequest) (*Credential, error)
}

// KerberosAcquirer obtains Kerberos credentials for a principal from a keytab.
// It tries, in order, an explicit credential store bound to the keytab,
// keytab and configuration exported through the process environment,
// and the default credential cache of the user.
type KerberosAcquirer struct {
	env     *Krb5Environment
	cache   *CredentialCache
	opts    []func(*client.Settings)
	methods []acquisitionMethod
	metrics *kerberosMetrics
	log     log.StructuredLogger
	now     func() time.Time
}

func NewKerberosAcquirer(cfg *KerberosConfig, l log.StructuredLogger) *KerberosAcquirer {
	ccname := cfg.CCacheName
	if ccname == "" {
		ccname = DefaultCCacheName
	}
	return &KerberosAcquirer{
		env:     NewKrb5Environment(ccname),
		cache:   CredentialCacheFor(ccname),
		opts:    []func(*client.Settings){client.DisablePAFXFAST(cfg.DisablePAFXFAST)},
		methods: []acquisitionMethod{storeMethod{}, envMethod{}, defaultMethod{}},
		metrics: newKerberosMetrics(cfg.PromRegistry, cfg.PromNamespace),
		log:     log.OrNop(l),
		now:     time.Now,
	}
}

// Cache returns the in-memory credential cache successful acquisitions are stored in.
func (a *KerberosAcquirer) Cache() *CredentialCache {
	return a.cache
}

// Acquire returns a credential for principal or an error.
// A missing keytab or configuration file is reported as *ConfigurationMissingError
// without trying any method, otherwise failure of all methods is reported as
// *AllAcquisitionMethodsFailedError.
func (a *KerberosAcquirer) Acquire(ctx context.Context, principal Principal, kt Keytab, krb5Conf string) (*Credential, error) {
	if err := checkReadable("keytab file", kt.Path); err != nil {
		return nil, err
	}
	if err := checkReadable("kerberos configuration file", krb5Conf); err != nil {
		return nil, err
	}

	krb5EnvMu.Lock()
	defer krb5EnvMu.Unlock()

	r := &acquisitionRequest{
		principal: principal,
		keytab:    kt,
		krb5Conf:  krb5Conf,
		env:       a.env,
		settings:  a.opts,
		now:       a.now(),
	}

	failed := &AllAcquisitionMethodsFailedError{
		Principal: principal.String(),
		Keytab:    kt.Path,
	}
	for _, m := range a.methods {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		a.log.Debug("acquiring kerberos credentials", "method", m.name(), "principal", principal)
		cred, err := m.acquire(ctx, r)
		if err == nil {
			cred.Method = m.name()
			cred.key = principal
			a.cache.Store(cred)
			a.metrics.acquisition(m.name(), true)
			a.log.Info("kerberos credentials acquired",
				"method", m.name(), "principal", cred.Principal, "lifetime", cred.Remaining(r.now).String())
			return cred, nil
		}
		a.metrics.acquisition(m.name(), false)
		a.log.Debug("kerberos credentials acquisition failed", "method", m.name(), "error", err)

		switch m.name() {
		case methodStore:
			failed.StoreErr = err
		case methodEnv:
			failed.EnvErr = err
		default:
			failed.DefaultErr = err
		}
	}

	a.log.Error("kerberos credentials acquisition failed", "error", failed)
	return nil, failed
}

func checkReadable(what, path string) error {
	if path == "" {
		return &ConfigurationMissingError{What: what, Path: path, Err: os.ErrNotExist}
	}
	f, err := os.Open(path)
	if err != nil {
		return &ConfigurationMissingError{What: what, Path: path, Err: err}
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return &ConfigurationMissingError{What: what, Path: path, Err: err}
	}
	if fi.IsDir() {
		return &ConfigurationMissingError{What: what, Path: path, Err: errors.New("is a directory")}
	}
	return nil
}

func loginWithKeytab(r *acquisitionRequest, ktPath, confPath string) (*Credential, error) {
	if err := r.principal.Validate(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(confPath)
	if err != nil {
		return nil, fmt.Errorf("error loading kerberos config file %s: %w", confPath, err)
	}
	kt, err := keytab.Load(ktPath)
	if err != nil {
		return nil, fmt.Errorf("error loading kerberos keytab file %s: %w", ktPath, err)
	}

	cl := client.NewWithKeytab(r.principal.Name(), r.principal.Realm(), kt, cfg, r.settings...)
	if err := cl.Login(); err != nil {
		cl.Destroy()
		return nil, fmt.Errorf("kerberos KDC login: %w", err)
	}

	return newCredential(cl, r.principal, cfg, r.now), nil
}

// storeMethod logs in with the keytab given explicitly.
type storeMethod struct{}

func (storeMethod) name() string { return methodStore }

func (storeMethod) acquire(_ context.Context, r *acquisitionRequest) (*Credential, error) {
	return loginWithKeytab(r, r.keytab.Path, r.krb5Conf)
}

// envMethod exports the keytab location and resolves it back from the environment.
type envMethod struct{}

func (envMethod) name() string { return methodEnv }

func (envMethod) acquire(_ context.Context, r *acquisitionRequest) (*Credential, error) {
	if err := r.env.Export(r.krb5Conf, r.keytab.Path); err != nil {
		return nil, err
	}

	ktPath, err := fileRef(r.env.Get(EnvKrb5KTName))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", EnvKrb5KTName, err)
	}
	confPath := firstPath(r.env.Get(EnvKrb5Config))
	if confPath == "" {
		return nil, fmt.Errorf("%s not set", EnvKrb5Config)
	}

	return loginWithKeytab(r, ktPath, confPath)
}

// defaultMethod uses the default identity from the file credential cache of the user.
type defaultMethod struct{}

func (defaultMethod) name() string { return methodDefault }

func (defaultMethod) acquire(_ context.Context, r *acquisitionRequest) (*Credential, error) {
	ccname := r.env.Previous(EnvKrb5CCName)
	if ccname == "" {
		ccname = "/tmp/krb5cc_" + strconv.Itoa(os.Getuid())
	}
	path, err := fileRef(ccname)
	if err != nil {
		return nil, fmt.Errorf("default credential cache %s: %w", ccname, err)
	}

	cfg, err := config.Load(r.krb5Conf)
	if err != nil {
		return nil, fmt.Errorf("error loading kerberos config file %s: %w", r.krb5Conf, err)
	}
	cc, err := credentials.LoadCCache(path)
	if err != nil {
		return nil, fmt.Errorf("error loading credential cache %s: %w", path, err)
	}
	cl, err := client.NewFromCCache(cc, cfg, r.settings...)
	if err != nil {
		return nil, fmt.Errorf("credential cache %s: %w", path, err)
	}

	p := Principal(cc.GetClientPrincipalName().PrincipalNameString() + "@" + cc.GetClientRealm())
	return newCredential(cl, p, cfg, r.now), nil
}

// fileRef strips the FILE: residual type from a keytab or ccache name.
func fileRef(name string) (string, error) {
	typ, path, ok := strings.Cut(name, ":")
	if !ok || strings.HasPrefix(name, "/") {
		return name, nil
	}
	switch strings.ToUpper(typ) {
	case "FILE", "WRFILE":
		return path, nil
	default:
		return "", fmt.Errorf("unsupported cache type %q", typ)
	}
}

// firstPath returns the first element of a colon separated KRB5_CONFIG value.
func firstPath(v string) string {
	p, _, _ := strings.Cut(v, ":")
	return p
}

// KerberosDiagnostics writes the gokrb5 diagnostics of the keytab and configuration to w.
// It does not contact the KDC.
func KerberosDiagnostics(w io.Writer, cfg *KerberosConfig) error {
	if err := checkReadable("keytab file", cfg.KeytabFile); err != nil {
		return err
	}
	if err := checkReadable("kerberos configuration file", cfg.Krb5ConfFile); err != nil {
		return err
	}

	krb5Config, err := config.Load(cfg.Krb5ConfFile)
	if err != nil {
		return fmt.Errorf("error loading kerberos config file %s: %w", cfg.Krb5ConfFile, err)
	}
	krb5Keytab, err := keytab.Load(cfg.KeytabFile)
	if err != nil {
		return fmt.Errorf("error loading kerberos keytab file %s: %w", cfg.KeytabFile, err)
	}

	cl := client.NewWithKeytab(cfg.Principal.Name(), cfg.Principal.Realm(), krb5Keytab, krb5Config)
	defer cl.Destroy()

	if err := cl.Diagnostics(w); err != nil {
		return fmt.Errorf("kerberos configuration potential problems: %w", err)
	}
	return nil
}

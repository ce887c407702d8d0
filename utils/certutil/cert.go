// Copyright 2023-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package certutil generates certificates for TLS tests of the CA bundle
// and client certificate authentication.
package certutil

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"time"
)

type KeyType int

const (
	RSA KeyType = iota
	ECDSA
)

// Template describes a certificate to issue.
type Template struct {
	CommonName string
	Hosts      []string
	ValidFor   time.Duration
	CA         bool
	Client     bool
	Key        KeyType
}

// ServerCert returns a server certificate template for hosts, localhost when empty.
func ServerCert(hosts ...string) *Template {
	if len(hosts) == 0 {
		hosts = []string{"localhost", "127.0.0.1"}
	}
	return &Template{CommonName: hosts[0], Hosts: hosts, ValidFor: 24 * time.Hour}
}

// ClientCert returns a client certificate template with an ECDSA key.
func ClientCert(commonName string) *Template {
	return &Template{CommonName: commonName, ValidFor: 24 * time.Hour, Client: true, Key: ECDSA}
}

// CACert returns a template for a certificate authority.
func CACert(commonName string) *Template {
	return &Template{CommonName: commonName, ValidFor: 24 * time.Hour, CA: true, Key: ECDSA}
}

// SelfSigned issues a certificate signed by its own key.
func (t *Template) SelfSigned() (tls.Certificate, error) {
	return t.issue(nil, nil)
}

// SignedBy issues a certificate signed by ca.
func (t *Template) SignedBy(ca tls.Certificate) (tls.Certificate, error) {
	if len(ca.Certificate) == 0 {
		return tls.Certificate{}, errors.New("empty CA certificate")
	}
	parent, err := x509.ParseCertificate(ca.Certificate[0])
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("parse CA certificate: %w", err)
	}
	signer, ok := ca.PrivateKey.(crypto.Signer)
	if !ok {
		return tls.Certificate{}, errors.New("CA private key is not a signer")
	}
	return t.issue(parent, signer)
}

func (t *Template) issue(parent *x509.Certificate, parentKey crypto.Signer) (tls.Certificate, error) {
	key, err := t.newKey()
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate private key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate serial number: %w", err)
	}

	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   t.CommonName,
			Organization: []string{"Sauce Labs Inc."},
		},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(t.ValidFor),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	// KeyEncipherment is specific to RSA key exchange.
	if t.Key == RSA {
		tmpl.KeyUsage |= x509.KeyUsageKeyEncipherment
	}
	switch {
	case t.CA:
		tmpl.IsCA = true
		tmpl.KeyUsage |= x509.KeyUsageCertSign
	case t.Client:
		tmpl.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}
	default:
		tmpl.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}
	}
	for _, h := range t.Hosts {
		if ip := net.ParseIP(h); ip != nil {
			tmpl.IPAddresses = append(tmpl.IPAddresses, ip)
		} else {
			tmpl.DNSNames = append(tmpl.DNSNames, h)
		}
	}

	if parent == nil {
		parent, parentKey = tmpl, key
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, parent, key.Public(), parentKey)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("create certificate: %w", err)
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}, nil
}

func (t *Template) newKey() (crypto.Signer, error) {
	switch t.Key {
	case RSA:
		return rsa.GenerateKey(rand.Reader, 2048)
	case ECDSA:
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	default:
		return nil, fmt.Errorf("unknown key type %d", t.Key)
	}
}

// EncodePEM returns the certificate chain and the PKCS #8 private key in PEM format.
func EncodePEM(cert tls.Certificate) (certPEM, keyPEM []byte, err error) {
	for _, der := range cert.Certificate {
		certPEM = append(certPEM, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})...)
	}
	key, err := x509.MarshalPKCS8PrivateKey(cert.PrivateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal private key: %w", err)
	}
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: key})
	return certPEM, keyPEM, nil
}

// WritePEMFiles writes the certificate and key to files.
// If keyFile is empty or equal to certFile, both are written to certFile.
func WritePEMFiles(cert tls.Certificate, certFile, keyFile string) error {
	certPEM, keyPEM, err := EncodePEM(cert)
	if err != nil {
		return err
	}
	if keyFile == "" || keyFile == certFile {
		return os.WriteFile(certFile, append(certPEM, keyPEM...), 0o600)
	}
	if err := os.WriteFile(certFile, certPEM, 0o600); err != nil {
		return err
	}
	return os.WriteFile(keyFile, keyPEM, 0o600)
}

// Copyright 2023-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package certutil

import (
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestServerCertSignedByCA(t *testing.T) {
	ca, err := CACert("proxyprobe test CA").SelfSigned()
	require.NoError(t, err)
	cert, err := ServerCert().SignedBy(ca)
	require.NoError(t, err)

	s := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	s.TLS = &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	s.StartTLS()
	defer s.Close()

	caLeaf, err := x509.ParseCertificate(ca.Certificate[0])
	require.NoError(t, err)
	roots := x509.NewCertPool()
	roots.AddCert(caLeaf)

	c := http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: roots, MinVersion: tls.VersionTLS12}}}
	resp, err := c.Get(s.URL)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSignedByRequiresCertificate(t *testing.T) {
	_, err := ServerCert().SignedBy(tls.Certificate{})
	require.Error(t, err)
}

func TestWritePEMFiles(t *testing.T) {
	cert, err := ClientCert("alice").SelfSigned()
	require.NoError(t, err)

	dir := t.TempDir()
	tests := []struct {
		name     string
		certFile string
		keyFile  string
	}{
		{"separate", filepath.Join(dir, "c.pem"), filepath.Join(dir, "k.pem")},
		{"combined", filepath.Join(dir, "combined.pem"), ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, WritePEMFiles(cert, tc.certFile, tc.keyFile))

			keyFile := tc.keyFile
			if keyFile == "" {
				keyFile = tc.certFile
			}
			got, err := tls.LoadX509KeyPair(tc.certFile, keyFile)
			require.NoError(t, err)
			x, err := x509.ParseCertificate(got.Certificate[0])
			require.NoError(t, err)
			require.Equal(t, "alice", x.Subject.CommonName)
			require.Equal(t, []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}, x.ExtKeyUsage)
		})
	}
}

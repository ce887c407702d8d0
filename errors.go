// Copyright 2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxyprobe

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingAuthStrategy is returned by ProxyClient when no AuthMethod is set.
var ErrMissingAuthStrategy = errors.New("no authentication method configured")

// ConfigurationMissingError is returned when a required file does not exist or cannot be read.
// No acquisition attempt is made when this error is returned.
type ConfigurationMissingError struct {
	What string
	Path string
	Err  error
}

func (e *ConfigurationMissingError) Error() string {
	return fmt.Sprintf("%s not found: %s: %v", e.What, e.Path, e.Err)
}

func (e *ConfigurationMissingError) Unwrap() error {
	return e.Err
}

// AllAcquisitionMethodsFailedError aggregates the failures of every Kerberos acquisition method.
type AllAcquisitionMethodsFailedError struct {
	Principal  string
	Keytab     string
	StoreErr   error
	EnvErr     error
	DefaultErr error
}

func (e *AllAcquisitionMethodsFailedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failed to acquire kerberos credentials for %q using any method: ", e.Principal)
	fmt.Fprintf(&b, "store: %v; env: %v; default: %v", e.StoreErr, e.EnvErr, e.DefaultErr)
	return b.String()
}

func (e *AllAcquisitionMethodsFailedError) Unwrap() []error {
	var errs []error
	for _, err := range []error{e.StoreErr, e.EnvErr, e.DefaultErr} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Hint returns a human readable list of the likely causes.
func (e *AllAcquisitionMethodsFailedError) Hint() string {
	return "This may indicate:\n" +
		"1. the credential store method is not supported by the keytab or the KDC rejected the principal\n" +
		"2. keytab file is inaccessible or invalid: " + e.Keytab + "\n" +
		"3. principal name is incorrect: " + e.Principal + "\n" +
		"4. kerberos configuration issues (realm, KDC addresses, clock skew)"
}

// InvalidCredentialPairError is returned when a username/password pair is incomplete.
type InvalidCredentialPairError struct {
	Method string
	Err    error
}

func (e *InvalidCredentialPairError) Error() string {
	return fmt.Sprintf("%s: both username and password must be provided: %v", e.Method, e.Err)
}

func (e *InvalidCredentialPairError) Unwrap() error {
	return e.Err
}

// InvalidPrincipalError is returned when a Kerberos principal name cannot be parsed.
type InvalidPrincipalError struct {
	Name string
}

func (e *InvalidPrincipalError) Error() string {
	return fmt.Sprintf("invalid kerberos principal %q, expected user@REALM or service/host@REALM", e.Name)
}

// TransportError is a network or TLS level failure while sending a request.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UnexpectedStatusError is a response with a status other than 200 OK.
type UnexpectedStatusError struct {
	StatusCode int
	Body       string
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

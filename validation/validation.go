// Copyright 2021-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package validation

import (
	"net"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator returns new validator.Validate instance with all custom validations registered.
func Validator() *validator.Validate {
	v := validator.New()
	RegisterAll(v)
	return v
}

// RegisterAll adds registers all custom validations with the provider validator.
func RegisterAll(v *validator.Validate) {
	mustRegisterValidation(v, "principal", IsPrincipal)
	mustRegisterValidation(v, "proxyHost", IsProxyHost)
	mustRegisterValidation(v, "httpURL", IsHTTPURL)
}

func mustRegisterValidation(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// IsPrincipal checks that the given Kerberos principal is valid:
// - Exactly one '@' separating the name and the realm.
// - Name is user or service/host with no empty components.
// - No whitespace.
func IsPrincipal(fl validator.FieldLevel) bool {
	v := fl.Field().String()

	if strings.Count(v, "@") != 1 || strings.ContainsAny(v, " \t\r\n") {
		return false
	}
	name, realm, _ := strings.Cut(v, "@")
	if realm == "" || strings.Contains(realm, "/") {
		return false
	}
	parts := strings.Split(name, "/")
	if len(parts) > 2 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

// IsProxyHost checks that the given value is a bare hostname or IP address:
// - No scheme, port, path or userinfo.
// - IPv6 addresses are accepted with or without brackets.
func IsProxyHost(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	if v == "" {
		return false
	}

	if ip := net.ParseIP(strings.Trim(v, "[]")); ip != nil {
		return true
	}
	if strings.ContainsAny(v, ":/@?# \t") {
		return false
	}
	for _, l := range strings.Split(v, ".") {
		if l == "" || len(l) > 63 || l[0] == '-' || l[len(l)-1] == '-' {
			return false
		}
	}
	return true
}

// IsHTTPURL checks if the given value is an absolute http or https URL with a host.
func IsHTTPURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

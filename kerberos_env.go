// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxyprobe

import (
	"fmt"
	"os"
	"sync"
)

const (
	EnvKrb5Config = "KRB5_CONFIG"
	EnvKrb5CCName = "KRB5CCNAME"
	EnvKrb5KTName = "KRB5_KTNAME"
)

// krb5EnvMu serializes credential acquisition as the Kerberos variables are process wide.
var krb5EnvMu sync.Mutex //nolint:gochecknoglobals // guards process environment

// krb5Snapshot holds the Kerberos variables as they were before the first export.
type krb5Snapshot struct {
	mu     sync.Mutex
	values map[string]string
}

// processKrb5Env is shared by all environments exporting to the process.
var processKrb5Env = &krb5Snapshot{} //nolint:gochecknoglobals // the process environment is global

func (s *krb5Snapshot) capture(keys []string, getenv func(string) string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.values != nil {
		return
	}
	s.values = make(map[string]string, len(keys))
	for _, k := range keys {
		s.values[k] = getenv(k)
	}
}

func (s *krb5Snapshot) get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	return v, ok
}

// Krb5Environment exports Kerberos locations to the process environment.
// Values seen before the first export in the process are remembered and
// available with Previous, regardless of which environment exported first.
type Krb5Environment struct {
	CCacheName string

	getenv   func(key string) string
	setenv   func(key, value string) error
	snapshot *krb5Snapshot
}

func NewKrb5Environment(ccname string) *Krb5Environment {
	return &Krb5Environment{
		CCacheName: ccname,
		getenv:     os.Getenv,
		setenv:     os.Setenv,
		snapshot:   processKrb5Env,
	}
}

// Export sets KRB5_CONFIG, KRB5CCNAME and KRB5_KTNAME.
func (e *Krb5Environment) Export(krb5Conf, keytab string) error {
	vars := [...][2]string{
		{EnvKrb5Config, krb5Conf},
		{EnvKrb5CCName, e.CCacheName},
		{EnvKrb5KTName, "FILE:" + keytab},
	}

	keys := make([]string, 0, len(vars))
	for _, kv := range vars {
		keys = append(keys, kv[0])
	}
	e.snapshot.capture(keys, e.getenv)

	for _, kv := range vars {
		if err := e.setenv(kv[0], kv[1]); err != nil {
			return fmt.Errorf("set %s: %w", kv[0], err)
		}
	}
	return nil
}

func (e *Krb5Environment) Get(key string) string {
	return e.getenv(key)
}

// Previous returns the value of key from before the first Export.
// If nothing was exported it returns the current value.
func (e *Krb5Environment) Previous(key string) string {
	if v, ok := e.snapshot.get(key); ok {
		return v
	}
	return e.getenv(key)
}

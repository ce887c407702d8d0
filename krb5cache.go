// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxyprobe

import (
	"sync"
	"time"
)

// DefaultCCacheName is the name of the in-memory credential cache.
const DefaultCCacheName = "MEMORY:proxyprobe"

// CredentialCache is a named in-memory store of acquired credentials keyed by principal.
// Credentials are keyed by the requested principal, which may differ from the
// principal found in a default credential cache.
type CredentialCache struct {
	name string

	mu    sync.Mutex
	creds map[Principal]*Credential
}

func NewCredentialCache(name string) *CredentialCache {
	return &CredentialCache{
		name:  name,
		creds: make(map[Principal]*Credential),
	}
}

var credentialCaches sync.Map //nolint:gochecknoglobals // registry of named caches

// CredentialCacheFor returns the process wide cache registered under name, creating it if needed.
func CredentialCacheFor(name string) *CredentialCache {
	v, _ := credentialCaches.LoadOrStore(name, NewCredentialCache(name))
	return v.(*CredentialCache) //nolint:forcetypeassert // only caches are stored
}

func (c *CredentialCache) Name() string {
	return c.name
}

func (c *CredentialCache) Store(cred *Credential) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds[cred.cacheKey()] = cred
}

// Get returns a credential for p that has not expired at now.
func (c *CredentialCache) Get(p Principal, now time.Time) (*Credential, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cred, ok := c.creds[p]
	if !ok || cred.Expired(now) {
		return nil, false
	}
	return cred, true
}

// Remove deletes cred from the cache if it is the entry stored for its principal.
func (c *CredentialCache) Remove(cred *Credential) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := cred.cacheKey()
	if c.creds[k] == cred {
		delete(c.creds, k)
	}
}

func (c *CredentialCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.creds)
}

func (c *Credential) cacheKey() Principal {
	if c.key != "" {
		return c.key
	}
	return c.Principal
}

// Copyright 2023-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package header implements the request header rules of the --header flag.
package header

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

type Action int

const (
	Remove Action = iota
	RemoveByPrefix
	Empty
	Add
)

// RequestFuncs are the values available in "{{name}}" templates.
var RequestFuncs = map[string]func(*http.Request) string{ //nolint:gochecknoglobals // template registry
	"uuid": func(*http.Request) string { return uuid.NewString() },
	"host": func(r *http.Request) string { return r.URL.Host },
}

// Header is a single rule, Value is used only by Add.
type Header struct {
	Name   string
	Action Action
	Value  string
}

// New returns a header that adds name with value.
func New(name, value string) Header {
	return Header{Name: http.CanonicalHeaderKey(name), Action: Add, Value: value}
}

var (
	nameRe = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
	lineRe = regexp.MustCompile(`^([A-Za-z0-9-]+):\s*(.*)\r?\n?$`)
)

// ParseHeader parses a rule:
//
//	"Name: value"    add a header
//	"Name: {{uuid}}" add a header computed per request
//	"Name;"          set a header to empty
//	"-Name"          remove a header
//	"-Name*"         remove all headers with the prefix
func ParseHeader(val string) (Header, error) {
	var h Header

	name, remove := strings.CutPrefix(val, "-")
	switch {
	case remove && strings.HasSuffix(name, "*"):
		h = Header{Name: strings.TrimSuffix(name, "*"), Action: RemoveByPrefix}
	case remove:
		h = Header{Name: name, Action: Remove}
	case strings.HasSuffix(val, ";"):
		h = Header{Name: strings.TrimSuffix(val, ";"), Action: Empty}
	default:
		m := lineRe.FindStringSubmatch(val)
		if m == nil {
			return Header{}, fmt.Errorf("invalid header %q, expected Name: value", val)
		}
		h = Header{Name: m[1], Action: Add, Value: m[2]}
	}

	if !nameRe.MatchString(h.Name) {
		return Header{}, fmt.Errorf("invalid header name %q", h.Name)
	}
	if f, ok := h.templateFunc(); ok {
		if _, ok := RequestFuncs[f]; !ok {
			return Header{}, fmt.Errorf("unknown template func %q", f)
		}
	}

	return h, nil
}

func (h *Header) templateFunc() (string, bool) {
	if h.Action != Add {
		return "", false
	}
	v, ok := strings.CutPrefix(h.Value, "{{")
	if !ok {
		return "", false
	}
	return strings.CutSuffix(v, "}}")
}

// ApplyToRequest modifies the request headers.
// Add does not override a value the request already has.
func (h *Header) ApplyToRequest(req *http.Request) error {
	switch h.Action {
	case Remove:
		req.Header.Del(h.Name)
	case RemoveByPrefix:
		removeHeadersByPrefix(req.Header, h.Name)
	case Empty:
		req.Header.Set(h.Name, "")
	case Add:
		if req.Header.Get(h.Name) != "" {
			return nil
		}
		v := h.Value
		if f, ok := h.templateFunc(); ok {
			fn, ok := RequestFuncs[f]
			if !ok {
				return errors.New("request func not found: " + f)
			}
			v = fn(req)
		}
		req.Header.Set(h.Name, v)
	}
	return nil
}

func removeHeadersByPrefix(h http.Header, prefix string) {
	for k := range h {
		if len(k) >= len(prefix) && strings.EqualFold(k[:len(prefix)], prefix) {
			h.Del(k)
		}
	}
}

// Sensitive returns true if the header carries credentials and its value must not be logged.
func (h *Header) Sensitive() bool {
	switch http.CanonicalHeaderKey(h.Name) {
	case "Authorization", "Proxy-Authorization", "Cookie":
		return true
	default:
		return false
	}
}

func (h *Header) String() string {
	switch h.Action {
	case Remove:
		return "-" + h.Name
	case RemoveByPrefix:
		return "-" + h.Name + "*"
	case Empty:
		return h.Name + ";"
	case Add:
		return h.Name + ":" + h.Value
	default:
		return ""
	}
}

type Headers []Header

func (s Headers) ModifyRequest(req *http.Request) error {
	for i := range s {
		if err := s[i].ApplyToRequest(req); err != nil {
			return err
		}
	}
	return nil
}

// Transport returns a RoundTripper that applies the headers to a copy of every request.
func (s Headers) Transport(base http.RoundTripper) http.RoundTripper {
	return roundTripper(func(req *http.Request) (*http.Response, error) {
		r := req.Clone(req.Context())
		if err := s.ModifyRequest(r); err != nil {
			if req.Body != nil {
				req.Body.Close()
			}
			return nil, err
		}
		return base.RoundTrip(r)
	})
}

type roundTripper func(*http.Request) (*http.Response, error)

func (f roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Copyright 2023-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cobrautil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type DescribeFormat int

const (
	// Plain renders name=value lines, it is used in text logs.
	Plain DescribeFormat = iota
	// JSON renders a single object, it is used in JSON logs.
	JSON
	// YAML renders a document that can be passed back with --config-file.
	YAML
)

func DescribeFlags(fs *pflag.FlagSet, format DescribeFormat) (string, error) {
	return FlagsDescriber{
		Format: format,
	}.DescribeFlags(fs)
}

// FlagsDescriber renders flag values, values of flags bound with a redact function are shown redacted.
type FlagsDescriber struct {
	Format          DescribeFormat
	ShowChangedOnly bool
	ShowHidden      bool
}

func (d FlagsDescriber) DescribeFlags(fs *pflag.FlagSet) (string, error) {
	values := d.values(fs)

	switch d.Format {
	case Plain:
		return describePlain(values), nil
	case JSON:
		b, err := json.Marshal(values)
		return string(b), err
	case YAML:
		return describeYAML(values)
	default:
		return "", fmt.Errorf("unknown describe format %d", d.Format)
	}
}

type sliceValue interface {
	GetSlice() []string
}

// values maps flag names to bool, []string or string values.
func (d FlagsDescriber) values(fs *pflag.FlagSet) map[string]any {
	m := make(map[string]any, fs.NFlag())
	fs.VisitAll(func(f *pflag.Flag) {
		switch {
		case f.Name == "help":
			return
		case f.Hidden && !d.ShowHidden:
			return
		case !f.Changed && d.ShowChangedOnly:
			return
		}

		if f.Value.Type() == "bool" {
			if b, err := strconv.ParseBool(f.Value.String()); err == nil {
				m[f.Name] = b
				return
			}
		}
		if sv, ok := f.Value.(sliceValue); ok {
			m[f.Name] = sv.GetSlice()
			return
		}
		m[f.Name] = f.Value.String()
	})
	return m
}

func describePlain(values map[string]any) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		v := values[k]
		if s, ok := v.([]string); ok {
			v = strings.Join(s, ",")
		}
		fmt.Fprintf(&sb, "%s=%v\n", k, v)
	}
	return sb.String()
}

func describeYAML(values map[string]any) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(values); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cobrautil

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// EnvAliases maps flag names to additional, unprefixed environment variable names.
type EnvAliases map[string]string

// Binder fills flags that were not set on the command line.
// The precedence order is: flags, prefixed environment variables, aliased environment variables, config file, defaults.
type Binder struct {
	EnvPrefix string
	// ConfigFileFlag names the flag holding the config file path, empty disables config files.
	ConfigFileFlag string
	Aliases        EnvAliases
}

// EnvNames returns the environment variables read for a flag, in precedence order.
func (b Binder) EnvNames(flagName string) []string {
	names := []string{strings.ToUpper(b.EnvPrefix + "_" + strings.ReplaceAll(flagName, "-", "_"))}
	if a, ok := b.Aliases[flagName]; ok {
		names = append(names, a)
	}
	return names
}

// Bind reads the environment and the config file and sets the unchanged flags of cmd.
func (b Binder) Bind(cmd *cobra.Command) error {
	v := viper.New()

	fs := []*pflag.FlagSet{cmd.PersistentFlags(), cmd.Flags()}
	for _, f := range fs {
		if err := v.BindPFlags(f); err != nil {
			return err
		}
	}

	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		err = multierr.Append(err, v.BindEnv(append([]string{f.Name}, b.EnvNames(f.Name)...)...))
	})
	if err != nil {
		return err
	}

	if b.ConfigFileFlag != "" {
		if name := v.GetString(b.ConfigFileFlag); name != "" {
			v.SetConfigFile(name)
			if filepath.Ext(name) == "" {
				v.SetConfigType("yaml")
			}
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("read config file: %w", err)
			}
		}
	}

	for _, set := range fs {
		set.VisitAll(func(f *pflag.Flag) {
			if f.Changed || !v.IsSet(f.Name) {
				return
			}
			if serr := set.Set(f.Name, flagValue(v.Get(f.Name))); serr != nil {
				err = multierr.Append(err, fmt.Errorf("%s: %w", f.Name, serr))
			}
		})
	}
	return err
}

// flagValue renders a config value in the flag syntax, lists are comma separated.
func flagValue(v any) string {
	switch vv := v.(type) {
	case []any:
		return strings.Join(cast.ToStringSlice(vv), ",")
	case []string:
		return strings.Join(vv, ",")
	default:
		return cast.ToString(v)
	}
}

// AnnotateUsage appends the environment variables bound to each flag to its usage.
func (b Binder) AnnotateUsage(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if strings.Contains(f.Usage, " env: ") {
			return
		}
		f.Usage += " env: " + strings.Join(b.EnvNames(f.Name), ", ")
	})
}

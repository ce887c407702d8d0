// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package log

// Config is the logging configuration shared by all commands.
// If File is empty logs are written to the command output.
type Config struct {
	// File is the path of the log file, it is reopened on SIGHUP.
	File   string
	Level  Level
	Format Format
}

func DefaultConfig() *Config {
	return &Config{
		Level:  InfoLevel,
		Format: TextFormat,
	}
}

// Verbose reports whether messages of level l are written.
func (c *Config) Verbose(l Level) bool {
	return l <= c.Level
}

type Level int

// Levels start from 1 to avoid zero value in help printer.
const (
	ErrorLevel Level = 1 + iota
	WarnLevel
	InfoLevel
	DebugLevel
)

var levelNames = [...]string{"error", "warn", "info", "debug"} //nolint:gochecknoglobals // lookup table

// Levels returns all levels ordered from the least verbose.
func Levels() []Level {
	return []Level{ErrorLevel, WarnLevel, InfoLevel, DebugLevel}
}

func (l Level) String() string {
	return levelNames[l-1]
}

type Format int

// Formats start from 1 to avoid zero value in help printer.
const (
	TextFormat Format = 1 + iota
	JSONFormat
)

// Formats returns all supported output formats.
func Formats() []Format {
	return []Format{TextFormat, JSONFormat}
}

func (m Format) String() string {
	return [2]string{"text", "json"}[m-1]
}

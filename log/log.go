// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package log defines the logger used across proxyprobe and the log configuration flags.
// Loggers are named per component: kerberos, client, harness and httpbin.
package log

import "os"

// StructuredLogger logs a message with key value pairs.
// Values of keys carrying secrets must be redacted by the caller.
type StructuredLogger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
	Debug(msg string, args ...any)

	// With returns a logger that adds args to every message, the harness uses it to tag the test name.
	With(args ...any) StructuredLogger
}

var (
	DefaultFileFlags = os.O_CREATE | os.O_APPEND | os.O_WRONLY

	// Log files may contain principals and user names.
	DefaultFileMode os.FileMode = 0o600
	DefaultDirMode  os.FileMode = 0o700
)

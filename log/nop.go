// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package log

// NopLogger discards everything, it is used when a component is created without a logger.
var NopLogger StructuredLogger = nopLogger{} //nolint:gochecknoglobals // nop implementation

type nopLogger struct{}

func (nopLogger) Error(string, ...any)           {}
func (nopLogger) Warn(string, ...any)            {}
func (nopLogger) Info(string, ...any)            {}
func (nopLogger) Debug(string, ...any)           {}
func (l nopLogger) With(...any) StructuredLogger { return l }

// OrNop returns l, or NopLogger if l is nil.
func OrNop(l StructuredLogger) StructuredLogger {
	if l == nil {
		return NopLogger
	}
	return l
}

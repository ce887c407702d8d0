// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package slog implements log.StructuredLogger with the standard log/slog handlers.
package slog

import (
	"io"
	"log/slog"
	"os"

	plog "github.com/saucelabs/proxyprobe/log"
)

var _ plog.StructuredLogger = &Logger{}

// Logger writes text or JSON records with the keys timestamp, severity and message.
type Logger struct {
	log  *slog.Logger
	file *plog.RotatableFile
	name string

	opts options
}

type options struct {
	out     io.Writer
	attrs   []any
	onError func(name string)
}

type Option func(*options)

// WithOnError sets a function called with the logger name for every logged error.
func WithOnError(f func(name string)) Option {
	return func(o *options) { o.onError = f }
}

// WithAttributes adds args to every record.
func WithAttributes(args ...any) Option {
	return func(o *options) { o.attrs = append(o.attrs, args...) }
}

// WithWriter sets the output used when no log file is configured, the default is stdout.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// New returns a logger writing to cfg.File if set, otherwise to the writer from WithWriter.
func New(cfg *plog.Config, opts ...Option) (*Logger, error) {
	l := &Logger{opts: options{out: os.Stdout}}
	for _, opt := range opts {
		opt(&l.opts)
	}

	w := l.opts.out
	if cfg.File != "" {
		f, err := plog.OpenRotatableFile(cfg.File)
		if err != nil {
			return nil, err
		}
		l.file, w = f, f
	}

	l.log = slog.New(newHandler(w, cfg)).With(l.opts.attrs...)
	return l, nil
}

func newHandler(w io.Writer, cfg *plog.Config) slog.Handler {
	hopts := &slog.HandlerOptions{
		Level:       slogLevel(cfg.Level),
		ReplaceAttr: renameKeys,
	}
	if cfg.Format == plog.JSONFormat {
		return slog.NewJSONHandler(w, hopts)
	}
	return slog.NewTextHandler(w, hopts)
}

func (l *Logger) Error(msg string, args ...any) {
	if l.opts.onError != nil {
		l.opts.onError(l.name)
	}
	l.log.Error(msg, args...)
}

func (l *Logger) Warn(msg string, args ...any)  { l.log.Warn(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log.Info(msg, args...) }
func (l *Logger) Debug(msg string, args ...any) { l.log.Debug(msg, args...) }

func (l *Logger) With(args ...any) plog.StructuredLogger {
	c := *l
	c.log = l.log.With(args...)
	return &c
}

// Named returns a logger for a component, the name is added as the "name" key.
func (l *Logger) Named(name string) *Logger {
	c := *l
	c.name = name
	c.log = l.log.With("name", name)
	return &c
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func slogLevel(level plog.Level) slog.Level {
	switch level {
	case plog.ErrorLevel:
		return slog.LevelError
	case plog.WarnLevel:
		return slog.LevelWarn
	case plog.DebugLevel:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

func renameKeys(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.LevelKey:
		a.Key = "severity"
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

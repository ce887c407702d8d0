// Copyright 2023-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package runctx runs functions until they return or the process receives SIGINT or SIGTERM.
// main maps ErrInterrupted to exit status 130.
package runctx

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// DefaultNotifySignals specifies signals that would cause the context to be canceled.
var DefaultNotifySignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}

// ErrInterrupted is returned by Run when a signal canceled the context.
var ErrInterrupted = errors.New("interrupted")

// Group runs functions concurrently with a shared context.
// The context is canceled on any of NotifySignals or when a function returns an error.
type Group struct {
	NotifySignals []os.Signal
	funcs         []func(ctx context.Context) error
}

func NewGroup(fn ...func(ctx context.Context) error) *Group {
	return &Group{
		funcs: fn,
	}
}

func (g *Group) Add(fn func(ctx context.Context) error) {
	g.funcs = append(g.funcs, fn)
}

func (g *Group) Run() error {
	return g.RunContext(context.Background())
}

// RunContext runs the functions and waits for all of them to return.
// If a signal was received it returns ErrInterrupted, otherwise the first error.
func (g *Group) RunContext(ctx context.Context) error {
	sigs := g.NotifySignals
	if len(sigs) == 0 {
		sigs = DefaultNotifySignals
	}
	sigCtx, unregisterSignals := signal.NotifyContext(ctx, sigs...)
	defer unregisterSignals()

	eg, egCtx := errgroup.WithContext(sigCtx)
	for _, fn := range g.funcs {
		eg.Go(func() error { return fn(egCtx) })
	}
	err := eg.Wait()

	if sigCtx.Err() != nil && ctx.Err() == nil {
		return ErrInterrupted
	}
	return err
}

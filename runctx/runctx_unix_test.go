// Copyright 2023-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build unix

package runctx

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/sys/unix"
)

func TestSignalInterrupts(t *testing.T) {
	for _, sig := range []unix.Signal{unix.SIGINT, unix.SIGTERM} {
		t.Run(unix.SignalName(sig), func(t *testing.T) {
			g := NewGroup()
			g.Add(func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			})
			g.Add(func(context.Context) error {
				return unix.Kill(unix.Getpid(), sig)
			})

			if err := g.Run(); !errors.Is(err, ErrInterrupted) {
				t.Fatalf("expected %v, got %v", ErrInterrupted, err)
			}
		})
	}
}

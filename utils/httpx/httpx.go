// Copyright 2023-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package httpx runs HTTP servers bound to a context, it serves the local httpbin upstream.
package httpx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// ListenAndServe serves h on a TCP address until ctx is canceled.
// If ready is not nil it is called with the listener address once listening.
func ListenAndServe(ctx context.Context, h http.Handler, addr string, ready func(net.Addr)) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	if ready != nil {
		ready(l.Addr())
	}
	return Serve(ctx, h, l)
}

// Serve serves h on l until ctx is canceled, the listener is closed on return.
func Serve(ctx context.Context, h http.Handler, l net.Listener) error {
	defer l.Close()

	s := http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	err := s.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return err
}

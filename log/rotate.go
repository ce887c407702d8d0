// Copyright 2023-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package log

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// oldFileCloseDelay gives in-flight writes to a rotated file time to complete.
const oldFileCloseDelay = 5 * time.Second

// RotatableFile is a log file that is reopened on SIGHUP, so that it can be rotated by logrotate.
type RotatableFile struct {
	path   string
	f      atomic.Pointer[os.File]
	sig    chan os.Signal
	done   chan struct{}
	closed sync.Once
}

// OpenRotatableFile opens path for appending, the parent directory is created if needed.
func OpenRotatableFile(path string) (*RotatableFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), DefaultDirMode); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, DefaultFileFlags, DefaultFileMode)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	w := &RotatableFile{
		path: path,
		sig:  make(chan os.Signal, 1),
		done: make(chan struct{}),
	}
	w.f.Store(f)
	signal.Notify(w.sig, syscall.SIGHUP)
	go w.loop()
	return w, nil
}

func (w *RotatableFile) Name() string {
	return w.path
}

func (w *RotatableFile) Write(p []byte) (n int, err error) {
	return w.f.Load().Write(p)
}

func (w *RotatableFile) Close() error {
	w.closed.Do(func() {
		signal.Stop(w.sig)
		close(w.done)
	})
	return w.f.Load().Close()
}

// Reopen opens the file by path and swaps it with the current one.
// The old file is closed after a delay.
func (w *RotatableFile) Reopen() error {
	nf, err := os.OpenFile(w.path, DefaultFileFlags, DefaultFileMode)
	if err != nil {
		return err
	}
	old := w.f.Swap(nf)

	time.AfterFunc(oldFileCloseDelay, func() {
		if err := old.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close rotated log file: %v\n", err)
		}
	})

	return nil
}

func (w *RotatableFile) loop() {
	for {
		select {
		case <-w.done:
			return
		case <-w.sig:
			if err := w.Reopen(); err != nil {
				fmt.Fprintf(os.Stderr, "reopen log file: %v\n", err)
			}
		}
	}
}

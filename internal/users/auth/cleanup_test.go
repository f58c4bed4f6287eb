// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

package auth_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EduNauta/sindicapp/internal/users/auth"
)

type countingPurger struct {
	calls atomic.Int32
	err   error
}

func (purger *countingPurger) CleanExpiredSessions(context.Context) (int64, error) {
	purger.calls.Add(1)
	return 0, purger.err
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

/*
TestJanitor_PurgesUntilCancelled verifies ticking and shutdown.
*/
func TestJanitor_PurgesUntilCancelled(t *testing.T) {
	purger := &countingPurger{}
	janitor := auth.NewJanitor(purger, 5*time.Millisecond, slog.New(slog.NewJSONHandler(&syncBuffer{}, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		janitor.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return purger.calls.Load() >= 3 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancellation")
	}
}

/*
TestJanitor_LogsFailures verifies a failing purge is logged and retried.
*/
func TestJanitor_LogsFailures(t *testing.T) {
	purger := &countingPurger{err: errStoreDown}
	output := &syncBuffer{}
	janitor := auth.NewJanitor(purger, 5*time.Millisecond, slog.New(slog.NewJSONHandler(output, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go janitor.Run(ctx)

	require.Eventually(t, func() bool { return purger.calls.Load() >= 2 }, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool {
		return strings.Contains(output.String(), `"msg":"session_purge_failed"`)
	}, time.Second, time.Millisecond)
}

/*
TestJanitor_DisabledInterval verifies a zero interval returns immediately.
*/
func TestJanitor_DisabledInterval(t *testing.T) {
	purger := &countingPurger{}
	janitor := auth.NewJanitor(purger, 0, nil)

	done := make(chan struct{})
	go func() {
		janitor.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled janitor kept running")
	}
	assert.Zero(t, purger.calls.Load())
}

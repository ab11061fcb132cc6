// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package concurrent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_RunsAll(t *testing.T) {
	var count atomic.Int32
	functions := make([]func() error, 20)
	for i := range functions {
		functions[i] = func() error {
			count.Add(1)
			return nil
		}
	}

	err := NewWorkerPool(4).Run(context.Background(), functions...)
	require.NoError(t, err)
	assert.Equal(t, int32(20), count.Load())
}

func TestWorkerPool_EachFunctionRunsOnce(t *testing.T) {
	runs := make([]atomic.Int32, 16)
	functions := make([]func() error, len(runs))
	for i := range functions {
		functions[i] = func() error {
			runs[i].Add(1)
			return nil
		}
	}

	require.NoError(t, NewWorkerPool(3).Run(context.Background(), functions...))
	for i := range runs {
		assert.Equal(t, int32(1), runs[i].Load(), "function %d", i)
	}
}

func TestWorkerPool_RespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	functions := make([]func() error, 12)
	for i := range functions {
		functions[i] = func() error {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return nil
		}
	}

	require.NoError(t, NewWorkerPool(3).Run(context.Background(), functions...))
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestWorkerPool_ReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	err := NewWorkerPool(2).Run(context.Background(),
		func() error { return nil },
		func() error { return boom },
	)
	assert.ErrorIs(t, err, boom)
}

func TestWorkerPool_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var called atomic.Bool
	err := NewWorkerPool(1).Run(ctx, func() error {
		called.Store(true)
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called.Load())
}

func TestWorkerPool_ZeroSize(t *testing.T) {
	err := NewWorkerPool(0).Run(context.Background(), func() error { return nil })
	assert.NoError(t, err)
}

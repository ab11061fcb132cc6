// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package concurrent provides a bounded worker pool for independent tasks.
package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// WorkerPool runs functions concurrently with at most size of them in flight.
type WorkerPool struct {
	size int
}

// NewWorkerPool creates a pool running up to size functions at once.
// A size below one is treated as one.
func NewWorkerPool(size int) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{size: size}
}

// Run executes all functions and waits for them to finish.
// It returns the first error encountered. Once a function fails or ctx is
// done, functions that have not started yet are skipped.
func (p *WorkerPool) Run(ctx context.Context, functions ...func() error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.size)

	for _, fn := range functions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn()
		})
	}

	return g.Wait()
}

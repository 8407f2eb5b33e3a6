// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

// errExecutorStopped is returned for work submitted after shutdown began.
var errExecutorStopped = errors.New("executor stopped")

// executor runs the wallet's background tasks on a bounded pool and joins
// them all before teardown, so no task can outlive the account and cache it
// touches.
type executor struct {
	sem  *semaphore.Weighted
	wg   sync.WaitGroup
	mu   sync.Mutex
	stop bool
}

func newExecutor(limit int64) *executor {
	return &executor{sem: semaphore.NewWeighted(limit)}
}

// run schedules f on the pool, blocking while the pool is full.
func (e *executor) run(f func()) error {
	e.mu.Lock()
	if e.stop {
		e.mu.Unlock()
		return errExecutorStopped
	}
	e.wg.Add(1)
	e.mu.Unlock()

	if err := e.sem.Acquire(context.Background(), 1); err != nil {
		e.wg.Done()
		return err
	}

	go func() {
		defer e.wg.Done()
		defer e.sem.Release(1)
		f()
	}()
	return nil
}

// shutdown refuses new work and blocks until every in-flight task returns.
func (e *executor) shutdown() {
	e.mu.Lock()
	e.stop = true
	e.mu.Unlock()
	e.wg.Wait()
}

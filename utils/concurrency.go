package utils

import (
	"context"
	"sync"
)

// WorkerPool runs jobs on goroutines, at most maxWorkers at a time.
// A pool created with maxWorkers <= 0 never blocks Submit.
type WorkerPool struct {
	semaphore chan struct{}
	wg        sync.WaitGroup
}

// NewWorkerPool creates a WorkerPool with the given concurrency bound.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	wp := &WorkerPool{}
	if maxWorkers > 0 {
		wp.semaphore = make(chan struct{}, maxWorkers)
	}
	return wp
}

// Submit starts job once a slot is free. It returns false without running the
// job if ctx is cancelled first.
func (wp *WorkerPool) Submit(ctx context.Context, job func()) bool {
	if wp.semaphore != nil {
		select {
		case wp.semaphore <- struct{}{}:
		case <-ctx.Done():
			return false
		}
	}

	wp.wg.Add(1)
	go func() {
		defer wp.wg.Done()
		if wp.semaphore != nil {
			defer func() { <-wp.semaphore }()
		}
		job()
	}()
	return true
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// Task is one unit of concurrent I/O work.
type Task[T any] func(ctx context.Context) (T, error)

// DrainCompleted runs every task concurrently and passes each result to
// collect in the order the tasks finish, not the order they were given.
// collect runs only on the calling goroutine. The first error cancels the
// tasks still running and is returned once all of them have stopped; results
// arriving after it are discarded.
func DrainCompleted[T any](ctx context.Context, limit int, tasks []Task[T], collect func(T)) error {
	if len(tasks) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, len(tasks))
	pool := NewWorkerPool(limit)

	go func() {
		for _, task := range tasks {
			ok := pool.Submit(ctx, func() {
				v, err := task(ctx)
				done <- outcome{val: v, err: err}
			})
			if !ok {
				done <- outcome{err: ctx.Err()}
			}
		}
	}()

	var firstErr error
	for range tasks {
		o := <-done
		if o.err != nil {
			if firstErr == nil {
				firstErr = o.err
				cancel()
			}
			continue
		}
		if firstErr == nil {
			collect(o.val)
		}
	}
	pool.Wait()
	return firstErr
}

// GatherOrdered runs task(ctx, i) for every i in [0, n) concurrently and
// returns the results indexed by i, whatever order they finish in. The first
// error cancels the remaining tasks and is returned with a nil slice.
func GatherOrdered[T any](ctx context.Context, limit, n int, task func(ctx context.Context, i int) (T, error)) ([]T, error) {
	results := make([]T, n)
	if n == 0 {
		return results, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	pool := NewWorkerPool(limit)
	for i := 0; i < n; i++ {
		ok := pool.Submit(ctx, func() {
			v, err := task(ctx, i)
			if err != nil {
				fail(err)
				return
			}
			results[i] = v
		})
		if !ok {
			fail(ctx.Err())
			break
		}
	}
	pool.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

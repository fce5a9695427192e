package nco

import (
	"context"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
)

func defaultWorkers() int {
	n := runtime.NumCPU() / 2
	if n < 1 {
		n = 1
	}
	return n
}

// forEach runs fn for every index in [0, n) on an ants pool and returns the
// first error. fn must write its result by index so output order never
// depends on scheduling.
func forEach(ctx context.Context, workers, n int, fn func(ctx context.Context, i int) error) error {
	if n == 0 {
		return nil
	}
	if workers <= 0 {
		workers = defaultWorkers()
	}
	if workers > n {
		workers = n
	}
	if workers == 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return err
	}
	defer pool.Release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		i := i
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			if err := fn(ctx, i); err != nil {
				fail(err)
			}
		}); err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

package pool

import (
	stderrors "errors"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Group is a fixed-size worker pool. A single Group is created per codec
// instance and shared by every stage; each call to Run submits a batch of
// independent tasks and returns only after all of them completed.
type Group struct {
	workers int
}

// NewGroup returns a Group running at most workers tasks at once.
// workers <= 0 selects runtime.GOMAXPROCS(0).
func NewGroup(workers int) *Group {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Group{workers: workers}
}

// Workers reports the number of concurrent workers.
func (g *Group) Workers() int { return g.workers }

// Run calls fn(i) for every i in [0, n) and waits for all calls to return.
// Tasks are claimed through an atomic counter so that long and short tasks
// balance across workers. A failing task does not stop its siblings; all
// errors are collected and reported together once the batch has joined.
func (g *Group) Run(n int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}
	workers := g.workers
	if workers > n {
		workers = n
	}

	errs := make([]error, n)
	if workers == 1 {
		for i := 0; i < n; i++ {
			errs[i] = fn(i)
		}
		return joinErrors(errs)
	}

	var next atomic.Int32
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1)) - 1
				if i >= n {
					return
				}
				errs[i] = fn(i)
			}
		}()
	}
	wg.Wait()
	return joinErrors(errs)
}

// joinErrors keeps the task order of the failures so the first error in the
// result is the one from the lowest task index.
func joinErrors(errs []error) error {
	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	switch len(failed) {
	case 0:
		return nil
	case 1:
		return failed[0]
	default:
		return errors.Wrapf(stderrors.Join(failed...), "%d tasks failed", len(failed))
	}
}

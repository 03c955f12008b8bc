// Package utils contains small concurrency and math helpers shared by the navigation layers.
package utils

import (
	"context"
	"sync"

	goutils "go.viam.com/utils"
)

// StoppableWorkers is a group of goroutines sharing one context. The group is finished once every
// worker has returned; after that no new worker starts.
type StoppableWorkers struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	running  int
	finished bool
	done     chan struct{}
}

// NewStoppableWorkers runs each function in its own goroutine.
func NewStoppableWorkers(funcs ...func(context.Context)) *StoppableWorkers {
	return NewStoppableWorkersWithContext(context.Background(), funcs...)
}

// NewStoppableWorkersWithContext is NewStoppableWorkers with a context derived from parent. When
// parent is already done, or funcs is empty, the group starts out finished.
func NewStoppableWorkersWithContext(parent context.Context, funcs ...func(context.Context)) *StoppableWorkers {
	ctx, cancel := context.WithCancel(parent)
	sw := &StoppableWorkers{ctx: ctx, cancel: cancel, done: make(chan struct{})}
	sw.AddWorkers(funcs...)

	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.running == 0 {
		sw.finishLocked()
	}
	return sw
}

// AddWorkers starts more goroutines. It does nothing once the group is stopped or finished.
func (sw *StoppableWorkers) AddWorkers(funcs ...func(context.Context)) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.finished || sw.ctx.Err() != nil {
		return
	}

	sw.running += len(funcs)
	sw.wg.Add(len(funcs))
	for _, f := range funcs {
		f := f
		goutils.PanicCapturingGo(func() {
			defer sw.workerReturned()
			f(sw.ctx)
		})
	}
}

func (sw *StoppableWorkers) workerReturned() {
	sw.mu.Lock()
	sw.running--
	if sw.running == 0 {
		sw.finishLocked()
	}
	sw.mu.Unlock()
	sw.wg.Done()
}

func (sw *StoppableWorkers) finishLocked() {
	if !sw.finished {
		sw.finished = true
		close(sw.done)
	}
}

// Stop cancels the workers' context and waits for them to return. It may be called more than once.
func (sw *StoppableWorkers) Stop() {
	sw.cancel()
	sw.wg.Wait()

	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.finishLocked()
}

// Done is closed once every worker has returned.
func (sw *StoppableWorkers) Done() <-chan struct{} {
	return sw.done
}

// Context is the context handed to the workers.
func (sw *StoppableWorkers) Context() context.Context {
	return sw.ctx
}

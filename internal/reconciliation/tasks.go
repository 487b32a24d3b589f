package reconciliation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/johsantss21/Thays-admin/pkg/logger"
)

// Dispatcher runs best-effort work after a transition has committed.
type Dispatcher interface {
	Go(ctx context.Context, name string, fn func(ctx context.Context))
}

// AsyncDispatcher runs tasks on their own goroutine, detached from the
// request context and bounded by a timeout.
type AsyncDispatcher struct {
	timeout time.Duration
	logg    *logger.Logger
	wg      sync.WaitGroup
}

func NewAsyncDispatcher(timeout time.Duration, logg *logger.Logger) *AsyncDispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AsyncDispatcher{timeout: timeout, logg: logg}
}

func (d *AsyncDispatcher) Go(ctx context.Context, name string, fn func(ctx context.Context)) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				d.logg.Error(taskCtx, "post-commit task panicked", fmt.Errorf("%s: %v", name, r))
			}
		}()
		fn(taskCtx)
	}()
}

// Wait blocks until every dispatched task has returned. Called on shutdown.
func (d *AsyncDispatcher) Wait() {
	d.wg.Wait()
}

// InlineDispatcher runs tasks synchronously on the caller's goroutine.
type InlineDispatcher struct{}

func (InlineDispatcher) Go(ctx context.Context, _ string, fn func(ctx context.Context)) {
	fn(ctx)
}

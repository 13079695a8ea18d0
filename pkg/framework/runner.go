package framework

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/golang/glog"
)

// Runner supervises a set of Runnables and aggregates their errors.
type Runner struct {
	Context context.Context

	runnables int
	errCh     chan error
	exitCh    chan struct{}
}

// NewRunner creates a runner over a background context.
func NewRunner() *Runner {
	return NewRunnerWith(context.Background())
}

// NewRunnerWith creates a runner over ctx.
func NewRunnerWith(ctx context.Context) *Runner {
	return &Runner{
		Context: ctx,
		errCh:   make(chan error, 1),
		exitCh:  make(chan struct{}),
	}
}

// HandleSignals cancels the runner's context on SIGINT/SIGTERM, and
// force-exits on a second signal.
func (r *Runner) HandleSignals() *Runner {
	ctx, cancel := context.WithCancel(r.Context)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	r.Context = ctx
	go func() {
		<-sigCh
		glog.Info("stop requested")
		cancel()
		<-sigCh
		glog.Error("stop requested again, force exit")
		close(r.exitCh)
	}()
	return r
}

// Go spawns runnables under the runner's context.
func (r *Runner) Go(runnables ...Runnable) *Runner {
	for _, runnable := range runnables {
		name := strconv.Itoa(r.runnables)
		if named, ok := runnable.(Named); ok {
			name = named.Name()
		}
		r.runnables++
		go func(runnable Runnable, name string) {
			glog.V(4).Infof("runner[%s] started", name)
			r.errCh <- runnable.Run(r.Context)
			glog.V(4).Infof("runner[%s] stopped", name)
		}(runnable, name)
	}
	return r
}

// Wait blocks until every spawned runnable stops, then reports their
// aggregated errors. Plain context cancellation is not an error.
func (r *Runner) Wait() error {
	var errs AggregatedError
	for i := 0; i < r.runnables; i++ {
		select {
		case <-r.exitCh:
			return errors.New("forced exit")
		case err := <-r.errCh:
			if err != context.Canceled {
				errs.Add(err)
			}
		}
	}
	return errs.Aggregate()
}

// RunWithContextCancel runs fn, which does not take a context, on its
// own goroutine. When the context is canceled first, onCancel runs
// (typically closing whatever fn blocks on) and the return waits for fn
// to unwind.
func RunWithContextCancel(ctx context.Context, onCancel func(), fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case <-ctx.Done():
		if onCancel != nil {
			onCancel()
		}
		<-errCh
		return context.Canceled
	case err := <-errCh:
		return err
	}
}

// RunWithContextCloser runs fn and guarantees closer.Close is called,
// either on cancellation or after fn returns.
func RunWithContextCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	var closed bool
	err := RunWithContextCancel(ctx, func() {
		closer.Close()
		closed = true
	}, fn)
	if !closed {
		closer.Close()
	}
	return err
}

// RunUntilCanceled runs fn on its own goroutine and returns when fn
// finishes or the context is canceled, whichever comes first. fn is not
// interrupted: the node's threads have no cancellation points, matching
// a firmware model where a blocked thread is only released by reset, so
// on shutdown they are simply left behind for process exit to collect.
func RunUntilCanceled(ctx context.Context, fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case <-ctx.Done():
		return context.Canceled
	case err := <-errCh:
		return err
	}
}

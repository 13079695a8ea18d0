package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunnerAggregatesErrors(t *testing.T) {
	boom := errors.New("boom")
	r := NewRunner()
	r.Go(
		RunFunc(func(ctx context.Context) error { return nil }),
		NamedRun("failing", RunFunc(func(ctx context.Context) error { return boom })),
	)
	err := r.Wait()
	require.Error(t, err)
	agg, ok := err.(*AggregatedError)
	require.True(t, ok)
	require.Equal(t, []error{boom}, agg.Errors)
}

func TestRunnerIgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunnerWith(ctx)
	r.Go(RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	cancel()
	require.NoError(t, r.Wait())
}

func TestRunUntilCanceledDetaches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	blocked := make(chan struct{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := RunUntilCanceled(ctx, func() error {
		<-blocked // never released; stands in for a thread with no cancellation
		return nil
	})
	require.Equal(t, context.Canceled, err)
	close(blocked)
}

func TestAggregatedErrorEmpty(t *testing.T) {
	var e AggregatedError
	e.Add(nil, nil)
	require.NoError(t, e.Aggregate())
}

// Package framework provides the glue for running the node's threads
// as supervised goroutines.
package framework

import "context"

// Named is anything with a display name.
type Named interface {
	Name() string
}

// Runnable is a background task driven by a context.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error { return f(ctx) }

type namedRunnable struct {
	Runnable
	name string
}

func (r *namedRunnable) Name() string { return r.name }

// NamedRun wraps a Runnable with a name for logging.
func NamedRun(name string, r Runnable) Runnable {
	return &namedRunnable{Runnable: r, name: name}
}

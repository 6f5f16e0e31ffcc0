package landkeeper

import (
	"context"
	"sync"
)

// ActionFuture is returned by LandKeeper.SubmitAction once an action has
// passed its resolver phase and been queued. It completes exactly once,
// when the tick that dequeues the action finishes running its handler -
// with nil if the handler succeeded, or the handler's returned error
// otherwise. An action that never reaches a tick because the land stops
// first completes with *LandStoppedError.
type ActionFuture struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newActionFuture() *ActionFuture {
	return &ActionFuture{done: make(chan struct{})}
}

// complete resolves the future. Only the first call has any effect.
func (f *ActionFuture) complete(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Wait blocks until the future completes or ctx is canceled, whichever
// comes first.
func (f *ActionFuture) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done reports whether the future has completed, without blocking.
func (f *ActionFuture) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

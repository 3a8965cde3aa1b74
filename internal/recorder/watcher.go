package recorder

import (
	"context"
	"sync"
)

// watcherGroup tracks the detached goroutines watching capture completion so
// shutdown can wait for in-flight recordings to finish and free their ports
// instead of orphaning them.
type watcherGroup struct {
	wg sync.WaitGroup
}

func (g *watcherGroup) Go(fn func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		fn()
	}()
}

// Drain blocks until every registered watcher has finished or ctx is done.
func (g *watcherGroup) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

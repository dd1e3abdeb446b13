package session

import (
	"context"
	"sync"
	"time"
)

// completion is a one-shot signal that a recognition turn has ended.
type completion struct {
	done chan struct{}
	once sync.Once
}

func newCompletion() *completion {
	return &completion{done: make(chan struct{})}
}

// resolve marks the turn as ended. Safe to call multiple times and on a nil
// receiver.
func (c *completion) resolve() {
	if c == nil {
		return
	}
	c.once.Do(func() {
		close(c.done)
	})
}

// wait blocks until the completion resolves, timeout elapses or ctx is done.
// It reports whether the completion resolved.
func (c *completion) wait(ctx context.Context, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-c.done:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

package driver

import "sync"

// control manages pause and stop coordination between API callers and the
// run loop goroutine.
type control struct {
	mu      sync.Mutex
	paused  bool
	stopReq bool
	stopCh  chan struct{}
}

func newControl() *control {
	return &control{stopCh: make(chan struct{})}
}

// SetPaused sets the pause flag. Returns whether it changed.
func (c *control) SetPaused(p bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused == p {
		return false
	}
	c.paused = p
	return true
}

// Paused reports whether the loop should hold.
func (c *control) Paused() bool {
	c.mu.Lock()
	p := c.paused
	c.mu.Unlock()
	return p
}

// Stop signals the loop to exit. Safe to call more than once.
func (c *control) Stop() {
	c.mu.Lock()
	if !c.stopReq {
		c.stopReq = true
		// Also clear pause so a waiting loop unblocks
		c.paused = false
		close(c.stopCh)
	}
	c.mu.Unlock()
}

// ShouldRun returns true if the loop should continue running.
func (c *control) ShouldRun() bool {
	c.mu.Lock()
	r := !c.stopReq
	c.mu.Unlock()
	return r
}

// Done is closed once Stop is called.
func (c *control) Done() <-chan struct{} {
	return c.stopCh
}

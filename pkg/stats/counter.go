package stats

import "sync/atomic"

// AtomicCounter is a tagged counter that is safe to tick from many goroutines.
type AtomicCounter struct {
	tag   string
	count atomic.Uint64
}

func (c *AtomicCounter) Tag() string {
	return c.tag
}

func (c *AtomicCounter) Tick(count uint64) {
	c.count.Add(count)
}

func (c *AtomicCounter) GetCount() uint64 {
	return c.count.Load()
}

//go:build !stats
// +build !stats

package stats

func (c *ConcurrentStatsCollector[E]) AddSample(sample E) {}

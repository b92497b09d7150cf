package stats

import (
	"time"

	"igmp-stats/pkg/utils/syncutils"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/constraints"
)

const (
	DEFAULT_MIN_REPORT_SAMPLES = 200
	DEFAULT_COLLECT_DURATION   = time.Duration(10) * time.Second
)

// ConcurrentStatsCollector gathers internal timing samples (for example how
// long one dispatch took) and logs percentiles. Samples are only recorded when
// built with the stats tag; otherwise AddSample is a no-op.
type ConcurrentStatsCollector[E constraints.Ordered] struct {
	mu                 syncutils.Mutex
	tag                string
	data               []E
	report_timer       ReportTimer
	min_report_samples uint32
}

func NewConcurrentStatsCollector[E constraints.Ordered](tag string, reportInterval time.Duration) *ConcurrentStatsCollector[E] {
	return &ConcurrentStatsCollector[E]{
		data:               make([]E, 0, 128),
		report_timer:       NewReportTimer(reportInterval),
		tag:                tag,
		min_report_samples: DEFAULT_MIN_REPORT_SAMPLES,
	}
}

func (c *ConcurrentStatsCollector[E]) PrintRemainingStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.data) > 0 {
		duration := c.report_timer.Mark()
		log.Info().Str("tag", c.tag).Int("samples", len(c.data)).
			Dur("dur", duration).Interface("data", c.data).Msg("remaining stats")
		c.data = c.data[:0]
	}
}

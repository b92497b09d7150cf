package stats

import (
	"time"
)

// ReportTimer tells a periodic reporter when its interval has elapsed. The
// clock starts on the first Check or Mark. Not goroutine safe.
type ReportTimer struct {
	lastTs   time.Time
	duration time.Duration
}

func NewReportTimer(duration time.Duration) ReportTimer {
	return ReportTimer{
		duration: duration,
	}
}

func (r *ReportTimer) start() {
	if r.lastTs.IsZero() {
		r.lastTs = time.Now()
	}
}

func (r *ReportTimer) Check() bool {
	r.start()
	return time.Since(r.lastTs) >= r.duration
}

// Mark restarts the interval and returns how long the previous one lasted.
// The first Mark returns zero.
func (r *ReportTimer) Mark() time.Duration {
	now := time.Now()
	if r.lastTs.IsZero() {
		r.lastTs = now
		return 0
	}
	d := now.Sub(r.lastTs)
	r.lastTs = now
	return d
}

package stats_manager

import (
	"math"
	"strconv"
	"strings"
	"time"

	"igmp-stats/pkg/common_errors"
	"igmp-stats/pkg/scheduler"

	"github.com/moznion/go-optional"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

const (
	// DefaultStatisticsGenerationPeriod is used whenever no valid period is
	// configured.
	DefaultStatisticsGenerationPeriod = 10
	StatisticsGenerationPeriodKey     = "statisticsGenerationPeriod"

	maxStatisticsGenerationPeriod = math.MaxInt32
)

// periodController owns the active publish period. Callers serialize access.
type periodController struct {
	unit   time.Duration
	sched  *scheduler.Scheduler
	period int
}

func newPeriodController(unit time.Duration, sched *scheduler.Scheduler) *periodController {
	return &periodController{unit: unit, sched: sched}
}

// parsePeriod returns the default for an absent or blank value. A value that is
// not a positive integer is an error.
func parsePeriod(raw optional.Option[string]) (int, error) {
	if raw.IsNone() {
		return DefaultStatisticsGenerationPeriod, nil
	}
	s := strings.TrimSpace(raw.Unwrap())
	if s == "" {
		return DefaultStatisticsGenerationPeriod, nil
	}
	p, err := strconv.Atoi(s)
	if err != nil {
		return 0, xerrors.Errorf("parse %s %q: %w", StatisticsGenerationPeriodKey, s, err)
	}
	if p <= 0 || p > maxStatisticsGenerationPeriod {
		return 0, xerrors.Errorf("%s %d: %w", StatisticsGenerationPeriodKey, p, common_errors.ErrInvalidPeriod)
	}
	return p, nil
}

// apply validates raw, falling back to the default on bad input, and restarts
// the schedule at the resulting period. The restart happens even when the
// period is unchanged.
func (c *periodController) apply(raw optional.Option[string]) error {
	p, err := parsePeriod(raw)
	if err != nil {
		log.Error().Err(err).Int("default", DefaultStatisticsGenerationPeriod).
			Msg("invalid statistics generation period, using default")
		p = DefaultStatisticsGenerationPeriod
	}
	if err := c.sched.Reschedule(time.Duration(p) * c.unit); err != nil {
		return err
	}
	if p != c.period {
		log.Info().Int("period", p).Int("previous", c.period).Msg("statistics generation period changed")
	}
	c.period = p
	return nil
}

func (c *periodController) stop() {
	c.sched.Stop()
	c.period = 0
}

func (c *periodController) current() int {
	return c.period
}

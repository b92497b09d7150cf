package stats_manager

import (
	"sync/atomic"
	"time"

	"igmp-stats/pkg/common_errors"
	"igmp-stats/pkg/commtypes"
	"igmp-stats/pkg/listener_registry"
	"igmp-stats/pkg/scheduler"
	"igmp-stats/pkg/stats"
	"igmp-stats/pkg/utils/syncutils"

	"github.com/moznion/go-optional"
	"github.com/rs/zerolog/log"
)

const publishTaskName = "igmp-stats-publish"

type ManagerConfig struct {
	// PeriodUnit is the length of one period step. Zero means time.Second.
	PeriodUnit time.Duration
	// StopTimeout bounds how long Deactivate and reconfiguration wait for a
	// running tick. Zero keeps the scheduler default.
	StopTimeout time.Duration
}

// StatisticsManager publishes a snapshot of the IGMP counters to every
// registered listener once per period.
//
// Increment, IncrementByName and Snapshot are lock free. Lifecycle calls,
// registration and reconfiguration serialize on one mutex. A listener may
// call back into the manager from OnStatsEvent; a reconfiguration made that
// way waits up to StopTimeout for the tick it is called from.
type StatisticsManager struct {
	mu syncutils.Mutex

	// nil while inactive
	store atomic.Pointer[stats.CounterStore]

	registry *listener_registry.ListenerRegistry
	sched    *scheduler.Scheduler
	period   *periodController

	seq         atomic.Uint64
	sinceLast   stats.ReportTimer
	dispatchLat *stats.ConcurrentStatsCollector[int64]
}

func NewStatisticsManager(cfg ManagerConfig) *StatisticsManager {
	unit := cfg.PeriodUnit
	if unit <= 0 {
		unit = time.Second
	}
	m := &StatisticsManager{
		registry:    listener_registry.NewListenerRegistry(),
		dispatchLat: stats.NewConcurrentStatsCollector[int64]("dispatch_us", stats.DEFAULT_COLLECT_DURATION),
	}
	m.sched = scheduler.NewScheduler(publishTaskName, m.publish)
	if cfg.StopTimeout > 0 {
		m.sched.StopTimeout = cfg.StopTimeout
	}
	m.period = newPeriodController(unit, m.sched)
	return m
}

// Activate creates a fresh counter store, registers initial and starts
// publishing at the default period. The first event is published
// immediately, after initial is registered.
func (m *StatisticsManager) Activate(initial ...listener_registry.Listener) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store.Load() != nil {
		return common_errors.ErrInvalidStateTransition
	}
	m.seq.Store(0)
	m.sinceLast = stats.NewReportTimer(0)
	m.store.Store(stats.NewCounterStore())
	for _, l := range initial {
		m.registry.Register(l)
	}
	if err := m.period.apply(optional.None[string]()); err != nil {
		m.store.Store(nil)
		m.registry.Clear()
		return err
	}
	log.Info().Int("period", m.period.current()).Int("listeners", m.registry.Len()).Msg("statistics manager activated")
	return nil
}

// Deactivate stops publishing, drops every listener and releases the counters.
// No tick starts after it returns. Deactivating an inactive manager is a no-op.
func (m *StatisticsManager) Deactivate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store.Load() == nil {
		return
	}
	m.period.stop()
	m.registry.Clear()
	m.store.Store(nil)
	m.dispatchLat.PrintRemainingStats()
	log.Info().Uint64("published", m.seq.Load()).Msg("statistics manager deactivated")
}

func (m *StatisticsManager) Active() bool {
	return m.store.Load() != nil
}

// Increment is a no-op while inactive.
func (m *StatisticsManager) Increment(name commtypes.CounterName) {
	if s := m.store.Load(); s != nil {
		s.Increment(name)
	}
}

func (m *StatisticsManager) IncrementByName(name string) {
	if s := m.store.Load(); s != nil {
		s.IncrementByName(name)
	}
}

func (m *StatisticsManager) Snapshot() (commtypes.StatsSnapshot, error) {
	s := m.store.Load()
	if s == nil {
		return commtypes.StatsSnapshot{}, common_errors.ErrNotActive
	}
	return s.Snapshot(), nil
}

func (m *StatisticsManager) Register(l listener_registry.Listener) (listener_registry.ListenerID, error) {
	if l == nil {
		return 0, common_errors.ErrNilListener
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store.Load() == nil {
		return 0, common_errors.ErrNotActive
	}
	return m.registry.Register(l), nil
}

func (m *StatisticsManager) Unregister(l listener_registry.Listener) bool {
	return m.registry.Unregister(l)
}

func (m *StatisticsManager) UnregisterID(id listener_registry.ListenerID) bool {
	return m.registry.UnregisterID(id)
}

// ApplyConfig sets the publish period from a raw seconds value and restarts
// the schedule, which publishes immediately. Absent, blank or invalid values
// select DefaultStatisticsGenerationPeriod; bad input is logged, not returned.
func (m *StatisticsManager) ApplyConfig(raw optional.Option[string]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store.Load() == nil {
		return common_errors.ErrNotActive
	}
	return m.period.apply(raw)
}

// ApplyProperties applies the statisticsGenerationPeriod entry of props.
// A missing entry selects the default.
func (m *StatisticsManager) ApplyProperties(props map[string]string) error {
	raw := optional.None[string]()
	if v, ok := props[StatisticsGenerationPeriodKey]; ok {
		raw = optional.Some(v)
	}
	return m.ApplyConfig(raw)
}

// Period returns the active period in seconds, or 0 while inactive.
func (m *StatisticsManager) Period() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.period.current()
}

// publish runs on the scheduler goroutine; ticks never overlap.
func (m *StatisticsManager) publish() error {
	s := m.store.Load()
	if s == nil {
		return nil
	}
	snap := s.Snapshot()
	ev := commtypes.NewStatsUpdate(m.seq.Add(1), time.Now(), snap)
	gap := m.sinceLast.Mark()

	begin := stats.TimerBegin()
	res := m.registry.Dispatch(ev)
	m.dispatchLat.AddSample(stats.Elapsed(begin).Microseconds())

	log.Debug().Uint64("seq", ev.Seq).Dur("sinceLast", gap).
		Int("delivered", res.Delivered).Int("failed", res.Failed).Msg("published stats")
	return nil
}

package stats

import (
	"time"

	"igmp-stats/pkg/commtypes"
	"igmp-stats/pkg/debug"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// at most one "unknown counter" line per interval, with a small burst
	unknownCounterLogEvery = 10 * time.Second
	unknownCounterLogBurst = 3
)

// CounterStore is the set of IGMP counters. Increment never blocks and never
// fails: unknown names are dropped so counting can not disturb protocol
// processing. Snapshot loads each counter atomically; counters are not read
// under one global lock, so a snapshot taken during increments may mix values
// from slightly different instants.
type CounterStore struct {
	counters   [commtypes.NumCounters]AtomicCounter
	unknownLog *rate.Limiter
}

func NewCounterStore() *CounterStore {
	s := &CounterStore{
		unknownLog: rate.NewLimiter(rate.Every(unknownCounterLogEvery), unknownCounterLogBurst),
	}
	for i := range s.counters {
		s.counters[i].tag = commtypes.CounterName(i).String()
	}
	return s
}

func (s *CounterStore) Increment(name commtypes.CounterName) {
	if !name.Valid() {
		s.dropUnknown(name.String())
		return
	}
	s.counters[name].Tick(1)
}

// IncrementByName is Increment for writers that only know the wire name.
func (s *CounterStore) IncrementByName(name string) {
	c, ok := commtypes.ParseCounterName(name)
	if !ok {
		s.dropUnknown(name)
		return
	}
	s.counters[c].Tick(1)
}

func (s *CounterStore) Get(name commtypes.CounterName) uint64 {
	if !name.Valid() {
		return 0
	}
	return s.counters[name].GetCount()
}

func (s *CounterStore) Snapshot() commtypes.StatsSnapshot {
	var counts [commtypes.NumCounters]uint64
	for i := range s.counters {
		debug.Assert(s.counters[i].tag == commtypes.CounterName(i).String(), "counter tag out of order")
		counts[i] = s.counters[i].GetCount()
	}
	return commtypes.NewStatsSnapshot(counts)
}

func (s *CounterStore) dropUnknown(name string) {
	if s.unknownLog.Allow() {
		log.Debug().Str("counter", name).Msg("ignoring increment of unknown counter")
	}
}

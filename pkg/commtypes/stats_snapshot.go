package commtypes

import (
	"encoding/json"
	"strconv"
	"strings"
)

// StatsSnapshot is an immutable copy of every counter value. It is a plain
// value: copies never share storage, so handing one to several listeners is
// safe.
type StatsSnapshot struct {
	counts [NumCounters]uint64
}

func NewStatsSnapshot(counts [NumCounters]uint64) StatsSnapshot {
	return StatsSnapshot{counts: counts}
}

// SnapshotFromMap builds a snapshot from wire names; unknown names are skipped.
func SnapshotFromMap(m map[string]uint64) StatsSnapshot {
	var s StatsSnapshot
	for k, v := range m {
		if c, ok := ParseCounterName(k); ok {
			s.counts[c] = v
		}
	}
	return s
}

// Get returns the value of name, or 0 for an unknown name.
func (s StatsSnapshot) Get(name CounterName) uint64 {
	if !name.Valid() {
		return 0
	}
	return s.counts[name]
}

func (s StatsSnapshot) Counts() [NumCounters]uint64 {
	return s.counts
}

func (s StatsSnapshot) Map() map[string]uint64 {
	m := make(map[string]uint64, NumCounters)
	for i, v := range s.counts {
		m[counterWireNames[i]] = v
	}
	return m
}

func (s StatsSnapshot) Equal(other StatsSnapshot) bool {
	return s.counts == other.counts
}

func (s StatsSnapshot) IsZero() bool {
	return s.counts == [NumCounters]uint64{}
}

func (s StatsSnapshot) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, v := range s.counts {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(counterWireNames[i])
		b.WriteString(": ")
		b.WriteString(strconv.FormatUint(v, 10))
	}
	b.WriteByte('}')
	return b.String()
}

func (s StatsSnapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Map())
}

func (s *StatsSnapshot) UnmarshalJSON(data []byte) error {
	m := make(map[string]uint64)
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*s = SnapshotFromMap(m)
	return nil
}

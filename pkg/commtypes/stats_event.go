package commtypes

import (
	"fmt"
	"time"
)

type EventType uint8

const (
	STATS_UPDATE EventType = 0
)

func (t EventType) String() string {
	switch t {
	case STATS_UPDATE:
		return "STATS_UPDATE"
	default:
		return fmt.Sprintf("EventType(%d)", uint8(t))
	}
}

func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *EventType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "STATS_UPDATE":
		*t = STATS_UPDATE
		return nil
	default:
		return fmt.Errorf("unknown event type %q", string(text))
	}
}

// StatsEvent is what listeners receive once per publish tick. Seq counts ticks
// within one activation starting at 1; Timestamp is unix milliseconds taken
// when the snapshot was read.
type StatsEvent struct {
	Type      EventType     `json:"type" msg:"type"`
	Seq       uint64        `json:"seq" msg:"seq"`
	Timestamp int64         `json:"ts" msg:"ts"`
	Snapshot  StatsSnapshot `json:"stats" msg:"stats"`
}

func NewStatsUpdate(seq uint64, at time.Time, snapshot StatsSnapshot) StatsEvent {
	return StatsEvent{
		Type:      STATS_UPDATE,
		Seq:       seq,
		Timestamp: at.UnixMilli(),
		Snapshot:  snapshot,
	}
}

func (e StatsEvent) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

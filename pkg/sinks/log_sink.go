package sinks

import (
	"igmp-stats/pkg/commtypes"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogSink writes every snapshot to the global logger, one field per counter.
type LogSink struct {
	level zerolog.Level
}

var _ = Sink(&LogSink{})

func NewLogSink(level zerolog.Level) *LogSink {
	return &LogSink{level: level}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) OnStatsEvent(ev commtypes.StatsEvent) error {
	e := log.WithLevel(s.level)
	if e == nil {
		return nil
	}
	for _, c := range commtypes.AllCounterNames() {
		e = e.Uint64(c.String(), ev.Snapshot.Get(c))
	}
	e.Uint64("seq", ev.Seq).Int64("ts", ev.Timestamp).Msg("igmp statistics")
	return nil
}

func (s *LogSink) Close() error { return nil }

package sinks

import (
	"context"
	"sync/atomic"
	"time"

	"igmp-stats/pkg/common_errors"
	"igmp-stats/pkg/commtypes"
	"igmp-stats/pkg/hashfuncs"
	"igmp-stats/pkg/redis_client"

	"github.com/go-redis/redis/v9"
	"golang.org/x/xerrors"
)

const (
	DEFAULT_REDIS_KEY     = "igmp-stats/latest"
	DEFAULT_REDIS_CHANNEL = "igmp-stats"
	DEFAULT_WRITE_TIMEOUT = 2 * time.Second
)

// RedisSink stores the latest encoded event under one key and publishes it on
// a channel, in one pipeline on the server the key hashes to.
type RedisSink struct {
	rdbs    redis_client.Clients
	serde   commtypes.SerdeG[commtypes.StatsEvent]
	Key     string
	Channel string
	Timeout time.Duration
	closed  atomic.Bool
}

var _ = Sink(&RedisSink{})

func NewRedisSink(rdbs redis_client.Clients, serdeFormat commtypes.SerdeFormat) (*RedisSink, error) {
	if len(rdbs) == 0 {
		return nil, xerrors.New("redis sink needs at least one server")
	}
	serde, err := commtypes.GetStatsEventSerdeG(serdeFormat)
	if err != nil {
		return nil, err
	}
	return &RedisSink{
		rdbs:    rdbs,
		serde:   serde,
		Key:     DEFAULT_REDIS_KEY,
		Channel: DEFAULT_REDIS_CHANNEL,
		Timeout: DEFAULT_WRITE_TIMEOUT,
	}, nil
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) OnStatsEvent(ev commtypes.StatsEvent) error {
	if s.closed.Load() {
		return common_errors.ErrSinkClosed
	}
	enc, err := s.serde.Encode(ev)
	if err != nil {
		return xerrors.Errorf("encode stats event: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	rdb := s.rdbs[hashfuncs.ShardOf(s.Key, len(s.rdbs))]
	_, err = rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.Key, enc, 0)
		p.Publish(ctx, s.Channel, enc)
		return nil
	})
	if err != nil {
		return xerrors.Errorf("write stats to redis %s: %w", rdb.Options().Addr, err)
	}
	return nil
}

func (s *RedisSink) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.rdbs.Close()
}

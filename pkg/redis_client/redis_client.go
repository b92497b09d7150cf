package redis_client

import (
	"context"

	"github.com/go-redis/redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// Clients is a set of independent redis servers. Keys are spread across them
// by the caller.
type Clients []*redis.Client

func NewClients(addrs []string) Clients {
	rdbs := make(Clients, len(addrs))
	for i, addr := range addrs {
		rdbs[i] = redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   0,
		})
	}
	return rdbs
}

// Ping checks every server concurrently and fails on the first unreachable one.
func (c Clients) Ping(ctx context.Context) error {
	bg, ctx := errgroup.WithContext(ctx)
	for i := range c {
		rdb := c[i]
		bg.Go(func() error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return xerrors.Errorf("ping redis %s: %w", rdb.Options().Addr, err)
			}
			return nil
		})
	}
	return bg.Wait()
}

func (c Clients) Close() error {
	var first error
	for _, rdb := range c {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Str("addr", rdb.Options().Addr).Msg("close redis client")
			if first == nil {
				first = err
			}
		}
	}
	return first
}

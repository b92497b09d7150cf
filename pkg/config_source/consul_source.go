package config_source

import (
	"context"
	"time"

	consulapi "github.com/hashicorp/consul/api"
	"github.com/moznion/go-optional"
	"github.com/rs/zerolog/log"
)

const (
	DEFAULT_CONSUL_KEY   = "igmp-stats/statisticsGenerationPeriod"
	DEFAULT_CONSUL_RETRY = time.Second
	consulWaitTime       = 5 * time.Minute
)

type kvGetter interface {
	Get(key string, q *consulapi.QueryOptions) (*consulapi.KVPair, *consulapi.QueryMeta, error)
}

// ConsulSource watches one KV key with blocking queries and applies every new
// revision. A key that never existed leaves the current period alone; deleting
// it later selects the default period.
type ConsulSource struct {
	kv         kvGetter
	key        string
	RetryDelay time.Duration
}

var _ = Source(&ConsulSource{})

func NewConsulSource(addr string, key string) (*ConsulSource, error) {
	cfg := consulapi.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	cli, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return newConsulSource(cli.KV(), key), nil
}

func newConsulSource(kv kvGetter, key string) *ConsulSource {
	if key == "" {
		key = DEFAULT_CONSUL_KEY
	}
	return &ConsulSource{kv: kv, key: key, RetryDelay: DEFAULT_CONSUL_RETRY}
}

func (s *ConsulSource) Name() string {
	return "consul:" + s.key
}

func (s *ConsulSource) Run(ctx context.Context, applier Applier) error {
	var lastIndex uint64
	state := watchState{src: s.Name()}
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		q := (&consulapi.QueryOptions{WaitIndex: lastIndex, WaitTime: consulWaitTime}).WithContext(ctx)
		kv, meta, err := s.kv.Get(s.key, q)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn().Err(err).Str("key", s.key).Msg("consul kv query failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.RetryDelay):
			}
			continue
		}
		if meta.LastIndex == lastIndex {
			// wait time elapsed without a change
			continue
		}
		if meta.LastIndex < lastIndex {
			// the index went backwards (snapshot restore); start over
			lastIndex = 0
			continue
		}
		lastIndex = meta.LastIndex
		raw := optional.None[string]()
		if kv != nil {
			raw = optional.Some(string(kv.Value))
		}
		state.offer(applier, raw)
	}
}

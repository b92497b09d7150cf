package config_source

import (
	"context"
	"os"

	"github.com/moznion/go-optional"
)

const DEFAULT_PERIOD_ENV = "STATS_PERIOD"

// EnvSource applies one environment variable once. An unset variable selects
// the default period.
type EnvSource struct {
	Key string
}

var _ = Source(EnvSource{})

func (s EnvSource) Name() string {
	return "env:" + s.key()
}

func (s EnvSource) key() string {
	if s.Key == "" {
		return DEFAULT_PERIOD_ENV
	}
	return s.Key
}

func (s EnvSource) Run(ctx context.Context, applier Applier) error {
	raw := optional.None[string]()
	if v, ok := os.LookupEnv(s.key()); ok {
		raw = optional.Some(v)
	}
	apply(s.Name(), applier, raw)
	return nil
}

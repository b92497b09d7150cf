package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"igmp-stats/pkg/env_config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRunCleanShutdownAfterSourceError(t *testing.T) {
	// the consul client refuses to build without its CA file
	t.Setenv("CONSUL_CACERT", filepath.Join(t.TempDir(), "missing-ca.pem"))
	cfg := env_config.Config{
		ConsulAddr:  "127.0.0.1:8500",
		AdminAddr:   "127.0.0.1:0",
		StopTimeout: time.Second,
	}
	_, err := buildSources(cfg)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, run(ctx, cfg, zerolog.Nop()))
}

package config_source

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"igmp-stats/pkg/common_errors"

	consulapi "github.com/hashicorp/consul/api"
	"github.com/moznion/go-optional"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"golang.org/x/xerrors"
)

type recordingApplier struct {
	mu   sync.Mutex
	raws []optional.Option[string]
	err  error
}

func (a *recordingApplier) ApplyConfig(raw optional.Option[string]) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.raws = append(a.raws, raw)
	return a.err
}

func (a *recordingApplier) values() []optional.Option[string] {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]optional.Option[string](nil), a.raws...)
}

func TestEnvSource(t *testing.T) {
	a := &recordingApplier{}
	t.Setenv("IGMP_TEST_PERIOD", "7")
	assert.NoError(t, EnvSource{Key: "IGMP_TEST_PERIOD"}.Run(context.Background(), a))
	assert.NoError(t, EnvSource{Key: "IGMP_TEST_PERIOD_UNSET"}.Run(context.Background(), a))

	got := a.values()
	assert.Len(t, got, 2)
	assert.Equal(t, "7", got[0].Unwrap())
	assert.True(t, got[1].IsNone())
	assert.Equal(t, "env:"+DEFAULT_PERIOD_ENV, EnvSource{}.Name())
}

func TestEnvSourceInactiveApplierIsNotFatal(t *testing.T) {
	a := &recordingApplier{err: common_errors.ErrNotActive}
	assert.NoError(t, EnvSource{}.Run(context.Background(), a))
}

func TestParsePeriodJSON(t *testing.T) {
	tests := []struct {
		doc  string
		want optional.Option[string]
	}{
		{`{"statisticsGenerationPeriod": "5"}`, optional.Some("5")},
		{`{"statisticsGenerationPeriod": 7}`, optional.Some("7")},
		{`{"statisticsGenerationPeriod": 1.5}`, optional.Some("1.5")},
		{`{"igmpproxy": {"statisticsGenerationPeriod": 3}}`, optional.Some("3")},
		{`{"statisticsGenerationPeriod": 4, "igmpproxy": {"statisticsGenerationPeriod": 3}}`, optional.Some("4")},
		{`{"statisticsGenerationPeriod": null}`, optional.None[string]()},
		{`{"other": 1}`, optional.None[string]()},
		{`{"statisticsGenerationPeriod": true}`, optional.Some("true")},
	}
	for _, tc := range tests {
		got, err := ParsePeriodJSON([]byte(tc.doc))
		assert.NoError(t, err, tc.doc)
		assert.Equal(t, tc.want, got, tc.doc)
	}
	_, err := ParsePeriodJSON([]byte(`{not json`))
	assert.Error(t, err)
}

func TestFileSourceReappliesOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "igmp.json")
	assert.NoError(t, os.WriteFile(path, []byte(`{"statisticsGenerationPeriod": 5}`), 0o644))

	a := &recordingApplier{}
	src := &FileSource{Path: path, PollInterval: 5 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, a) }()

	assert.Eventually(t, func() bool { return len(a.values()) == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, a.values(), 1, "unchanged file is not re-applied")

	assert.NoError(t, os.WriteFile(path, []byte(`{"igmpproxy": {"statisticsGenerationPeriod": "12"}}`), 0o644))
	later := time.Now().Add(time.Minute)
	assert.NoError(t, os.Chtimes(path, later, later))
	assert.Eventually(t, func() bool { return len(a.values()) == 2 }, time.Second, time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
	got := a.values()
	assert.Equal(t, "5", got[0].Unwrap())
	assert.Equal(t, "12", got[1].Unwrap())
}

func TestFileSourceMissingFileWaits(t *testing.T) {
	a := &recordingApplier{}
	src := &FileSource{Path: filepath.Join(t.TempDir(), "absent.json"), PollInterval: time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.NoError(t, src.Run(ctx, a))
	assert.Empty(t, a.values())
}

func TestFileSourceIgnoresAbsentKeyUntilSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "igmp.json")
	assert.NoError(t, os.WriteFile(path, []byte(`{"other": 1}`), 0o644))

	a := &recordingApplier{}
	src := &FileSource{Path: path, PollInterval: 5 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, a) }()

	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, a.values(), "a file without the key keeps the current period")

	rewrite := func(doc string, at time.Time) {
		assert.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
		assert.NoError(t, os.Chtimes(path, at, at))
	}
	rewrite(`{"statisticsGenerationPeriod": 3}`, time.Now().Add(time.Minute))
	assert.Eventually(t, func() bool { return len(a.values()) == 1 }, time.Second, time.Millisecond)
	rewrite(`{"other": 2}`, time.Now().Add(2*time.Minute))
	assert.Eventually(t, func() bool { return len(a.values()) == 2 }, time.Second, time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
	got := a.values()
	assert.Equal(t, "3", got[0].Unwrap())
	assert.True(t, got[1].IsNone())
}

func TestFileSourceMissingFileLogsOnce(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	src := &FileSource{Path: filepath.Join(t.TempDir(), "absent.json"), PollInterval: time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.NoError(t, src.Run(ctx, &recordingApplier{}))
	assert.Equal(t, 1, strings.Count(buf.String(), "stat config file"))
}

type kvRevision struct {
	pair  *consulapi.KVPair
	index uint64
	err   error
}

type fakeKV struct {
	mu        sync.Mutex
	revisions []kvRevision
	waits     []uint64
}

func (f *fakeKV) Get(key string, q *consulapi.QueryOptions) (*consulapi.KVPair, *consulapi.QueryMeta, error) {
	f.mu.Lock()
	f.waits = append(f.waits, q.WaitIndex)
	if len(f.revisions) == 0 {
		f.mu.Unlock()
		<-q.Context().Done()
		return nil, nil, q.Context().Err()
	}
	rev := f.revisions[0]
	f.revisions = f.revisions[1:]
	f.mu.Unlock()
	if rev.err != nil {
		return nil, nil, rev.err
	}
	return rev.pair, &consulapi.QueryMeta{LastIndex: rev.index}, nil
}

func TestConsulSourceAppliesEachRevision(t *testing.T) {
	kv := &fakeKV{revisions: []kvRevision{
		{pair: nil, index: 3},
		{err: xerrors.New("connection refused")},
		{pair: &consulapi.KVPair{Key: "k", Value: []byte("4")}, index: 9},
		{pair: &consulapi.KVPair{Key: "k", Value: []byte("4")}, index: 9},
		{pair: &consulapi.KVPair{Key: "k", Value: []byte("abc")}, index: 11},
		{pair: nil, index: 12},
	}}
	src := newConsulSource(kv, "k")
	src.RetryDelay = time.Millisecond
	a := &recordingApplier{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, a) }()

	assert.Eventually(t, func() bool { return len(a.values()) == 3 }, time.Second, time.Millisecond)
	cancel()
	assert.NoError(t, <-done)

	got := a.values()
	// the key was absent at first: nothing applied until it appeared
	assert.Equal(t, "4", got[0].Unwrap())
	assert.Equal(t, "abc", got[1].Unwrap())
	// deleted after having a value: back to the default
	assert.True(t, got[2].IsNone())

	kv.mu.Lock()
	defer kv.mu.Unlock()
	assert.Equal(t, []uint64{0, 3, 3, 9, 9}, kv.waits[:5])
	assert.Equal(t, "consul:k", src.Name())
}

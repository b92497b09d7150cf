package sinks

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"igmp-stats/pkg/common_errors"
	"igmp-stats/pkg/commtypes"
	"igmp-stats/pkg/debug"
	"igmp-stats/pkg/hashfuncs"
	"igmp-stats/pkg/utils/syncutils"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

const DEFAULT_OBJECT_PREFIX = "igmp-stats"

type MinioConfig struct {
	Addrs     []string
	AccessKey string
	SecretKey string
	Secure    bool
	Bucket    string
	Prefix    string
}

// MinioSink archives every encoded event as its own object named
// <prefix>/<run>/<seq>. Sequence numbers restart with every activation, so
// run is the timestamp (unix ms) of the first event seen since the sequence
// last went backwards. Objects are spread over the configured servers by key
// hash.
type MinioSink struct {
	minioClients []*minio.Client
	serdeFormat  commtypes.SerdeFormat
	serde        commtypes.SerdeG[commtypes.StatsEvent]
	bucket       string
	prefix       string
	Timeout      time.Duration
	closed       atomic.Bool

	mu      syncutils.Mutex
	started bool
	run     int64
	lastSeq uint64
}

var _ = Sink(&MinioSink{})

func NewMinioSink(cfg MinioConfig, serdeFormat commtypes.SerdeFormat) (*MinioSink, error) {
	if len(cfg.Addrs) == 0 {
		return nil, xerrors.New("minio sink needs at least one server")
	}
	serde, err := commtypes.GetStatsEventSerdeG(serdeFormat)
	if err != nil {
		return nil, err
	}
	mcs := make([]*minio.Client, len(cfg.Addrs))
	for i := 0; i < len(cfg.Addrs); i++ {
		mc, err := minio.New(cfg.Addrs[i], &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.Secure,
		})
		if err != nil {
			return nil, xerrors.Errorf("minio client %s: %w", cfg.Addrs[i], err)
		}
		mcs[i] = mc
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DEFAULT_OBJECT_PREFIX
	}
	return &MinioSink{
		minioClients: mcs,
		serdeFormat:  serdeFormat,
		serde:        serde,
		bucket:       cfg.Bucket,
		prefix:       prefix,
		Timeout:      DEFAULT_WRITE_TIMEOUT,
	}, nil
}

// EnsureBucket creates the bucket on every server that lacks it.
func (s *MinioSink) EnsureBucket(ctx context.Context) error {
	bg, ctx := errgroup.WithContext(ctx)
	for i := range s.minioClients {
		mc := s.minioClients[i]
		bg.Go(func() error {
			exists, err := mc.BucketExists(ctx, s.bucket)
			if err != nil {
				return xerrors.Errorf("check bucket on %s: %w", mc.EndpointURL().Host, err)
			}
			if exists {
				return nil
			}
			return mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		})
	}
	return bg.Wait()
}

func (s *MinioSink) Name() string { return "minio" }

func objectKey(prefix string, run int64, seq uint64) string {
	return fmt.Sprintf("%s/%d/%d", prefix, run, seq)
}

func (s *MinioSink) keyFor(ev commtypes.StatsEvent) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || ev.Seq <= s.lastSeq {
		run := ev.Timestamp
		if s.started && run <= s.run {
			// restarted within the same millisecond
			run = s.run + 1
		}
		s.started = true
		s.run = run
	}
	s.lastSeq = ev.Seq
	return objectKey(s.prefix, s.run, ev.Seq)
}

func (s *MinioSink) OnStatsEvent(ev commtypes.StatsEvent) error {
	if s.closed.Load() {
		return common_errors.ErrSinkClosed
	}
	enc, err := s.serde.Encode(ev)
	if err != nil {
		return xerrors.Errorf("encode stats event: %w", err)
	}
	key := s.keyFor(ev)
	idx := hashfuncs.ShardOf(key, len(s.minioClients))
	debug.Assert(idx < len(s.minioClients), "shard index out of range")
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	_, err = s.minioClients[idx].PutObject(ctx, s.bucket, key, bytes.NewReader(enc), int64(len(enc)),
		minio.PutObjectOptions{ContentType: contentType(s.serdeFormat)})
	if err != nil {
		return xerrors.Errorf("put %s: %w", key, err)
	}
	log.Debug().Str("key", key).Int("minio", idx).Msg("archived stats")
	return nil
}

func (s *MinioSink) Close() error {
	s.closed.Store(true)
	return nil
}

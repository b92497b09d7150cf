package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"igmp-stats/pkg/admin_http"
	"igmp-stats/pkg/config_source"
	"igmp-stats/pkg/env_config"
	"igmp-stats/pkg/redis_client"
	"igmp-stats/pkg/sinks"
	"igmp-stats/pkg/stats_manager"

	"github.com/go-chi/httplog"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

var (
	FLAGS_env_file       string
	FLAGS_log_sink       bool
	FLAGS_sink_buffer    int
	FLAGS_file_poll      time.Duration
	FLAGS_shutdown_grace time.Duration
)

func setupLogging(level zerolog.Level) zerolog.Logger {
	// httplog reconfigures the zerolog globals, so it goes first
	httpLogger := httplog.NewLogger("igmp-stats", httplog.Options{
		LogLevel: level.String(),
		Concise:  true,
	})
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	return httpLogger
}

func buildSinks(ctx context.Context, cfg env_config.Config) ([]sinks.Sink, error) {
	var out []sinks.Sink
	if FLAGS_log_sink {
		out = append(out, sinks.NewLogSink(zerolog.DebugLevel))
	}
	if len(cfg.RedisAddr) > 0 {
		rdbs := redis_client.NewClients(cfg.RedisAddr)
		if err := rdbs.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis not reachable yet; publishing anyway")
		}
		rs, err := sinks.NewRedisSink(rdbs, cfg.SerdeFormat)
		if err != nil {
			return out, err
		}
		out = append(out, sinks.NewBufferedListener(rs.Name(), rs, FLAGS_sink_buffer))
	}
	if cfg.KafkaBroker != "" {
		ks, err := sinks.NewKafkaSink(cfg.KafkaBroker, cfg.KafkaTopic, cfg.SerdeFormat)
		if err != nil {
			return out, err
		}
		out = append(out, sinks.NewBufferedListener(ks.Name(), ks, FLAGS_sink_buffer))
	}
	if len(cfg.MinioAddr) > 0 {
		ms, err := sinks.NewMinioSink(sinks.MinioConfig{
			Addrs:     cfg.MinioAddr,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Secure:    cfg.MinioSecure,
			Bucket:    cfg.MinioBucket,
		}, cfg.SerdeFormat)
		if err != nil {
			return out, err
		}
		bctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = ms.EnsureBucket(bctx)
		cancel()
		if err != nil {
			return out, xerrors.Errorf("minio bucket %s: %w", cfg.MinioBucket, err)
		}
		out = append(out, sinks.NewBufferedListener(ms.Name(), ms, FLAGS_sink_buffer))
	}
	return out, nil
}

func closeSinks(all []sinks.Sink) error {
	var g errgroup.Group
	for _, s := range all {
		s := s
		g.Go(func() error {
			if err := s.Close(); err != nil {
				return xerrors.Errorf("close %s sink: %w", s.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

func buildSources(cfg env_config.Config) ([]config_source.Source, error) {
	var watched []config_source.Source
	if cfg.StatsConfigFile != "" {
		watched = append(watched, &config_source.FileSource{Path: cfg.StatsConfigFile, PollInterval: FLAGS_file_poll})
	}
	if cfg.ConsulAddr != "" {
		cs, err := config_source.NewConsulSource(cfg.ConsulAddr, cfg.ConsulKey)
		if err != nil {
			return nil, err
		}
		watched = append(watched, cs)
	}
	return watched, nil
}

func run(ctx context.Context, cfg env_config.Config, httpLogger zerolog.Logger) error {
	m := stats_manager.NewStatisticsManager(stats_manager.ManagerConfig{StopTimeout: cfg.StopTimeout})
	if err := m.Activate(); err != nil {
		return err
	}

	outputs, err := buildSinks(ctx, cfg)
	if err != nil {
		m.Deactivate()
		_ = closeSinks(outputs)
		return err
	}
	hub := sinks.NewWebsocketHub()
	outputs = append(outputs, hub)
	for _, s := range outputs {
		if _, err := m.Register(s); err != nil {
			m.Deactivate()
			_ = closeSinks(outputs)
			return err
		}
		log.Info().Str("sink", s.Name()).Msg("registered stats sink")
	}

	// the environment gives the initial period. A watched source overrides it
	// once it holds a value; an unset file key or consul key leaves it alone.
	if err := (config_source.EnvSource{}).Run(ctx, m); err != nil {
		log.Error().Err(err).Msg("apply period from environment")
	}
	watched, srcErr := buildSources(cfg)
	if srcErr != nil {
		log.Error().Err(srcErr).Msg("config sources unavailable, keeping current period")
	}
	srcCtx, stopSources := context.WithCancel(ctx)
	defer stopSources()
	var sources errgroup.Group
	for _, src := range watched {
		src := src
		log.Info().Str("source", src.Name()).Msg("watching config source")
		sources.Go(func() error { return src.Run(srcCtx, m) })
	}

	srv := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: admin_http.New(m, hub, cfg.AdminJWTSecret, httpLogger).Router(),
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.AdminAddr).Msg("admin api listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case runErr = <-serveErr:
		log.Error().Err(runErr).Msg("admin api failed")
	}

	stopSources()
	m.Deactivate()
	if cerr := closeSinks(outputs); cerr != nil {
		log.Error().Err(cerr).Msg("close sinks")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), FLAGS_shutdown_grace)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Warn().Err(serr).Msg("admin api shutdown")
	}
	if serr := sources.Wait(); serr != nil {
		log.Warn().Err(serr).Msg("config source stopped with error")
	}
	return runErr
}

func main() {
	flag.StringVar(&FLAGS_env_file, "env_file", ".env", "optional dotenv file loaded before reading the environment")
	flag.BoolVar(&FLAGS_log_sink, "log_sink", true, "log every published snapshot at debug level")
	flag.IntVar(&FLAGS_sink_buffer, "sink_buffer", sinks.DEFAULT_BUFFER_CAPACITY, "events buffered per network sink")
	flag.DurationVar(&FLAGS_file_poll, "file_poll", config_source.DEFAULT_FILE_POLL, "config file poll interval")
	flag.DurationVar(&FLAGS_shutdown_grace, "shutdown_grace", 5*time.Second, "")
	flag.Parse()

	if err := godotenv.Load(FLAGS_env_file); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("file", FLAGS_env_file).Msg("load env file")
	}
	cfg := env_config.Load()
	httpLogger := setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, httpLogger); err != nil {
		log.Error().Err(err).Msg("igmp-stats exited")
		stop()
		os.Exit(1)
	}
}

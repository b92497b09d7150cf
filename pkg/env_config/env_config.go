package env_config

import (
	"os"
	"strings"
	"time"

	"igmp-stats/pkg/commtypes"

	"github.com/moznion/go-optional"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DEFAULT_ADMIN_ADDR   = ":8080"
	DEFAULT_KAFKA_TOPIC  = "igmp-stats"
	DEFAULT_MINIO_BUCKET = "igmp-stats"
)

// Config is everything the binary reads from the environment. Unset
// variables leave the matching adapter disabled.
type Config struct {
	LogLevel        zerolog.Level
	StatsPeriod     optional.Option[string]
	StatsConfigFile string
	SerdeFormat     commtypes.SerdeFormat
	StopTimeout     time.Duration

	RedisAddr   []string
	KafkaBroker string
	KafkaTopic  string

	MinioAddr      []string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioSecure    bool

	ConsulAddr string
	ConsulKey  string

	AdminAddr      string
	AdminJWTSecret string
}

func Load() Config {
	return Config{
		LogLevel:        checkLogLevel(),
		StatsPeriod:     lookup("STATS_PERIOD"),
		StatsConfigFile: os.Getenv("STATS_CONFIG_FILE"),
		SerdeFormat:     checkSerdeFormat(),
		StopTimeout:     checkDuration("STATS_STOP_TIMEOUT"),
		RedisAddr:       splitAddr(os.Getenv("REDIS_ADDR")),
		KafkaBroker:     os.Getenv("KAFKA_BROKER"),
		KafkaTopic:      getOr("KAFKA_TOPIC", DEFAULT_KAFKA_TOPIC),
		MinioAddr:       splitAddr(os.Getenv("MINIO_ADDR")),
		MinioAccessKey:  os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:  os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:     getOr("MINIO_BUCKET", DEFAULT_MINIO_BUCKET),
		MinioSecure:     checkBool("MINIO_SECURE"),
		ConsulAddr:      os.Getenv("CONSUL_ADDR"),
		ConsulKey:       os.Getenv("CONSUL_KEY"),
		AdminAddr:       getOr("ADMIN_ADDR", DEFAULT_ADMIN_ADDR),
		AdminJWTSecret:  os.Getenv("ADMIN_JWT_SECRET"),
	}
}

func lookup(key string) optional.Option[string] {
	if v, ok := os.LookupEnv(key); ok {
		return optional.Some(v)
	}
	return optional.None[string]()
}

func getOr(key string, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func splitAddr(raw string) []string {
	var addrs []string
	for _, a := range strings.Split(raw, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	return addrs
}

func checkBool(key string) bool {
	str := os.Getenv(key)
	return str == "true" || str == "1"
}

func checkLogLevel() zerolog.Level {
	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		return zerolog.WarnLevel
	}
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		log.Warn().Str("LOG_LEVEL", levelStr).Msg("unrecognized log level, using warn")
		return zerolog.WarnLevel
	}
	return level
}

func checkSerdeFormat() commtypes.SerdeFormat {
	str := os.Getenv("SERDE_FORMAT")
	if str == "" {
		return commtypes.JSON
	}
	f, err := commtypes.ParseSerdeFormat(str)
	if err != nil {
		log.Warn().Str("SERDE_FORMAT", str).Msg("unrecognized serde format, using json")
		return commtypes.JSON
	}
	return f
}

func checkDuration(key string) time.Duration {
	str := os.Getenv(key)
	if str == "" {
		return 0
	}
	d, err := time.ParseDuration(str)
	if err != nil || d < 0 {
		log.Warn().Str(key, str).Msg("invalid duration, using default")
		return 0
	}
	return d
}

package config_source

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/Jeffail/gabs/v2"
	"github.com/moznion/go-optional"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

const (
	PeriodKey         = "statisticsGenerationPeriod"
	AppSection        = "igmpproxy"
	DEFAULT_FILE_POLL = 2 * time.Second
)

// FileSource reads the period from a JSON file, either at the top level or
// under the "igmpproxy" object, and re-applies it whenever the file's
// modification time or size changes. A file without the key is ignored until
// it first carries one.
type FileSource struct {
	Path         string
	PollInterval time.Duration
}

var _ = Source(&FileSource{})

func (s *FileSource) Name() string {
	return "file:" + s.Path
}

func (s *FileSource) Run(ctx context.Context, applier Applier) error {
	poll := s.PollInterval
	if poll <= 0 {
		poll = DEFAULT_FILE_POLL
	}
	var lastMod time.Time
	var lastSize int64 = -1
	var lastStatErr string
	state := watchState{src: s.Name()}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		fi, err := os.Stat(s.Path)
		if err != nil {
			// logged once per distinct failure, not on every poll
			if err.Error() != lastStatErr {
				lastStatErr = err.Error()
				log.Warn().Err(err).Str("path", s.Path).Msg("stat config file")
			}
		} else {
			lastStatErr = ""
			if !fi.ModTime().Equal(lastMod) || fi.Size() != lastSize {
				raw, err := ReadPeriodFile(s.Path)
				if err != nil {
					log.Error().Err(err).Str("path", s.Path).Msg("read config file")
				} else {
					lastMod, lastSize = fi.ModTime(), fi.Size()
					state.offer(applier, raw)
				}
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func ReadPeriodFile(path string) (optional.Option[string], error) {
	byteVal, err := os.ReadFile(path)
	if err != nil {
		return optional.None[string](), err
	}
	return ParsePeriodJSON(byteVal)
}

// ParsePeriodJSON extracts the raw period from a JSON document. A top level
// key wins over the nested one. Numbers are rendered back to text so that the
// applier sees exactly what was configured.
func ParsePeriodJSON(doc []byte) (optional.Option[string], error) {
	jsonParsed, err := gabs.ParseJSON(doc)
	if err != nil {
		return optional.None[string](), xerrors.Errorf("parse config json: %w", err)
	}
	for _, path := range [][]string{{PeriodKey}, {AppSection, PeriodKey}} {
		if !jsonParsed.Exists(path...) {
			continue
		}
		return rawValue(jsonParsed.Search(path...).Data()), nil
	}
	return optional.None[string](), nil
}

func rawValue(v interface{}) optional.Option[string] {
	switch val := v.(type) {
	case nil:
		return optional.None[string]()
	case string:
		return optional.Some(val)
	case float64:
		return optional.Some(strconv.FormatFloat(val, 'f', -1, 64))
	case bool:
		return optional.Some(strconv.FormatBool(val))
	default:
		// objects and arrays are never a valid period
		return optional.Some(gabs.Wrap(val).String())
	}
}

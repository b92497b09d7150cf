package config_source

import (
	"context"

	"igmp-stats/pkg/common_errors"

	"github.com/moznion/go-optional"
	"github.com/rs/zerolog/log"
)

// Applier receives raw statisticsGenerationPeriod values. Validation is the
// applier's job; sources pass values through untouched.
type Applier interface {
	ApplyConfig(raw optional.Option[string]) error
}

// Source feeds an Applier until ctx is done. One-shot sources return after
// the first value.
type Source interface {
	Run(ctx context.Context, applier Applier) error
	Name() string
}

func apply(src string, applier Applier, raw optional.Option[string]) {
	if err := applier.ApplyConfig(raw); err != nil {
		if common_errors.IsNotActiveError(err) {
			log.Warn().Str("source", src).Msg("statistics manager inactive, dropping config value")
			return
		}
		log.Error().Err(err).Str("source", src).Msg("apply statistics generation period")
	}
}

// watchState tracks whether a watched source has ever held a value. Until it
// has, an absent value is skipped so the period already in force (normally
// from the environment) stays. Once a value was applied, its removal selects
// the default period again.
type watchState struct {
	src  string
	seen bool
}

func (w *watchState) offer(applier Applier, raw optional.Option[string]) {
	if raw.IsNone() && !w.seen {
		log.Info().Str("source", w.src).Msg("no period configured yet, keeping current period")
		return
	}
	w.seen = true
	apply(w.src, applier, raw)
}

package admin_http

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"igmp-stats/pkg/common_errors"
	"igmp-stats/pkg/commtypes"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog"
	"github.com/moznion/go-optional"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const maxPeriodBody = 64

// StatsService is the part of the statistics manager the admin API drives.
type StatsService interface {
	Active() bool
	Snapshot() (commtypes.StatsSnapshot, error)
	ApplyConfig(raw optional.Option[string]) error
	Period() int
}

type Server struct {
	stats     StatsService
	events    http.Handler
	jwtSecret []byte
	logger    zerolog.Logger
}

// New builds the admin API. events serves GET /events and may be nil. An
// empty jwtSecret leaves the write endpoint unauthenticated.
func New(stats StatsService, events http.Handler, jwtSecret string, logger zerolog.Logger) *Server {
	s := &Server{
		stats:  stats,
		events: events,
		logger: logger,
	}
	if jwtSecret != "" {
		s.jwtSecret = []byte(jwtSecret)
	}
	return s
}

// Router wires up chi routes and middleware ready for http.Server.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.healthHandler())
	r.Get("/stats", s.statsHandler())
	r.Get("/config/statisticsGenerationPeriod", s.getPeriodHandler())
	r.With(s.authenticated()).Put("/config/statisticsGenerationPeriod", s.putPeriodHandler())
	if s.events != nil {
		r.Method(http.MethodGet, "/events", s.events)
	}
	return r
}

type healthResponse struct {
	Active bool `json:"active"`
}

type periodResponse struct {
	StatisticsGenerationPeriod int `json:"statisticsGenerationPeriod"`
}

func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		active := s.stats.Active()
		status := http.StatusOK
		if !active {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, healthResponse{Active: active})
	}
}

func (s *Server) statsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := s.stats.Snapshot()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func (s *Server) getPeriodHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.stats.Active() {
			writeError(w, common_errors.ErrNotActive)
			return
		}
		writeJSON(w, http.StatusOK, periodResponse{StatisticsGenerationPeriod: s.stats.Period()})
	}
}

// putPeriodHandler applies the raw request body. An empty body selects the
// default; invalid values are accepted and fall back to the default as well,
// so the response reports the period actually in effect.
func (s *Server) putPeriodHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxPeriodBody)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "period value too large", http.StatusRequestEntityTooLarge)
			return
		}
		raw := optional.None[string]()
		if v := strings.TrimSpace(string(body)); v != "" {
			raw = optional.Some(v)
		}
		if err := s.stats.ApplyConfig(raw); err != nil {
			writeError(w, err)
			return
		}
		httplog.LogEntrySetField(r.Context(), "period", strconv.Itoa(s.stats.Period()))
		writeJSON(w, http.StatusOK, periodResponse{StatisticsGenerationPeriod: s.stats.Period()})
	}
}

func writeError(w http.ResponseWriter, err error) {
	if common_errors.IsNotActiveError(err) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	log.Error().Err(err).Msg("admin request failed")
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write admin response")
	}
}

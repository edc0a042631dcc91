// Package api serves the analytics engine and manual reading entry over
// HTTP.
package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"codeberg.org/mutker/vitalsd/internal/analytics"
	"codeberg.org/mutker/vitalsd/internal/logger"
	"codeberg.org/mutker/vitalsd/internal/metric"
	"codeberg.org/mutker/vitalsd/internal/metrics"
	"codeberg.org/mutker/vitalsd/internal/publish"
	"codeberg.org/mutker/vitalsd/internal/store"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// ReadingWriter stores a validated reading.
type ReadingWriter interface {
	Create(ctx context.Context, r metric.Reading) error
}

// UserDirectory resolves the owner of a manually entered reading.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (store.User, error)
}

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Engine    *analytics.Engine
	Readings  ReadingWriter
	Users     UserDirectory
	Health    Pinger
	Publisher publish.Publisher
	Metrics   metrics.Collector
	Logger    logger.Logger
	Now       func() time.Time
}

type Server struct {
	engine    *analytics.Engine
	readings  ReadingWriter
	users     UserDirectory
	health    Pinger
	publisher publish.Publisher
	metrics   metrics.Collector
	logger    logger.Logger
	now       func() time.Time
}

func NewServer(opts Options) *Server {
	s := &Server{
		engine:    opts.Engine,
		readings:  opts.Readings,
		users:     opts.Users,
		health:    opts.Health,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if s.publisher == nil {
		s.publisher = publish.Nop()
	}
	if s.metrics == nil {
		s.metrics = metrics.New(metrics.Config{})
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Router registers every route. Specific analytics paths are added before
// the generic {kind} series routes so they win the match.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	u := r.PathPrefix("/api/v1/users/{userID}").Subrouter()

	u.HandleFunc("/blood-pressure/time-of-day", s.handleTimeOfDay).Methods(http.MethodGet)
	u.HandleFunc("/blood-pressure/elevation", s.handleElevation).Methods(http.MethodGet)
	u.HandleFunc("/blood-pressure/age-comparison", s.handleAgeComparison).Methods(http.MethodGet)

	u.HandleFunc("/heart-rate/variability", s.handleVariability).Methods(http.MethodGet)
	u.HandleFunc("/heart-rate/baseline", s.handleBaseline).Methods(http.MethodGet)
	u.HandleFunc("/heart-rate/resting-average", s.handleRestingAverage).Methods(http.MethodGet)

	u.HandleFunc("/spo2/lowest", s.handleLowestSpO2).Methods(http.MethodGet)
	u.HandleFunc("/spo2/alert", s.handleSpO2Alert).Methods(http.MethodGet)

	u.HandleFunc("/steps/weekly-average", s.handleStepsWeekly).Methods(http.MethodGet)

	u.HandleFunc("/sleep/sufficiency", s.handleSleepSufficiency).Methods(http.MethodGet)
	u.HandleFunc("/sleep/weekly-average", s.handleSleepWeekly).Methods(http.MethodGet)

	u.HandleFunc("/{kind}/daily-averages", s.handleDailyAverages).Methods(http.MethodGet)
	u.HandleFunc("/{kind}/trend", s.handleTrend).Methods(http.MethodGet)

	u.HandleFunc("/readings/{kind}", s.handleCreateReading).Methods(http.MethodPost)

	return r
}

// Handler wraps the router with panic recovery and access logging.
func (s *Server) Handler() http.Handler {
	h := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.logger}),
		handlers.PrintRecoveryStack(false),
	)(s.Router())

	return handlers.CustomLoggingHandler(io.Discard, h, s.logAccess)
}

func (s *Server) logAccess(_ io.Writer, p handlers.LogFormatterParams) {
	s.logger.Debug().
		Str("method", p.Request.Method).
		Str("path", p.URL.Path).
		Int("status", p.StatusCode).
		Int("size", p.Size).
		Dur("elapsed", time.Since(p.TimeStamp)).
		Msg("HTTP request")
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.WrapHandler(s.metrics, route, next).ServeHTTP(w, r)
	})
}

type recoveryLogger struct {
	log logger.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.log.Error().Interface("panic", v).Msg("Recovered from panic in HTTP handler")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			s.logger.Warn().Err(err).Msg("Health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

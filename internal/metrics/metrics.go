package metrics

import (
	"net/http"
	"strconv"
	"time"

	"codeberg.org/mutker/vitalsd/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vitalsd"

type Config struct {
	Enabled bool
}

type service struct {
	registry *prometheus.Registry

	jobRuns         *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	jobUsers        *prometheus.GaugeVec
	readingsCreated *prometheus.CounterVec
	failures        *prometheus.CounterVec
	missingConfigs  *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// No-op implementation
type noopCollector struct{}

// New returns a collector backed by its own registry, so several
// instances can coexist in one process.
func New(cfg Config) Collector {
	// If metrics is disabled, return a no-op collector
	if !cfg.Enabled {
		logger.Debug().Msg("Metrics collection disabled, using no-op collector")
		return noopCollector{}
	}

	s := &service{
		registry: prometheus.NewRegistry(),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_runs_total",
			Help:      "Generation batches run, by job and result.",
		}, []string{"job", "result"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Duration of generation batches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		jobUsers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generation_users",
			Help:      "Users selected by the latest batch of each job.",
		}, []string{"job"}),
		readingsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_generated_total",
			Help:      "Synthetic readings stored, by job.",
		}, []string{"job"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failures_total",
			Help:      "Per-user generation failures, by job.",
		}, []string{"job"}),
		missingConfigs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulation_config_missing_total",
			Help:      "Users skipped because they have no simulation config.",
		}, []string{"job"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests processed, by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request durations, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		s.jobRuns,
		s.jobDuration,
		s.jobUsers,
		s.readingsCreated,
		s.failures,
		s.missingConfigs,
		s.httpRequests,
		s.httpDuration,
	)

	logger.Debug().Msg("Metrics service initialized successfully")

	return s
}

func (s *service) ObserveJob(job string, res JobResult) {
	result := "ok"
	if res.Err != nil {
		result = "error"
	}
	s.jobRuns.WithLabelValues(job, result).Inc()
	s.jobDuration.WithLabelValues(job).Observe(res.Elapsed.Seconds())
	s.jobUsers.WithLabelValues(job).Set(float64(res.Users))
	s.readingsCreated.WithLabelValues(job).Add(float64(res.Created))
	s.failures.WithLabelValues(job).Add(float64(res.Failures))
	s.missingConfigs.WithLabelValues(job).Add(float64(res.MissingConfigs))
}

func (s *service) ObserveRequest(route string, status int, elapsed time.Duration) {
	s.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	s.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (s *service) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}

// No-op implementation
func (noopCollector) ObserveJob(string, JobResult) {}

func (noopCollector) ObserveRequest(string, int, time.Duration) {}

func (noopCollector) Handler() http.Handler {
	return http.NotFoundHandler()
}

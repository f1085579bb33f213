package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"discount_reminder/internal/app"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Run results used as the "result" label of the runs counter.
const (
	ResultOK            = "ok"
	ResultInvalidConfig = "invalid_config"
	ResultError         = "error"
)

// RunMetrics holds the Prometheus collectors for reminder runs.
type RunMetrics struct {
	runs          *prometheus.CounterVec
	emails        *prometheus.CounterVec
	candidates    prometheus.Counter
	markFailures  prometheus.Counter
	claimSkips    prometheus.Counter
	lastRunMillis prometheus.Gauge
}

// NewRunMetrics registers the collectors on reg.
func NewRunMetrics(reg prometheus.Registerer) *RunMetrics {
	m := &RunMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "discount_reminder_runs_total",
			Help: "Reminder runs by result.",
		}, []string{"result"}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "discount_reminder_emails_total",
			Help: "Reminder e-mails by delivery result.",
		}, []string{"result"}),
		candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "discount_reminder_candidates_total",
			Help: "Discounts selected for a reminder.",
		}),
		markFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "discount_reminder_mark_failures_total",
			Help: "Reminders sent but not recorded as sent.",
		}),
		claimSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "discount_reminder_claim_skips_total",
			Help: "Candidates skipped because another run held the claim.",
		}),
		lastRunMillis: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "discount_reminder_last_run_timestamp_ms",
			Help: "Start time of the most recent run, in Unix milliseconds.",
		}),
	}
	reg.MustRegister(m.runs, m.emails, m.candidates, m.markFailures, m.claimSkips, m.lastRunMillis)
	return m
}

// Observe records the outcome of one run.
func (m *RunMetrics) Observe(summary *app.RunSummary, runErr error) {
	switch {
	case runErr != nil:
		m.runs.WithLabelValues(ResultError).Inc()
	case summary != nil && !summary.ConfigValid:
		m.runs.WithLabelValues(ResultInvalidConfig).Inc()
	default:
		m.runs.WithLabelValues(ResultOK).Inc()
	}
	if summary == nil {
		return
	}
	m.lastRunMillis.Set(float64(summary.StartedAt.UnixMilli()))
	m.candidates.Add(float64(summary.Candidates))
	m.emails.WithLabelValues("sent").Add(float64(summary.Sent))
	m.emails.WithLabelValues("failed").Add(float64(summary.Failed))
	m.markFailures.Add(float64(summary.MarkFailed))
	m.claimSkips.Add(float64(summary.SkippedClaimed))
}

// Server exposes /metrics over HTTP.
type Server struct {
	httpServer *http.Server
	logger     *logrus.Entry
}

func NewServer(addr string, gatherer prometheus.Gatherer, logger *logrus.Entry) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger:     logger,
	}
}

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		s.logger.WithField("addr", s.httpServer.Addr).Info("Metrics server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("Metrics server stopped")
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

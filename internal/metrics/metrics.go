package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Alert results.
const (
	AlertSent       = "sent"
	AlertSuppressed = "suppressed"
	AlertFailed     = "failed"
)

// Metrics holds all Prometheus metrics for the bot.
type Metrics struct {
	AnalysesTotal *prometheus.CounterVec // labels: outcome
	AlertsTotal   *prometheus.CounterVec // labels: result
	FetchDuration prometheus.Histogram
	CycleDuration prometheus.Histogram
	LastCycle     prometheus.Gauge
}

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendsentinel_analyses_total",
			Help: "Symbol analyses by outcome",
		}, []string{"outcome"}),
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendsentinel_alerts_total",
			Help: "Alerts by delivery result",
		}, []string{"result"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trendsentinel_fetch_duration_seconds",
			Help:    "Candle fetch latency",
			Buckets: prometheus.DefBuckets,
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trendsentinel_cycle_duration_seconds",
			Help:    "Duration of a full pass over all symbols",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		LastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trendsentinel_last_cycle_timestamp_seconds",
			Help: "Unix time of the last completed cycle",
		}),
	}

	reg.MustRegister(
		m.AnalysesTotal,
		m.AlertsTotal,
		m.FetchDuration,
		m.CycleDuration,
		m.LastCycle,
	)
	return m
}

// ObserveAnalysis counts an analysis outcome.
func (m *Metrics) ObserveAnalysis(outcome string) {
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
}

// ObserveAlert counts an alert result.
func (m *Metrics) ObserveAlert(result string) {
	m.AlertsTotal.WithLabelValues(result).Inc()
}

// ObserveCycle records a completed cycle.
func (m *Metrics) ObserveCycle(d time.Duration, at time.Time) {
	m.CycleDuration.Observe(d.Seconds())
	m.LastCycle.Set(float64(at.Unix()))
}

// HealthStatus tracks the last successful cycle for /healthz.
type HealthStatus struct {
	mu sync.RWMutex

	// MaxAge is how old the last successful cycle may be before the bot
	// reports degraded. Zero disables the check.
	MaxAge time.Duration

	StartedAt   time.Time
	LastSuccess time.Time
	LastError   string

	nowFnc func() time.Time
}

// NewHealthStatus creates a health status that degrades once no cycle has
// succeeded within maxAge.
func NewHealthStatus(maxAge time.Duration) *HealthStatus {
	return &HealthStatus{MaxAge: maxAge, StartedAt: time.Now(), nowFnc: time.Now}
}

// MarkSuccess records a successful cycle.
func (h *HealthStatus) MarkSuccess(at time.Time) {
	h.mu.Lock()
	h.LastSuccess = at
	h.LastError = ""
	h.mu.Unlock()
}

// MarkFailure records a failed cycle.
func (h *HealthStatus) MarkFailure(err error) {
	h.mu.Lock()
	h.LastError = err.Error()
	h.mu.Unlock()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := h.nowFnc()
	ref := h.LastSuccess
	if ref.IsZero() {
		ref = h.StartedAt
	}

	status := "healthy"
	code := http.StatusOK
	if h.MaxAge > 0 && now.Sub(ref) > h.MaxAge {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	lastSuccess := ""
	if !h.LastSuccess.IsZero() {
		lastSuccess = h.LastSuccess.UTC().Format(time.RFC3339)
	}

	body := struct {
		Status      string `json:"status"`
		Uptime      string `json:"uptime"`
		LastSuccess string `json:"last_success"`
		LastError   string `json:"last_error,omitempty"`
	}{
		Status:      status,
		Uptime:      now.Sub(h.StartedAt).Round(time.Second).String(),
		LastSuccess: lastSuccess,
		LastError:   h.LastError,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr   string
	srv    *http.Server
	logger *zerolog.Logger
}

// NewServer creates a metrics and health server serving the metrics gathered by g.
func NewServer(addr string, g prometheus.Gatherer, health *HealthStatus, logger *zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", health)

	return &Server{
		addr:   addr,
		logger: logger,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info().Msgf("metrics server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Msgf("metrics server: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

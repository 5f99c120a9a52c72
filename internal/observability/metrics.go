package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/workshop-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiReqError *Counter

	llmRequests *CounterVec
	llmLatency  *HistogramVec
	llmTokens   *CounterVec

	stageTransitions  *CounterVec
	gateDecisions     *CounterVec
	summaryOutcomes   *CounterVec
	artifactConflicts *Counter
	lockAcquire       *CounterVec

	aggregateOps       *CounterVec
	aggregateLatency   *HistogramVec
	aggregateConflicts *CounterVec
	aggregateRetries   *CounterVec

	dbStats *GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

// New builds an unregistered Metrics; Init installs the process-wide instance.
func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("ws_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"ws_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight: NewGauge("ws_api_inflight_requests", "In-flight API requests."),
		apiReqError: NewCounter("ws_api_requests_error_total", "API requests with 5xx status."),
		llmRequests: NewCounterVec("ws_llm_requests_total", "LLM requests by model/endpoint/status.", []string{"model", "endpoint", "status"}),
		llmLatency: NewHistogramVec(
			"ws_llm_request_duration_seconds",
			"LLM request latency in seconds by model/endpoint/status.",
			[]string{"model", "endpoint", "status"},
			[]float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		),
		llmTokens:         NewCounterVec("ws_llm_tokens_total", "LLM tokens by model/direction.", []string{"model", "direction"}),
		stageTransitions:  NewCounterVec("ws_stage_transitions_total", "Stage lifecycle operations by op/status.", []string{"op", "status"}),
		gateDecisions:     NewCounterVec("ws_gate_decisions_total", "Payment gate decisions by decision.", []string{"decision"}),
		summaryOutcomes:   NewCounterVec("ws_summary_outcomes_total", "Stage summary generation outcomes.", []string{"outcome"}),
		artifactConflicts: NewCounter("ws_artifact_conflicts_total", "Artifact saves rejected by optimistic locking."),
		lockAcquire:       NewCounterVec("ws_workshop_lock_total", "Per-workshop lock acquisitions by backend/status.", []string{"backend", "status"}),
		aggregateOps:      NewCounterVec("ws_aggregate_operations_total", "Aggregate write operations by aggregate/operation/status.", []string{"aggregate", "operation", "status"}),
		aggregateLatency: NewHistogramVec(
			"ws_aggregate_operation_duration_seconds",
			"Aggregate write latency in seconds.",
			[]string{"aggregate", "operation", "status"},
			[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		),
		aggregateConflicts: NewCounterVec("ws_aggregate_conflicts_total", "Aggregate write conflicts.", []string{"aggregate", "operation"}),
		aggregateRetries:   NewCounterVec("ws_aggregate_retries_total", "Aggregate write retries.", []string{"aggregate", "operation"}),
		dbStats:            NewGaugeVec("ws_db_pool", "Database pool stats.", []string{"stat"}),
	}
}

// Init installs the process-wide metrics when enabled. Disabled metrics leave
// Current() nil and every method on a nil *Metrics is a no-op.
func Init(enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
	})
	return instance
}

func Current() *Metrics {
	return instance
}

func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_ = m.WritePrometheus(w)
	})
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiReqError,
		m.llmRequests, m.llmLatency, m.llmTokens,
		m.stageTransitions, m.gateDecisions, m.summaryOutcomes, m.artifactConflicts, m.lockAcquire,
		m.aggregateOps, m.aggregateLatency, m.aggregateConflicts, m.aggregateRetries,
		m.dbStats,
	}
	for _, wr := range writers {
		if err := wr.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	if strings.HasPrefix(strings.TrimSpace(status), "5") {
		m.apiReqError.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveLLMRequest(model, endpoint, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.llmRequests.Inc(model, endpoint, status)
	if dur > 0 {
		m.llmLatency.Observe(dur.Seconds(), model, endpoint, status)
	}
	if inputTokens > 0 {
		m.llmTokens.Add(float64(inputTokens), model, "input")
	}
	if outputTokens > 0 {
		m.llmTokens.Add(float64(outputTokens), model, "output")
	}
}

// IncStageTransition records advance/reset/complete outcomes; status is
// "ok", "blocked" or an error code.
func (m *Metrics) IncStageTransition(op, status string) {
	if m == nil {
		return
	}
	m.stageTransitions.Inc(op, status)
}

func (m *Metrics) IncGateDecision(decision string) {
	if m == nil {
		return
	}
	m.gateDecisions.Inc(decision)
}

func (m *Metrics) IncSummaryOutcome(outcome string) {
	if m == nil {
		return
	}
	m.summaryOutcomes.Inc(outcome)
}

func (m *Metrics) IncArtifactConflict() {
	if m == nil {
		return
	}
	m.artifactConflicts.Inc()
}

func (m *Metrics) IncLockAcquire(backend, status string) {
	if m == nil {
		return
	}
	m.lockAcquire.Inc(backend, status)
}

func (m *Metrics) ObserveAggregateOperation(aggregate, operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateOps.Inc(aggregate, operation, status)
	m.aggregateLatency.Observe(dur.Seconds(), aggregate, operation, status)
}

func (m *Metrics) IncAggregateConflict(aggregate, operation string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.Inc(aggregate, operation)
}

func (m *Metrics) IncAggregateRetry(aggregate, operation string) {
	if m == nil {
		return
	}
	m.aggregateRetries.Inc(aggregate, operation)
}

// StartDBCollector samples connection pool stats until ctx is done.
func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}

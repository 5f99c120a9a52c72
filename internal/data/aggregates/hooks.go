package aggregates

import (
	"strings"
	"time"

	"github.com/yungbote/workshop-backend/internal/observability"
)

// Hooks captures aggregate-level observability events. name is "<Aggregate>.<Operation>".
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}

type observabilityHooks struct {
	metrics *observability.Metrics
}

// NewObservabilityHooks creates aggregate hooks backed by observability metrics.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return &observabilityHooks{metrics: metrics}
}

func (h *observabilityHooks) ObserveOperation(name, status string, dur time.Duration) {
	if h == nil || h.metrics == nil {
		return
	}
	agg, op := splitOpName(name)
	h.metrics.ObserveAggregateOperation(agg, op, strings.TrimSpace(status), dur)
}

func (h *observabilityHooks) IncConflict(name string) {
	if h == nil || h.metrics == nil {
		return
	}
	agg, op := splitOpName(name)
	h.metrics.IncAggregateConflict(agg, op)
}

func (h *observabilityHooks) IncRetry(name string) {
	if h == nil || h.metrics == nil {
		return
	}
	agg, op := splitOpName(name)
	h.metrics.IncAggregateRetry(agg, op)
}

func splitOpName(name string) (string, string) {
	name = strings.TrimSpace(name)
	i := strings.LastIndex(name, ".")
	if i <= 0 || i == len(name)-1 {
		return "unknown", name
	}
	return name[:i], name[i+1:]
}

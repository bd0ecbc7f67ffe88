package metrics

import (
	"fmt"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mathbot"

type promRecorder struct {
	stageSeconds      *prom.HistogramVec
	llmCalls          *prom.CounterVec
	questions         *prom.CounterVec
	executionFailures prom.Counter
	graphReloads      *prom.CounterVec
	queryCache        *prom.CounterVec
}

func (p *promRecorder) ObserveStageSeconds(stage string, success bool, seconds float64) {
	p.stageSeconds.WithLabelValues(stage, fmt.Sprintf("%t", success)).Observe(seconds)
}

func (p *promRecorder) IncLLMCall(purpose, outcome string) {
	p.llmCalls.WithLabelValues(purpose, outcome).Inc()
}

func (p *promRecorder) IncQuestion(scope string) {
	p.questions.WithLabelValues(scope).Inc()
}

func (p *promRecorder) IncExecutionFailure() {
	p.executionFailures.Inc()
}

func (p *promRecorder) IncGraphReload(outcome string) {
	p.graphReloads.WithLabelValues(outcome).Inc()
}

func (p *promRecorder) IncQueryCache(result string) {
	p.queryCache.WithLabelValues(result).Inc()
}

// NewPrometheus creates a Prometheus recorder on its own registry and returns it with
// the /metrics handler serving that registry.
func NewPrometheus() (Recorder, http.Handler) {
	registry := prom.NewRegistry()
	p := &promRecorder{
		stageSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage", "success"}),
		llmCalls: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "Total number of language model calls",
		}, []string{"purpose", "outcome"}),
		questions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "questions_total",
			Help:      "Total number of answered questions by curriculum scope",
		}, []string{"scope"}),
		executionFailures: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "execution_failures_total",
			Help:      "Total number of graph queries that failed and returned no rows",
		}),
		graphReloads: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "graph_reloads_total",
			Help:      "Total number of ontology reload attempts",
		}, []string{"outcome"}),
		queryCache: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_total",
			Help:      "Synthesized query cache lookups",
		}, []string{"result"}),
	}

	registry.MustRegister(
		p.stageSeconds, p.llmCalls, p.questions, p.executionFailures, p.graphReloads, p.queryCache,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

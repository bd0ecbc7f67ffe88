// Package metrics provides the instrumentation surface of the pipeline with a no-op
// default and a Prometheus-backed implementation.
package metrics

import (
	"sync"
	"time"
)

// Pipeline stages timed by TimeStage.
const (
	StageSynthesizeQuery  = "synthesize_query"
	StageExecuteQuery     = "execute_query"
	StageSynthesizeAnswer = "synthesize_answer"
	StageAsk              = "ask"
)

// Recorder defines the metrics surface used across the codebase.
type Recorder interface {
	ObserveStageSeconds(stage string, success bool, seconds float64)
	IncLLMCall(purpose, outcome string)
	IncQuestion(scope string)
	IncExecutionFailure()
	IncGraphReload(outcome string)
	IncQueryCache(result string)
}

type noopRecorder struct{}

func (n *noopRecorder) ObserveStageSeconds(string, bool, float64) {}
func (n *noopRecorder) IncLLMCall(string, string)                 {}
func (n *noopRecorder) IncQuestion(string)                        {}
func (n *noopRecorder) IncExecutionFailure()                      {}
func (n *noopRecorder) IncGraphReload(string)                     {}
func (n *noopRecorder) IncQueryCache(string)                      {}

var (
	recMu    sync.RWMutex
	recorder Recorder = &noopRecorder{}
)

// Default returns the current recorder.
func Default() Recorder {
	recMu.RLock()
	defer recMu.RUnlock()
	return recorder
}

// SetRecorder swaps the global recorder implementation. A nil recorder restores the no-op.
func SetRecorder(r Recorder) {
	recMu.Lock()
	defer recMu.Unlock()
	if r == nil {
		r = &noopRecorder{}
	}
	recorder = r
}

// TimeStage is a helper to time a pipeline stage.
func TimeStage(stage string) func(success bool) {
	start := time.Now()
	return func(success bool) {
		Default().ObserveStageSeconds(stage, success, time.Since(start).Seconds())
	}
}

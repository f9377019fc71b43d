package chat

import (
	"log/slog"
	"time"

	"github.com/recipeu/agent/pkg/llms"
	"github.com/recipeu/agent/pkg/observability"
)

// StageRecord is the timing and token cost of one pipeline stage.
type StageRecord struct {
	Stage   string
	Elapsed time.Duration
	Usage   llms.Usage
}

// RequestStats accumulates per-stage accounting across one user message.
// Not safe for concurrent use; each request owns its own instance.
type RequestStats struct {
	started time.Time
	stages  []StageRecord
}

func NewRequestStats() *RequestStats {
	return &RequestStats{started: time.Now()}
}

// Record adds one stage and mirrors it into the Prometheus metrics.
func (r *RequestStats) Record(stage string, elapsed time.Duration, usage llms.Usage) {
	r.stages = append(r.stages, StageRecord{Stage: stage, Elapsed: elapsed, Usage: usage})
	observability.ObserveStage(stage, elapsed, usage.PromptTokens, usage.CompletionTokens)
}

// Time runs fn as a named stage and records its wall time and usage.
func (r *RequestStats) Time(stage string, fn func() llms.Usage) {
	start := time.Now()
	usage := fn()
	r.Record(stage, time.Since(start), usage)
}

func (r *RequestStats) Stages() []StageRecord {
	out := make([]StageRecord, len(r.stages))
	copy(out, r.stages)
	return out
}

// Elapsed is the wall time since the request started.
func (r *RequestStats) Elapsed() time.Duration {
	return time.Since(r.started)
}

// TotalUsage sums token usage across all stages.
func (r *RequestStats) TotalUsage() llms.Usage {
	var total llms.Usage
	for _, stage := range r.stages {
		total = total.Add(stage.Usage)
	}
	return total
}

// LogSummary emits one line per stage plus the request total.
func (r *RequestStats) LogSummary(log *slog.Logger) {
	for _, stage := range r.stages {
		log.Info("stage complete",
			"stage", stage.Stage,
			"elapsed_ms", stage.Elapsed.Milliseconds(),
			"prompt_tokens", stage.Usage.PromptTokens,
			"completion_tokens", stage.Usage.CompletionTokens)
	}
	total := r.TotalUsage()
	log.Info("request complete",
		"elapsed_ms", r.Elapsed().Milliseconds(),
		"stages", len(r.stages),
		"prompt_tokens", total.PromptTokens,
		"completion_tokens", total.CompletionTokens,
		"total_tokens", total.TotalTokens)
}

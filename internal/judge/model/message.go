package model

// SubmitRequest is the inbound payload for one judge run.
type SubmitRequest struct {
	ProblemID       string `json:"problem_id" binding:"required"`
	SourceCode      string `json:"source_code" binding:"required"`
	CompilerOptions string `json:"compiler_options"`
	Language        string `json:"language" binding:"required"`
}

// RunSummary is published after a judge run finishes streaming.
type RunSummary struct {
	RunID      string         `json:"run_id"`
	ProblemID  string         `json:"problem_id"`
	Language   string         `json:"language"`
	TotalTests int            `json:"total_tests"`
	Compiled   bool           `json:"compiled"`
	Verdicts   map[string]int `json:"verdicts,omitempty"`
	FinishedAt int64          `json:"finished_at"`
}

// RunSummaryEvent wraps a RunSummary for queue transport.
type RunSummaryEvent struct {
	Type      string     `json:"type"`
	Summary   RunSummary `json:"summary"`
	CreatedAt int64      `json:"created_at"`
}

// RunSummaryEventFinal is the only event type currently published.
const RunSummaryEventFinal = "run.final"

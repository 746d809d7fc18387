package models

import "time"

// SymbolResult is the outcome of one symbol within a pipeline run:
// either a success with the number of rows written, or a failure with
// the error kind and message of the stage that failed.
type SymbolResult struct {
	Symbol  string
	Rows    int
	ErrKind string // empty on success
	ErrMsg  string // empty on success
}

// Failed reports whether this symbol's fetch-transform-load failed.
func (s SymbolResult) Failed() bool { return s.ErrKind != "" }

// RunResult aggregates the per-symbol outcomes of one pipeline execution.
// It is transient: the summary counters are persisted to the run log, the
// per-symbol detail is only logged.
type RunResult struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Symbols    []SymbolResult
}

// Succeeded returns the number of symbols that completed all three stages.
func (r RunResult) Succeeded() int {
	n := 0
	for _, s := range r.Symbols {
		if !s.Failed() {
			n++
		}
	}
	return n
}

// Failed returns the number of symbols that failed at any stage.
func (r RunResult) Failed() int { return len(r.Symbols) - r.Succeeded() }

// Ok reports whether every symbol in the run succeeded.
func (r RunResult) Ok() bool { return r.Failed() == 0 }

// Package grader re-validates backend verdicts against expected output.
package grader

import (
	"strings"

	"streamjudge/internal/judge/execclient"
)

// DefaultOutputCap bounds each captured stream field in emitted events.
// It is a presentation limit only; grading always uses untruncated content.
const DefaultOutputCap = 10_000

// Grade re-checks an accepted verdict against the expected output: program
// output (file output preferred over stdout when present) is compared
// byte-for-byte after trimming leading/trailing whitespace on both sides.
// A mismatch overrides the verdict to wrong_answer. All other verdicts, and
// internal errors, pass through unchanged. The backend's own acceptance
// signal may not reflect this problem's comparison semantics, hence the
// re-check.
func Grade(result execclient.ExecutionResult, expected string) execclient.ExecutionResult {
	if result.IsInternalError() || result.Verdict != execclient.VerdictAccepted {
		return result
	}
	output := result.FileOutput
	if output == "" {
		output = result.Stdout
	}
	if strings.TrimSpace(output) != strings.TrimSpace(expected) {
		result.Verdict = execclient.VerdictWrongAnswer
	}
	return result
}

// Truncate caps stdout, stderr and file output at max characters for
// emission. Call it after Grade: the verdict must never depend on a
// truncated value.
func Truncate(result execclient.ExecutionResult, max int) execclient.ExecutionResult {
	if max <= 0 {
		max = DefaultOutputCap
	}
	result.Stdout = truncateString(result.Stdout, max)
	result.Stderr = truncateString(result.Stderr, max)
	result.FileOutput = truncateString(result.FileOutput, max)
	return result
}

func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

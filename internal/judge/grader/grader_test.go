package grader_test

import (
	"strings"
	"testing"

	"streamjudge/internal/judge/execclient"
	"streamjudge/internal/judge/grader"
)

func TestGradeAcceptedMatchesAfterTrim(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		stdout   string
		expected string
		want     string
	}{
		{"exact", "42", "42", execclient.VerdictAccepted},
		{"trailing newline", "42\n", "42", execclient.VerdictAccepted},
		{"surrounding whitespace both sides", "  42 \n", "\n42", execclient.VerdictAccepted},
		{"mismatch", "41", "42", execclient.VerdictWrongAnswer},
		{"interior whitespace differs", "4 2", "42", execclient.VerdictWrongAnswer},
		{"empty output nonempty expected", "", "42", execclient.VerdictWrongAnswer},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			result := execclient.ExecutionResult{
				Verdict: execclient.VerdictAccepted,
				Stdout:  tc.stdout,
			}
			got := grader.Grade(result, tc.expected)
			if got.Verdict != tc.want {
				t.Fatalf("expected verdict %s, got %s", tc.want, got.Verdict)
			}
		})
	}
}

func TestGradePrefersFileOutput(t *testing.T) {
	t.Parallel()
	result := execclient.ExecutionResult{
		Verdict:    execclient.VerdictAccepted,
		Stdout:     "wrong\n",
		FileOutput: "42\n",
	}
	got := grader.Grade(result, "42")
	if got.Verdict != execclient.VerdictAccepted {
		t.Fatalf("expected file output to decide the verdict, got %s", got.Verdict)
	}
}

func TestGradeNonAcceptedPassesThrough(t *testing.T) {
	t.Parallel()
	for _, verdict := range []string{
		execclient.VerdictWrongAnswer,
		execclient.VerdictRuntimeError,
		execclient.VerdictTimeLimitExceeded,
	} {
		result := execclient.ExecutionResult{Verdict: verdict, Stdout: "42"}
		got := grader.Grade(result, "42")
		if got.Verdict != verdict {
			t.Fatalf("expected verdict %s to pass through, got %s", verdict, got.Verdict)
		}
	}
}

func TestGradeInternalErrorPassesThrough(t *testing.T) {
	t.Parallel()
	result := execclient.ExecutionResult{
		InternalError: "backend unreachable",
		Verdict:       execclient.VerdictAccepted,
	}
	got := grader.Grade(result, "anything")
	if got.InternalError != "backend unreachable" || got.Verdict != execclient.VerdictAccepted {
		t.Fatalf("expected internal error result to pass through unchanged, got %+v", got)
	}
}

func TestGradeIsIdempotent(t *testing.T) {
	t.Parallel()
	result := execclient.ExecutionResult{Verdict: execclient.VerdictAccepted, Stdout: "41"}
	once := grader.Grade(result, "42")
	twice := grader.Grade(once, "42")
	if once != twice {
		t.Fatalf("expected grading to be idempotent, got %+v then %+v", once, twice)
	}
}

func TestTruncateCapsEachStream(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("x", grader.DefaultOutputCap+50)
	result := execclient.ExecutionResult{
		Verdict:    execclient.VerdictAccepted,
		Stdout:     long,
		Stderr:     long,
		FileOutput: "short",
	}
	got := grader.Truncate(result, 0)
	if len(got.Stdout) != grader.DefaultOutputCap {
		t.Fatalf("expected stdout capped at %d, got %d", grader.DefaultOutputCap, len(got.Stdout))
	}
	if len(got.Stderr) != grader.DefaultOutputCap {
		t.Fatalf("expected stderr capped at %d, got %d", grader.DefaultOutputCap, len(got.Stderr))
	}
	if got.FileOutput != "short" {
		t.Fatalf("expected short file output untouched, got %q", got.FileOutput)
	}
}

func TestTruncateDoesNotChangeVerdict(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("a", 100)
	result := grader.Grade(execclient.ExecutionResult{
		Verdict: execclient.VerdictAccepted,
		Stdout:  long,
	}, long)
	got := grader.Truncate(result, 10)
	if got.Verdict != execclient.VerdictAccepted {
		t.Fatalf("expected verdict to survive truncation, got %s", got.Verdict)
	}
	if got.Stdout != long[:10] {
		t.Fatalf("expected stdout truncated to 10 chars, got %q", got.Stdout)
	}
}

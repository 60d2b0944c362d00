// Package service coordinates one judge run: a single compile call followed
// by a concurrent fan-out of one execution per test case, streamed back in
// completion order.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"streamjudge/internal/judge/execclient"
	"streamjudge/internal/judge/grader"
	"streamjudge/internal/judge/model"
	"streamjudge/internal/judge/repository"
	"streamjudge/internal/judge/stream"
	appErr "streamjudge/pkg/errors"
	"streamjudge/pkg/utils/contextkey"
	"streamjudge/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProblemResolver maps a problem identifier to its manifest and serves test
// data content.
type ProblemResolver interface {
	Resolve(ctx context.Context, problemID string) (model.Problem, error)
	ReadTestFile(ctx context.Context, problem model.Problem, name string) (string, error)
}

// Executor is the remote execution backend surface used by a judge run.
type Executor interface {
	Compile(ctx context.Context, source, compilerOptions, language string) execclient.CompileResult
	Execute(ctx context.Context, req execclient.ExecutionRequest) execclient.ExecutionResult
	StageInput(ctx context.Context, content string) (stdin string, stdinID string, err error)
}

// Config holds service dependencies and settings.
type Config struct {
	Problems  ProblemResolver
	Executor  Executor
	Publisher repository.RunEventPublisher // optional
	OutputCap int
	// EventBuffer sizes the outbound event channel per run.
	EventBuffer int
	// PublishTimeout bounds the fire-and-forget summary publish.
	PublishTimeout time.Duration
}

// Service runs judge submissions.
type Service struct {
	problems       ProblemResolver
	executor       Executor
	publisher      repository.RunEventPublisher
	outputCap      int
	eventBuffer    int
	publishTimeout time.Duration
}

// NewService creates a new judge service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Problems == nil {
		return nil, fmt.Errorf("problem resolver is required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.OutputCap <= 0 {
		cfg.OutputCap = grader.DefaultOutputCap
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 16
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	return &Service{
		problems:       cfg.Problems,
		executor:       cfg.Executor,
		publisher:      cfg.Publisher,
		outputCap:      cfg.OutputCap,
		eventBuffer:    cfg.EventBuffer,
		publishTimeout: cfg.PublishTimeout,
	}, nil
}

// runState tracks the lifecycle of one judge run.
type runState string

const (
	stateCompiling     runState = "compiling"
	stateCompileFailed runState = "compile_failed"
	stateDispatching   runState = "dispatching"
	stateStreaming     runState = "streaming"
	stateDone          runState = "done"
)

// judgeRun owns one streamed invocation: the resolved problem, the submitted
// source and the in-flight execution set. It lives for the duration of one
// response stream.
type judgeRun struct {
	id      string
	req     model.SubmitRequest
	problem model.Problem
	svc     *Service
	state   runState
}

// ExecuteEvent is the payload of one execute event: the graded result merged
// with its correlation attributes.
type ExecuteEvent struct {
	execclient.ExecutionResult
	TestCase   int `json:"test_case"`
	TotalTests int `json:"total_tests"`
}

// Run resolves the problem and starts a judge run. Resolution failures are
// returned before any streaming begins. On success the returned channel
// yields exactly one compile event first, then zero or more execute events in
// completion order; it is closed when the run is done. Cancelling ctx (for
// example on client disconnect) cancels in-flight backend calls.
func (s *Service) Run(ctx context.Context, req model.SubmitRequest) (<-chan stream.Event, error) {
	if req.SourceCode == "" {
		return nil, appErr.ValidationError("source_code", "must not be empty")
	}
	if req.Language == "" {
		return nil, appErr.ValidationError("language", "must not be empty")
	}
	problem, err := s.problems.Resolve(ctx, req.ProblemID)
	if err != nil {
		return nil, err
	}

	run := &judgeRun{
		id:      uuid.NewString(),
		req:     req,
		problem: problem,
		svc:     s,
		state:   stateCompiling,
	}
	ctx = context.WithValue(ctx, contextkey.RunID, run.id)

	events := make(chan stream.Event, s.eventBuffer)
	go run.drive(ctx, events)
	return events, nil
}

// ProblemsDocument exposes the known-problems listing through the service.
func (s *Service) ProblemsDocument(ctx context.Context) (interface{}, error) {
	type documenter interface {
		ProblemsDocument(ctx context.Context) (json.RawMessage, error)
	}
	if d, ok := s.problems.(documenter); ok {
		doc, err := d.ProblemsDocument(ctx)
		if err != nil {
			return nil, err
		}
		return doc, nil
	}
	return nil, fmt.Errorf("problem store does not expose a listing")
}

// drive walks the run state machine: Compiling, then either CompileFailed
// (terminal) or Dispatching/Streaming until every test case has produced its
// terminal result, then Done.
func (r *judgeRun) drive(ctx context.Context, events chan<- stream.Event) {
	defer close(events)
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error(ctx, "judge run pipeline fault",
				zap.Any("panic", rec),
				zap.String("stack", string(debug.Stack())),
			)
			r.send(ctx, events, stream.Event{
				Name: stream.EventError,
				Payload: stream.ErrorPayload{
					Message: fmt.Sprint(rec),
					Stack:   string(debug.Stack()),
				},
			})
		}
	}()

	logger.Info(ctx, "judge run started",
		zap.String("problem_id", r.problem.ID),
		zap.String("language", r.req.Language),
		zap.Int("total_tests", len(r.problem.Tests)),
	)

	compile := r.svc.executor.Compile(ctx, r.req.SourceCode, r.req.CompilerOptions, r.req.Language)
	if !r.send(ctx, events, stream.Event{Name: stream.EventCompile, Payload: compileEventPayload(compile)}) {
		return
	}
	if !compile.OK() {
		r.state = stateCompileFailed
		logger.Info(ctx, "judge run ended at compilation",
			zap.String("state", string(r.state)),
			zap.Bool("internal_error", compile.InternalError != ""))
		r.publishSummary(ctx, false, nil)
		return
	}

	r.state = stateDispatching
	total := len(r.problem.Tests)
	results := make(chan ExecuteEvent)
	var wg sync.WaitGroup
	for _, tc := range r.problem.Tests {
		wg.Add(1)
		go func(tc model.TestCase) {
			defer wg.Done()
			results <- r.runTest(ctx, compile.Executable, tc, total)
		}(tc)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	r.state = stateStreaming
	tally := make(map[string]int, 4)
	for result := range results {
		tally[verdictKey(result.ExecutionResult)]++
		if !r.send(ctx, events, stream.Event{Name: stream.EventExecute, Payload: result}) {
			// Client is gone; keep draining so every worker can finish.
			for range results {
			}
			return
		}
	}

	r.state = stateDone
	logger.Info(ctx, "judge run finished",
		zap.String("state", string(r.state)),
		zap.Any("verdicts", tally))
	r.publishSummary(ctx, true, tally)
}

// runTest produces exactly one terminal result for one test case. Failures to
// read test data, stage a large input, or reach the backend are contained to
// this case and never abort siblings.
func (r *judgeRun) runTest(ctx context.Context, executable []byte, tc model.TestCase, total int) (event ExecuteEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error(ctx, "test case fault",
				zap.Int("test_case", tc.Index),
				zap.Any("panic", rec),
			)
			event = ExecuteEvent{
				ExecutionResult: execclient.ExecutionResult{
					InternalError: fmt.Sprintf("test case fault: %v", rec),
				},
				TestCase:   tc.Index,
				TotalTests: total,
			}
		}
	}()

	result := r.execTest(ctx, executable, tc)
	result = grader.Truncate(result, r.svc.outputCap)
	return ExecuteEvent{
		ExecutionResult: result,
		TestCase:        tc.Index,
		TotalTests:      total,
	}
}

func (r *judgeRun) execTest(ctx context.Context, executable []byte, tc model.TestCase) execclient.ExecutionResult {
	input, err := r.svc.problems.ReadTestFile(ctx, r.problem, tc.InputKey)
	if err != nil {
		return execclient.ExecutionResult{InternalError: err.Error()}
	}
	expected, err := r.svc.problems.ReadTestFile(ctx, r.problem, tc.AnswerKey)
	if err != nil {
		return execclient.ExecutionResult{InternalError: err.Error()}
	}

	stdin, stdinID, err := r.svc.executor.StageInput(ctx, input)
	if err != nil {
		return execclient.ExecutionResult{InternalError: err.Error()}
	}

	result := r.svc.executor.Execute(ctx, execclient.ExecutionRequest{
		Executable: executable,
		Stdin:      stdin,
		StdinID:    stdinID,
		TimeoutMS:  r.problem.TimeLimitMS,
		FileIOName: r.problem.FileIOName,
		TestIndex:  tc.Index,
		TotalTests: len(r.problem.Tests),
	})
	return grader.Grade(result, expected)
}

// send delivers one event unless the consumer has gone away.
func (r *judgeRun) send(ctx context.Context, events chan<- stream.Event, event stream.Event) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *judgeRun) publishSummary(ctx context.Context, compiled bool, tally map[string]int) {
	if r.svc.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.svc.publishTimeout)
	defer cancel()
	summary := model.RunSummary{
		RunID:      r.id,
		ProblemID:  r.problem.ID,
		Language:   r.req.Language,
		TotalTests: len(r.problem.Tests),
		Compiled:   compiled,
		Verdicts:   tally,
		FinishedAt: time.Now().Unix(),
	}
	if err := r.svc.publisher.PublishRunSummary(pubCtx, summary); err != nil {
		logger.Warn(ctx, "publish run summary failed", zap.Error(err))
	}
}

// compileEventPayload mirrors the stream contract: compiler diagnostics alone
// when present, otherwise the whole compile result.
func compileEventPayload(result execclient.CompileResult) interface{} {
	if result.CompileOutput != "" {
		return result.CompileOutput
	}
	return result
}

func verdictKey(result execclient.ExecutionResult) string {
	if result.IsInternalError() {
		return "internal_error"
	}
	return result.Verdict
}

// Package execclient talks to the external untrusted-code execution backend.
// The backend is out of this system's control, so every transport or decode
// failure is normalized into a result value carrying internal_error instead of
// a Go error. Callers branch on the result, never on exceptions.
package execclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Verdict values returned by the execution backend. Unknown values are passed
// through untouched.
const (
	VerdictAccepted          = "accepted"
	VerdictWrongAnswer       = "wrong_answer"
	VerdictRuntimeError      = "runtime_error"
	VerdictTimeLimitExceeded = "time_limit_exceeded"
)

// DefaultInlineStdinLimit is the request-size ceiling for inline stdin.
// Inputs at or above this size are offloaded out-of-band.
const DefaultInlineStdinLimit = 2_000_000

// Config holds execution backend settings.
type Config struct {
	CompileURL   string        `yaml:"compileURL"`
	ExecuteURL   string        `yaml:"executeURL"`
	InputSlotURL string        `yaml:"inputSlotURL"`
	Timeout      time.Duration `yaml:"timeout"`

	// InlineStdinLimit overrides DefaultInlineStdinLimit when positive.
	InlineStdinLimit int `yaml:"inlineStdinLimit"`
}

// Client invokes the compile and execute operations of the backend.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a new execution backend client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.CompileURL == "" {
		return nil, fmt.Errorf("compile URL is required")
	}
	if cfg.ExecuteURL == "" {
		return nil, fmt.Errorf("execute URL is required")
	}
	if cfg.InlineStdinLimit <= 0 {
		cfg.InlineStdinLimit = DefaultInlineStdinLimit
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// InlineStdinLimit returns the effective inline stdin ceiling.
func (c *Client) InlineStdinLimit() int {
	return c.cfg.InlineStdinLimit
}

// CompileResult holds either an executable artifact plus optional compiler
// diagnostics, or an error payload with no artifact.
type CompileResult struct {
	Executable    json.RawMessage `json:"executable,omitempty"`
	CompileOutput string          `json:"compile_output,omitempty"`
	InternalError string          `json:"internal_error,omitempty"`
}

// OK reports whether compilation produced an executable artifact.
func (r CompileResult) OK() bool {
	return r.InternalError == "" && len(r.Executable) > 0 && string(r.Executable) != "null"
}

// ExecutionRequest describes one test-case execution. Exactly one of Stdin and
// StdinID is populated. TestIndex and TotalTests are correlation attributes
// carried through to the emitted result, not sent to the backend.
type ExecutionRequest struct {
	Executable json.RawMessage
	Stdin      string
	StdinID    string
	TimeoutMS  int
	FileIOName string

	TestIndex  int
	TotalTests int
}

// ExecutionResult is the discriminated outcome of one execution:
// InternalError is set when the transport or decode failed, otherwise the
// verdict fields describe the run.
type ExecutionResult struct {
	InternalError string `json:"internal_error,omitempty"`

	Verdict       string `json:"verdict,omitempty"`
	Stdout        string `json:"stdout,omitempty"`
	Stderr        string `json:"stderr,omitempty"`
	FileOutput    string `json:"file_output,omitempty"`
	FullOutputURL string `json:"full_output_url,omitempty"`
}

// IsInternalError reports whether the result is a transport/protocol failure.
func (r ExecutionResult) IsInternalError() bool {
	return r.InternalError != ""
}

type compileRequest struct {
	SourceCode      string `json:"source_code"`
	CompilerOptions string `json:"compiler_options"`
	Language        string `json:"language"`
}

type executeRequest struct {
	Executable json.RawMessage `json:"executable"`
	Options    executeOptions  `json:"options"`
}

type executeOptions struct {
	Stdin      string `json:"stdin,omitempty"`
	StdinID    string `json:"stdin_id,omitempty"`
	TimeoutMS  int    `json:"timeout_ms"`
	FileIOName string `json:"file_io_name,omitempty"`
}

// Compile submits the source for compilation. Backend trouble never becomes a
// Go error; it is folded into the returned result.
func (c *Client) Compile(ctx context.Context, source, compilerOptions, language string) CompileResult {
	body, err := c.postJSON(ctx, c.cfg.CompileURL, compileRequest{
		SourceCode:      source,
		CompilerOptions: compilerOptions,
		Language:        language,
	})
	if err != nil {
		return CompileResult{InternalError: err.Error()}
	}
	var result CompileResult
	if err := json.Unmarshal(body, &result); err != nil {
		return CompileResult{InternalError: string(body)}
	}
	return result
}

// Execute runs the compiled artifact against one test case. When the backend
// signals the response was too large to inline, the complete payload is
// fetched from full_output_url before returning.
func (c *Client) Execute(ctx context.Context, req ExecutionRequest) ExecutionResult {
	body, err := c.postJSON(ctx, c.cfg.ExecuteURL, executeRequest{
		Executable: req.Executable,
		Options: executeOptions{
			Stdin:      req.Stdin,
			StdinID:    req.StdinID,
			TimeoutMS:  req.TimeoutMS,
			FileIOName: req.FileIOName,
		},
	})
	if err != nil {
		return ExecutionResult{InternalError: err.Error()}
	}
	var result ExecutionResult
	if err := json.Unmarshal(body, &result); err != nil {
		return ExecutionResult{InternalError: string(body)}
	}
	if result.InternalError == "" && result.FullOutputURL != "" {
		return c.fetchFullOutput(ctx, result.FullOutputURL)
	}
	return result
}

func (c *Client) fetchFullOutput(ctx context.Context, url string) ExecutionResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ExecutionResult{InternalError: err.Error()}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ExecutionResult{InternalError: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ExecutionResult{InternalError: err.Error()}
	}
	var result ExecutionResult
	if err := json.Unmarshal(body, &result); err != nil {
		return ExecutionResult{InternalError: string(body)}
	}
	return result
}

func (c *Client) postJSON(ctx context.Context, url string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request failed: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response failed: %w", err)
	}
	return body, nil
}

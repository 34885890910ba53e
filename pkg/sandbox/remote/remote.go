// Package remote provides a sandbox.Provider backed by sandbox servers
// reached over HTTP. Sandbox URLs come from an Acquirer: a static URL
// in development, or claim-based acquisition in Kubernetes
// (pkg/sandbox/kubernetes).
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/runbox-dev/runbox/pkg/sandbox"
)

// Ensure Provider implements sandbox.Provider.
var _ sandbox.Provider = (*Provider)(nil)

// Acquirer abstracts sandbox URL acquisition. The release function must
// be called after execution to clean up.
type Acquirer interface {
	Acquire(ctx context.Context) (sandboxURL string, release func(), err error)
}

// StaticAcquirer returns a fixed sandbox URL (development mode).
type StaticAcquirer struct {
	URL string
}

// Acquire returns the configured URL. No cleanup is needed.
func (a *StaticAcquirer) Acquire(_ context.Context) (string, func(), error) {
	return a.URL, func() {}, nil
}

// Config holds settings for the remote provider.
type Config struct {
	// WorkDir is the working directory inside remote sandboxes.
	// Default: "/home/user".
	WorkDir string

	// DefaultTimeout is the code execution time bound sent to the
	// sandbox server when the request context carries no deadline.
	DefaultTimeout time.Duration

	// HTTPTimeout bounds individual HTTP calls to the sandbox server.
	// Default: 120s.
	HTTPTimeout time.Duration
}

// Provider acquires remote sandboxes and wraps them in the Sandbox
// interface.
type Provider struct {
	acquirer   Acquirer
	config     Config
	httpClient *http.Client
}

// New creates a remote provider using the given acquirer.
func New(acquirer Acquirer, cfg Config) *Provider {
	if cfg.WorkDir == "" {
		cfg.WorkDir = "/home/user"
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 30 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 120 * time.Second
	}
	return &Provider{
		acquirer:   acquirer,
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

// Acquire obtains a sandbox URL from the acquirer and returns a Sandbox
// speaking the sandbox server REST protocol.
func (p *Provider) Acquire(ctx context.Context) (sandbox.Sandbox, func(), error) {
	sandboxURL, release, err := p.acquirer.Acquire(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("acquire sandbox: %w", err)
	}

	sb := &remoteSandbox{
		baseURL:        sandboxURL,
		workDir:        p.config.WorkDir,
		defaultTimeout: p.config.DefaultTimeout,
		httpClient:     p.httpClient,
	}
	return sb, release, nil
}

type remoteSandbox struct {
	baseURL        string
	workDir        string
	defaultTimeout time.Duration
	httpClient     *http.Client
}

// codeRequest is the body for POST /code on the sandbox server.
type codeRequest struct {
	Code           string `json:"code"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// codeResponse is the sandbox server's raw execution result.
type codeResponse struct {
	Stdout  []string     `json:"stdout"`
	Stderr  []string     `json:"stderr"`
	Error   *codeError   `json:"error,omitempty"`
	Results []codeResult `json:"results,omitempty"`
}

type codeError struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Traceback string `json:"traceback,omitempty"`
}

// codeResult carries one rich result. Type is "image" or "text";
// anything else is treated as empty.
type codeResult struct {
	Type string `json:"type"`
	PNG  string `json:"png,omitempty"`
	Text string `json:"text,omitempty"`
}

// commandRequest is the body for POST /command.
type commandRequest struct {
	Command        string `json:"command"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// commandResponse mirrors sandbox.CommandResult on the wire.
type commandResponse struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// RunCode sends the source to the sandbox server and translates the
// response into an Execution.
func (s *remoteSandbox) RunCode(ctx context.Context, code string) (*sandbox.Execution, error) {
	req := codeRequest{
		Code:           code,
		TimeoutSeconds: s.timeoutSeconds(ctx),
	}

	var resp codeResponse
	if err := s.postJSON(ctx, "/code", req, &resp); err != nil {
		return nil, err
	}

	execution := &sandbox.Execution{
		Logs: sandbox.Logs{Stdout: resp.Stdout, Stderr: resp.Stderr},
	}
	if resp.Error != nil {
		execution.Error = &sandbox.ExecError{
			Name:      resp.Error.Name,
			Value:     resp.Error.Value,
			Traceback: resp.Error.Traceback,
		}
	}
	for _, r := range resp.Results {
		switch r.Type {
		case "image":
			execution.Results = append(execution.Results, sandbox.RichResult{Kind: sandbox.RichImage, PNG: r.PNG})
		case "text":
			execution.Results = append(execution.Results, sandbox.RichResult{Kind: sandbox.RichText, Text: r.Text})
		default:
			execution.Results = append(execution.Results, sandbox.RichResult{Kind: sandbox.RichEmpty})
		}
	}
	return execution, nil
}

// RunCommand executes a shell command on the sandbox server.
func (s *remoteSandbox) RunCommand(ctx context.Context, command string, timeout time.Duration) (*sandbox.CommandResult, error) {
	req := commandRequest{Command: command, TimeoutSeconds: int(timeout.Seconds())}

	var resp commandResponse
	if err := s.postJSON(ctx, "/command", req, &resp); err != nil {
		return nil, err
	}
	return &sandbox.CommandResult{
		Stdout:   resp.Stdout,
		Stderr:   resp.Stderr,
		ExitCode: resp.ExitCode,
	}, nil
}

// WriteFile uploads a file to the sandbox working directory.
func (s *remoteSandbox) WriteFile(ctx context.Context, name string, content []byte) error {
	target := s.baseURL + "/files/" + url.PathEscape(name)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sandbox request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sandbox returned HTTP %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// ReadFile downloads a file from the sandbox.
func (s *remoteSandbox) ReadFile(ctx context.Context, path string) ([]byte, error) {
	target := s.baseURL + "/files?path=" + url.QueryEscape(path)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sandbox request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("sandbox returned HTTP %d: %s", resp.StatusCode, string(body))
	}
	return io.ReadAll(resp.Body)
}

// WorkDir returns the working directory inside the remote sandbox.
func (s *remoteSandbox) WorkDir() string {
	return s.workDir
}

// Close is a no-op; teardown happens through the acquirer's release.
func (s *remoteSandbox) Close() error {
	return nil
}

// timeoutSeconds derives the execution time bound from the context
// deadline, falling back to the configured default.
func (s *remoteSandbox) timeoutSeconds(ctx context.Context) int {
	if deadline, ok := ctx.Deadline(); ok {
		if secs := int(time.Until(deadline).Seconds()); secs > 0 {
			return secs
		}
	}
	return int(s.defaultTimeout.Seconds())
}

// postJSON sends a JSON request to the sandbox server and decodes the
// JSON response.
func (s *remoteSandbox) postJSON(ctx context.Context, path string, reqBody, respBody any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sandbox request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("sandbox at capacity (HTTP 429)")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sandbox returned HTTP %d: %s", resp.StatusCode, string(raw))
	}

	if err := json.Unmarshal(raw, respBody); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

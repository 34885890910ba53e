// Package sandbox defines the boundary to the isolated execution
// environment. Implementations exist for local subprocess execution
// (pkg/sandbox/local) and for remote sandbox servers reached over HTTP
// (pkg/sandbox/remote).
package sandbox

import (
	"context"
	"fmt"
	"time"
)

// Sandbox is one isolated execution environment. A Sandbox is scoped to
// a single request: acquired at request start, used exclusively, and
// closed unconditionally at request end.
type Sandbox interface {
	// RunCode executes Python source and returns the raw execution result.
	RunCode(ctx context.Context, code string) (*Execution, error)

	// RunCommand executes a shell command inside the sandbox with the
	// given time bound.
	RunCommand(ctx context.Context, cmd string, timeout time.Duration) (*CommandResult, error)

	// WriteFile places a file into the sandbox working directory.
	WriteFile(ctx context.Context, name string, content []byte) error

	// ReadFile returns the content of a file inside the sandbox.
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// WorkDir returns the absolute path of the sandbox working directory.
	WorkDir() string

	// Close tears down the sandbox and releases its resources.
	Close() error
}

// Provider creates sandboxes. The release function must be called after
// use to clean up; it is safe to call on all exit paths.
type Provider interface {
	Acquire(ctx context.Context) (sb Sandbox, release func(), err error)
}

// Logs holds the ordered output lines captured during code execution.
type Logs struct {
	Stdout []string
	Stderr []string
}

// ExecError describes an error raised by user code inside the sandbox.
// It is part of a normal execution result, not a provider failure.
type ExecError struct {
	Name      string
	Value     string
	Traceback string
}

// Error implements the error interface.
func (e *ExecError) Error() string {
	if e.Name == "" {
		return e.Value
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Value)
}

// RichResultKind discriminates the variants of a RichResult.
type RichResultKind int

const (
	// RichEmpty is a result carrying neither image nor text.
	RichEmpty RichResultKind = iota
	// RichImage is a rendered image payload (base64-encoded PNG).
	RichImage
	// RichText is the textual representation of an evaluated expression.
	RichText
)

// RichResult is one structured execution output unit, such as a rendered
// plot or the printed form of a bare trailing expression. Exactly one
// variant is populated, selected by Kind.
type RichResult struct {
	Kind RichResultKind
	PNG  string // base64-encoded image data, set when Kind == RichImage
	Text string // set when Kind == RichText
}

// Execution is the raw result of running code in a sandbox.
type Execution struct {
	Logs    Logs
	Error   *ExecError
	Results []RichResult
}

// CommandResult is the outcome of a shell command run inside a sandbox.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Combined returns stdout and stderr concatenated, used for diagnostic
// output such as package installation logs.
func (r *CommandResult) Combined() string {
	return r.Stdout + r.Stderr
}

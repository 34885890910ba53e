// Package executor orchestrates one code execution request against a
// sandbox: optional dependency installation, a pre-execution snapshot
// of the working directory, code execution, result shaping, a
// post-execution snapshot, and collection of explicit plus
// auto-detected output files.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/runbox-dev/runbox/pkg/sandbox"
)

// installTimeout bounds the single package-install invocation.
const installTimeout = 60 * time.Second

// Request describes one execution request.
type Request struct {
	Code         string
	Timeout      time.Duration // code execution ceiling
	Dependencies []string      // packages to install before execution
	OutputFiles  []string      // explicit paths to retrieve afterwards
	Files        []InputFile   // uploaded into the working directory first
}

// InputFile is a file placed into the sandbox before execution.
type InputFile struct {
	Name    string
	Content []byte
}

// Outcome is the flat result of one execution request. It is
// constructed once, returned to the caller, and discarded.
type Outcome struct {
	Success       bool
	Stdout        string
	Stderr        string
	Error         string // empty on success
	Plots         []Plot
	Files         []Artifact
	ExecutionTime time.Duration
	InstallOutput string
}

// Executor runs requests against sandboxes from a Provider. Each
// request acquires its own sandbox and releases it unconditionally.
type Executor struct {
	provider       sandbox.Provider
	defaultTimeout time.Duration
}

// New creates an Executor. defaultTimeout is applied when a request
// carries no timeout and acts as the ceiling for requested timeouts.
func New(provider sandbox.Provider, defaultTimeout time.Duration) *Executor {
	if defaultTimeout <= 0 {
		defaultTimeout = 30 * time.Second
	}
	return &Executor{provider: provider, defaultTimeout: defaultTimeout}
}

// Run executes one request. A non-nil error means the sandbox provider
// failed or was unavailable; every other failure mode is reported
// inside the Outcome with Success=false.
func (e *Executor) Run(ctx context.Context, req Request) (*Outcome, error) {
	start := time.Now()

	sb, release, err := e.provider.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire sandbox: %w", err)
	}
	defer release()

	// Place uploaded files before anything runs.
	for _, f := range req.Files {
		if err := sb.WriteFile(ctx, f.Name, f.Content); err != nil {
			return nil, fmt.Errorf("upload file %q: %w", f.Name, err)
		}
		slog.Info("uploaded file", "name", f.Name, "bytes", len(f.Content))
	}

	// Install dependencies. Failure is fatal to the request: no code
	// execution and no snapshot or collection steps happen.
	installOutput := ""
	if len(req.Dependencies) > 0 {
		var failed string
		installOutput, failed = e.installDependencies(ctx, sb, req.Dependencies)
		if failed != "" {
			return &Outcome{
				Success:       false,
				Error:         "Failed to install dependencies: " + failed,
				InstallOutput: installOutput,
				ExecutionTime: time.Since(start),
			}, nil
		}
	}

	before := takeSnapshot(ctx, sb)
	slog.Debug("files before execution", "count", len(before))

	execCtx, cancel := context.WithTimeout(ctx, e.clampTimeout(req.Timeout))
	defer cancel()

	execution, err := sb.RunCode(execCtx, req.Code)
	if err != nil {
		return nil, fmt.Errorf("run code: %w", err)
	}

	result := shapeExecution(execution)
	if result.Error != "" {
		slog.Warn("execution error", "error", result.Error)
	}

	after := takeSnapshot(ctx, sb)
	newFiles := diffSnapshots(before, after)
	slog.Debug("files after execution", "count", len(after), "new", len(newFiles))

	artifacts := collectArtifacts(ctx, sb, sb.WorkDir(), req.OutputFiles, newFiles)

	return &Outcome{
		Success:       result.Error == "",
		Stdout:        result.Stdout,
		Stderr:        result.Stderr,
		Error:         result.Error,
		Plots:         result.Plots,
		Files:         artifacts,
		ExecutionTime: time.Since(start),
		InstallOutput: installOutput,
	}, nil
}

// installDependencies issues one package-install invocation. It returns
// the combined install output and, on failure, a non-empty diagnostic.
func (e *Executor) installDependencies(ctx context.Context, sb sandbox.Sandbox, deps []string) (output, failed string) {
	cmd := "pip install -q " + strings.Join(deps, " ")
	slog.Info("installing dependencies", "packages", strings.Join(deps, " "))

	result, err := sb.RunCommand(ctx, cmd, installTimeout)
	if err != nil {
		slog.Error("dependency installation failed", "error", err.Error())
		return err.Error(), err.Error()
	}
	if result.ExitCode != 0 {
		diag := result.Combined()
		if diag == "" {
			diag = fmt.Sprintf("pip exited with status %d", result.ExitCode)
		}
		slog.Error("dependency installation failed", "exit_code", result.ExitCode)
		return diag, diag
	}
	return result.Combined(), ""
}

// clampTimeout applies the default when unset and caps requested
// timeouts at the configured ceiling.
func (e *Executor) clampTimeout(requested time.Duration) time.Duration {
	if requested <= 0 || requested > e.defaultTimeout {
		return e.defaultTimeout
	}
	return requested
}

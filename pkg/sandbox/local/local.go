// Package local provides a sandbox.Provider that executes code in
// subprocesses under per-sandbox temporary directories. It is the
// development-mode counterpart of the remote provider: isolation is
// limited to a private working directory, not a container boundary.
package local

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/runbox-dev/runbox/pkg/sandbox"
)

// Ensure Provider implements sandbox.Provider.
var _ sandbox.Provider = (*Provider)(nil)

// Config holds settings for the local provider.
type Config struct {
	// PythonBin is the Python interpreter to invoke. Default: "python3".
	PythonBin string

	// PackageIndexURL is exported as PIP_INDEX_URL for commands run in
	// the sandbox. Empty means the interpreter default.
	PackageIndexURL string
}

// Provider creates subprocess-backed sandboxes.
type Provider struct {
	config Config
}

// New creates a local provider.
func New(cfg Config) *Provider {
	if cfg.PythonBin == "" {
		cfg.PythonBin = "python3"
	}
	return &Provider{config: cfg}
}

// Acquire creates a fresh working directory and returns a sandbox bound
// to it. The release function removes the directory.
func (p *Provider) Acquire(_ context.Context) (sandbox.Sandbox, func(), error) {
	dir, err := os.MkdirTemp("", "runbox-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create sandbox dir: %w", err)
	}

	sb := &localSandbox{
		id:      uuid.NewString(),
		workDir: dir,
		config:  p.config,
	}

	slog.Debug("local sandbox created", "id", sb.id, "workdir", dir)
	return sb, func() { sb.Close() }, nil
}

type localSandbox struct {
	id      string
	workDir string
	config  Config
}

// RunCode writes the source to script.py and runs it with the
// configured interpreter. PNG files that appear in the working
// directory during the run are returned as image results.
func (s *localSandbox) RunCode(ctx context.Context, code string) (*sandbox.Execution, error) {
	codePath := filepath.Join(s.workDir, "script.py")
	if err := os.WriteFile(codePath, []byte(code), 0o644); err != nil {
		return nil, fmt.Errorf("write code: %w", err)
	}

	pngsBefore := make(map[string]bool)
	for _, name := range s.listPNGs() {
		pngsBefore[name] = true
	}

	cmd := exec.CommandContext(ctx, s.config.PythonBin, codePath)
	cmd.Dir = s.workDir
	cmd.Env = s.commandEnv()

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	runErr := cmd.Run()

	execution := &sandbox.Execution{
		Logs: sandbox.Logs{
			Stdout: splitLines(stdoutBuf.String()),
			Stderr: splitLines(stderrBuf.String()),
		},
	}

	if runErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			execution.Error = &sandbox.ExecError{
				Name:  "TimeoutError",
				Value: "execution timed out",
			}
		} else if _, ok := runErr.(*exec.ExitError); ok {
			execution.Error = execErrorFromStderr(execution.Logs.Stderr, runErr)
		} else {
			// Interpreter missing or not startable: a provider failure,
			// not a user-code error.
			return nil, fmt.Errorf("run interpreter: %w", runErr)
		}
	}

	// New PNGs become image results, in name order.
	for _, name := range s.listPNGs() {
		if pngsBefore[name] {
			continue
		}
		content, err := os.ReadFile(filepath.Join(s.workDir, name))
		if err != nil {
			continue
		}
		execution.Results = append(execution.Results, sandbox.RichResult{
			Kind: sandbox.RichImage,
			PNG:  base64.StdEncoding.EncodeToString(content),
		})
	}

	return execution, nil
}

// RunCommand executes a shell command in the working directory with the
// given time bound.
func (s *localSandbox) RunCommand(ctx context.Context, command string, timeout time.Duration) (*sandbox.CommandResult, error) {
	cmdCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(cmdCtx, "bash", "-c", command)
	cmd.Dir = s.workDir
	cmd.Env = s.commandEnv()

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	runErr := cmd.Run()

	result := &sandbox.CommandResult{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
	}

	if runErr != nil {
		if cmdCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("command timed out after %s", timeout)
		}
		exitErr, ok := runErr.(*exec.ExitError)
		if !ok {
			return nil, fmt.Errorf("run command: %w", runErr)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	return result, nil
}

// WriteFile places a file in the working directory. The name is reduced
// to its base to prevent path traversal.
func (s *localSandbox) WriteFile(_ context.Context, name string, content []byte) error {
	path := filepath.Join(s.workDir, filepath.Base(name))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write file %q: %w", name, err)
	}
	return nil
}

// ReadFile returns the content of a file. Relative paths are resolved
// against the working directory.
func (s *localSandbox) ReadFile(_ context.Context, path string) ([]byte, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.workDir, path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %q: %w", path, err)
	}
	return content, nil
}

// WorkDir returns the sandbox working directory.
func (s *localSandbox) WorkDir() string {
	return s.workDir
}

// Close removes the working directory and everything in it.
func (s *localSandbox) Close() error {
	slog.Debug("local sandbox destroyed", "id", s.id)
	return os.RemoveAll(s.workDir)
}

func (s *localSandbox) commandEnv() []string {
	env := os.Environ()
	if s.config.PackageIndexURL != "" {
		env = append(env, "PIP_INDEX_URL="+s.config.PackageIndexURL)
	}
	return env
}

// listPNGs returns the names of PNG files directly in the working
// directory, in os.ReadDir's lexical order.
func (s *localSandbox) listPNGs() []string {
	entries, err := os.ReadDir(s.workDir)
	if err != nil {
		return nil
	}
	var pngs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".png") {
			pngs = append(pngs, entry.Name())
		}
	}
	return pngs
}

// execErrorFromStderr derives a structured error from the interpreter's
// stderr. Python tracebacks end with a "Name: value" line; when that
// shape is absent the exit error itself is used.
func execErrorFromStderr(stderr []string, runErr error) *sandbox.ExecError {
	for i := len(stderr) - 1; i >= 0; i-- {
		line := strings.TrimSpace(stderr[i])
		if line == "" {
			continue
		}
		if name, value, ok := strings.Cut(line, ": "); ok && !strings.Contains(name, " ") {
			return &sandbox.ExecError{Name: name, Value: value, Traceback: strings.Join(stderr, "\n")}
		}
		return &sandbox.ExecError{Value: line, Traceback: strings.Join(stderr, "\n")}
	}
	return &sandbox.ExecError{Value: runErr.Error()}
}

// splitLines splits captured output into lines, dropping a single
// trailing newline so an output of "hi\n" yields one line, not two.
func splitLines(out string) []string {
	if out == "" {
		return nil
	}
	out = strings.TrimSuffix(out, "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

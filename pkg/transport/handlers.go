// Package transport exposes the runbox REST API: health, code
// execution, execution with uploaded files, and advanced execution with
// dependency installation and output file retrieval.
package transport

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/runbox-dev/runbox/pkg/api"
	"github.com/runbox-dev/runbox/pkg/config"
	"github.com/runbox-dev/runbox/pkg/executor"
	"github.com/runbox-dev/runbox/pkg/observability"
)

const (
	// maxBodySize bounds JSON request bodies.
	maxBodySize = 10 << 20 // 10 MB

	// maxMultipartMemory bounds the in-memory part of multipart parsing.
	maxMultipartMemory = 32 << 20 // 32 MB

	serviceName = "runbox"
)

// Handler serves the runbox REST API.
type Handler struct {
	exec      *executor.Executor
	config    *config.Config
	startTime time.Time
}

// NewHandler creates a Handler backed by the given executor.
func NewHandler(exec *executor.Executor, cfg *config.Config) *Handler {
	return &Handler{
		exec:      exec,
		config:    cfg,
		startTime: time.Now(),
	}
}

// handleHealth implements GET /health. It always succeeds while the
// process is up.
func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:        "healthy",
		Service:       serviceName,
		Mode:          h.config.Sandbox.Mode,
		PoolSize:      h.config.Sandbox.PoolSize,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	})
}

// handleExecute implements POST /execute.
func (h *Handler) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req api.ExecuteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		writeError(w, api.NewInvalidRequestError("", "invalid request body: "+err.Error()))
		return
	}
	if req.Code == "" {
		writeError(w, api.NewInvalidRequestError("code", "code is required"))
		return
	}

	slog.Info("executing code", "mode", h.config.Sandbox.Mode, "code_len", len(req.Code))

	outcome, err := h.run(r, executor.Request{
		Code:    req.Code,
		Timeout: time.Duration(req.Timeout) * time.Second,
	}, "execute")
	if err != nil {
		writeError(w, api.NewServerError("Sandbox execution failed: "+err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, basicResponse(outcome))
}

// handleExecuteWithFiles implements POST /execute-with-files. The
// multipart form carries a code field, an optional timeout field, and
// any number of file parts named "files"; uploads are written into the
// sandbox working directory before execution.
func (h *Handler) handleExecuteWithFiles(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, api.NewInvalidRequestError("", "invalid multipart form: "+err.Error()))
		return
	}
	defer r.MultipartForm.RemoveAll()

	code := r.FormValue("code")
	if code == "" {
		writeError(w, api.NewInvalidRequestError("code", "code is required"))
		return
	}

	timeout := 0
	if v := r.FormValue("timeout"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, api.NewInvalidRequestError("timeout", "timeout must be an integer"))
			return
		}
		timeout = secs
	}

	uploads, err := readUploads(r.MultipartForm.File["files"])
	if err != nil {
		writeError(w, api.NewInvalidRequestError("files", err.Error()))
		return
	}

	slog.Info("executing code with files", "mode", h.config.Sandbox.Mode, "files", len(uploads))

	outcome, err := h.run(r, executor.Request{
		Code:    code,
		Timeout: time.Duration(timeout) * time.Second,
		Files:   uploads,
	}, "execute-with-files")
	if err != nil {
		writeError(w, api.NewServerError("Sandbox execution failed: "+err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, basicResponse(outcome))
}

// handleExecuteAdvanced implements POST /execute-advanced.
func (h *Handler) handleExecuteAdvanced(w http.ResponseWriter, r *http.Request) {
	var req api.AdvancedExecuteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		writeError(w, api.NewInvalidRequestError("", "invalid request body: "+err.Error()))
		return
	}
	if req.Code == "" {
		writeError(w, api.NewInvalidRequestError("code", "code is required"))
		return
	}

	slog.Info("advanced execution",
		"mode", h.config.Sandbox.Mode,
		"code_len", len(req.Code),
		"dependencies", len(req.Dependencies),
		"output_files", len(req.OutputFiles),
	)

	outcome, err := h.run(r, executor.Request{
		Code:         req.Code,
		Timeout:      time.Duration(req.Timeout) * time.Second,
		Dependencies: req.Dependencies,
		OutputFiles:  req.OutputFiles,
	}, "execute-advanced")
	if err != nil {
		writeError(w, api.NewServerError("Sandbox execution failed: "+err.Error()))
		return
	}

	observability.ArtifactsCollectedTotal.Add(float64(len(outcome.Files)))
	writeJSON(w, http.StatusOK, advancedResponse(outcome))
}

// run invokes the executor and records execution metrics.
func (h *Handler) run(r *http.Request, req executor.Request, endpoint string) (*executor.Outcome, error) {
	observability.ExecutionsActive.Inc()
	defer observability.ExecutionsActive.Dec()

	outcome, err := h.exec.Run(r.Context(), req)

	status := "success"
	switch {
	case err != nil:
		status = "provider_error"
	case !outcome.Success:
		status = "error"
	}
	observability.ExecutionsTotal.WithLabelValues(endpoint, status).Inc()

	if err != nil {
		slog.Error("sandbox execution failed", "endpoint", endpoint, "error", err.Error())
		return nil, err
	}

	slog.Info("execution completed",
		"endpoint", endpoint,
		"success", outcome.Success,
		"plots", len(outcome.Plots),
		"files", len(outcome.Files),
		"duration", outcome.ExecutionTime,
	)
	return outcome, nil
}

// readUploads reads all uploaded file parts into memory.
func readUploads(parts []*multipart.FileHeader) ([]executor.InputFile, error) {
	var uploads []executor.InputFile
	for _, part := range parts {
		f, err := part.Open()
		if err != nil {
			return nil, err
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, executor.InputFile{Name: part.Filename, Content: content})
	}
	return uploads, nil
}

// basicResponse maps an outcome to the /execute response shape.
func basicResponse(outcome *executor.Outcome) api.ExecuteResponse {
	return api.ExecuteResponse{
		Success: outcome.Success,
		Stdout:  outcome.Stdout,
		Stderr:  outcome.Stderr,
		Error:   outcome.Error,
		Plots:   plotResults(outcome.Plots),
	}
}

// advancedResponse maps an outcome to the /execute-advanced response shape.
func advancedResponse(outcome *executor.Outcome) api.AdvancedExecuteResponse {
	files := make([]api.FileResult, 0, len(outcome.Files))
	for _, f := range outcome.Files {
		files = append(files, api.FileResult{Filename: f.Filename, Data: f.Data, Size: f.Size})
	}
	return api.AdvancedExecuteResponse{
		Success:       outcome.Success,
		Stdout:        outcome.Stdout,
		Stderr:        outcome.Stderr,
		Error:         outcome.Error,
		Plots:         plotResults(outcome.Plots),
		Files:         files,
		ExecutionTime: outcome.ExecutionTime.Seconds(),
		InstallOutput: outcome.InstallOutput,
	}
}

func plotResults(plots []executor.Plot) []api.PlotResult {
	out := make([]api.PlotResult, 0, len(plots))
	for _, p := range plots {
		out = append(out, api.PlotResult{Format: p.Format, Data: p.Data})
	}
	return out
}

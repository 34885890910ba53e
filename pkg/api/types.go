// Package api defines the request and response shapes of the runbox
// REST API and its error taxonomy.
package api

// ExecuteRequest is the body for POST /execute.
type ExecuteRequest struct {
	Code    string `json:"code"`
	Timeout int    `json:"timeout,omitempty"` // seconds
}

// AdvancedExecuteRequest is the body for POST /execute-advanced.
type AdvancedExecuteRequest struct {
	Code         string   `json:"code"`
	Timeout      int      `json:"timeout,omitempty"` // seconds
	Dependencies []string `json:"dependencies,omitempty"`
	OutputFiles  []string `json:"output_files,omitempty"`
}

// PlotResult is one rendered plot, base64-encoded.
type PlotResult struct {
	Format string `json:"format"`
	Data   string `json:"data"`
}

// FileResult is one retrieved output file, base64-encoded.
type FileResult struct {
	Filename string `json:"filename"`
	Data     string `json:"data"`
	Size     int    `json:"size"`
}

// ExecuteResponse is the result of POST /execute and
// POST /execute-with-files.
type ExecuteResponse struct {
	Success bool         `json:"success"`
	Stdout  string       `json:"stdout"`
	Stderr  string       `json:"stderr"`
	Error   string       `json:"error,omitempty"`
	Plots   []PlotResult `json:"plots"`
}

// AdvancedExecuteResponse is the result of POST /execute-advanced.
type AdvancedExecuteResponse struct {
	Success       bool         `json:"success"`
	Stdout        string       `json:"stdout"`
	Stderr        string       `json:"stderr"`
	Error         string       `json:"error,omitempty"`
	Plots         []PlotResult `json:"plots"`
	Files         []FileResult `json:"files"`
	ExecutionTime float64      `json:"execution_time"` // seconds
	InstallOutput string       `json:"install_output"`
}

// HealthResponse is the result of GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	Mode          string `json:"mode"`
	PoolSize      int    `json:"pool_size"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

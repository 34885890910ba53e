package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/runbox-dev/runbox/pkg/sandbox"
)

// newTestSandbox acquires a sandbox from a provider pointed at srv.
func newTestSandbox(t *testing.T, srv *httptest.Server) sandbox.Sandbox {
	t.Helper()
	provider := New(&StaticAcquirer{URL: srv.URL}, Config{})
	sb, release, err := provider.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(release)
	return sb
}

func TestRemoteSandbox_RunCode(t *testing.T) {
	tests := []struct {
		name        string
		handler     http.HandlerFunc
		wantErr     bool
		wantStdout  []string
		wantResults int
		wantError   string
	}{
		{
			name: "successful execution with results",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/code" {
					t.Errorf("path = %q, want /code", r.URL.Path)
				}
				json.NewEncoder(w).Encode(codeResponse{
					Stdout: []string{"hi"},
					Results: []codeResult{
						{Type: "image", PNG: "aW1n"},
						{Type: "text", Text: "42"},
						{Type: "unknown"},
					},
				})
			},
			wantStdout:  []string{"hi"},
			wantResults: 3,
		},
		{
			name: "execution error is part of the result",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(codeResponse{
					Stderr: []string{"Traceback ..."},
					Error:  &codeError{Name: "ZeroDivisionError", Value: "division by zero"},
				})
			},
			wantError: "ZeroDivisionError: division by zero",
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"internal"}`))
			},
			wantErr: true,
		},
		{
			name: "at capacity",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			wantErr: true,
		},
		{
			name: "invalid JSON",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{invalid`))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			sb := newTestSandbox(t, srv)
			execution, err := sb.RunCode(context.Background(), "print('hi')")

			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("RunCode: %v", err)
			}

			if len(tt.wantStdout) > 0 && execution.Logs.Stdout[0] != tt.wantStdout[0] {
				t.Errorf("stdout = %v, want %v", execution.Logs.Stdout, tt.wantStdout)
			}
			if tt.wantResults > 0 && len(execution.Results) != tt.wantResults {
				t.Errorf("results = %d, want %d", len(execution.Results), tt.wantResults)
			}
			if tt.wantError != "" {
				if execution.Error == nil || execution.Error.Error() != tt.wantError {
					t.Errorf("error = %v, want %q", execution.Error, tt.wantError)
				}
			}
		})
	}
}

func TestRemoteSandbox_ResultVariants(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(codeResponse{
			Results: []codeResult{
				{Type: "image", PNG: "cGxvdA=="},
				{Type: "text", Text: "echo"},
				{Type: ""},
			},
		})
	}))
	defer srv.Close()

	sb := newTestSandbox(t, srv)
	execution, err := sb.RunCode(context.Background(), "x")
	if err != nil {
		t.Fatalf("RunCode: %v", err)
	}

	want := []sandbox.RichResult{
		{Kind: sandbox.RichImage, PNG: "cGxvdA=="},
		{Kind: sandbox.RichText, Text: "echo"},
		{Kind: sandbox.RichEmpty},
	}
	for i, r := range execution.Results {
		if r != want[i] {
			t.Errorf("result[%d] = %+v, want %+v", i, r, want[i])
		}
	}
}

func TestRemoteSandbox_RunCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/command" {
			t.Errorf("path = %q, want /command", r.URL.Path)
		}
		var req commandRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.TimeoutSeconds != 60 {
			t.Errorf("timeout_seconds = %d, want 60", req.TimeoutSeconds)
		}
		json.NewEncoder(w).Encode(commandResponse{Stdout: "done", ExitCode: 0})
	}))
	defer srv.Close()

	sb := newTestSandbox(t, srv)
	result, err := sb.RunCommand(context.Background(), "pip install -q pandas", 60*time.Second)
	if err != nil {
		t.Fatalf("RunCommand: %v", err)
	}
	if result.Stdout != "done" || result.ExitCode != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestRemoteSandbox_Files(t *testing.T) {
	stored := map[string][]byte{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut:
			content, _ := io.ReadAll(r.Body)
			stored[r.URL.Path] = content
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodGet:
			path := r.URL.Query().Get("path")
			if path != "/home/user/out.csv" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write([]byte("a,b\n"))
		}
	}))
	defer srv.Close()

	sb := newTestSandbox(t, srv)

	if err := sb.WriteFile(context.Background(), "data.csv", []byte("x,y\n")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if string(stored["/files/data.csv"]) != "x,y\n" {
		t.Errorf("stored = %q, want %q", stored["/files/data.csv"], "x,y\n")
	}

	content, err := sb.ReadFile(context.Background(), "/home/user/out.csv")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(content) != "a,b\n" {
		t.Errorf("content = %q, want %q", content, "a,b\n")
	}

	if _, err := sb.ReadFile(context.Background(), "/home/user/missing.csv"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRemoteSandbox_WorkDirDefault(t *testing.T) {
	provider := New(&StaticAcquirer{URL: "http://example.invalid"}, Config{})
	sb, release, err := provider.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()

	if sb.WorkDir() != "/home/user" {
		t.Errorf("workdir = %q, want /home/user", sb.WorkDir())
	}
}

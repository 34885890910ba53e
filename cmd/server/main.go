// Command server runs the runbox code execution service.
//
// Configuration via config file (config.yaml) or environment variables:
//
//	RUNBOX_MODE               - Sandbox mode: local or remote (default: local)
//	RUNBOX_PORT               - Listen port (default: 8001)
//	RUNBOX_POOL_SIZE          - Max concurrent sandboxes (default: 3)
//	RUNBOX_EXECUTION_TIMEOUT  - Code execution ceiling in ms (default: 30000)
//	RUNBOX_RATE_LIMIT_PER_MIN - Requests per client per minute (default: 20)
//	RUNBOX_SANDBOX_URL        - Static sandbox server URL (remote mode)
//	RUNBOX_SANDBOX_TEMPLATE   - SandboxTemplate CRD name (remote mode)
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/runbox-dev/runbox/pkg/config"
	"github.com/runbox-dev/runbox/pkg/executor"
	"github.com/runbox-dev/runbox/pkg/observability"
	"github.com/runbox-dev/runbox/pkg/sandbox"
	"github.com/runbox-dev/runbox/pkg/sandbox/kubernetes"
	"github.com/runbox-dev/runbox/pkg/sandbox/local"
	"github.com/runbox-dev/runbox/pkg/sandbox/remote"
	"github.com/runbox-dev/runbox/pkg/transport"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}
	provider = observability.InstrumentProvider(provider, cfg.Sandbox.Mode)
	pool := sandbox.NewPool(provider, cfg.Sandbox.PoolSize)

	exec := executor.New(pool, cfg.ExecutionTimeout())
	handler := transport.NewHandler(exec, cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler.Router(logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting",
			"port", cfg.Server.Port,
			"mode", cfg.Sandbox.Mode,
			"pool_size", cfg.Sandbox.PoolSize,
			"execution_timeout", cfg.ExecutionTimeout(),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// buildProvider constructs the sandbox provider for the configured mode.
func buildProvider(cfg *config.Config) (sandbox.Provider, error) {
	switch cfg.Sandbox.Mode {
	case config.ModeLocal:
		return local.New(local.Config{
			PythonBin:       cfg.Sandbox.Local.PythonBin,
			PackageIndexURL: cfg.Sandbox.Local.PackageIndexURL,
		}), nil

	case config.ModeRemote:
		acquirer, err := buildAcquirer(cfg)
		if err != nil {
			return nil, err
		}
		return remote.New(acquirer, remote.Config{
			WorkDir:        cfg.Sandbox.Remote.WorkDir,
			DefaultTimeout: cfg.ExecutionTimeout(),
		}), nil

	default:
		return nil, fmt.Errorf("unsupported sandbox mode %q", cfg.Sandbox.Mode)
	}
}

// buildAcquirer selects static URL or claim-based sandbox acquisition.
func buildAcquirer(cfg *config.Config) (remote.Acquirer, error) {
	if cfg.Sandbox.Remote.URL != "" {
		return &remote.StaticAcquirer{URL: cfg.Sandbox.Remote.URL}, nil
	}

	scheme, err := kubernetes.NewScheme()
	if err != nil {
		return nil, err
	}
	restConfig, err := ctrl.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("kubernetes config: %w", err)
	}
	k8sClient, err := client.New(restConfig, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("kubernetes client: %w", err)
	}

	claimTimeout := time.Duration(cfg.Sandbox.Remote.ClaimTimeoutSeconds) * time.Second
	return kubernetes.NewClaimAcquirer(
		k8sClient,
		cfg.Sandbox.Remote.Template,
		cfg.Sandbox.Remote.Namespace,
		claimTimeout,
	), nil
}

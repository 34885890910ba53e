package sandbox

import (
	"context"
	"testing"
	"time"
)

// nopSandbox is a minimal Sandbox for pool tests.
type nopSandbox struct{}

func (nopSandbox) RunCode(context.Context, string) (*Execution, error) { return &Execution{}, nil }
func (nopSandbox) RunCommand(context.Context, string, time.Duration) (*CommandResult, error) {
	return &CommandResult{}, nil
}
func (nopSandbox) WriteFile(context.Context, string, []byte) error { return nil }
func (nopSandbox) ReadFile(context.Context, string) ([]byte, error) { return nil, nil }
func (nopSandbox) WorkDir() string                                 { return "/tmp" }
func (nopSandbox) Close() error                                    { return nil }

type countingProvider struct {
	acquired int
}

func (p *countingProvider) Acquire(context.Context) (Sandbox, func(), error) {
	p.acquired++
	return nopSandbox{}, func() {}, nil
}

func TestPool_BoundsConcurrency(t *testing.T) {
	pool := NewPool(&countingProvider{}, 2)

	_, release1, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	_, release2, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}

	// Third acquisition must block until a slot frees.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, _, err := pool.Acquire(ctx); err == nil {
		t.Fatal("third acquire succeeded, want block until release")
	}

	release1()

	_, release3, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	release2()
	release3()
}

func TestPool_UnboundedWhenSizeZero(t *testing.T) {
	provider := &countingProvider{}
	pool := NewPool(provider, 0)

	for i := 0; i < 10; i++ {
		if _, _, err := pool.Acquire(context.Background()); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	if provider.acquired != 10 {
		t.Errorf("acquired = %d, want 10", provider.acquired)
	}
}

func TestPool_ContextCancelledWhileWaiting(t *testing.T) {
	pool := NewPool(&countingProvider{}, 1)

	_, release, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := pool.Acquire(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}

package observability

import (
	"context"

	"github.com/runbox-dev/runbox/pkg/sandbox"
)

// InstrumentProvider wraps a sandbox.Provider so that every acquisition
// is counted in runbox_sandbox_acquisitions_total, labeled with the
// provider mode and the outcome.
func InstrumentProvider(inner sandbox.Provider, mode string) sandbox.Provider {
	return &instrumentedProvider{inner: inner, mode: mode}
}

type instrumentedProvider struct {
	inner sandbox.Provider
	mode  string
}

func (p *instrumentedProvider) Acquire(ctx context.Context) (sandbox.Sandbox, func(), error) {
	sb, release, err := p.inner.Acquire(ctx)
	if err != nil {
		SandboxAcquisitionsTotal.WithLabelValues(p.mode, "error").Inc()
		return nil, nil, err
	}
	SandboxAcquisitionsTotal.WithLabelValues(p.mode, "success").Inc()
	return sb, release, nil
}

package host

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Iron-Ham/svcbind/internal/binding"
	"github.com/Iron-Ham/svcbind/internal/errors"
)

// ErrHostUnavailable is returned by StaticProvider while it is unavailable.
var ErrHostUnavailable = errors.New("host context not available")

// Handle is a named repository or metastore handle.
type Handle string

// Name implements binding.Repository and binding.MetaStore.
func (h Handle) Name() string { return string(h) }

// StaticProvider is a binding.ContextProvider backed by fixed handles.
type StaticProvider struct {
	mu        sync.RWMutex
	hc        binding.HostContext
	available atomic.Bool
	calls     atomic.Int64
}

var _ binding.ContextProvider = (*StaticProvider)(nil)

// NewStaticProvider creates an available provider. An empty name leaves the
// corresponding handle nil.
func NewStaticProvider(repository, metastore string) *StaticProvider {
	p := &StaticProvider{}
	p.SetContext(repository, metastore)
	p.available.Store(true)
	return p
}

// Context returns the current handles, or ErrHostUnavailable.
func (p *StaticProvider) Context(ctx context.Context) (binding.HostContext, error) {
	p.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return binding.HostContext{}, err
	}
	if !p.available.Load() {
		return binding.HostContext{}, ErrHostUnavailable
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.hc, nil
}

// SetContext replaces the handles returned by later calls.
func (p *StaticProvider) SetContext(repository, metastore string) {
	var hc binding.HostContext
	if repository != "" {
		hc.Repository = Handle(repository)
	}
	if metastore != "" {
		hc.MetaStore = Handle(metastore)
	}
	p.mu.Lock()
	p.hc = hc
	p.mu.Unlock()
}

// SetAvailable toggles whether Context succeeds.
func (p *StaticProvider) SetAvailable(available bool) {
	p.available.Store(available)
}

// Available reports whether Context currently succeeds.
func (p *StaticProvider) Available() bool {
	return p.available.Load()
}

// Calls returns how many times Context has been called.
func (p *StaticProvider) Calls() int64 {
	return p.calls.Load()
}

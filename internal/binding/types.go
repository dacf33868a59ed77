package binding

import "context"

// Repository is the host's repository handle. The coordinator treats it as
// opaque and only passes it through to the bound client service.
type Repository interface {
	Name() string
}

// MetaStore is the host's metadata/session store handle.
type MetaStore interface {
	Name() string
}

// HostContext is the repository/metastore pair attached to a client service
// before it is published. Either handle may be nil when the host has none.
type HostContext struct {
	Repository Repository
	MetaStore  MetaStore
}

// RepositoryName returns the repository name, or "" when there is none.
func (hc HostContext) RepositoryName() string {
	if hc.Repository == nil {
		return ""
	}
	return hc.Repository.Name()
}

// MetaStoreName returns the metastore name, or "" when there is none.
func (hc HostContext) MetaStoreName() string {
	if hc.MetaStore == nil {
		return ""
	}
	return hc.MetaStore.Name()
}

// ContextProvider supplies the host's current repository/metastore context
// on demand. It is consulted at every start and at every bind while started,
// never while the coordinator holds its lock, so an implementation may read
// the coordinator's State or Snapshot. It must not call Bind, Unbind,
// OnStart or OnExit.
type ContextProvider interface {
	Context(ctx context.Context) (HostContext, error)
}

// ContextProviderFunc adapts a function to a ContextProvider.
type ContextProviderFunc func(ctx context.Context) (HostContext, error)

// Context calls f(ctx).
func (f ContextProviderFunc) Context(ctx context.Context) (HostContext, error) {
	return f(ctx)
}

// ClientService is a client service implementation that can serve local
// connections once the host context has been attached to it.
type ClientService interface {
	// ID identifies the service instance in logs and events.
	ID() string

	// SetRepository attaches the host repository.
	SetRepository(repo Repository)

	// SetMetaStore attaches the host metastore.
	SetMetaStore(store MetaStore)
}

// serviceID returns svc.ID(), or "" for a nil service.
func serviceID(svc ClientService) string {
	if svc == nil {
		return ""
	}
	return svc.ID()
}

package binding

import (
	"sync/atomic"
	"time"
)

// Publication is one write to the slot.
type Publication struct {
	// Service is the published client service, or nil when cleared.
	Service ClientService

	// Context is the host context attached to Service before publication.
	Context HostContext

	// Generation counts slot writes. It strictly increases.
	Generation uint64

	// PublishedAt is when the write happened. Zero before the first write.
	PublishedAt time.Time
}

// Slot is the shared cell holding the client service usable for local
// connections. Only the owning Coordinator writes it; any goroutine may read.
type Slot struct {
	current atomic.Pointer[Publication]
}

func newSlot() *Slot {
	s := &Slot{}
	s.current.Store(&Publication{})
	return s
}

// Load returns the published client service, or nil when none is published.
func (s *Slot) Load() ClientService {
	return s.current.Load().Service
}

// Snapshot returns the latest publication.
func (s *Slot) Snapshot() Publication {
	return *s.current.Load()
}

// Generation returns the number of writes so far.
func (s *Slot) Generation() uint64 {
	return s.current.Load().Generation
}

// store replaces the publication. Callers must hold the coordinator lock so
// generations are assigned in write order.
func (s *Slot) store(svc ClientService, hc HostContext, now time.Time) Publication {
	p := &Publication{
		Service:     svc,
		Context:     hc,
		Generation:  s.current.Load().Generation + 1,
		PublishedAt: now,
	}
	if svc == nil {
		p.Context = HostContext{}
	}
	s.current.Store(p)
	return *p
}

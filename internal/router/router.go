// Package router decides whether a connection is served by the locally
// published client service or sent to the remote backend.
package router

import (
	"net"
	"strings"

	"github.com/gobwas/glob"

	"github.com/Iron-Ham/svcbind/internal/binding"
	"github.com/Iron-Ham/svcbind/internal/errors"
	"github.com/Iron-Ham/svcbind/internal/logging"
)

// Target is where a connection is sent.
type Target string

const (
	TargetLocal  Target = "local"
	TargetRemote Target = "remote"
)

// Fallback is what happens to a local host while no service is published.
type Fallback string

const (
	FallbackRemote Fallback = "remote"
	FallbackFail   Fallback = "fail"
)

// ParseFallback converts a config value into a Fallback.
func ParseFallback(s string) (Fallback, error) {
	switch Fallback(strings.ToLower(strings.TrimSpace(s))) {
	case FallbackRemote:
		return FallbackRemote, nil
	case FallbackFail:
		return FallbackFail, nil
	}
	return "", errors.NewValidationError("unknown router fallback").WithField("fallback").WithValue(s)
}

// Decision is the outcome of routing one host.
type Decision struct {
	Host   string
	Target Target

	// Service is the published client for local decisions.
	Service binding.ClientService
	// Endpoint is Service's endpoint when it has one.
	Endpoint string
	// Generation is the slot generation the decision was read from.
	Generation uint64
	// Fallback is true when a local host was sent remote because no
	// service was published.
	Fallback bool
}

// Observer is notified of every routing outcome. A failed route is reported
// with an empty target.
type Observer interface {
	ObserveRoute(target Target)
}

// Router routes hosts against the coordinator's published slot.
type Router struct {
	slot     *binding.Slot
	patterns []glob.Glob
	raw      []string
	fallback Fallback

	logger   *logging.Logger
	observer Observer
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithObserver sets the routing observer.
func WithObserver(o Observer) Option {
	return func(r *Router) { r.observer = o }
}

// New creates a Router. localHosts are glob patterns where '.' separates
// segments, so "*.local" matches "db.local" but not "a.b.local".
func New(slot *binding.Slot, localHosts []string, fallback Fallback, opts ...Option) (*Router, error) {
	if slot == nil {
		return nil, errors.NewValidationError("slot is required").WithField("slot")
	}
	if fallback != FallbackRemote && fallback != FallbackFail {
		return nil, errors.NewValidationError("unknown router fallback").WithField("fallback").WithValue(string(fallback))
	}

	r := &Router{
		slot:     slot,
		fallback: fallback,
		logger:   logging.NopLogger(),
	}
	for _, p := range localHosts {
		g, err := glob.Compile(strings.ToLower(p), '.')
		if err != nil {
			return nil, errors.NewValidationError("invalid local host pattern").
				WithField("local_hosts").WithValue(p).WithCause(err)
		}
		r.patterns = append(r.patterns, g)
		r.raw = append(r.raw, p)
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("router")
	return r, nil
}

// Patterns returns the configured local host patterns.
func (r *Router) Patterns() []string {
	out := make([]string, len(r.raw))
	copy(out, r.raw)
	return out
}

// IsLocal reports whether host matches a local host pattern. A port, if
// present, is ignored.
func (r *Router) IsLocal(host string) bool {
	h := normalizeHost(host)
	for _, g := range r.patterns {
		if g.Match(h) {
			return true
		}
	}
	return false
}

// Route decides where a connection to host goes. It reads the slot once
// and never blocks on the coordinator. When host is local and nothing is
// published, FallbackFail yields a *errors.RoutingError wrapping
// errors.ErrNoLocalService.
func (r *Router) Route(host string) (Decision, error) {
	if strings.TrimSpace(host) == "" {
		r.observe("")
		return Decision{}, errors.NewValidationError("host is required").WithField("host")
	}

	d := Decision{Host: host, Target: TargetRemote}
	if !r.IsLocal(host) {
		r.observe(d.Target)
		return d, nil
	}

	pub := r.slot.Snapshot()
	d.Generation = pub.Generation
	if pub.Service != nil {
		d.Target = TargetLocal
		d.Service = pub.Service
		if ep, ok := pub.Service.(interface{ Endpoint() string }); ok {
			d.Endpoint = ep.Endpoint()
		}
		r.logger.Debug("routed locally", "host", host, "service_id", pub.Service.ID(), "generation", pub.Generation)
		r.observe(d.Target)
		return d, nil
	}

	if r.fallback == FallbackFail {
		r.logger.Warn("no local service for local host", "host", host, "generation", pub.Generation)
		r.observe("")
		return Decision{}, errors.NewRoutingError("no local service published", errors.ErrNoLocalService).WithHost(host)
	}

	d.Fallback = true
	r.logger.Debug("no local service, routing remote", "host", host, "generation", pub.Generation)
	r.observe(d.Target)
	return d, nil
}

func (r *Router) observe(t Target) {
	if r.observer != nil {
		r.observer.ObserveRoute(t)
	}
}

func normalizeHost(host string) string {
	h := strings.TrimSpace(host)
	if strings.Contains(h, ":") {
		if hostOnly, _, err := net.SplitHostPort(h); err == nil {
			h = hostOnly
		}
	}
	return strings.ToLower(strings.TrimSuffix(h, "."))
}

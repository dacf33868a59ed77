// Package internal contains integration tests that verify the packages work
// together: the registry feeding the coordinator, the host dispatcher driving
// its lifecycle, the router reading the published slot, and the metrics
// collector following the event bus.
package internal

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/svcbind/internal/binding"
	"github.com/Iron-Ham/svcbind/internal/event"
	"github.com/Iron-Ham/svcbind/internal/host"
	"github.com/Iron-Ham/svcbind/internal/logging"
	"github.com/Iron-Ham/svcbind/internal/metrics"
	"github.com/Iron-Ham/svcbind/internal/registry"
	"github.com/Iron-Ham/svcbind/internal/router"
	"github.com/Iron-Ham/svcbind/internal/service"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type pipeline struct {
	bus        *event.Bus
	collector  *metrics.Collector
	provider   *host.StaticProvider
	coord      *binding.Coordinator
	dispatcher *host.Dispatcher
	registry   *registry.Registry
	router     *router.Router
}

func newPipeline(t *testing.T, dir string) *pipeline {
	t.Helper()

	logger := logging.NopLogger()
	p := &pipeline{
		bus:       event.NewBus(logger),
		collector: metrics.NewCollector(),
		provider:  host.NewStaticProvider("repo-1", "meta-1"),
	}
	p.collector.Subscribe(p.bus)
	t.Cleanup(p.collector.Unsubscribe)

	coord, err := binding.New(p.provider, binding.WithLogger(logger), binding.WithBus(p.bus))
	if err != nil {
		t.Fatalf("binding.New() error = %v", err)
	}
	p.coord = coord

	p.dispatcher = host.NewDispatcher(logger)
	if err := p.dispatcher.Register("binding", coord); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	p.router, err = router.New(coord.Slot(), []string{"localhost", "*.local"}, router.FallbackRemote,
		router.WithObserver(p.collector))
	if err != nil {
		t.Fatalf("router.New() error = %v", err)
	}

	p.registry, err = registry.New(dir, coord,
		registry.WithLogger(logger),
		registry.WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("registry.New() error = %v", err)
	}
	t.Cleanup(p.registry.Stop)

	return p
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func publishedID(c *binding.Coordinator) string {
	return c.Snapshot().PublishedID
}

// TestServiceLifecycleIntegration walks a descriptor through the whole
// pipeline: discovered while the host is down, published on start, replaced
// on a new descriptor, withdrawn on exit.
func TestServiceLifecycleIntegration(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "orders.yaml"),
		[]byte("id: orders\nendpoint: 127.0.0.1:7001\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := newPipeline(t, dir)
	if err := p.registry.Start(); err != nil {
		t.Fatalf("registry.Start() error = %v", err)
	}

	// Bound but not started: nothing visible to local connections.
	if got := p.coord.State(); got != binding.StateBound {
		t.Fatalf("State() = %v, want %v", got, binding.StateBound)
	}
	d, err := p.router.Route("localhost")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if d.Target != router.TargetRemote || !d.Fallback {
		t.Errorf("Route() before start = %+v, want remote fallback", d)
	}

	ctx := context.Background()
	if err := p.dispatcher.Start(ctx); err != nil {
		t.Fatalf("dispatcher.Start() error = %v", err)
	}
	if got := publishedID(p.coord); got != "orders" {
		t.Fatalf("published = %q, want orders", got)
	}
	d, err = p.router.Route("orders.local:443")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if d.Target != router.TargetLocal || d.Endpoint != "127.0.0.1:7001" {
		t.Errorf("Route() after start = %+v, want local 127.0.0.1:7001", d)
	}

	// A new descriptor replaces the binding while the host runs.
	if err := os.WriteFile(filepath.Join(dir, "billing.yaml"),
		[]byte("id: billing\nendpoint: 127.0.0.1:7002\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "billing published", func() bool { return publishedID(p.coord) == "billing" })

	pub := p.coord.Slot().Snapshot()
	if pub.Context.RepositoryName() != "repo-1" || pub.Context.MetaStoreName() != "meta-1" {
		t.Errorf("publication context = %q/%q, want repo-1/meta-1",
			pub.Context.RepositoryName(), pub.Context.MetaStoreName())
	}

	p.dispatcher.Exit()
	if got := publishedID(p.coord); got != "" {
		t.Errorf("published after exit = %q, want none", got)
	}
	if got := testutil.ToFloat64(p.collector.SlotActive); got != 0 {
		t.Errorf("svcbind_slot_active = %v, want 0", got)
	}
	// A burst of writes to billing.yaml may rebind it more than once
	if got := testutil.ToFloat64(p.collector.TransitionsTotal.WithLabelValues(metrics.OpBind)); got < 2 {
		t.Errorf("bind transitions = %v, want at least 2", got)
	}
	if got := testutil.ToFloat64(p.collector.RouteDecisionsTotal.WithLabelValues(string(router.TargetLocal))); got != 1 {
		t.Errorf("local route decisions = %v, want 1", got)
	}
}

// TestHostOutageIntegration verifies that a failed start keeps the slot
// empty and that a retry publishes once the host comes back.
func TestHostOutageIntegration(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "orders.yaml"), []byte("id: orders\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := newPipeline(t, dir)
	if err := p.registry.Scan(); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	ctx := context.Background()
	p.provider.SetAvailable(false)
	if err := p.dispatcher.Start(ctx); err == nil {
		t.Fatal("expected start failure while host is unavailable")
	}
	if got := publishedID(p.coord); got != "" {
		t.Fatalf("published during outage = %q, want none", got)
	}
	if got := testutil.ToFloat64(p.collector.StartFailuresTotal); got != 1 {
		t.Errorf("start failures = %v, want 1", got)
	}

	p.provider.SetAvailable(true)
	if err := p.dispatcher.Retry(ctx); err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if got := publishedID(p.coord); got != "orders" {
		t.Errorf("published after retry = %q, want orders", got)
	}
}

// TestConcurrentRoutingIntegration routes from many goroutines while the
// host starts and exits, checking that every local decision carries a
// service that was bound with host context.
func TestConcurrentRoutingIntegration(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "orders.yaml"), []byte("id: orders\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := newPipeline(t, dir)
	if err := p.registry.Scan(); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	var mu sync.Mutex
	var lastGen uint64
	id := p.bus.Subscribe(event.TypeSlotChanged, func(e event.Event) {
		sc := e.(event.SlotChangedEvent)
		mu.Lock()
		if sc.Generation > lastGen {
			lastGen = sc.Generation
		}
		mu.Unlock()
	})
	t.Cleanup(func() { p.bus.Unsubscribe(id) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				d, err := p.router.Route("localhost")
				if err != nil {
					errs <- err.Error()
					return
				}
				if d.Target != router.TargetLocal {
					continue
				}
				client, ok := d.Service.(*service.Client)
				if !ok || !client.Attached() {
					errs <- "local decision without attached service"
					return
				}
			}
		}()
	}

	for range 50 {
		_ = p.dispatcher.Start(ctx)
		p.dispatcher.Exit()
	}
	cancel()
	wg.Wait()
	close(errs)

	for e := range errs {
		t.Error(e)
	}

	mu.Lock()
	defer mu.Unlock()
	if lastGen != p.coord.Slot().Generation() {
		t.Errorf("last observed generation = %d, want %d", lastGen, p.coord.Slot().Generation())
	}
}

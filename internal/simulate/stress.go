package simulate

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/Iron-Ham/svcbind/internal/binding"
	"github.com/Iron-Ham/svcbind/internal/errors"
	"github.com/Iron-Ham/svcbind/internal/service"
)

// StressConfig controls a stress run.
type StressConfig struct {
	Workers    int    // Goroutines issuing operations
	Iterations int    // Operations per worker
	Services   int    // Distinct services workers bind
	Seed       uint64 // Seed for the per-worker generators
}

// DefaultStressConfig returns a moderate stress configuration.
func DefaultStressConfig() StressConfig {
	return StressConfig{Workers: 8, Iterations: 500, Services: 3, Seed: 1}
}

// Validate checks the configuration.
func (c StressConfig) Validate() error {
	switch {
	case c.Workers < 1:
		return errors.NewValidationError("workers must be at least 1").WithField("workers").WithValue(c.Workers)
	case c.Iterations < 1:
		return errors.NewValidationError("iterations must be at least 1").WithField("iterations").WithValue(c.Iterations)
	case c.Services < 1:
		return errors.NewValidationError("services must be at least 1").WithField("services").WithValue(c.Services)
	}
	return nil
}

// StressResult summarizes a stress run.
type StressResult struct {
	Ops        int64
	Reads      int64
	Violations int64 // Published services observed without host context
	Final      binding.Snapshot
	Consistent bool // Final slot matches the publish rule for the final state
	Duration   time.Duration
}

// Stress runs random bind, unbind, start and exit operations from many
// goroutines against one coordinator while readers check every published
// service. Operations are weighted toward start/exit pairs so the host
// flaps while services change.
func Stress(ctx context.Context, cfg StressConfig, opts ...Option) (StressResult, error) {
	if err := cfg.Validate(); err != nil {
		return StressResult{}, err
	}

	h, err := newHarness(HostSpec{Repository: "stress-repo", MetaStore: "stress-meta"}, buildConfig(opts))
	if err != nil {
		return StressResult{}, err
	}

	ids := make([]string, cfg.Services)
	for i := range ids {
		ids[i] = fmt.Sprintf("svc-%d", i)
	}
	// Every bind uses a new client so a client attached by an earlier
	// publication cannot hide a missing attach.
	newClient := func(rng *rand.Rand) *service.Client {
		c, _ := service.New(ids[rng.IntN(len(ids))], "", "") // ids are never blank
		return c
	}

	var ops, reads, violations atomic.Int64
	begin := time.Now()

	var wg conc.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		rng := rand.New(rand.NewPCG(cfg.Seed, uint64(w)))
		wg.Go(func() {
			for i := 0; i < cfg.Iterations; i++ {
				if ctx.Err() != nil {
					return
				}
				switch n := rng.IntN(10); {
				case n < 3:
					h.coord.Bind(newClient(rng))
				case n < 5:
					h.coord.Unbind(newClient(rng))
				case n < 7:
					_ = h.coord.OnStart(ctx)
				case n < 9:
					h.coord.OnExit()
				default:
					reads.Add(1)
					if unattached(h.coord.Slot().Snapshot()) {
						violations.Add(1)
					}
				}
				ops.Add(1)
			}
		})
	}

	if r := wg.WaitAndRecover(); r != nil {
		return StressResult{}, r.AsError()
	}

	final := h.coord.Snapshot()
	res := StressResult{
		Ops:        ops.Load(),
		Reads:      reads.Load(),
		Violations: violations.Load(),
		Final:      final,
		Consistent: consistent(final),
		Duration:   time.Since(begin),
	}
	return res, ctx.Err()
}

// unattached reports whether pub publishes a service without a complete
// host context, either in the publication itself or on the client.
func unattached(pub binding.Publication) bool {
	if pub.Service == nil {
		return false
	}
	if pub.Context.Repository == nil || pub.Context.MetaStore == nil {
		return true
	}
	if c, ok := pub.Service.(*service.Client); ok && !c.Attached() {
		return true
	}
	return false
}

// consistent checks the publish rule on a quiescent snapshot: the slot holds
// the bound service exactly when started and bound.
func consistent(s binding.Snapshot) bool {
	if s.State.Publishes() {
		return s.PublishedID != "" && s.PublishedID == s.BoundID
	}
	return s.PublishedID == ""
}

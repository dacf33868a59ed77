package simulate

import (
	"context"
	"testing"

	"github.com/Iron-Ham/svcbind/internal/binding"
	"github.com/Iron-Ham/svcbind/internal/errors"
	"github.com/Iron-Ham/svcbind/internal/host"
	"github.com/Iron-Ham/svcbind/internal/service"
)

func TestStressConfig_Validate(t *testing.T) {
	if err := DefaultStressConfig().Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	tests := []struct {
		name string
		cfg  StressConfig
	}{
		{"no workers", StressConfig{Workers: 0, Iterations: 1, Services: 1}},
		{"no iterations", StressConfig{Workers: 1, Iterations: 0, Services: 1}},
		{"no services", StressConfig{Workers: 1, Iterations: 1, Services: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("Validate() = %v, want validation error", err)
			}
		})
	}
}

func TestStress(t *testing.T) {
	cfg := StressConfig{Workers: 8, Iterations: 300, Services: 3, Seed: 7}

	res, err := Stress(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Stress() error = %v", err)
	}
	if res.Ops != int64(cfg.Workers*cfg.Iterations) {
		t.Errorf("Ops = %d, want %d", res.Ops, cfg.Workers*cfg.Iterations)
	}
	if res.Violations != 0 {
		t.Errorf("Violations = %d, want 0", res.Violations)
	}
	if !res.Consistent {
		t.Errorf("final snapshot %+v breaks the publish rule", res.Final)
	}
}

func TestStress_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Stress(ctx, DefaultStressConfig())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Stress() error = %v, want context.Canceled", err)
	}
	if res.Ops != 0 {
		t.Errorf("Ops = %d, want 0", res.Ops)
	}
}

func TestUnattached(t *testing.T) {
	full := binding.HostContext{Repository: host.Handle("repo"), MetaStore: host.Handle("meta")}

	newClient := func(attach bool) *service.Client {
		c, err := service.New("svc-a", "", "")
		if err != nil {
			t.Fatal(err)
		}
		if attach {
			c.SetRepository(full.Repository)
			c.SetMetaStore(full.MetaStore)
		}
		return c
	}

	tests := []struct {
		name string
		pub  binding.Publication
		want bool
	}{
		{"empty slot", binding.Publication{}, false},
		{"attached with context", binding.Publication{Service: newClient(true), Context: full}, false},
		{"client never attached", binding.Publication{Service: newClient(false), Context: full}, true},
		{"missing metastore", binding.Publication{
			Service: newClient(true),
			Context: binding.HostContext{Repository: full.Repository},
		}, true},
		{"missing context", binding.Publication{Service: newClient(true)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := unattached(tt.pub); got != tt.want {
				t.Errorf("unattached() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConsistent(t *testing.T) {
	tests := []struct {
		name string
		snap binding.Snapshot
		want bool
	}{
		{"idle empty", binding.Snapshot{State: binding.StateIdle}, true},
		{"bound empty", binding.Snapshot{State: binding.StateBound, BoundID: "a"}, true},
		{"bound published", binding.Snapshot{State: binding.StateBound, BoundID: "a", PublishedID: "a"}, false},
		{"active published", binding.Snapshot{State: binding.StateActive, BoundID: "a", PublishedID: "a"}, true},
		{"active empty", binding.Snapshot{State: binding.StateActive, BoundID: "a"}, false},
		{"active other", binding.Snapshot{State: binding.StateActive, BoundID: "a", PublishedID: "b"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := consistent(tt.snap); got != tt.want {
				t.Errorf("consistent() = %v, want %v", got, tt.want)
			}
		})
	}
}

package service

import (
	"context"
	"sync"
	"testing"

	"github.com/Iron-Ham/svcbind/internal/binding"
	"github.com/Iron-Ham/svcbind/internal/errors"
)

type handle string

func (h handle) Name() string { return string(h) }

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		svcName  string
		wantName string
		wantErr  bool
	}{
		{"id and name", "svc-1", "Orders", "Orders", false},
		{"name defaults to id", "svc-1", "", "svc-1", false},
		{"id trimmed", "  svc-1 ", "", "svc-1", false},
		{"empty id", "", "Orders", "", true},
		{"blank id", "   ", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.id, tt.svcName, "127.0.0.1:7000")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, errors.ErrInvalidInput) {
					t.Errorf("error %v should match ErrInvalidInput", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if c.ID() != "svc-1" {
				t.Errorf("ID() = %q, want svc-1", c.ID())
			}
			if c.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", c.Name(), tt.wantName)
			}
			if c.Endpoint() != "127.0.0.1:7000" {
				t.Errorf("Endpoint() = %q", c.Endpoint())
			}
		})
	}
}

func TestClient_Attach(t *testing.T) {
	c, err := New("svc-1", "", "")
	if err != nil {
		t.Fatal(err)
	}

	if c.Attached() {
		t.Error("new client should not be attached")
	}

	c.SetRepository(handle("repo"))
	if c.Attached() {
		t.Error("client with only a repository should not be attached")
	}

	c.SetMetaStore(handle("meta"))
	if !c.Attached() {
		t.Error("client should be attached after both handles are set")
	}
	if c.Repository().Name() != "repo" || c.MetaStore().Name() != "meta" {
		t.Errorf("handles = %v/%v", c.Repository(), c.MetaStore())
	}

	c.SetRepository(nil)
	if c.Attached() {
		t.Error("clearing the repository should detach the client")
	}
}

func TestClient_String(t *testing.T) {
	c, _ := New("svc-1", "Orders", "")
	if got := c.String(); got != "Orders (svc-1)" {
		t.Errorf("String() = %q", got)
	}

	c, _ = New("svc-1", "Orders", "127.0.0.1:7000")
	if got := c.String(); got != "Orders (svc-1) at 127.0.0.1:7000" {
		t.Errorf("String() = %q", got)
	}
}

func TestClient_BoundByCoordinator(t *testing.T) {
	provider := binding.ContextProviderFunc(func(context.Context) (binding.HostContext, error) {
		return binding.HostContext{Repository: handle("repo"), MetaStore: handle("meta")}, nil
	})
	coord, err := binding.New(provider)
	if err != nil {
		t.Fatal(err)
	}

	c, _ := New("svc-1", "", "")
	coord.Bind(c)
	if c.Attached() {
		t.Error("bind before start should not attach context")
	}

	if err := coord.OnStart(t.Context()); err != nil {
		t.Fatalf("OnStart() error = %v", err)
	}
	if !c.Attached() {
		t.Error("client should be attached once published")
	}
	if coord.Slot().Load() != c {
		t.Error("slot should publish the client")
	}
}

func TestClient_ConcurrentAccess(t *testing.T) {
	c, _ := New("svc-1", "", "")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.SetRepository(handle("repo"))
				c.SetMetaStore(handle("meta"))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = c.Attached()
				_ = c.Repository()
			}
		}()
	}
	wg.Wait()

	if !c.Attached() {
		t.Error("client should end attached")
	}
}

package host

import (
	"context"
	"testing"

	"github.com/Iron-Ham/svcbind/internal/errors"
)

func TestStaticProvider_Context(t *testing.T) {
	p := NewStaticProvider("repo", "meta")

	hc, err := p.Context(context.Background())
	if err != nil {
		t.Fatalf("Context() error = %v", err)
	}
	if hc.RepositoryName() != "repo" || hc.MetaStoreName() != "meta" {
		t.Errorf("Context() = %s/%s, want repo/meta", hc.RepositoryName(), hc.MetaStoreName())
	}
	if p.Calls() != 1 {
		t.Errorf("Calls() = %d, want 1", p.Calls())
	}
}

func TestStaticProvider_EmptyNames(t *testing.T) {
	p := NewStaticProvider("", "")

	hc, err := p.Context(context.Background())
	if err != nil {
		t.Fatalf("Context() error = %v", err)
	}
	if hc.Repository != nil || hc.MetaStore != nil {
		t.Errorf("empty names should yield nil handles, got %+v", hc)
	}
}

func TestStaticProvider_Unavailable(t *testing.T) {
	p := NewStaticProvider("repo", "meta")
	p.SetAvailable(false)

	if p.Available() {
		t.Error("Available() = true after SetAvailable(false)")
	}
	if _, err := p.Context(context.Background()); !errors.Is(err, ErrHostUnavailable) {
		t.Errorf("Context() error = %v, want ErrHostUnavailable", err)
	}

	p.SetAvailable(true)
	if _, err := p.Context(context.Background()); err != nil {
		t.Errorf("Context() error = %v after SetAvailable(true)", err)
	}
}

func TestStaticProvider_CanceledContext(t *testing.T) {
	p := NewStaticProvider("repo", "meta")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Context(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Context() error = %v, want context.Canceled", err)
	}
}

func TestStaticProvider_SetContext(t *testing.T) {
	p := NewStaticProvider("repo-1", "meta-1")
	p.SetContext("repo-2", "meta-2")

	hc, _ := p.Context(context.Background())
	if hc.RepositoryName() != "repo-2" || hc.MetaStoreName() != "meta-2" {
		t.Errorf("Context() = %s/%s, want repo-2/meta-2", hc.RepositoryName(), hc.MetaStoreName())
	}
}

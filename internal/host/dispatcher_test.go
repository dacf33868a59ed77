package host

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/Iron-Ham/svcbind/internal/binding"
	"github.com/Iron-Ham/svcbind/internal/errors"
)

// recorder collects lifecycle calls across listeners in order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

type fakeListener struct {
	name    string
	rec     *recorder
	failErr error
	panics  bool
}

func (f *fakeListener) OnStart(context.Context) error {
	f.rec.add("start:" + f.name)
	if f.panics {
		panic("boom")
	}
	return f.failErr
}

func (f *fakeListener) OnExit() {
	f.rec.add("exit:" + f.name)
}

func TestDispatcher_Register(t *testing.T) {
	d := NewDispatcher(nil)
	rec := &recorder{}

	if err := d.Register("a", &fakeListener{name: "a", rec: rec}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tests := []struct {
		name     string
		listener Listener
		regName  string
	}{
		{"empty name", &fakeListener{rec: rec}, ""},
		{"nil listener", nil, "b"},
		{"duplicate", &fakeListener{rec: rec}, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.Register(tt.regName, tt.listener)
			if !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("Register() error = %v, want validation error", err)
			}
		})
	}

	if got := d.Listeners(); !slices.Equal(got, []string{"a"}) {
		t.Errorf("Listeners() = %v, want [a]", got)
	}
}

func TestDispatcher_StartAndExitOrder(t *testing.T) {
	d := NewDispatcher(nil)
	rec := &recorder{}
	for _, name := range []string{"a", "b", "c"} {
		if err := d.Register(name, &fakeListener{name: name, rec: rec}); err != nil {
			t.Fatal(err)
		}
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !d.Started() {
		t.Error("Started() = false after Start")
	}
	d.Exit()
	if d.Started() {
		t.Error("Started() = true after Exit")
	}

	want := []string{"start:a", "start:b", "start:c", "exit:c", "exit:b", "exit:a"}
	if got := rec.list(); !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestDispatcher_ExitBeforeStart(t *testing.T) {
	d := NewDispatcher(nil)
	rec := &recorder{}
	_ = d.Register("a", &fakeListener{name: "a", rec: rec})

	d.Exit()
	if got := rec.list(); len(got) != 0 {
		t.Errorf("Exit before Start should not notify, got %v", got)
	}
}

func TestDispatcher_StartContinuesPastFailure(t *testing.T) {
	d := NewDispatcher(nil)
	rec := &recorder{}
	cause := fmt.Errorf("disk gone")
	_ = d.Register("a", &fakeListener{name: "a", rec: rec})
	_ = d.Register("b", &fakeListener{name: "b", rec: rec, failErr: cause})
	_ = d.Register("c", &fakeListener{name: "c", rec: rec, panics: true})
	_ = d.Register("d", &fakeListener{name: "d", rec: rec})

	err := d.Start(context.Background())
	if err == nil {
		t.Fatal("Start() should report failures")
	}

	want := []string{"start:a", "start:b", "start:c", "start:d"}
	if got := rec.list(); !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if !errors.Is(err, cause) {
		t.Errorf("error %v should wrap the listener cause", err)
	}

	var lerr *errors.LifecycleError
	if !errors.As(err, &lerr) {
		t.Fatalf("error %v should contain a LifecycleError", err)
	}
	if lerr.Listener != "b" {
		t.Errorf("first LifecycleError listener = %q, want b", lerr.Listener)
	}

	if got := d.Failed(); !slices.Equal(got, []string{"b", "c"}) {
		t.Errorf("Failed() = %v, want [b c]", got)
	}
}

func TestDispatcher_Retry(t *testing.T) {
	d := NewDispatcher(nil)
	rec := &recorder{}
	flaky := &fakeListener{name: "b", rec: rec, failErr: fmt.Errorf("not yet")}
	_ = d.Register("a", &fakeListener{name: "a", rec: rec})
	_ = d.Register("b", flaky)

	if err := d.Retry(context.Background()); err != nil {
		t.Errorf("Retry() before Start error = %v", err)
	}
	if len(rec.list()) != 0 {
		t.Error("Retry() before Start should not notify")
	}

	if err := d.Start(context.Background()); err == nil {
		t.Fatal("Start() should fail")
	}

	flaky.failErr = nil
	if err := d.Retry(context.Background()); err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if got := d.Failed(); len(got) != 0 {
		t.Errorf("Failed() = %v after successful retry", got)
	}

	want := []string{"start:a", "start:b", "start:b"}
	if got := rec.list(); !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestDispatcher_CanceledContext(t *testing.T) {
	d := NewDispatcher(nil)
	rec := &recorder{}
	_ = d.Register("a", &fakeListener{name: "a", rec: rec})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Start(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Start() error = %v, want context.Canceled", err)
	}
	if len(rec.list()) != 0 {
		t.Error("listeners should not be notified with a canceled context")
	}
	if got := d.Failed(); !slices.Equal(got, []string{"a"}) {
		t.Errorf("Failed() = %v, want [a]", got)
	}
}

func TestDispatcher_WithCoordinator(t *testing.T) {
	provider := NewStaticProvider("repo", "meta")
	coord, err := binding.New(provider)
	if err != nil {
		t.Fatal(err)
	}

	d := NewDispatcher(nil)
	if err := d.Register("binding", coord); err != nil {
		t.Fatal(err)
	}

	provider.SetAvailable(false)
	err = d.Start(context.Background())
	if !errors.Is(err, errors.ErrContextUnavailable) {
		t.Fatalf("Start() error = %v, want ErrContextUnavailable", err)
	}
	var lerr *errors.LifecycleError
	if !errors.As(err, &lerr) || lerr.Listener != "binding" {
		t.Errorf("error should be a LifecycleError for listener binding, got %v", err)
	}
	if coord.Started() {
		t.Error("coordinator should not be started after a failed start")
	}

	provider.SetAvailable(true)
	if err := d.Retry(context.Background()); err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if !coord.Started() {
		t.Error("coordinator should be started after retry")
	}

	d.Exit()
	if coord.Started() {
		t.Error("coordinator should not be started after exit")
	}
}

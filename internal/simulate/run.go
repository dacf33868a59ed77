package simulate

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Iron-Ham/svcbind/internal/binding"
	"github.com/Iron-Ham/svcbind/internal/event"
	"github.com/Iron-Ham/svcbind/internal/host"
	"github.com/Iron-Ham/svcbind/internal/logging"
	"github.com/Iron-Ham/svcbind/internal/service"
)

// StepResult is the observable state after one step.
type StepResult struct {
	Index       int
	Step        Step
	State       binding.State
	PublishedID string
	Generation  uint64
	Repository  string // Repository attached to the published service
	MetaStore   string
	Err         error
	Failures    []string // Expectations that did not hold
}

// Passed reports whether the step met its expectations.
func (r StepResult) Passed() bool { return len(r.Failures) == 0 }

// Report is the outcome of running a script.
type Report struct {
	Name  string
	Steps []StepResult
}

// Passed reports whether every step met its expectations.
func (r *Report) Passed() bool {
	for _, s := range r.Steps {
		if !s.Passed() {
			return false
		}
	}
	return true
}

// FailureCount returns the number of failed expectations.
func (r *Report) FailureCount() int {
	n := 0
	for _, s := range r.Steps {
		n += len(s.Failures)
	}
	return n
}

type runConfig struct {
	logger *logging.Logger
	bus    *event.Bus
}

// Option configures Run and Stress.
type Option func(*runConfig)

// WithLogger sets the logger passed to the coordinator.
func WithLogger(l *logging.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// WithBus sets the bus the coordinator publishes to.
func WithBus(b *event.Bus) Option {
	return func(c *runConfig) { c.bus = b }
}

func buildConfig(opts []Option) runConfig {
	cfg := runConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.NopLogger()
	}
	return cfg
}

// harness is a coordinator wired to a simulated host.
type harness struct {
	provider   *host.StaticProvider
	dispatcher *host.Dispatcher
	coord      *binding.Coordinator
	services   map[string]*service.Client
}

func newHarness(spec HostSpec, cfg runConfig) (*harness, error) {
	provider := host.NewStaticProvider(spec.Repository, spec.MetaStore)
	coord, err := binding.New(provider,
		binding.WithLogger(cfg.logger),
		binding.WithBus(cfg.bus))
	if err != nil {
		return nil, err
	}
	dispatcher := host.NewDispatcher(cfg.logger)
	if err := dispatcher.Register("binding", coord); err != nil {
		return nil, err
	}
	return &harness{
		provider:   provider,
		dispatcher: dispatcher,
		coord:      coord,
		services:   make(map[string]*service.Client),
	}, nil
}

// client returns the client for id, creating it on first use so repeated
// steps refer to the same instance.
func (h *harness) client(id string) (*service.Client, error) {
	if c, ok := h.services[id]; ok {
		return c, nil
	}
	c, err := service.New(id, "", "")
	if err != nil {
		return nil, err
	}
	h.services[id] = c
	return c, nil
}

func (h *harness) apply(ctx context.Context, s Step) error {
	switch s.Action {
	case ActionStart:
		return h.dispatcher.Start(ctx)
	case ActionExit:
		h.dispatcher.Exit()
	case ActionRetry:
		return h.dispatcher.Retry(ctx)
	case ActionBind:
		c, err := h.client(s.Arg(0))
		if err != nil {
			return err
		}
		h.coord.Bind(c)
	case ActionUnbind:
		if s.Arg(0) == "" {
			h.coord.Unbind(nil)
			return nil
		}
		c, err := h.client(s.Arg(0))
		if err != nil {
			return err
		}
		h.coord.Unbind(c)
	case ActionHostDown:
		h.provider.SetAvailable(false)
	case ActionHostUp:
		h.provider.SetAvailable(true)
	case ActionContext:
		h.provider.SetContext(s.Arg(0), s.Arg(1))
	default:
		return fmt.Errorf("unsupported action %q", s.Action)
	}
	return nil
}

func (h *harness) observe(i int, s Step, err error) StepResult {
	snap := h.coord.Snapshot()
	pub := h.coord.Slot().Snapshot()
	r := StepResult{
		Index:       i,
		Step:        s,
		State:       snap.State,
		PublishedID: snap.PublishedID,
		Generation:  snap.Generation,
		Repository:  pub.Context.RepositoryName(),
		MetaStore:   pub.Context.MetaStoreName(),
		Err:         err,
	}
	if s.Expect != nil {
		r.Failures = check(*s.Expect, r)
	}
	return r
}

func check(e Expect, r StepResult) []string {
	var failures []string
	if e.State != "" && e.State != r.State.String() {
		failures = append(failures, fmt.Sprintf("state: want %s, got %s", e.State, r.State))
	}
	if e.Published != "" {
		got := r.PublishedID
		if got == "" {
			got = "none"
		}
		if e.Published != got {
			failures = append(failures, fmt.Sprintf("published: want %s, got %s", e.Published, got))
		}
	}
	if e.Repository != "" && e.Repository != r.Repository {
		failures = append(failures, fmt.Sprintf("repository: want %s, got %q", e.Repository, r.Repository))
	}
	if e.Error != nil && *e.Error != (r.Err != nil) {
		failures = append(failures, "error: want "+strconv.FormatBool(*e.Error)+", got "+strconv.FormatBool(r.Err != nil))
	}
	return failures
}

// Run executes the script against a fresh coordinator and simulated host.
// Step errors are recorded in the report, not returned; Run only fails if
// the harness cannot be built or ctx is canceled.
func Run(ctx context.Context, script *Script, opts ...Option) (*Report, error) {
	cfg := buildConfig(opts)
	h, err := newHarness(script.Host, cfg)
	if err != nil {
		return nil, err
	}

	report := &Report{Name: script.Name, Steps: make([]StepResult, 0, len(script.Steps))}
	for i, s := range script.Steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		stepErr := h.apply(ctx, s)
		report.Steps = append(report.Steps, h.observe(i, s, stepErr))
	}
	return report, nil
}

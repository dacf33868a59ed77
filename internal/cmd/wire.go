package cmd

import (
	"fmt"

	"github.com/Iron-Ham/svcbind/internal/binding"
	"github.com/Iron-Ham/svcbind/internal/config"
	"github.com/Iron-Ham/svcbind/internal/event"
	"github.com/Iron-Ham/svcbind/internal/host"
	"github.com/Iron-Ham/svcbind/internal/logging"
	"github.com/Iron-Ham/svcbind/internal/metrics"
	"github.com/Iron-Ham/svcbind/internal/registry"
	"github.com/Iron-Ham/svcbind/internal/router"
)

// stack is the coordinator with everything around it, built from config.
type stack struct {
	logger     *logging.Logger
	bus        *event.Bus
	collector  *metrics.Collector
	provider   *host.StaticProvider
	coord      *binding.Coordinator
	dispatcher *host.Dispatcher
	registry   *registry.Registry // nil when registry.dir is unset
	router     *router.Router
}

func buildStack(cfg *config.Config, logger *logging.Logger) (*stack, error) {
	s := &stack{
		logger:    logger,
		bus:       event.NewBus(logger),
		collector: metrics.NewCollector(),
		provider:  host.NewStaticProvider(cfg.Host.Repository, cfg.Host.MetaStore),
	}
	s.collector.Subscribe(s.bus)

	coord, err := binding.New(s.provider,
		binding.WithLogger(logger),
		binding.WithBus(s.bus))
	if err != nil {
		return nil, err
	}
	s.coord = coord

	s.dispatcher = host.NewDispatcher(logger)
	if err := s.dispatcher.Register("binding", coord); err != nil {
		return nil, err
	}

	fallback, err := router.ParseFallback(cfg.Router.Fallback)
	if err != nil {
		return nil, err
	}
	s.router, err = router.New(coord.Slot(), cfg.Router.LocalHosts, fallback,
		router.WithLogger(logger),
		router.WithObserver(s.collector))
	if err != nil {
		return nil, err
	}

	if cfg.Registry.Dir != "" {
		s.registry, err = registry.New(cfg.Registry.Dir, coord,
			registry.WithLogger(logger),
			registry.WithDebounce(cfg.Registry.Debounce()))
		if err != nil {
			return nil, fmt.Errorf("failed to open registry: %w", err)
		}
	}
	return s, nil
}

func (s *stack) close() {
	if s.registry != nil {
		s.registry.Stop()
	}
	s.collector.Unsubscribe()
}

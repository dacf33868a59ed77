// Package registry binds client services described by YAML files in a
// watched directory.
//
// Creating or writing a descriptor binds the service it describes; removing
// it unbinds that service. Only one service can be bound at a time, so the
// most recent change wins.
package registry

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/Iron-Ham/svcbind/internal/binding"
	"github.com/Iron-Ham/svcbind/internal/errors"
	"github.com/Iron-Ham/svcbind/internal/logging"
	"github.com/Iron-Ham/svcbind/internal/service"
)

// DefaultDebounce coalesces the bursts of events editors emit for one save.
const DefaultDebounce = 50 * time.Millisecond

// Binder receives the bind and unbind calls the registry derives from the
// directory. *binding.Coordinator implements it.
type Binder interface {
	Bind(svc binding.ClientService)
	Unbind(svc binding.ClientService)
}

type entry struct {
	desc    Descriptor
	client  *service.Client
	modTime time.Time
}

// Registry watches a directory of service descriptors.
type Registry struct {
	dir      string
	binder   Binder
	logger   *logging.Logger
	debounce time.Duration

	watcher *fsnotify.Watcher

	mu        sync.RWMutex
	entries   map[string]*entry // path -> entry
	generated map[string]string // path -> generated id
	active    string            // path of the bound descriptor

	running   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDebounce sets the debounce interval. Zero processes every event
// batch on the next loop iteration.
func WithDebounce(d time.Duration) Option {
	return func(r *Registry) {
		if d >= 0 {
			r.debounce = d
		}
	}
}

// New creates a registry for dir. The directory must exist.
func New(dir string, binder Binder, opts ...Option) (*Registry, error) {
	if binder == nil {
		return nil, errors.NewValidationError("binder is required").WithField("binder")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.NewRegistryError("registry directory not accessible", err).WithPath(dir)
	}
	if !info.IsDir() {
		return nil, errors.NewRegistryError("registry path is not a directory", nil).WithPath(dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.NewRegistryError("failed to create watcher", err).WithPath(dir)
	}

	r := &Registry{
		dir:       dir,
		binder:    binder,
		logger:    logging.NopLogger(),
		debounce:  DefaultDebounce,
		watcher:   watcher,
		entries:   make(map[string]*entry),
		generated: make(map[string]string),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("registry")
	return r, nil
}

// Dir returns the watched directory.
func (r *Registry) Dir() string { return r.dir }

// Scan loads every descriptor in the directory and binds the most recently
// modified valid one. Invalid descriptors are skipped and reported in the
// returned error. It fails with errors.ErrRegistryClosed after Stop.
func (r *Registry) Scan() error {
	if r.closed() {
		return r.closedError()
	}
	dirEntries, err := os.ReadDir(r.dir)
	if err != nil {
		return errors.NewRegistryError("failed to read registry directory", err).WithPath(r.dir)
	}

	var errs []error
	var newest *entry
	var newestPath string

	r.mu.Lock()
	for _, de := range dirEntries {
		if de.IsDir() || !IsDescriptorFile(de.Name()) {
			continue
		}
		path := filepath.Join(r.dir, de.Name())
		e, err := r.loadLocked(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		r.entries[path] = e
		if newest == nil || e.modTime.After(newest.modTime) ||
			(e.modTime.Equal(newest.modTime) && path > newestPath) {
			newest, newestPath = e, path
		}
	}
	if newest != nil {
		r.active = newestPath
	}
	r.mu.Unlock()

	r.logger.Info("registry scanned", "dir", r.dir, "services", r.Len(), "invalid", len(errs))
	for _, err := range errs {
		r.logger.Warn("skipping descriptor", "error", err.Error())
	}

	if newest != nil {
		r.logger.WithService(newest.client.ID()).Info("binding most recent descriptor", "path", newestPath)
		r.binder.Bind(newest.client)
	}
	return errors.Join(errs...)
}

// Start scans the directory and begins watching it for changes. Errors from
// invalid descriptors found by the initial scan are logged, not returned.
// A stopped registry cannot be restarted.
func (r *Registry) Start() error {
	if r.closed() {
		return r.closedError()
	}
	var startErr error
	r.startOnce.Do(func() {
		_ = r.Scan()
		if err := r.watcher.Add(r.dir); err != nil {
			startErr = errors.NewRegistryError("failed to watch registry directory", err).WithPath(r.dir)
			return
		}
		r.running.Store(true)
		go r.watchLoop()
	})
	return startErr
}

// Stop stops watching and waits for the watch loop to exit. It is safe to
// call more than once.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		_ = r.watcher.Close()
	})
	if r.running.Load() {
		<-r.doneCh
	}
}

func (r *Registry) closed() bool {
	select {
	case <-r.stopCh:
		return true
	default:
		return false
	}
}

func (r *Registry) closedError() error {
	return errors.NewRegistryError("registry stopped", errors.ErrRegistryClosed).WithPath(r.dir)
}

// Services returns the loaded descriptors sorted by id.
func (r *Registry) Services() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.desc)
	}
	slices.SortFunc(out, func(a, b Descriptor) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Active returns the descriptor of the service the registry last bound.
func (r *Registry) Active() (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[r.active]
	if !ok {
		return Descriptor{}, false
	}
	return e.desc, true
}

// Len returns the number of loaded descriptors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// loadLocked reads the descriptor at path and builds its client.
// r.mu must be held.
func (r *Registry) loadLocked(path string) (*entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.NewRegistryError("failed to stat descriptor", err).WithPath(path)
	}
	desc, err := LoadDescriptor(path)
	if err != nil {
		return nil, err
	}
	if desc.ID == "" {
		id, ok := r.generated[path]
		if !ok {
			id = uuid.NewString()
			r.generated[path] = id
		}
		desc.ID = id
	}
	client, err := service.New(desc.ID, desc.Name, desc.Endpoint)
	if err != nil {
		return nil, errors.NewRegistryError("invalid descriptor", err).WithPath(path).WithServiceID(desc.ID)
	}
	return &entry{desc: desc, client: client, modTime: info.ModTime()}, nil
}

func (r *Registry) watchLoop() {
	defer close(r.doneCh)

	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C

	pending := make(map[string]struct{})

	for {
		select {
		case <-r.stopCh:
			debounceTimer.Stop()
			return

		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if !IsDescriptorFile(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			pending[ev.Name] = struct{}{}
			debounceTimer.Reset(r.debounce)

		case <-debounceTimer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			slices.Sort(paths)
			for _, p := range paths {
				r.apply(p)
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("watcher error", "error", err.Error())
		}
	}
}

// apply reconciles one path with the file system: a present file binds,
// a missing one unbinds.
func (r *Registry) apply(path string) {
	if _, err := os.Stat(path); err != nil {
		r.remove(path)
		return
	}
	r.upsert(path)
}

func (r *Registry) upsert(path string) {
	r.mu.Lock()
	e, err := r.loadLocked(path)
	if err != nil {
		r.mu.Unlock()
		r.logger.Warn("ignoring descriptor change", "path", path, "error", err.Error())
		return
	}
	r.entries[path] = e
	r.active = path
	r.mu.Unlock()

	r.logger.WithService(e.client.ID()).Info("descriptor changed, binding", "path", path)
	r.binder.Bind(e.client)
}

func (r *Registry) remove(path string) {
	r.mu.Lock()
	e, ok := r.entries[path]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.entries, path)
	delete(r.generated, path)
	wasActive := r.active == path
	if wasActive {
		r.active = ""
	}
	r.mu.Unlock()

	if !wasActive {
		r.logger.WithService(e.client.ID()).Debug("inactive descriptor removed", "path", path)
		return
	}
	r.logger.WithService(e.client.ID()).Info("descriptor removed, unbinding", "path", path)
	r.binder.Unbind(e.client)
}

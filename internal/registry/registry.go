package registry

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	yaml "gopkg.in/yaml.v3"
)

//go:embed types/*.yaml
var builtinTypes embed.FS

// ErrNotFound is returned when a report type id is unknown.
var ErrNotFound = errors.New("report type not found")

// Source is the read-only view the decompiler and mapper consume.
type Source interface {
	Get(id string) (ReportType, bool)
	List() []ReportType
}

// Registry is an ordered, concurrency-safe set of report types. List
// returns types in registration order; re-registering an id keeps its
// original position. Types loaded from files overlay the baseline of
// embedded and registered types, which Reload restores.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	types  map[string]ReportType
	base   map[string]ReportType
	files  map[string]string
	dir    string
	logger zerolog.Logger

	onChange func(event string, id string)
}

var _ Source = (*Registry)(nil)

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		types:  make(map[string]ReportType),
		base:   make(map[string]ReportType),
		files:  make(map[string]string),
		logger: log.Logger,
	}
}

// NewDefault returns a registry holding the embedded report types.
func NewDefault() (*Registry, error) {
	r := New()
	if err := r.loadFS(builtinTypes, "types"); err != nil {
		return nil, fmt.Errorf("load builtin report types: %w", err)
	}
	return r, nil
}

// SetLogger replaces the logger used for reload diagnostics.
func (r *Registry) SetLogger(l zerolog.Logger) { r.logger = l }

// SetOnChange registers a callback invoked after a watched file is loaded
// or removed. event is "load" or "remove".
func (r *Registry) SetOnChange(fn func(event string, id string)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// Register adds or replaces a report type.
func (r *Registry) Register(t ReportType) error {
	if err := t.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registerLocked(t)
	r.base[t.ID] = t
	return nil
}

func (r *Registry) registerLocked(t ReportType) {
	if _, ok := r.types[t.ID]; !ok {
		r.order = append(r.order, t.ID)
	}
	r.types[t.ID] = t
}

// Unregister removes a report type.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.removeLocked(id)
	delete(r.base, id)
	for path, fid := range r.files {
		if fid == id {
			delete(r.files, path)
		}
	}
	return nil
}

func (r *Registry) removeLocked(id string) {
	delete(r.types, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// Get returns a report type by id.
func (r *Registry) Get(id string) (ReportType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[id]
	return t, ok
}

// List returns every report type in registration order.
func (r *Registry) List() []ReportType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ReportType, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.types[id])
	}
	return out
}

// Lookup resolves free-form user input such as "AIA" or "bat survey" to a
// registered type: exact id, then name or alias ignoring case, then a
// substring of the name.
func (r *Registry) Lookup(s string) (ReportType, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return ReportType{}, false
	}
	if t, ok := r.Get(v); ok {
		return t, true
	}
	types := r.List()
	for _, t := range types {
		if strings.EqualFold(t.Name, v) {
			return t, true
		}
		for _, a := range t.Aliases {
			if strings.EqualFold(a, v) {
				return t, true
			}
		}
	}
	for _, t := range types {
		if strings.Contains(strings.ToLower(t.Name), v) {
			return t, true
		}
	}
	return ReportType{}, false
}

// LoadFile parses one YAML file holding a single report type.
func (r *Registry) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	t, err := parse(b)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	r.mu.Lock()
	r.registerLocked(t)
	r.files[path] = t.ID
	r.mu.Unlock()
	return nil
}

// LoadDirectory loads every .yaml/.yml file in dir, sorted by name, and
// remembers dir for Reload and Watch.
func (r *Registry) LoadDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read registry dir: %w", err)
	}
	r.mu.Lock()
	r.dir = dir
	r.mu.Unlock()
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && isYAML(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, n := range names {
		if err := r.LoadFile(filepath.Join(dir, n)); err != nil {
			return err
		}
	}
	return nil
}

// Reload drops the types loaded from the configured directory and loads
// it again. A file that overrode an embedded or registered type gives the
// baseline definition back, in its original position.
func (r *Registry) Reload() error {
	r.mu.Lock()
	dir := r.dir
	for path, id := range r.files {
		if t, ok := r.base[id]; ok {
			r.types[id] = t
		} else {
			r.removeLocked(id)
		}
		delete(r.files, path)
	}
	r.mu.Unlock()
	if dir == "" {
		return errors.New("registry: no directory configured")
	}
	return r.LoadDirectory(dir)
}

// Watch reloads types from the configured directory as files change until
// ctx is cancelled.
func (r *Registry) Watch(ctx context.Context) error {
	r.mu.RLock()
	dir := r.dir
	r.mu.RUnlock()
	if dir == "" {
		return errors.New("registry: no directory configured for watching")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watching directory %s: %w", dir, err)
	}
	go r.watchLoop(ctx, watcher)
	return nil
}

func (r *Registry) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	defer w.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !isYAML(ev.Name) {
				continue
			}
			switch {
			case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
				if err := r.LoadFile(ev.Name); err != nil {
					r.logger.Warn().Err(err).Str("file", ev.Name).Msg("report type reload failed")
					continue
				}
				r.notify("load", ev.Name, r.fileID(ev.Name))
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				id := r.fileID(ev.Name)
				if err := r.Reload(); err != nil {
					r.logger.Warn().Err(err).Str("file", ev.Name).Msg("report type reload failed")
					continue
				}
				r.notify("remove", ev.Name, id)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			r.logger.Warn().Err(err).Msg("registry watcher error")
		}
	}
}

// fileID is the id last loaded from path, or "".
func (r *Registry) fileID(path string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.files[path]
}

func (r *Registry) notify(event, path, id string) {
	r.mu.RLock()
	fn := r.onChange
	r.mu.RUnlock()
	r.logger.Info().Str("event", event).Str("file", path).Str("id", id).Msg("report types reloaded")
	if fn != nil {
		fn(event, id)
	}
}

func (r *Registry) loadFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !isYAML(e.Name()) {
			continue
		}
		b, err := fs.ReadFile(fsys, dir+"/"+e.Name())
		if err != nil {
			return err
		}
		t, err := parse(b)
		if err != nil {
			return fmt.Errorf("%s: %w", e.Name(), err)
		}
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func parse(b []byte) (ReportType, error) {
	var t ReportType
	if err := yaml.Unmarshal(b, &t); err != nil {
		return t, fmt.Errorf("parse yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// Package plugin discovers, installs, and manages algorithm plugins on
// disk. Each plugin lives in its own directory under a shared root with a
// manifest.json describing the review and diff algorithms it contributes.
// Loading a plugin reads the contributed Lua sources and registers proxy
// algorithms with the registry; execution happens inside the sandbox
// executor whenever it is available.
package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"

	"github.com/mnemo-app/mnemo/internal/algorithm"
	"github.com/mnemo-app/mnemo/internal/plugin/sandbox"
)

// EventType identifies a plugin lifecycle event.
type EventType int

const (
	EventInstalled EventType = iota
	EventUninstalled
	EventLoaded
	EventEnabled
	EventDisabled
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventInstalled:
		return "installed"
	case EventUninstalled:
		return "uninstalled"
	case EventLoaded:
		return "loaded"
	case EventEnabled:
		return "enabled"
	case EventDisabled:
		return "disabled"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event describes a plugin lifecycle change.
type Event struct {
	Type     EventType
	PluginID string
	Err      error
}

// EventHandler receives plugin lifecycle events.
type EventHandler func(Event)

// Config configures a Manager.
type Config struct {
	// Root is the directory plugins are installed under.
	Root string
	// HostVersion is matched against manifest engine constraints.
	HostVersion *semver.Version
	// Registry receives contributed algorithms.
	Registry *algorithm.Registry
	// Executor runs plugin code in isolation. May be unavailable, in
	// which case loading falls back to unsafe in-process execution.
	Executor *sandbox.Executor
	// Logger is the parent logger.
	Logger zerolog.Logger
}

// Manager owns the plugin lifecycle: scanning the plugin root, loading
// enabled plugins, and installing, enabling, disabling, reloading, and
// uninstalling individual plugins.
type Manager struct {
	mu          sync.RWMutex
	log         zerolog.Logger
	root        string
	hostVersion *semver.Version
	registry    *algorithm.Registry
	exec        *sandbox.Executor
	plugins     map[string]*Info
	order       []string
	handlers    []EventHandler
}

// NewManager creates a Manager. Call Initialize before use.
func NewManager(cfg Config) *Manager {
	return &Manager{
		log:         cfg.Logger.With().Str("component", "plugins").Logger(),
		root:        cfg.Root,
		hostVersion: cfg.HostVersion,
		registry:    cfg.Registry,
		exec:        cfg.Executor,
		plugins:     make(map[string]*Info),
	}
}

// Initialize creates the plugin root if needed, scans it, and loads every
// enabled plugin. A plugin that fails to load does not abort the rest;
// per-plugin failures are joined into the returned error.
func (m *Manager) Initialize() error {
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return fmt.Errorf("failed to create plugin root: %w", err)
	}
	if err := m.ScanPlugins(); err != nil {
		return err
	}

	m.mu.RLock()
	ids := make([]string, 0, len(m.order))
	for _, id := range m.order {
		info := m.plugins[id]
		if info.Enabled && info.Status == StatusScanned {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()

	var errs []error
	for _, id := range ids {
		if err := m.loadPlugin(id); err != nil {
			errs = append(errs, fmt.Errorf("plugin %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// ScanPlugins walks the plugin root and records a candidate for every
// directory found. A corrupt or invalid manifest marks that plugin as
// errored without aborting the scan. Plugins already loaded keep their
// records.
func (m *Manager) ScanPlugins() error {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return fmt.Errorf("failed to read plugin root: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dir := filepath.Join(m.root, entry.Name())
		m.scanDirLocked(entry.Name(), dir)
	}
	return nil
}

func (m *Manager) scanDirLocked(dirName, dir string) {
	manifest, err := LoadManifest(dir)
	if err != nil {
		// Synthetic record keyed by directory name so the failure is
		// visible alongside healthy plugins.
		m.recordLocked(&Info{
			ID:     dirName,
			Status: StatusError,
			Path:   dir,
			Err:    err.Error(),
		})
		m.log.Warn().Str("dir", dirName).Err(err).Msg("skipping plugin with invalid manifest")
		return
	}

	if existing, ok := m.plugins[manifest.ID]; ok && existing.Status == StatusLoaded {
		return
	}

	sc := loadSidecar(dir)
	info := &Info{
		Manifest:    manifest,
		ID:          manifest.ID,
		Status:      StatusScanned,
		Enabled:     sc.Enabled,
		Path:        dir,
		InstalledAt: sc.InstalledAt,
		UpdatedAt:   sc.UpdatedAt,
	}

	if err := manifest.CompatibleWith(m.hostVersion); err != nil {
		info.Enabled = false
		info.Status = StatusDisabled
		info.Err = err.Error()
		m.log.Warn().Str("plugin", manifest.ID).Err(err).Msg("plugin incompatible with host version")
	}

	m.recordLocked(info)
}

func (m *Manager) recordLocked(info *Info) {
	if _, ok := m.plugins[info.ID]; !ok {
		m.order = append(m.order, info.ID)
	}
	m.plugins[info.ID] = info
}

// InstallFromArchive installs a plugin from a ZIP archive. Unless
// overwrite is set, installing over an existing plugin id fails with
// ErrAlreadyInstalled. The installed plugin is loaded immediately when
// enabled.
func (m *Manager) InstallFromArchive(archivePath string, overwrite bool) (*Info, error) {
	staging, err := os.MkdirTemp(m.root, ".staging-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := extractArchive(archivePath, staging); err != nil {
		return nil, err
	}

	srcDir, err := findManifestDir(staging)
	if err != nil {
		return nil, err
	}

	id := peekManifestID(srcDir)
	manifest, err := LoadManifest(srcDir)
	if err != nil {
		m.emit(Event{Type: EventError, PluginID: id, Err: err})
		return nil, err
	}

	dest := filepath.Join(m.root, manifest.ID)
	if _, statErr := os.Stat(dest); statErr == nil {
		if !overwrite {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyInstalled, manifest.ID)
		}
		if err := m.Uninstall(manifest.ID); err != nil && !errors.Is(err, ErrPluginNotFound) {
			return nil, err
		}
	}

	if err := os.Rename(srcDir, dest); err != nil {
		return nil, fmt.Errorf("failed to move plugin into place: %w", err)
	}

	now := time.Now().UTC()
	sc := sidecar{Enabled: true, InstalledAt: now, UpdatedAt: now}
	if err := saveSidecar(dest, sc); err != nil {
		m.log.Warn().Str("plugin", manifest.ID).Err(err).Msg("failed to write plugin sidecar")
	}

	info := &Info{
		Manifest:    manifest,
		ID:          manifest.ID,
		Status:      StatusScanned,
		Enabled:     true,
		Path:        dest,
		InstalledAt: now,
		UpdatedAt:   now,
	}
	if err := manifest.CompatibleWith(m.hostVersion); err != nil {
		info.Enabled = false
		info.Status = StatusDisabled
		info.Err = err.Error()
	}

	m.mu.Lock()
	m.recordLocked(info)
	m.mu.Unlock()

	m.log.Info().Str("plugin", manifest.ID).Str("version", manifest.Version).Msg("plugin installed")
	m.emit(Event{Type: EventInstalled, PluginID: manifest.ID})

	if info.Enabled {
		// Load failures are plugin-data errors, surfaced through Info.Err
		// and an error event; the install itself stands.
		if err := m.loadPlugin(manifest.ID); err != nil {
			m.log.Warn().Str("plugin", manifest.ID).Err(err).Msg("installed plugin failed to load")
		}
	}
	return m.Get(manifest.ID)
}

// Uninstall unregisters a plugin's algorithms, removes its directory from
// disk, and drops its record.
func (m *Manager) Uninstall(id string) error {
	m.mu.Lock()
	info, ok := m.plugins[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}
	path := info.Path
	delete(m.plugins, id)
	for i, pid := range m.order {
		if pid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	m.unregister(id)

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove plugin directory: %w", err)
	}

	m.log.Info().Str("plugin", id).Msg("plugin uninstalled")
	m.emit(Event{Type: EventUninstalled, PluginID: id})
	return nil
}

// Enable marks a plugin enabled, persists the flag, and loads it.
func (m *Manager) Enable(id string) error {
	m.mu.Lock()
	info, ok := m.plugins[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}
	if info.Manifest == nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s: %s", ErrPluginNotFound, id, info.Err)
	}
	if err := info.Manifest.CompatibleWith(m.hostVersion); err != nil {
		m.mu.Unlock()
		return err
	}
	alreadyLoaded := info.Enabled && info.Status == StatusLoaded
	info.Enabled = true
	info.Err = ""
	info.UpdatedAt = time.Now().UTC()
	m.persistSidecarLocked(info)
	m.mu.Unlock()

	if alreadyLoaded {
		return nil
	}

	m.emit(Event{Type: EventEnabled, PluginID: id})
	return m.loadPlugin(id)
}

// Disable marks a plugin disabled, persists the flag, and unregisters its
// algorithms. Scheduling falls back to the built-in defaults when the
// current algorithm belonged to this plugin.
func (m *Manager) Disable(id string) error {
	m.mu.Lock()
	info, ok := m.plugins[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}
	info.Enabled = false
	info.Status = StatusDisabled
	info.Err = ""
	info.LoadedAlgorithmIDs = nil
	info.UpdatedAt = time.Now().UTC()
	m.persistSidecarLocked(info)
	m.mu.Unlock()

	m.unregister(id)

	m.log.Info().Str("plugin", id).Msg("plugin disabled")
	m.emit(Event{Type: EventDisabled, PluginID: id})
	return nil
}

// Reload unregisters a plugin's algorithms and loads it again from disk,
// picking up edited sources and manifest changes.
func (m *Manager) Reload(id string) error {
	m.mu.Lock()
	info, ok := m.plugins[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}
	if !info.Enabled {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPluginDisabled, id)
	}
	dir := info.Path
	m.mu.Unlock()

	m.unregister(id)

	manifest, err := LoadManifest(dir)
	if err != nil {
		m.setError(id, err)
		return err
	}

	m.mu.Lock()
	info = m.plugins[id]
	info.Manifest = manifest
	info.Status = StatusScanned
	info.LoadedAlgorithmIDs = nil
	info.Err = ""
	m.mu.Unlock()

	return m.loadPlugin(id)
}

// loadPlugin reads each contributed algorithm's source and registers it
// with the registry. When the sandbox executor is available sources run
// isolated; otherwise they run in-process, which is logged loudly. A
// plugin loads successfully when at least one contribution registers, or
// when it declares none.
func (m *Manager) loadPlugin(id string) error {
	m.mu.Lock()
	info, ok := m.plugins[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}
	manifest := info.Manifest
	dir := info.Path
	info.Status = StatusLoading
	m.mu.Unlock()

	sandboxed := m.exec != nil && m.exec.IsAvailable()
	if !sandboxed {
		m.log.Warn().Str("plugin", id).
			Msg("sandbox executor unavailable, running plugin code in-process without isolation")
	}

	var (
		loadedIDs []string
		errs      []error
	)
	for _, c := range manifest.Contributes.ReviewAlgorithms {
		algo, err := m.buildReview(sandboxed, id, dir, c)
		if err != nil {
			errs = append(errs, fmt.Errorf("review algorithm %q: %w", c.ID, err))
			continue
		}
		regID := m.registry.RegisterPluginReview(id, manifest.Name, c.ID, c.Name, c.Description, algo)
		loadedIDs = append(loadedIDs, regID)
	}
	for _, c := range manifest.Contributes.DiffAlgorithms {
		algo, err := m.buildDiff(sandboxed, id, dir, c)
		if err != nil {
			errs = append(errs, fmt.Errorf("diff algorithm %q: %w", c.ID, err))
			continue
		}
		regID := m.registry.RegisterPluginDiff(id, manifest.Name, c.ID, c.Name, c.Description, algo)
		loadedIDs = append(loadedIDs, regID)
	}

	declared := len(manifest.AllContributions())
	err := errors.Join(errs...)

	m.mu.Lock()
	info = m.plugins[id]
	info.LoadedAlgorithmIDs = loadedIDs
	if declared > 0 && len(loadedIDs) == 0 {
		info.Status = StatusError
		info.Err = err.Error()
	} else {
		info.Status = StatusLoaded
		if err != nil {
			info.Err = err.Error()
		}
	}
	status := info.Status
	m.mu.Unlock()

	if status == StatusError {
		m.emit(Event{Type: EventError, PluginID: id, Err: err})
		return err
	}

	m.log.Info().Str("plugin", id).Int("algorithms", len(loadedIDs)).Msg("plugin loaded")
	m.emit(Event{Type: EventLoaded, PluginID: id})
	return err
}

func (m *Manager) buildReview(sandboxed bool, pluginID, dir string, c Contribution) (algorithm.ReviewAlgorithm, error) {
	source, err := m.readSource(dir, c.Main)
	if err != nil {
		return nil, err
	}
	if sandboxed {
		m.exec.RegisterSource(algorithm.KindReview, pluginID, c.ID, c.Name, source)
		return m.exec.ReviewAlgorithm(pluginID, c.ID), nil
	}
	return sandbox.UnsafeReviewAlgorithm(source), nil
}

func (m *Manager) buildDiff(sandboxed bool, pluginID, dir string, c Contribution) (algorithm.DiffAlgorithm, error) {
	source, err := m.readSource(dir, c.Main)
	if err != nil {
		return nil, err
	}
	if sandboxed {
		m.exec.RegisterSource(algorithm.KindDiff, pluginID, c.ID, c.Name, source)
		return m.exec.DiffAlgorithm(pluginID, c.ID), nil
	}
	return sandbox.UnsafeDiffAlgorithm(source), nil
}

func (m *Manager) readSource(dir, rel string) (string, error) {
	path, err := securePath(dir, rel)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read algorithm source: %w", err)
	}
	return string(data), nil
}

// unregister removes everything the plugin contributed from the registry
// and the executor.
func (m *Manager) unregister(id string) {
	report := m.registry.UnregisterOwner(id)
	if m.exec != nil {
		m.exec.UnregisterOwner(id)
	}
	if !report.Empty() {
		m.log.Debug().Str("plugin", id).
			Int("review", len(report.ReviewIDs)).
			Int("diff", len(report.DiffIDs)).
			Msg("unregistered plugin algorithms")
	}
}

func (m *Manager) setError(id string, err error) {
	m.mu.Lock()
	if info, ok := m.plugins[id]; ok {
		info.Status = StatusError
		info.Err = err.Error()
	}
	m.mu.Unlock()
	m.emit(Event{Type: EventError, PluginID: id, Err: err})
}

func (m *Manager) persistSidecarLocked(info *Info) {
	sc := sidecar{Enabled: info.Enabled, InstalledAt: info.InstalledAt, UpdatedAt: info.UpdatedAt}
	if err := saveSidecar(info.Path, sc); err != nil {
		m.log.Warn().Str("plugin", info.ID).Err(err).Msg("failed to write plugin sidecar")
	}
}

// Get returns a copy of the named plugin's record.
func (m *Manager) Get(id string) (*Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.plugins[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}
	return info.clone(), nil
}

// GetAll returns copies of every plugin record in scan order. Passing
// statuses filters the result to plugins in one of those states.
func (m *Manager) GetAll(statuses ...Status) []*Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Info, 0, len(m.order))
	for _, id := range m.order {
		info := m.plugins[id]
		if len(statuses) > 0 && !slices.Contains(statuses, info.Status) {
			continue
		}
		out = append(out, info.clone())
	}
	return out
}

// Count returns the number of known plugins, including errored and
// disabled ones.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.plugins)
}

// Subscribe registers a lifecycle event handler and returns an
// unsubscribe function.
func (m *Manager) Subscribe(handler EventHandler) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
	idx := len(m.handlers) - 1
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if idx < len(m.handlers) {
			m.handlers[idx] = nil
		}
	}
}

func (m *Manager) emit(event Event) {
	m.mu.RLock()
	handlers := make([]EventHandler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.RUnlock()

	for _, h := range handlers {
		if h == nil {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.log.Error().Interface("panic", r).Str("event", event.Type.String()).
						Msg("plugin event handler panicked")
				}
			}()
			h(event)
		}()
	}
}

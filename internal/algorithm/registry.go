package algorithm

import (
	"sync"

	"github.com/rs/zerolog"
)

// Registry is the single source of truth for which algorithm implementations
// exist and which one is selected per kind.
//
// Mutating calls that can fail return a boolean or a removal report rather
// than an error: the registry is shared infrastructure and must never crash
// a caller over a missing id.
type Registry struct {
	mu sync.RWMutex

	entries map[string]*Registered

	// Registration order per kind, builtins and plugins tracked separately
	// so listing can present builtins first.
	builtinOrder map[Kind][]string
	pluginOrder  map[Kind][]string

	current map[Kind]string

	initialized bool

	handlers []EventHandler

	log zerolog.Logger
}

// RemovalReport lists the ids removed by UnregisterOwner, per kind.
type RemovalReport struct {
	ReviewIDs []string
	DiffIDs   []string
}

// Empty reports whether nothing was removed.
func (r RemovalReport) Empty() bool {
	return len(r.ReviewIDs) == 0 && len(r.DiffIDs) == 0
}

// NewRegistry creates an empty registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		entries:      make(map[string]*Registered),
		builtinOrder: make(map[Kind][]string),
		pluginOrder:  make(map[Kind][]string),
		current:      make(map[Kind]string),
		log:          log.With().Str("component", "algorithm-registry").Logger(),
	}
}

// Initialize seeds the builtin algorithms and the default current selections.
// Repeated calls are no-ops.
func (r *Registry) Initialize() {
	r.mu.Lock()
	if r.initialized {
		r.mu.Unlock()
		return
	}
	r.initialized = true

	r.registerLocked(&Registered{
		ID:          DefaultReviewID,
		Kind:        KindReview,
		Name:        "SM-2",
		Description: "SuperMemo 2 interval scheduling",
		OwnerID:     BuiltinOwnerID,
		OwnerName:   builtinOwnerName,
		IsBuiltin:   true,
		Review:      SM2{},
	})
	r.registerLocked(&Registered{
		ID:          ComposeID(KindReview, SourceBuiltin, BuiltinOwnerID, BuiltinReviewFixed),
		Kind:        KindReview,
		Name:        "Fixed Intervals",
		Description: "Fixed ladder of review intervals",
		OwnerID:     BuiltinOwnerID,
		OwnerName:   builtinOwnerName,
		IsBuiltin:   true,
		Review:      FixedInterval{},
	})
	r.registerLocked(&Registered{
		ID:          DefaultDiffID,
		Kind:        KindDiff,
		Name:        "Line Diff",
		Description: "Line-based longest-common-subsequence diff",
		OwnerID:     BuiltinOwnerID,
		OwnerName:   builtinOwnerName,
		IsBuiltin:   true,
		Diff:        LineDiff{},
	})

	r.current[KindReview] = DefaultReviewID
	r.current[KindDiff] = DefaultDiffID
	r.mu.Unlock()
}

// RegisterPluginReview stores a plugin-contributed review algorithm and
// returns its composite id. Re-registration under the same id overwrites the
// previous entry; that is expected during a reload.
func (r *Registry) RegisterPluginReview(ownerID, ownerName, localID, name, description string, algo ReviewAlgorithm) string {
	entry := &Registered{
		ID:          ComposeID(KindReview, SourcePlugin, ownerID, localID),
		Kind:        KindReview,
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		OwnerName:   ownerName,
		Review:      algo,
	}
	r.registerPlugin(entry)
	return entry.ID
}

// RegisterPluginDiff stores a plugin-contributed diff algorithm and returns
// its composite id.
func (r *Registry) RegisterPluginDiff(ownerID, ownerName, localID, name, description string, algo DiffAlgorithm) string {
	entry := &Registered{
		ID:          ComposeID(KindDiff, SourcePlugin, ownerID, localID),
		Kind:        KindDiff,
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		OwnerName:   ownerName,
		Diff:        algo,
	}
	r.registerPlugin(entry)
	return entry.ID
}

func (r *Registry) registerPlugin(entry *Registered) {
	r.mu.Lock()
	r.registerLocked(entry)
	r.mu.Unlock()

	r.log.Debug().Str("id", entry.ID).Msg("algorithm registered")
	r.emit(Event{Type: EventRegistered, Kind: entry.Kind, ID: entry.ID})
}

// registerLocked stores an entry and records registration order.
// Must be called with mu held.
func (r *Registry) registerLocked(entry *Registered) {
	if _, exists := r.entries[entry.ID]; !exists {
		if entry.IsBuiltin {
			r.builtinOrder[entry.Kind] = append(r.builtinOrder[entry.Kind], entry.ID)
		} else {
			r.pluginOrder[entry.Kind] = append(r.pluginOrder[entry.Kind], entry.ID)
		}
	}
	r.entries[entry.ID] = entry
}

// UnregisterOwner removes every non-builtin entry belonging to ownerID.
// If a removed id was the current selection for its kind, the selection
// atomically falls back to the builtin default and a currentChanged event
// fires. Idempotent: a second call returns an empty report.
func (r *Registry) UnregisterOwner(ownerID string) RemovalReport {
	var report RemovalReport
	var events []Event

	r.mu.Lock()
	for kind, order := range r.pluginOrder {
		kept := order[:0]
		for _, id := range order {
			entry := r.entries[id]
			if entry == nil || entry.OwnerID != ownerID {
				kept = append(kept, id)
				continue
			}
			delete(r.entries, id)
			switch kind {
			case KindReview:
				report.ReviewIDs = append(report.ReviewIDs, id)
			case KindDiff:
				report.DiffIDs = append(report.DiffIDs, id)
			}
			events = append(events, Event{Type: EventUnregistered, Kind: kind, ID: id})

			if r.current[kind] == id {
				fallback := r.defaultID(kind)
				r.current[kind] = fallback
				events = append(events, Event{Type: EventCurrentChanged, Kind: kind, ID: fallback})
			}
		}
		r.pluginOrder[kind] = kept
	}
	r.mu.Unlock()

	if !report.Empty() {
		r.log.Debug().Str("owner", ownerID).
			Int("review", len(report.ReviewIDs)).
			Int("diff", len(report.DiffIDs)).
			Msg("algorithms unregistered")
	}
	for _, ev := range events {
		r.emit(ev)
	}
	return report
}

// defaultID returns the builtin fallback id for a kind.
func (r *Registry) defaultID(kind Kind) string {
	if kind == KindDiff {
		return DefaultDiffID
	}
	return DefaultReviewID
}

// SetCurrent selects the current algorithm for a kind. Returns false without
// touching state if the id is unknown.
func (r *Registry) SetCurrent(kind Kind, id string) bool {
	r.mu.Lock()
	entry, ok := r.entries[id]
	if !ok || entry.Kind != kind {
		r.mu.Unlock()
		return false
	}
	changed := r.current[kind] != id
	r.current[kind] = id
	r.mu.Unlock()

	if changed {
		r.emit(Event{Type: EventCurrentChanged, Kind: kind, ID: id})
	}
	return true
}

// CurrentID returns the id of the current algorithm for a kind.
func (r *Registry) CurrentID(kind Kind) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current[kind]
}

// Current returns the current entry for a kind, or nil if the registry has
// not been initialized.
func (r *Registry) Current(kind Kind) *Registered {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[r.current[kind]]
}

// Get returns the entry for an id.
func (r *Registry) Get(id string) (*Registered, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	return entry, ok
}

// ListAvailable returns all entries of a kind: builtins first, then
// plugin-contributed, each group in registration order.
func (r *Registry) ListAvailable(kind Kind) []*Registered {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Registered, 0, len(r.builtinOrder[kind])+len(r.pluginOrder[kind]))
	for _, id := range r.builtinOrder[kind] {
		if entry, ok := r.entries[id]; ok {
			result = append(result, entry)
		}
	}
	for _, id := range r.pluginOrder[kind] {
		if entry, ok := r.entries[id]; ok {
			result = append(result, entry)
		}
	}
	return result
}

// ResetAll clears all entries, selections, and the initialized flag. Used
// when the registry must be re-seeded for a different workspace context.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	r.entries = make(map[string]*Registered)
	r.builtinOrder = make(map[Kind][]string)
	r.pluginOrder = make(map[Kind][]string)
	r.current = make(map[Kind]string)
	r.initialized = false
	r.mu.Unlock()
}

// Subscribe adds an event handler. Returns an unsubscribe function.
func (r *Registry) Subscribe(handler EventHandler) func() {
	if handler == nil {
		return func() {}
	}

	r.mu.Lock()
	r.handlers = append(r.handlers, handler)
	index := len(r.handlers) - 1
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		// Set to nil instead of removing to avoid index shifting issues
		if index < len(r.handlers) {
			r.handlers[index] = nil
		}
	}
}

// emit sends an event to all handlers outside any lock, recovering panics.
func (r *Registry) emit(event Event) {
	r.mu.RLock()
	handlers := make([]EventHandler, len(r.handlers))
	copy(handlers, r.handlers)
	r.mu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		func() {
			defer func() {
				recover() // Ignore panics from handlers
			}()
			handler(event)
		}()
	}
}

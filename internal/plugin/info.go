package plugin

import "time"

// Status is the lifecycle state of a plugin.
type Status string

// Plugin statuses. The happy path is scanned → loading → loaded; loading
// transitions to error when every declared contribution fails or the plugin
// is incompatible. Disabled is an orthogonal resting state reachable from
// loaded or error.
const (
	StatusScanned  Status = "scanned"
	StatusLoading  Status = "loading"
	StatusLoaded   Status = "loaded"
	StatusError    Status = "error"
	StatusDisabled Status = "disabled"
)

// Info is the runtime record for one discovered plugin. The manager is its
// only writer.
type Info struct {
	Manifest *Manifest
	ID       string
	Status   Status
	Enabled  bool
	Path     string

	InstalledAt time.Time
	UpdatedAt   time.Time

	// Err holds the last failure message; cleared on a successful
	// transition.
	Err string

	// LoadedAlgorithmIDs are the registry ids currently registered for this
	// plugin.
	LoadedAlgorithmIDs []string
}

// clone returns a copy safe to hand to callers.
func (i *Info) clone() *Info {
	c := *i
	c.LoadedAlgorithmIDs = append([]string(nil), i.LoadedAlgorithmIDs...)
	return &c
}

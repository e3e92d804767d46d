package plugin

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// sidecarName is the host-authored per-plugin state file. It sits next to
// the plugin-authored manifest but is never part of the plugin package.
const sidecarName = ".plugin-config.json"

// sidecar is the persisted host state for one plugin.
type sidecar struct {
	Enabled     bool      `json:"enabled"`
	InstalledAt time.Time `json:"installedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// loadSidecar reads the sidecar from a plugin directory. On first sight (no
// sidecar yet) it returns defaults: enabled, timestamps of now.
func loadSidecar(dir string) sidecar {
	now := time.Now().UTC()
	sc := sidecar{Enabled: true, InstalledAt: now, UpdatedAt: now}

	data, err := os.ReadFile(filepath.Join(dir, sidecarName))
	if err != nil {
		return sc
	}
	if err := json.Unmarshal(data, &sc); err != nil {
		return sidecar{Enabled: true, InstalledAt: now, UpdatedAt: now}
	}
	return sc
}

// saveSidecar persists the sidecar into a plugin directory.
func saveSidecar(dir string, sc sidecar) error {
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, sidecarName), data, 0o644)
}

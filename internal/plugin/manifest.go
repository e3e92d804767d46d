package plugin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ManifestName is the plugin-authored descriptor file, read-only to the host.
const ManifestName = "manifest.json"

// Manifest describes a plugin package: its identity, the host versions it
// claims compatibility with, and the algorithms it contributes.
type Manifest struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Version     string        `json:"version"`
	Description string        `json:"description,omitempty"`
	Author      string        `json:"author,omitempty"`
	Main        string        `json:"main"`
	Engines     Engines       `json:"engines"`
	Contributes Contributions `json:"contributes"`
}

// Engines declares host compatibility requirements.
type Engines struct {
	// HostVersion is a semver range; "*" or empty means always compatible.
	HostVersion string `json:"hostVersion,omitempty"`
}

// Contributions lists the algorithms a plugin provides.
type Contributions struct {
	ReviewAlgorithms []Contribution `json:"reviewAlgorithms,omitempty"`
	DiffAlgorithms   []Contribution `json:"diffAlgorithms,omitempty"`
}

// Contribution is one declared algorithm: its local id, display name, and
// the Lua source file implementing it, relative to the plugin directory.
type Contribution struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Main        string `json:"main"`
}

// idPattern validates plugin and contribution ids.
var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// LoadManifest reads and validates manifest.json from a plugin directory.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrManifestNotFound
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if err := m.Validate(dir); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest against the plugin directory it describes.
// Contribution paths that resolve outside the directory are rejected: a
// malicious manifest could otherwise point an algorithm entry at an
// arbitrary host file.
func (m *Manifest) Validate(dir string) error {
	if m.ID == "" {
		return ErrMissingID
	}
	if !idPattern.MatchString(m.ID) {
		return fmt.Errorf("%w: %s", ErrInvalidID, m.ID)
	}
	if m.Name == "" {
		return ErrMissingName
	}
	if m.Version == "" {
		return ErrMissingVersion
	}
	if _, err := semver.NewVersion(m.Version); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidVersion, m.Version)
	}

	if m.Main != "" {
		if _, err := securePath(dir, m.Main); err != nil {
			return err
		}
	}

	seen := make(map[string]bool)
	for _, c := range m.AllContributions() {
		if c.ID == "" {
			return ErrMissingContributionID
		}
		if seen[c.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateContribution, c.ID)
		}
		seen[c.ID] = true

		if c.Main == "" {
			return fmt.Errorf("%w (contribution %s)", ErrMissingContributionSrc, c.ID)
		}
		if _, err := securePath(dir, c.Main); err != nil {
			return fmt.Errorf("contribution %s: %w", c.ID, err)
		}
	}

	return nil
}

// AllContributions returns review contributions followed by diff
// contributions.
func (m *Manifest) AllContributions() []Contribution {
	all := make([]Contribution, 0, len(m.Contributes.ReviewAlgorithms)+len(m.Contributes.DiffAlgorithms))
	all = append(all, m.Contributes.ReviewAlgorithms...)
	all = append(all, m.Contributes.DiffAlgorithms...)
	return all
}

// CompatibleWith evaluates the declared host version range against the
// running host version. A malformed range is an error, which forces the
// plugin disabled at scan time.
func (m *Manifest) CompatibleWith(host *semver.Version) error {
	rng := strings.TrimSpace(m.Engines.HostVersion)
	if rng == "" || rng == "*" {
		return nil
	}

	constraint, err := semver.NewConstraint(rng)
	if err != nil {
		return fmt.Errorf("%w: invalid range %q", ErrIncompatible, rng)
	}
	if !constraint.Check(host) {
		return fmt.Errorf("%w: requires %q, host is %s", ErrIncompatible, rng, host)
	}
	return nil
}

// securePath resolves a manifest-relative path against the plugin directory
// and rejects anything that escapes it. This is the primary injection
// defense for plugin-authored paths.
func securePath(dir, rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, rel)
	}
	resolved := filepath.Join(dir, rel)
	relBack, err := filepath.Rel(dir, resolved)
	if err != nil || relBack == ".." || strings.HasPrefix(relBack, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, rel)
	}
	return resolved, nil
}

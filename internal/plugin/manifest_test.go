package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Masterminds/semver/v3"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ManifestName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{
		"id": "demo-sched",
		"name": "Demo Scheduler",
		"version": "1.2.0",
		"engines": {"hostVersion": ">=1.0.0"},
		"contributes": {
			"reviewAlgorithms": [
				{"id": "aggressive", "name": "Aggressive", "main": "aggressive.lua"}
			],
			"diffAlgorithms": [
				{"id": "word", "name": "Word Diff", "main": "word.lua"}
			]
		}
	}`)

	m, err := LoadManifest(dir)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.ID != "demo-sched" || m.Version != "1.2.0" {
		t.Errorf("unexpected identity: %s %s", m.ID, m.Version)
	}
	if got := len(m.AllContributions()); got != 2 {
		t.Errorf("AllContributions = %d, want 2", got)
	}
}

func TestLoadManifestMissing(t *testing.T) {
	if _, err := LoadManifest(t.TempDir()); !errors.Is(err, ErrManifestNotFound) {
		t.Errorf("error = %v, want ErrManifestNotFound", err)
	}
}

func TestManifestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "missing id",
			content: `{"name": "X", "version": "1.0.0"}`,
			wantErr: ErrMissingID,
		},
		{
			name:    "invalid id",
			content: `{"id": "Bad_ID!", "name": "X", "version": "1.0.0"}`,
			wantErr: ErrInvalidID,
		},
		{
			name:    "missing name",
			content: `{"id": "x", "version": "1.0.0"}`,
			wantErr: ErrMissingName,
		},
		{
			name:    "missing version",
			content: `{"id": "x", "name": "X"}`,
			wantErr: ErrMissingVersion,
		},
		{
			name:    "malformed version",
			content: `{"id": "x", "name": "X", "version": "not-semver"}`,
			wantErr: ErrInvalidVersion,
		},
		{
			name: "duplicate contribution ids across kinds",
			content: `{"id": "x", "name": "X", "version": "1.0.0", "contributes": {
				"reviewAlgorithms": [{"id": "same", "name": "A", "main": "a.lua"}],
				"diffAlgorithms": [{"id": "same", "name": "B", "main": "b.lua"}]
			}}`,
			wantErr: ErrDuplicateContribution,
		},
		{
			name: "contribution without source",
			content: `{"id": "x", "name": "X", "version": "1.0.0", "contributes": {
				"reviewAlgorithms": [{"id": "a", "name": "A"}]
			}}`,
			wantErr: ErrMissingContributionSrc,
		},
		{
			name: "path escape",
			content: `{"id": "x", "name": "X", "version": "1.0.0", "contributes": {
				"reviewAlgorithms": [{"id": "a", "name": "A", "main": "../../secrets.json"}]
			}}`,
			wantErr: ErrUnsafePath,
		},
		{
			name: "absolute path",
			content: `{"id": "x", "name": "X", "version": "1.0.0", "contributes": {
				"reviewAlgorithms": [{"id": "a", "name": "A", "main": "/etc/passwd"}]
			}}`,
			wantErr: ErrUnsafePath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, tt.content)
			_, err := LoadManifest(dir)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSecurePath(t *testing.T) {
	dir := t.TempDir()

	if _, err := securePath(dir, "algos/diff.lua"); err != nil {
		t.Errorf("nested relative path rejected: %v", err)
	}
	if _, err := securePath(dir, "../outside.lua"); !errors.Is(err, ErrUnsafePath) {
		t.Errorf("parent escape: error = %v, want ErrUnsafePath", err)
	}
	if _, err := securePath(dir, "a/../../outside.lua"); !errors.Is(err, ErrUnsafePath) {
		t.Errorf("indirect escape: error = %v, want ErrUnsafePath", err)
	}
}

func TestCompatibleWith(t *testing.T) {
	host := semver.MustParse("1.4.0")

	tests := []struct {
		name  string
		rng   string
		match bool
	}{
		{"empty range", "", true},
		{"wildcard", "*", true},
		{"satisfied range", ">=1.0.0 <2.0.0", true},
		{"caret satisfied", "^1.2.0", true},
		{"unsatisfied", "^2.0.0", false},
		{"malformed", "not a range", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Manifest{Engines: Engines{HostVersion: tt.rng}}
			err := m.CompatibleWith(host)
			if tt.match && err != nil {
				t.Errorf("CompatibleWith(%q) = %v, want nil", tt.rng, err)
			}
			if !tt.match && !errors.Is(err, ErrIncompatible) {
				t.Errorf("CompatibleWith(%q) = %v, want ErrIncompatible", tt.rng, err)
			}
		})
	}
}

package plugin

import "errors"

// Plugin system errors.
var (
	// ErrPluginNotFound is returned when a plugin id cannot be located.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrAlreadyInstalled is returned when installing over an existing
	// plugin without the overwrite flag.
	ErrAlreadyInstalled = errors.New("plugin already installed")

	// ErrManifestNotFound is returned when an archive or directory contains
	// no manifest.json.
	ErrManifestNotFound = errors.New("manifest.json not found")

	// ErrIncompatible is returned when a plugin's declared host version
	// range does not match the running host.
	ErrIncompatible = errors.New("plugin incompatible with host version")

	// ErrPluginDisabled is returned when an operation requires an enabled
	// plugin.
	ErrPluginDisabled = errors.New("plugin is disabled")

	// ErrUnsafePath is returned when a manifest path escapes the plugin's
	// own directory.
	ErrUnsafePath = errors.New("manifest path escapes plugin directory")
)

// Manifest validation errors.
var (
	ErrMissingID              = errors.New("manifest: id is required")
	ErrInvalidID              = errors.New("manifest: id must be lowercase alphanumeric with dashes")
	ErrMissingName            = errors.New("manifest: name is required")
	ErrMissingVersion         = errors.New("manifest: version is required")
	ErrInvalidVersion         = errors.New("manifest: version must be valid semver")
	ErrDuplicateContribution  = errors.New("manifest: duplicate contribution id")
	ErrMissingContributionID  = errors.New("manifest: contribution id is required")
	ErrMissingContributionSrc = errors.New("manifest: contribution main is required")
)

// Package main is the mnemo command line entry point. It wires the
// configuration store, algorithm registry, sandbox executor, and plugin
// manager together and exposes plugin and algorithm management commands.
package main

import (
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mnemo-app/mnemo/internal/algorithm"
	"github.com/mnemo-app/mnemo/internal/config"
	"github.com/mnemo-app/mnemo/internal/plugin"
	"github.com/mnemo-app/mnemo/internal/plugin/sandbox"
)

// Version information (set via ldflags during build).
var (
	version = "1.0.0"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// app holds the wired subsystems shared by all commands.
type app struct {
	store    *config.Store
	log      zerolog.Logger
	registry *algorithm.Registry
	executor *sandbox.Executor
	plugins  *plugin.Manager
}

type rootFlags struct {
	dataDir   string
	noSandbox bool
	verbose   bool
}

func newRootCommand() *cobra.Command {
	var (
		flags rootFlags
		a     *app
	)

	cmd := &cobra.Command{
		Use:           "mnemo",
		Short:         "Markdown notes with spaced repetition",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			a, err = newApp(flags)
			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a != nil && a.executor != nil {
				a.executor.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "application data directory")
	cmd.PersistentFlags().BoolVar(&flags.noSandbox, "no-sandbox", false, "run plugin code without isolation (unsafe)")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newPluginCommand(&a))
	cmd.AddCommand(newAlgoCommand(&a))

	return cmd
}

// newApp builds the subsystems in dependency order: config store, logger,
// registry, executor, plugin manager.
func newApp(flags rootFlags) (*app, error) {
	var opts []config.Option
	if flags.dataDir != "" {
		opts = append(opts, config.WithDataDir(flags.dataDir))
	}
	store := config.New(opts...)
	if err := store.Load(); err != nil {
		return nil, err
	}

	log := newLogger(store.LogLevel(), flags.verbose)

	registry := algorithm.NewRegistry(log)
	registry.Initialize()

	execTimeout, callTimeout, startupTimeout := store.SandboxTimeouts()
	executor := sandbox.NewExecutor(sandbox.Config{
		ExecTimeout:    execTimeout,
		CallTimeout:    callTimeout,
		StartupTimeout: startupTimeout,
		Disabled:       flags.noSandbox || !store.SandboxEnabled(),
	}, log)
	if err := executor.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to start sandbox executor: %w", err)
	}

	hostVersion, err := semver.NewVersion(version)
	if err != nil {
		hostVersion = semver.MustParse("0.0.0")
	}

	plugins := plugin.NewManager(plugin.Config{
		Root:        store.PluginsDir(),
		HostVersion: hostVersion,
		Registry:    registry,
		Executor:    executor,
		Logger:      log,
	})
	if err := plugins.Initialize(); err != nil {
		// Individual plugin failures should not block the CLI.
		log.Warn().Err(err).Msg("some plugins failed to load")
	}

	applySelections(store, registry, log)

	return &app{
		store:    store,
		log:      log,
		registry: registry,
		executor: executor,
		plugins:  plugins,
	}, nil
}

// applySelections restores the persisted algorithm choices. A selection
// whose algorithm is gone (plugin uninstalled out of band) falls back to
// the defaults silently kept by the registry.
func applySelections(store *config.Store, registry *algorithm.Registry, log zerolog.Logger) {
	if id := store.ReviewAlgorithm(); id != "" {
		if !registry.SetCurrent(algorithm.KindReview, id) {
			log.Warn().Str("id", id).Msg("configured review algorithm unavailable, using default")
		}
	}
	if id := store.DiffAlgorithm(); id != "" {
		if !registry.SetCurrent(algorithm.KindDiff, id) {
			log.Warn().Str("id", id).Msg("configured diff algorithm unavailable, using default")
		}
	}
}

func newLogger(level string, verbose bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
}

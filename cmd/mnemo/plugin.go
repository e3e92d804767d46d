package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPluginCommand(a **app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin",
		Short: "Manage installed plugins",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List installed plugins",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			plugins := (*a).plugins.GetAll()
			if len(plugins) == 0 {
				fmt.Println("no plugins installed")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tVERSION\tSTATUS\tALGORITHMS\tERROR")
			for _, p := range plugins {
				version := "-"
				if p.Manifest != nil {
					version = p.Manifest.Version
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					p.ID, version, p.Status, len(p.LoadedAlgorithmIDs), p.Err)
			}
			return w.Flush()
		},
	}

	var overwrite bool
	install := &cobra.Command{
		Use:   "install <archive.zip>",
		Short: "Install a plugin from a ZIP archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			info, err := (*a).plugins.InstallFromArchive(args[0], overwrite)
			if err != nil {
				return err
			}
			fmt.Printf("installed %s %s (%s)\n", info.ID, info.Manifest.Version, info.Status)
			return nil
		},
	}
	install.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing installation")

	enable := &cobra.Command{
		Use:   "enable <id>",
		Short: "Enable a plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return (*a).plugins.Enable(args[0])
		},
	}

	disable := &cobra.Command{
		Use:   "disable <id>",
		Short: "Disable a plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return (*a).plugins.Disable(args[0])
		},
	}

	uninstall := &cobra.Command{
		Use:   "uninstall <id>",
		Short: "Remove a plugin from disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return (*a).plugins.Uninstall(args[0])
		},
	}

	reload := &cobra.Command{
		Use:   "reload <id>",
		Short: "Reload a plugin's sources from disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return (*a).plugins.Reload(args[0])
		},
	}

	cmd.AddCommand(list, install, enable, disable, uninstall, reload)
	return cmd
}

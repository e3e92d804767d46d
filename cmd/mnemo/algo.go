package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mnemo-app/mnemo/internal/algorithm"
	"github.com/mnemo-app/mnemo/internal/config"
)

func newAlgoCommand(a **app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "algo",
		Short: "Manage scheduling and diff algorithms",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List available algorithms",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			reg := (*a).registry
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tOWNER\tCURRENT")
			for _, kind := range []algorithm.Kind{algorithm.KindReview, algorithm.KindDiff} {
				current := reg.CurrentID(kind)
				for _, entry := range reg.ListAvailable(kind) {
					mark := ""
					if entry.ID == current {
						mark = "*"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", entry.ID, entry.Name, entry.OwnerName, mark)
				}
			}
			return w.Flush()
		},
	}

	use := &cobra.Command{
		Use:   "use <id>",
		Short: "Select the current algorithm",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id := args[0]
			parsed, ok := algorithm.ParseID(id)
			if !ok {
				return fmt.Errorf("malformed algorithm id: %s", id)
			}
			if !(*a).registry.SetCurrent(parsed.Kind, id) {
				return fmt.Errorf("unknown algorithm: %s", id)
			}

			key := config.KeyReviewAlgorithm
			if parsed.Kind == algorithm.KindDiff {
				key = config.KeyDiffAlgorithm
			}
			if err := (*a).store.Set(key, id); err != nil {
				return err
			}
			fmt.Printf("using %s\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, use)
	return cmd
}

package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"ranked-crawler/internal/config"
)

func newConstantsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "constants",
		Short: "List supported leagues, regions and queue types",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printConstants(cmd.OutOrStdout())
		},
	}
}

func printConstants(w io.Writer) {
	fmt.Fprintln(w, "Leagues:")
	for _, l := range config.ValidLeagues {
		fmt.Fprintf(w, "  %s\n", l)
	}

	fmt.Fprintln(w, "Regions:")
	for _, r := range config.ValidRegions {
		fmt.Fprintf(w, "  %s\n", r)
	}

	fmt.Fprintln(w, "Queue types:")
	for _, q := range config.ValidQueueTypes {
		fmt.Fprintf(w, "  %s\n", q)
	}

	ids := make([]int, 0, len(config.SupportedQueueIDs))
	for id := range config.SupportedQueueIDs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fmt.Fprintln(w, "Match queue ids kept:")
	for _, id := range ids {
		fmt.Fprintf(w, "  %d (%s)\n", id, config.SupportedQueueIDs[id])
	}
}

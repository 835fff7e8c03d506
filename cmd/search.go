package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/conneroisu/devlog/internal/search"
	"github.com/conneroisu/devlog/internal/validation"
	"github.com/spf13/cobra"
)

var (
	searchLimit  int
	searchOutput *OutputFlags
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search site content",
	Long: `Search entries and posts. Title matches rank above tag matches,
which rank above body matches. Queries shorter than two characters return
nothing.

Examples:
  devlog search lighting
  devlog search "forest shader" -o json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearchCommand,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", search.DefaultOptions().Limit, "Maximum number of results (0 for no limit)")
	searchOutput = AddOutputFlags(searchCmd)
}

func runSearchCommand(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	snap, err := loadSnapshot(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	opts := search.DefaultOptions()
	opts.Limit = searchLimit
	query := validation.SanitizeQuery(strings.Join(args, " "))
	results := search.SearchWithOptions(query, snap.Entries, opts)

	return writeOutput(cmd.OutOrStdout(), searchOutput.Format, results, func(tw *tabwriter.Writer) {
		if len(results) == 0 {
			fmt.Fprintf(tw, "No results for %q\n", query)
			return
		}
		fmt.Fprintln(tw, "RELEVANCE\tID\tTITLE\tTAGS")
		for _, r := range results {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.Relevance, r.Entry.ID, r.Entry.Title, strings.Join(r.Entry.Tags, ","))
		}
	})
}

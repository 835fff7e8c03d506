package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/conneroisu/devlog/internal/journey"
	"github.com/spf13/cobra"
)

var (
	journeyTools    []string
	journeyTags     []string
	journeyMinScore string
	journeySearch   string
	journeyFacets   bool
	journeyOutput   *OutputFlags
)

var journeyCmd = &cobra.Command{
	Use:     "journey",
	Aliases: []string{"j"},
	Short:   "List journey log experiments",
	Long: `List journey log experiments filtered by tool, failure tag, minimum
result score and free text. Filters combine; within --tool and --tag any
listed value matches.

Examples:
  devlog journey                         # Every experiment
  devlog journey --tool Blender          # Blender experiments only
  devlog journey --min-score 4           # Experiments that went well
  devlog journey --facets                # Tool and failure tag counts`,
	RunE: runJourneyCommand,
}

func init() {
	rootCmd.AddCommand(journeyCmd)

	journeyCmd.Flags().StringSliceVar(&journeyTools, "tool", nil, "Keep experiments using any of these tools")
	journeyCmd.Flags().StringSliceVarP(&journeyTags, "tag", "t", nil, "Keep experiments with any of these failure tags")
	journeyCmd.Flags().StringVar(&journeyMinScore, "min-score", "0", "Minimum result score (0-5)")
	journeyCmd.Flags().StringVarP(&journeySearch, "search", "s", "", "Case-insensitive text filter on goal and fix")
	journeyCmd.Flags().BoolVar(&journeyFacets, "facets", false, "Show tool and failure tag counts instead of experiments")
	AddFlagValidation(journeyCmd, "min-score", ValidateScore)
	journeyOutput = AddOutputFlags(journeyCmd)
}

func runJourneyCommand(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	filter, err := journey.NewFilter(journeyTools, journeyTags, journeyMinScore, journeySearch)
	if err != nil {
		return err
	}

	snap, err := loadSnapshot(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if journeyFacets {
		facets := journey.Facets(snap.Journey)
		return writeOutput(out, journeyOutput.Format, facets, func(tw *tabwriter.Writer) {
			fmt.Fprintln(tw, "FACET\tVALUE\tCOUNT")
			for _, f := range facets.Tools {
				fmt.Fprintf(tw, "tool\t%s\t%d\n", f.Value, f.Count)
			}
			for _, f := range facets.FailureTags {
				fmt.Fprintf(tw, "failure\t%s\t%d\n", f.Value, f.Count)
			}
		})
	}

	logs := journey.Apply(snap.Journey, filter)
	return writeOutput(out, journeyOutput.Format, logs, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "DATE\tTOOL\tSCORE\tGOAL\tFAILURES")
		for _, l := range logs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				l.Date, l.Tool, strconv.Itoa(l.ResultScore), l.Goal, strings.Join(l.FailureTags, ","))
		}
	})
}

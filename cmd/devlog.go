package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/conneroisu/devlog/internal/content"
	"github.com/conneroisu/devlog/internal/devlog"
	"github.com/spf13/cobra"
)

var (
	devlogSearch  string
	devlogTags    []string
	devlogSortBy  string
	devlogOrder   string
	devlogGrouped bool
	devlogOutput  *OutputFlags
)

var devlogCmd = &cobra.Command{
	Use:     "devlog",
	Aliases: []string{"d"},
	Short:   "List devlog entries",
	Long: `List devlog entries filtered by text and tags and sorted by date,
title or version. With --grouped entries are bucketed by release version.
Groups are ordered by descending version string, with entries that have no
version filed under "Unversioned" and sorted by that name: after versions
that start with a lowercase letter such as v0.2.0, before numeric ones such
as 0.2.0.

Examples:
  devlog devlog                          # Newest entries first
  devlog devlog --search shader          # Entries mentioning "shader"
  devlog devlog --tag art --tag audio    # Entries tagged art or audio
  devlog devlog --sort-by title --order asc
  devlog devlog --grouped -o json`,
	RunE: runDevlogCommand,
}

func init() {
	rootCmd.AddCommand(devlogCmd)

	devlogCmd.Flags().StringVarP(&devlogSearch, "search", "s", "", "Case-insensitive text filter on title, task and date")
	devlogCmd.Flags().StringSliceVarP(&devlogTags, "tag", "t", nil, "Keep entries carrying any of these tags")
	devlogCmd.Flags().StringVar(&devlogSortBy, "sort-by", "date", "Sort field (date, title, version)")
	devlogCmd.Flags().StringVar(&devlogOrder, "order", "desc", "Sort order (asc, desc)")
	devlogCmd.Flags().BoolVarP(&devlogGrouped, "grouped", "g", false, "Group entries by release version")
	devlogOutput = AddOutputFlags(devlogCmd)
}

func runDevlogCommand(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	state, err := devlog.NewFilterState(devlogSearch, devlogTags, devlogSortBy, devlogOrder)
	if err != nil {
		return err
	}

	snap, err := loadSnapshot(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	entries := devlog.Apply(snap.Devlog, state)
	out := cmd.OutOrStdout()

	if devlogGrouped {
		groups := devlog.GroupByVersion(entries)
		return writeOutput(out, devlogOutput.Format, groups, func(tw *tabwriter.Writer) {
			for _, group := range groups {
				fmt.Fprintf(tw, "%s (%d)\n", group.Version, len(group.Entries))
				writeDevlogRows(tw, group.Entries, "  ")
			}
		})
	}

	return writeOutput(out, devlogOutput.Format, entries, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "DATE\tVERSION\tTITLE\tTAGS")
		writeDevlogRows(tw, entries, "")
	})
}

func writeDevlogRows(tw *tabwriter.Writer, entries []content.DevlogEntry, indent string) {
	for _, e := range entries {
		version := e.Version
		if version == "" {
			version = "-"
		}
		fmt.Fprintf(tw, "%s%s\t%s\t%s\t%s\n", indent, e.Date, version, e.Title, strings.Join(e.Tags, ","))
	}
}

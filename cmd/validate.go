package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/conneroisu/devlog/internal/journey"
	"github.com/spf13/cobra"
)

var validateOutput *OutputFlags

// validateCmd represents the validate command.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the content files load",
	Long: `Load every content file once and report what was found, or the first
file that failed to decode. Use it in CI before deploying content.

Examples:
  devlog validate
  devlog validate --content-dir ./site/content -o json`,
	RunE: runValidateCommand,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateOutput = AddOutputFlags(validateCmd)
}

// ValidationReport summarizes a successful content load.
type ValidationReport struct {
	Dir      string   `json:"dir" yaml:"dir"`
	Files    []string `json:"files" yaml:"files"`
	Entries  int      `json:"entries" yaml:"entries"`
	Devlog   int      `json:"devlog" yaml:"devlog"`
	Journey  int      `json:"journey" yaml:"journey"`
	Sections int      `json:"sections" yaml:"sections"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func runValidateCommand(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	snap, err := loadSnapshot(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("content is invalid: %w", err)
	}

	report := ValidationReport{
		Dir:      cfg.Content.Dir,
		Files:    snap.Files,
		Entries:  len(snap.Entries),
		Devlog:   len(snap.Devlog),
		Journey:  len(snap.Journey),
		Sections: len(snap.Sections),
	}
	for _, l := range snap.Journey {
		if l.ResultScore < journey.MinResultScore || l.ResultScore > journey.MaxResultScore {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("journey log %s has result score %d outside %d-%d",
					l.ID, l.ResultScore, journey.MinResultScore, journey.MaxResultScore))
		}
	}

	return writeOutput(cmd.OutOrStdout(), validateOutput.Format, report, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "Content directory:\t%s\n", report.Dir)
		fmt.Fprintf(tw, "Files loaded:\t%d\n", len(report.Files))
		fmt.Fprintf(tw, "Entries:\t%d\n", report.Entries)
		fmt.Fprintf(tw, "Devlog entries:\t%d\n", report.Devlog)
		fmt.Fprintf(tw, "Journey logs:\t%d\n", report.Journey)
		fmt.Fprintf(tw, "Sections:\t%d\n", report.Sections)
		for _, w := range report.Warnings {
			fmt.Fprintf(tw, "Warning:\t%s\n", w)
		}
	})
}

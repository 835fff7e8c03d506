package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --output.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

var validFormats = []string{FormatTable, FormatJSON, FormatYAML}

// OutputFlags provides the --output flag shared by the query commands.
type OutputFlags struct {
	Format string `flag:"output,o" desc:"Output format (table|json|yaml)" default:"table"`
}

// AddOutputFlags adds --output to cmd with format validation on Set.
func AddOutputFlags(cmd *cobra.Command) *OutputFlags {
	flags := &OutputFlags{}
	cmd.Flags().StringVarP(&flags.Format, "output", "o", FormatTable, "Output format (table|json|yaml)")
	AddFlagValidation(cmd, "output", ValidateFormat)
	return flags
}

// ValidateFormat rejects unknown output formats.
func ValidateFormat(format string) error {
	if !slices.Contains(validFormats, format) {
		return fmt.Errorf("invalid output format %s, must be one of: %s",
			format, strings.Join(validFormats, ", "))
	}
	return nil
}

// AddFlagValidation adds validation for a specific flag
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{
		Value:     flag.Value,
		validator: validator,
	}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.Value.Set(val)
}

// ValidatePort checks a port flag value.
func ValidatePort(portStr string) error {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", portStr)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}

	return nil
}

// ValidateScore checks a --min-score value.
func ValidateScore(s string) error {
	score, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid score: %s", s)
	}
	if score < 0 || score > 5 {
		return fmt.Errorf("score must be between 0 and 5, got %d", score)
	}
	return nil
}

// writeOutput renders v as JSON or YAML, or calls table for tabular
// output.
func writeOutput(w io.Writer, format string, v interface{}, table func(tw *tabwriter.Writer)) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return encoder.Close()
	case FormatTable, "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	default:
		return ValidateFormat(format)
	}
}

// Package cmd provides the command-line interface for the devlog site with
// configuration drawn from several sources.
//
// Configuration System:
//
//	Sources are applied with clear precedence:
//	1. Command-line flags (--config, --port, --content-dir, ...) - highest priority
//	2. DEVLOG_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (DEVLOG_SERVER_PORT, ...)
//	4. Configuration file (.devlog.yml) - lowest priority
//
// Environment Variables:
//
//	DEVLOG_CONFIG_FILE: Path to custom configuration file
//	DEVLOG_SERVER_PORT: Override server port
//	DEVLOG_SERVER_HOST: Override server host
//	DEVLOG_CONTENT_DIR: Override the content directory
//	And others following the DEVLOG_<SECTION>_<OPTION> pattern
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/conneroisu/devlog/internal/config"
	siteerrors "github.com/conneroisu/devlog/internal/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "devlog",
	Short: "Serve and query a game development devlog",
	Long: `devlog serves a single-page development log: searchable content,
a devlog grouped by release version, and a journey log of tool experiments.
Open pages receive live updates over a websocket when content changes.

Quick Start:
  devlog serve                     Start the site
  devlog search lighting           Search content from the terminal
  devlog devlog --grouped          List devlog entries by version
  devlog journey --min-score 4     List the journey log
  devlog validate                  Check that content files load`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		reportHints(rootCmd.ErrOrStderr(), err)
	}
	return err
}

// reportHints prints the help text attached to validation failures.
func reportHints(w io.Writer, err error) {
	for _, hint := range siteerrors.Suggestions(err) {
		fmt.Fprintln(w, "Hint:", hint)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .devlog.yml, can also use DEVLOG_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("content-dir", "", "directory holding the content files")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("content.dir", rootCmd.PersistentFlags().Lookup("content-dir"))
}

// initConfig picks the config file and enables DEVLOG_ environment
// overrides.
//
// Config file priority (highest to lowest):
//  1. --config flag
//  2. DEVLOG_CONFIG_FILE environment variable
//  3. .devlog.yml in the current directory
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("DEVLOG_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".devlog")
	}

	// DEVLOG_SERVER_PORT, DEVLOG_CONTENT_DIR, ...
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing config file is fine; defaults apply
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

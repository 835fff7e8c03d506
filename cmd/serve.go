package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/conneroisu/devlog/internal/content"
	"github.com/conneroisu/devlog/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the devlog site",
	Long: `Start the devlog site. In development the content directory is
watched and open pages are told to reload when it changes.

Examples:
  devlog serve                     # Serve on localhost:8080
  devlog serve -p 3000             # Serve on another port
  devlog serve --watch=false       # Serve without watching content`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().String("environment", "development", "Environment (development, production)")
	serveCmd.Flags().BoolP("watch", "w", false, "Watch content files and push live reloads")
	serveCmd.Flags().StringSlice("allowed-origins", nil, "Origins allowed for CORS and websocket connections")
	AddFlagValidation(serveCmd, "port", ValidatePort)

	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.environment", serveCmd.Flags().Lookup("environment"))
	viper.BindPFlag("server.allowed_origins", serveCmd.Flags().Lookup("allowed-origins"))
	viper.BindPFlag("content.watch", serveCmd.Flags().Lookup("watch"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := content.NewStore(content.NewLoader(cfg.Content, logger), logger)
	srv := server.New(cfg, store, logger)

	fmt.Fprintf(cmd.OutOrStdout(), "Starting devlog server at http://%s\n", cfg.Server.Addr())
	if err := srv.Start(ctx); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Server stopped")
	return nil
}

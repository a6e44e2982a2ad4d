package cmd

import (
	"fmt"

	"github.com/dionysius/drepo/internal/app"
	"github.com/dionysius/drepo/internal/config"
	"github.com/spf13/cobra"
)

var (
	serveHost string
	servePort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve <repository>",
	Short: "Serve a repository's destination directory via HTTP",
	Long: `Serve a repository's destination directory via HTTP for local testing.

Only filesystem destinations (a bare path or a file:// URL) can be served
this way. The server watches the directory and logs when a concurrent
mirror run changes it, for use as a local dev loop.`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "localhost", "address to bind the HTTP server to")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "port to bind the HTTP server to")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Shutdown()

	return application.Serve(ctx, args[0], serveHost, servePort)
}

package cmd

import (
	"fmt"

	"github.com/dionysius/drepo/internal/app"
	"github.com/dionysius/drepo/internal/config"
	"github.com/spf13/cobra"
)

var inspectAllRepos bool

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect [repos...]",
	Short: "Resolve configured feeds and report what they advertise, without writing anything",
	Long: `Fetch and verify each feed's manifest and print a summary of what it
advertises - distributions, components, architectures, and index entry
counts for APT feeds; the active release/tag filters for GitHub feeds.

Nothing is downloaded or written to the destination; this is a dry-run
sanity check of a repository's feed configuration.

Examples:
  aarg inspect vaultwarden             # Inspect a single repository
  aarg inspect --all                   # Inspect every configured repository`,
	RunE: runInspect,
}

func init() {
	addAllReposFlag(inspectCmd, &inspectAllRepos)
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := validateRepoArgs(args, inspectAllRepos); err != nil {
		return err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	repoNames, err := selectRepositories(cfg, args, inspectAllRepos)
	if err != nil {
		return err
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Shutdown()

	return application.Inspect(ctx, repoNames, realStdout)
}

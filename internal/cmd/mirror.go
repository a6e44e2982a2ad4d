package cmd

import (
	"fmt"

	"github.com/dionysius/drepo/internal/app"
	"github.com/dionysius/drepo/internal/config"
	"github.com/spf13/cobra"
)

var mirrorAllRepos bool

// mirrorCmd represents the mirror command
var mirrorCmd = &cobra.Command{
	Use:   "mirror [repos...]",
	Short: "Resolve, verify, and copy configured feeds into their destinations",
	Long: `Resolve every configured feed of the named repositories, verify it, and
copy the result into the repository's configured destination.

Examples:
  aarg mirror vaultwarden             # Mirror a single repository
  aarg mirror example vaultwarden     # Mirror multiple repositories
  aarg mirror --all                   # Mirror every configured repository`,
	RunE: runMirror,
}

func init() {
	addAllReposFlag(mirrorCmd, &mirrorAllRepos)
	rootCmd.AddCommand(mirrorCmd)
}

func runMirror(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := validateRepoArgs(args, mirrorAllRepos); err != nil {
		return err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	repoNames, err := selectRepositories(cfg, args, mirrorAllRepos)
	if err != nil {
		return err
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Shutdown()

	return application.Mirror(ctx, repoNames)
}

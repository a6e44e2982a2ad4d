package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/dionysius/drepo/internal/common"
	"github.com/dionysius/drepo/internal/config"
	"github.com/dionysius/drepo/internal/feed"
	"github.com/dionysius/drepo/internal/log"
	"github.com/dionysius/drepo/repository"
	"github.com/dionysius/drepo/repository/dispatch"
)

// Mirror resolves, verifies, and copies every configured feed of the
// named repositories into their configured destinations. Repositories run
// concurrently on the main worker pool; within a repository, each feed
// runs as its own task so a slow upstream doesn't block its siblings.
func (a *Application) Mirror(ctx context.Context, repoNames []string) error {
	group := a.MainPool.NewGroup()

	for _, name := range repoNames {
		repo, err := a.findRepository(name)
		if err != nil {
			return err
		}

		verifier, err := a.initializeVerifier(repo)
		if err != nil {
			return fmt.Errorf("failed to initialize verifier for %s: %w", repo.Name, err)
		}

		writer, err := dispatch.WriterFromString(ctx, repo.Destination)
		if err != nil {
			return fmt.Errorf("failed to resolve destination for %s: %w", repo.Name, err)
		}

		for _, feedOpts := range repo.Feeds {
			repo, feedOpts, verifier := repo, feedOpts, verifier
			group.SubmitErr(func() error {
				return a.runFeed(ctx, repo, feedOpts, verifier, writer)
			})
		}
	}

	if err := group.Wait(); err != nil {
		return err
	}

	slog.Info("Mirror complete", log.Success())

	return nil
}

// Fetch is an alias for Mirror kept for the "fetch" subcommand, which
// mirrors exactly the feeds of the named repositories without touching any
// siblings not named - the same operation as "mirror", just scoped by the
// caller to a subset of repositories.
func (a *Application) Fetch(ctx context.Context, repoNames []string) error {
	return a.Mirror(ctx, repoNames)
}

func (a *Application) findRepository(name string) (*config.RepositoryConfig, error) {
	for _, r := range a.Config.Repositories {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("repository not found: %s", name)
}

func (a *Application) runFeed(ctx context.Context, repo *config.RepositoryConfig, feedOpts *feed.FeedOptions, verifier *repository.Verifier, writer repository.Writer) error {
	slog.Info("Fetching", "repository", repo.Name, "feed", string(feedOpts.Type)+":"+feedOpts.Name)

	onEvent := a.logPublishEvent(repo.Name, feedOpts.Name)

	var feedInst feed.Feed
	var err error

	switch feedOpts.Type {
	case feed.FeedTypeGitHub:
		feedInst, err = feed.NewGithub(a.GitHubClient, a.HTTPClient, verifier, writer, feedOpts, a.MainPool, onEvent)
	case feed.FeedTypeAPT:
		resolver := a.resolverFor(feedOpts)
		root := repository.NewRootReader(feedOpts.DownloadURL.String(), resolver, verifier)
		feedInst = feed.NewApt(root, writer, feedOpts, a.MainPool, repo.Threads, onEvent)
	default:
		return fmt.Errorf("unsupported feed type: %s", feedOpts.Type)
	}
	if err != nil {
		return fmt.Errorf("failed to create feed %s: %w", feedOpts.Name, err)
	}

	if err := feedInst.Run(ctx); err != nil {
		return fmt.Errorf("failed to run feed %s: %w", feedOpts.Name, err)
	}

	return nil
}

// resolverFor returns a Resolver for an APT feed's upstream, backed by the
// configured disk cache directory: repeated mirror runs against the same
// upstream skip re-downloading files the cache already holds.
func (a *Application) resolverFor(feedOpts *feed.FeedOptions) repository.Resolver {
	return &common.CachingResolver{
		Downloader: a.Downloader,
		BaseURL:    feedOpts.DownloadURL.String(),
		CacheRoot:  filepath.Join(a.Config.Directories.GetCachePath(), feedOpts.RelativePath),
	}
}

// logPublishEvent returns a ProgressFunc that logs every loggable
// repository.PublishEvent at debug level, tagged with the repository and
// feed it came from. Progress events (write-sequence byte counters) are
// dropped here since there's no interactive progress bar to feed them to.
func (a *Application) logPublishEvent(repoName, feedName string) repository.ProgressFunc {
	return func(e repository.PublishEvent) {
		if !e.IsLoggable() {
			return
		}
		slog.Debug(e.String(), "repository", repoName, "feed", feedName)
	}
}

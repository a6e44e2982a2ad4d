package app

import (
	"context"
	"fmt"
	"io"

	"github.com/dionysius/drepo/internal/feed"
	"github.com/dionysius/drepo/release"
	"github.com/dionysius/drepo/repository"
)

// Inspect resolves and summarizes every configured feed of the named
// repositories without writing anything: it fetches (and verifies) each
// APT feed's Release/InRelease manifest and reports the distributions,
// components, and index entries it advertises, and for GitHub feeds the
// release/tag filters currently in effect. Useful to sanity-check a
// repository's configuration before committing to a full Mirror.
func (a *Application) Inspect(ctx context.Context, repoNames []string, out io.Writer) error {
	for _, name := range repoNames {
		repo, err := a.findRepository(name)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "repository %s -> %s\n", repo.Name, repo.Destination)

		verifier, err := a.initializeVerifier(repo)
		if err != nil {
			return fmt.Errorf("failed to initialize verifier for %s: %w", repo.Name, err)
		}

		for _, feedOpts := range repo.Feeds {
			if err := a.inspectFeed(ctx, feedOpts, verifier, out); err != nil {
				return fmt.Errorf("failed to inspect feed %s: %w", feedOpts.Name, err)
			}
		}
	}

	return nil
}

func (a *Application) inspectFeed(ctx context.Context, feedOpts *feed.FeedOptions, verifier *repository.Verifier, out io.Writer) error {
	fmt.Fprintf(out, "  feed %s:%s\n", feedOpts.Type, feedOpts.Name)

	switch feedOpts.Type {
	case feed.FeedTypeGitHub:
		fmt.Fprintf(out, "    releases=%v tags=%v\n", feedOpts.Releases, feedOpts.Tags)
		return nil
	case feed.FeedTypeAPT:
		resolver := a.resolverFor(feedOpts)
		root := repository.NewRootReader(feedOpts.DownloadURL.String(), resolver, verifier)

		for _, dm := range feedOpts.Distributions {
			rr, err := root.ReleaseReader(ctx, dm.Feed)
			if err != nil {
				return fmt.Errorf("distribution %s: %w", dm.Feed, err)
			}
			printDistributionSummary(out, dm, rr.File())

			entries, err := rr.ClassifiedEntries()
			if err != nil {
				return fmt.Errorf("distribution %s: %w", dm.Feed, err)
			}
			printEntryCounts(out, entries)
		}
		return nil
	default:
		return fmt.Errorf("unsupported feed type: %s", feedOpts.Type)
	}
}

func printDistributionSummary(out io.Writer, dm feed.DistributionMap, f *release.File) {
	fmt.Fprintf(out, "    dist %s -> %s (codename=%s components=%v architectures=%v)\n",
		dm.Feed, dm.Target, f.Codename, f.Components, f.Architectures)
}

func printEntryCounts(out io.Writer, entries []release.ClassifiedEntry) {
	counts := map[release.EntryKind]int{}
	for _, e := range entries {
		counts[e.Kind]++
	}
	fmt.Fprintf(out, "    indices: packages=%d sources=%d contents=%d other=%d\n",
		counts[release.KindPackages], counts[release.KindSources], counts[release.KindContents], counts[release.KindOther])
}

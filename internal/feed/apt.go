package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alitto/pond/v2"

	"github.com/dionysius/drepo/control"
	"github.com/dionysius/drepo/internal/common"
	"github.com/dionysius/drepo/release"
	"github.com/dionysius/drepo/repository"
)

// Apt mirrors one upstream APT repository into a destination Writer, one
// distribution at a time. Every byte that crosses from reader to writer -
// the Release manifest, the Packages/Sources indices, and the pool
// artifacts they reference - goes through repository.CopyFrom, so mirroring
// enforces the same digest checks a consuming client would apply.
type Apt struct {
	options *FeedOptions
	root    *repository.RootReader
	writer  repository.Writer
	pool    pond.Pool
	threads int
	onEvent repository.ProgressFunc
}

// NewApt binds a repository root reader and destination writer to a set of
// feed options. threads bounds how many indices/fetches are resolved
// concurrently per distribution.
func NewApt(root *repository.RootReader, writer repository.Writer, options *FeedOptions, pool pond.Pool, threads int, onEvent repository.ProgressFunc) *Apt {
	if threads <= 0 {
		threads = 4
	}
	return &Apt{options: options, root: root, writer: writer, pool: pool, threads: threads, onEvent: onEvent}
}

// Run mirrors every configured distribution concurrently.
func (a *Apt) Run(ctx context.Context) error {
	distPool := a.pool.NewSubpool(10)
	defer distPool.StopAndWait()

	group := distPool.NewGroup()
	for _, distMap := range a.options.Distributions {
		distMap := distMap
		group.SubmitErr(func() error {
			return a.processDist(ctx, distMap)
		})
	}
	return group.Wait()
}

func (a *Apt) processDist(ctx context.Context, distMap DistributionMap) error {
	rr, err := a.root.ReleaseReader(ctx, distMap.Feed)
	if err != nil {
		return fmt.Errorf("reading release for %s: %w", distMap.Feed, err)
	}

	sourceDir := "dists/" + strings.Trim(distMap.Feed, "/")
	destDir := "dists/" + strings.Trim(distMap.Target, "/")

	if err := a.copyManifests(ctx, sourceDir, destDir); err != nil {
		return fmt.Errorf("copying release manifest for %s: %w", distMap.Feed, err)
	}

	if err := a.copyIndices(ctx, rr, sourceDir, destDir, release.KindPackages); err != nil {
		return fmt.Errorf("copying package indices for %s: %w", distMap.Feed, err)
	}
	if err := a.mirrorBinaryPackages(ctx, rr, distMap.Target); err != nil {
		return fmt.Errorf("mirroring binary packages for %s: %w", distMap.Feed, err)
	}

	if a.options.Packages.Source {
		if err := a.copyIndices(ctx, rr, sourceDir, destDir, release.KindSources); err != nil {
			return fmt.Errorf("copying source indices for %s: %w", distMap.Feed, err)
		}
		if err := a.mirrorSourcePackages(ctx, rr, distMap.Target); err != nil {
			return fmt.Errorf("mirroring source packages for %s: %w", distMap.Feed, err)
		}
	}

	return nil
}

// copyManifests mirrors InRelease, Release, and Release.gpg verbatim.
// These were already verified by root.ReleaseReader; re-fetching here
// costs one extra round trip per manifest but keeps this function from
// needing access to ReleaseReader's already-consumed bytes. Release.gpg
// is optional and its absence (a NotFoundError) is not an error here -
// plenty of real mirrors publish no detached signature. InRelease and
// Release are both required.
func (a *Apt) copyManifests(ctx context.Context, sourceDir, destDir string) error {
	for _, name := range []string{"InRelease", "Release"} {
		if _, err := repository.CopyFrom(ctx, a.root.Resolver, sourceDir+"/"+name, nil, a.writer, destDir+"/"+name, a.onEvent); err != nil {
			return err
		}
	}

	if _, err := repository.CopyFrom(ctx, a.root.Resolver, sourceDir+"/Release.gpg", nil, a.writer, destDir+"/Release.gpg", a.onEvent); err != nil {
		var notFound *repository.NotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}

	return nil
}

// copyIndices mirrors the preferred-compression variant of every
// Packages or Sources entry at its published (nominal) path. Repositories
// that set Acquire-By-Hash: yes also publish by-hash copies of the same
// content under dists/{dist}/{component}/.../by-hash/{algo}/{hex}; those
// are not mirrored here, since resolving them requires the unexported
// by-hash path computation internal to ReleaseReader.resolveParagraphs.
func (a *Apt) copyIndices(ctx context.Context, rr *repository.ReleaseReader, sourceDir, destDir string, kind release.EntryKind) error {
	var entries map[string]release.ClassifiedEntry

	switch kind {
	case release.KindPackages:
		winners, err := rr.PackagesEntriesPreferredCompression()
		if err != nil {
			return err
		}
		entries = classifiedEntriesByPath(winners)
	case release.KindSources:
		winners, err := rr.SourcesEntriesPreferredCompression()
		if err != nil {
			return err
		}
		entries = classifiedEntriesByPath(winners)
	default:
		return fmt.Errorf("copyIndices: unsupported entry kind %v", kind)
	}

	for path, entry := range entries {
		expected := &repository.ExpectedContent{Size: entry.Size, Digest: entry.Digest}
		if _, err := repository.CopyFrom(ctx, a.root.Resolver, sourceDir+"/"+path, expected, a.writer, destDir+"/"+path, a.onEvent); err != nil {
			return err
		}
	}

	return nil
}

// classifiedEntriesByPath re-keys a compression-negotiated winners map by
// its entry's repository-relative path, discarding the classification key
// (component/architecture/installer) now that negotiation is done.
func classifiedEntriesByPath[K comparable](winners map[K]release.ClassifiedEntry) map[string]release.ClassifiedEntry {
	byPath := make(map[string]release.ClassifiedEntry, len(winners))
	for _, entry := range winners {
		byPath[entry.Path] = entry
	}
	return byPath
}

// mirrorBinaryPackages resolves every binary package this feed's
// architecture/source filters admit, applies retention, and copies the
// kept pool artifacts verbatim. The pool is shared across distributions,
// so fetch.Path doubles as the destination path.
func (a *Apt) mirrorBinaryPackages(ctx context.Context, rr *repository.ReleaseReader, targetDist string) error {
	archFilter := stringSet(a.options.Architectures)

	packagesFileFilter := func(entry release.ClassifiedEntry) bool {
		if entry.IsInstaller {
			return false
		}
		if len(archFilter) > 0 && !archFilter[entry.Architecture] {
			return false
		}
		if !a.options.Packages.Debug && strings.Contains(entry.Component, "debug") {
			return false
		}
		return true
	}

	binaryPackageFilter := func(p control.Paragraph) bool {
		name, _ := p.Get("Source")
		if name == "" {
			name, _ = p.Get("Package")
		}
		return common.MatchesGlobPatterns(a.options.Sources, name)
	}

	fetches, err := rr.ResolvePackageFetches(ctx, packagesFileFilter, binaryPackageFilter, a.threads)
	if err != nil {
		return err
	}

	kept, err := a.applyRetention(fetches, targetDist)
	if err != nil {
		return err
	}

	return a.copyFetches(ctx, kept)
}

// mirrorSourcePackages is the Sources-file analogue of
// mirrorBinaryPackages. A single source package expands into several
// file fetches (.dsc, .orig.tar.*, .debian.tar.*); since they all share
// one control paragraph, retention keeps or drops them together.
func (a *Apt) mirrorSourcePackages(ctx context.Context, rr *repository.ReleaseReader, targetDist string) error {
	sourcePackageFilter := func(p control.Paragraph) bool {
		name, _ := p.Get("Package")
		return common.MatchesGlobPatterns(a.options.Sources, name)
	}

	fetches, err := rr.ResolveSourceFetches(ctx, nil, sourcePackageFilter, a.threads)
	if err != nil {
		return err
	}

	binaryFetches := make([]repository.BinaryPackageFetch, len(fetches))
	for i, f := range fetches {
		binaryFetches[i] = repository.BinaryPackageFetch(f)
	}

	kept, err := a.applyRetention(binaryFetches, targetDist)
	if err != nil {
		return err
	}

	return a.copyFetches(ctx, kept)
}

// applyRetention groups fetches by (source package, package name,
// architecture) and keeps only the versions the feed's retention
// policies admit. Component (used only for policy bookkeeping) is
// recovered from the pool path itself: pool/{component}/....
func (a *Apt) applyRetention(fetches []repository.BinaryPackageFetch, targetDist string) ([]repository.BinaryPackageFetch, error) {
	collector := common.NewGenericRetentionCollector(a.options.RetentionPolicies, func(f repository.BinaryPackageFetch) (string, string, string, string) {
		p := f.Paragraph
		source, _ := p.Get("Source")
		if source == "" {
			source, _ = p.Get("Package")
		}
		name, _ := p.Get("Package")
		arch, _ := p.Get("Architecture")
		version, _ := p.Get("Version")
		return source, name, arch, version
	})

	for _, fetch := range fetches {
		if err := collector.Add(targetDist, poolComponent(fetch.Path), fetch); err != nil {
			return nil, err
		}
	}

	return collector.Kept()
}

func (a *Apt) copyFetches(ctx context.Context, fetches []repository.BinaryPackageFetch) error {
	fetchPool := a.pool.NewSubpool(10)
	defer fetchPool.StopAndWait()

	group := fetchPool.NewGroup()
	for _, fetch := range fetches {
		fetch := fetch
		group.SubmitErr(func() error {
			expected := &repository.ExpectedContent{Size: fetch.Size, Digest: fetch.Digest}
			_, err := repository.CopyFrom(ctx, a.root.Resolver, fetch.Path, expected, a.writer, fetch.Path, a.onEvent)
			return err
		})
	}
	return group.Wait()
}

// poolComponent recovers a pool artifact's archive component
// (main/contrib/non-free/...) from its canonical pool/{component}/...
// path, since neither BinaryPackageFetch nor the control paragraph it
// wraps carries the component directly.
func poolComponent(poolPath string) string {
	trimmed := strings.TrimPrefix(poolPath, "pool/")
	if trimmed == poolPath {
		return common.MainComponent
	}
	if i := strings.Index(trimmed, "/"); i >= 0 {
		return trimmed[:i]
	}
	return common.MainComponent
}

func stringSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

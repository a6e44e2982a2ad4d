package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/alitto/pond/v2"
	"github.com/google/go-github/v80/github"

	"github.com/dionysius/drepo/control"
	"github.com/dionysius/drepo/digest"
	"github.com/dionysius/drepo/internal/common"
	"github.com/dionysius/drepo/repository"
)

// githubNormalizeRegex matches characters GitHub strips from uploaded
// asset names, replacing each with a dot.
var githubNormalizeRegex = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Github mirrors the pool artifacts referenced by a GitHub release's
// .changes files into a destination Writer, following the same chain of
// trust a real apt client relies on: the signed .changes carries
// checksums for the .dsc it names, and a signed .dsc carries checksums
// for the source files it names in turn. Binary packages are trusted
// directly off the .changes checksum table.
type Github struct {
	options    *FeedOptions
	client     *github.Client
	httpClient *http.Client
	owner, repo string
	verifier   *repository.Verifier
	writer     repository.Writer
	pool       pond.Pool
	onEvent    repository.ProgressFunc
	collector  *common.GenericRetentionCollector[githubChanges]
}

// NewGithub parses options.Name as "owner/repo" and binds a GitHub API
// client, an HTTP client for downloading release assets, a verifier for
// the .changes/.dsc signature chain, and the destination writer.
func NewGithub(client *github.Client, httpClient *http.Client, verifier *repository.Verifier, writer repository.Writer, options *FeedOptions, pool pond.Pool, onEvent repository.ProgressFunc) (*Github, error) {
	parts := strings.SplitN(options.Name, "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("github feed name must be 'owner/repo', got: %s", options.Name)
	}

	return &Github{
		options:    options,
		client:     client,
		httpClient: httpClient,
		owner:      parts[0],
		repo:       parts[1],
		verifier:   verifier,
		writer:     writer,
		pool:       pool,
		onEvent:    onEvent,
		collector:  newGithubChangesRetentionCollector(options.RetentionPolicies),
	}, nil
}

// githubChanges is one retention-tracked .changes file: its parsed and
// verified control paragraph, plus the release it came from and the
// fields the retention collector groups on.
type githubChanges struct {
	paragraph control.Paragraph
	release   *github.RepositoryRelease
	source    string
	version   string
	dist      string
}

// Run lists every release, extracts and retention-filters their .changes
// files, then copies the kept releases' referenced artifacts.
func (s *Github) Run(ctx context.Context) error {
	releasePool := s.pool.NewSubpool(10)
	defer releasePool.StopAndWait()
	group := releasePool.NewGroup()

	opt := &github.ListOptions{PerPage: 100}
	for {
		releases, resp, err := s.client.Repositories.ListReleases(ctx, s.owner, s.repo, opt)
		if err != nil {
			return err
		}

		for _, rel := range releases {
			if !s.matchesReleaseType(rel) {
				continue
			}
			if !common.MatchesGlobPatterns(s.options.Tags, rel.GetTagName()) {
				continue
			}

			rel := rel
			group.SubmitErr(func() error {
				return s.processRelease(ctx, rel)
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	if err := group.Wait(); err != nil {
		return err
	}

	kept, err := s.collector.Kept()
	if err != nil {
		return err
	}

	copyPool := s.pool.NewSubpool(10)
	defer copyPool.StopAndWait()
	copyGroup := copyPool.NewGroup()
	for _, gc := range kept {
		gc := gc
		copyGroup.SubmitErr(func() error {
			return s.copyKeptChanges(ctx, gc)
		})
	}
	return copyGroup.Wait()
}

func (s *Github) processRelease(ctx context.Context, release *github.RepositoryRelease) error {
	pool := s.pool.NewSubpool(10)
	defer pool.StopAndWait()
	group := pool.NewGroup()

	for _, asset := range release.Assets {
		if strings.HasSuffix(asset.GetName(), ".changes") {
			asset := asset
			group.SubmitErr(func() error {
				return s.processChangesAsset(ctx, asset, release)
			})
		}
	}
	return group.Wait()
}

func (s *Github) processChangesAsset(ctx context.Context, asset *github.ReleaseAsset, release *github.RepositoryRelease) error {
	data, err := s.downloadAsset(ctx, asset.GetBrowserDownloadURL())
	if err != nil {
		return err
	}

	paragraph, err := parseClearsigned(s.verifier, data, asset.GetName())
	if err != nil {
		return err
	}

	dist, _ := paragraph.Get("Distribution")
	source, _ := paragraph.Get("Source")
	version, _ := paragraph.Get("Version")

	if !s.shouldIncludeDistribution(dist) {
		return nil
	}
	if !common.MatchesGlobPatterns(s.options.Sources, source) {
		return nil
	}

	return s.collector.Add(dist, common.MainComponent, githubChanges{
		paragraph: paragraph,
		release:   release,
		source:    source,
		version:   version,
		dist:      dist,
	})
}

// copyKeptChanges copies every file a kept .changes paragraph references:
// binary packages trusted directly off the .changes checksum table, and
// (if source packages are requested) the .dsc plus the files it in turn
// references.
func (s *Github) copyKeptChanges(ctx context.Context, gc githubChanges) error {
	files, err := parseChecksumTable(gc.paragraph)
	if err != nil {
		return err
	}

	group := s.pool.NewGroup()

	for _, f := range files {
		f := f
		switch {
		case strings.HasSuffix(f.name, ".dsc"):
			if s.options.Packages.Source {
				group.SubmitErr(func() error {
					return s.copyDscChain(ctx, f, gc)
				})
			}
		case strings.HasSuffix(f.name, ".deb") || strings.HasSuffix(f.name, ".ddeb"):
			if !s.options.Packages.Debug && isDebugArtifactName(f.name) {
				continue
			}
			group.SubmitErr(func() error {
				return s.copyReferencedFile(ctx, f, gc.release, gc.dist, gc.source)
			})
		}
	}

	return group.Wait()
}

// copyDscChain copies the .dsc itself (trusted off the .changes checksum)
// then parses it - verifying its own clearsign if present, falling back
// to unsigned since the .changes envelope already vouches for its
// checksum - and copies every file it references in turn.
func (s *Github) copyDscChain(ctx context.Context, dscFile checksummedFile, gc githubChanges) error {
	asset, err := findAssetByFilename(gc.release, dscFile.name)
	if err != nil {
		return err
	}

	data, err := s.downloadAsset(ctx, asset.GetBrowserDownloadURL())
	if err != nil {
		return err
	}

	if err := verifyDigest(data, dscFile); err != nil {
		return err
	}

	if err := s.writeAsset(ctx, asset, dscFile.name, gc.dist, data); err != nil {
		return err
	}

	dscParagraph, err := parseClearsignedOrUnsigned(s.verifier, data, dscFile.name)
	if err != nil {
		return err
	}

	referenced, err := parseChecksumTable(dscParagraph)
	if err != nil {
		return err
	}

	group := s.pool.NewGroup()
	for _, f := range referenced {
		if f.name == dscFile.name {
			continue
		}
		f := f
		group.SubmitErr(func() error {
			return s.copyReferencedFile(ctx, f, gc.release, gc.dist, gc.source)
		})
	}
	return group.Wait()
}

func (s *Github) copyReferencedFile(ctx context.Context, f checksummedFile, release *github.RepositoryRelease, dist, source string) error {
	asset, err := findAssetByFilename(release, f.name)
	if err != nil {
		return err
	}

	data, err := s.downloadAsset(ctx, asset.GetBrowserDownloadURL())
	if err != nil {
		return err
	}

	if err := verifyDigest(data, f); err != nil {
		return err
	}

	return s.writeAsset(ctx, asset, f.name, dist, data)
}

// writeAsset hands data to repository.CopyFrom via the null/filesystem/S3
// writer that was bound to this feed, using pool/{dist}/{name} as the
// destination so every kept release's artifacts for one distribution land
// together regardless of which release produced them.
func (s *Github) writeAsset(ctx context.Context, asset *github.ReleaseAsset, name, dist string, data []byte) error {
	destPath := "pool/" + dist + "/" + name
	resolver := literalBytesResolver{path: asset.GetBrowserDownloadURL(), data: data}
	_, err := repository.CopyFrom(ctx, resolver, asset.GetBrowserDownloadURL(), nil, s.writer, destPath, s.onEvent)
	return err
}

func (s *Github) downloadAsset(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &repository.IoPathError{Path: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &repository.NotFoundError{Path: url}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &repository.IoPathError{Path: url, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	return io.ReadAll(resp.Body)
}

// literalBytesResolver hands back data already in memory, regardless of
// the path requested - writeAsset's callers already downloaded and
// checksum-verified the asset, so this exists purely to let repository.CopyFrom's
// write-and-event-emission path do the actual WritePath call.
type literalBytesResolver struct {
	path string
	data []byte
}

func (r literalBytesResolver) GetPath(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(r.data)), nil
}

// checksummedFile is one row of a .changes/.dsc Files or Checksums-Sha256
// table.
type checksummedFile struct {
	name   string
	size   int64
	digest digest.Digest
}

// parseChecksumTable prefers the Checksums-Sha256 table (hash size name
// triples); falling back to the legacy Files table (md5 size section
// priority name, or md5 size name for a .dsc) when no stronger table is
// present. Multi-line field values arrive from control.Paragraph already
// joined with single spaces, so re-tokenizing with strings.Fields and
// chunking is how the table rows are recovered.
func parseChecksumTable(p control.Paragraph) ([]checksummedFile, error) {
	if raw, ok := p.Get("Checksums-Sha256"); ok && raw != "" {
		return chunkChecksumFields(strings.Fields(raw), 3, digest.SHA256)
	}
	if raw, ok := p.Get("Files"); ok && raw != "" {
		fields := strings.Fields(raw)
		// Files: md5 size [section priority] name - 3 fields per row for a
		// .dsc, 5 for a .changes. Detect by checking whether the total count
		// divides evenly by 5 before falling back to 3.
		if len(fields)%5 == 0 {
			return chunkChecksumFieldsWithNameIndex(fields, 5, 4, digest.MD5)
		}
		return chunkChecksumFields(fields, 3, digest.MD5)
	}
	return nil, nil
}

func chunkChecksumFields(fields []string, chunkSize int, algo digest.Algorithm) ([]checksummedFile, error) {
	return chunkChecksumFieldsWithNameIndex(fields, chunkSize, chunkSize-1, algo)
}

func chunkChecksumFieldsWithNameIndex(fields []string, chunkSize, nameIndex int, algo digest.Algorithm) ([]checksummedFile, error) {
	if len(fields)%chunkSize != 0 {
		return nil, fmt.Errorf("checksum table has %d fields, not a multiple of %d", len(fields), chunkSize)
	}

	var out []checksummedFile
	for i := 0; i+chunkSize <= len(fields); i += chunkSize {
		row := fields[i : i+chunkSize]
		size, err := strconv.ParseInt(row[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing checksum table size field %q: %w", row[1], err)
		}
		d, err := digest.New(algo, row[0])
		if err != nil {
			return nil, err
		}
		out = append(out, checksummedFile{name: row[nameIndex], size: size, digest: d})
	}
	return out, nil
}

func verifyDigest(data []byte, f checksummedFile) error {
	hasher := digest.NewHasher(f.digest.Algorithm)
	if hasher == nil {
		return fmt.Errorf("unsupported digest algorithm %s", f.digest.Algorithm)
	}
	_, _ = hasher.Write(data)
	actual := digest.Digest{Algorithm: f.digest.Algorithm, Value: hasher.Sum(nil)}

	if !actual.Equal(f.digest) || int64(len(data)) != f.size {
		return &repository.IntegrityMismatchError{
			Path: f.name, Expected: f.digest, Actual: actual,
			SizeWant: f.size, SizeGot: int64(len(data)),
		}
	}
	return nil
}

// parseClearsigned verifies data as a clearsigned control file and
// requires verification to succeed (or AcceptUnsigned to be set).
func parseClearsigned(verifier *repository.Verifier, data []byte, source string) (control.Paragraph, error) {
	rc, _, err := verifier.VerifyAndClear(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return control.ReadSingle(rc, source)
}

// parseClearsignedOrUnsigned retries with an unsigned-accepting verifier
// when the strict pass fails on a signature-specific error. This mirrors
// how a .dsc inside an already-verified .changes is commonly unsigned in
// practice (OBS-built and CI-built source packages included) while the
// .changes envelope itself still vouches for the .dsc's checksum.
func parseClearsignedOrUnsigned(verifier *repository.Verifier, data []byte, source string) (control.Paragraph, error) {
	p, err := parseClearsigned(verifier, data, source)
	if err == nil {
		return p, nil
	}
	if err != repository.ErrMissingSignature && err != repository.ErrSignatureVerificationFailed {
		return nil, err
	}

	unsigned := &repository.Verifier{Verifier: verifier.Verifier, AcceptUnsigned: true, IgnoreSignatures: verifier.IgnoreSignatures}
	return parseClearsigned(unsigned, data, source)
}

// isDebugArtifactName flags debug symbol packages by Debian's dbgsym
// naming convention.
func isDebugArtifactName(name string) bool {
	base := strings.TrimSuffix(strings.TrimSuffix(name, ".ddeb"), ".deb")
	return strings.Contains(base, "-dbgsym") || strings.Contains(base, "-dbg")
}

func findAssetByFilename(release *github.RepositoryRelease, filename string) (*github.ReleaseAsset, error) {
	normalized := githubNormalizeRegex.ReplaceAllString(filename, ".")
	for _, a := range release.Assets {
		if a.GetName() == normalized || a.GetName() == filename {
			return a, nil
		}
	}
	return nil, fmt.Errorf("could not find release asset for file %s", filename)
}

// newGithubChangesRetentionCollector groups kept .changes files by source
// name, using "source" as the architecture bucket since a .changes
// describes a whole source upload rather than one architecture's build.
func newGithubChangesRetentionCollector(retention []common.RetentionPolicy) *common.GenericRetentionCollector[githubChanges] {
	return common.NewGenericRetentionCollector(
		retention,
		func(gc githubChanges) (string, string, string, string) {
			return gc.source, gc.source, "source", gc.version
		},
	)
}

// matchesReleaseType classifies a release and checks it against the
// configured filter. No filter configured means "normal releases only."
func (s *Github) matchesReleaseType(release *github.RepositoryRelease) bool {
	var releaseType ReleaseType
	switch {
	case release.GetDraft():
		releaseType = ReleaseTypeDraft
	case release.GetPrerelease():
		releaseType = ReleaseTypePrerelease
	default:
		releaseType = ReleaseTypeRelease
	}

	if len(s.options.Releases) == 0 {
		return releaseType == ReleaseTypeRelease
	}
	return slices.Contains(s.options.Releases, releaseType)
}

// shouldIncludeDistribution allows all distributions in discover mode (no
// Distributions configured), otherwise requires a feed-side match.
func (s *Github) shouldIncludeDistribution(dist string) bool {
	if len(s.options.Distributions) == 0 {
		return true
	}
	for _, distMap := range s.options.Distributions {
		if distMap.Feed == dist {
			return true
		}
	}
	return false
}

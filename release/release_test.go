package release_test

import (
	"testing"

	"github.com/dionysius/drepo/digest"
	"github.com/dionysius/drepo/release"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRelease = `Origin: Test
Label: Test
Suite: test
Codename: test
Date: Mon, 02 Jan 2023 15:04:05 UTC
Architectures: amd64 arm64
Components: main contrib
Acquire-By-Hash: yes
SHA256:
 e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855     0 main/binary-amd64/Packages
 2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824      5 main/source/Sources.xz
`

func TestParseBasicFields(t *testing.T) {
	f, err := release.Parse("Release", []byte(sampleRelease))
	require.NoError(t, err)
	assert.Equal(t, "test", f.Suite)
	assert.Equal(t, "test", f.Codename)
	assert.Equal(t, []string{"amd64", "arm64"}, f.Architectures)
	assert.Equal(t, []string{"main", "contrib"}, f.Components)
	assert.True(t, f.AcquireByHash)

	algo, entries, err := f.RetrieveChecksum()
	require.NoError(t, err)
	assert.Equal(t, digest.SHA256, algo)
	require.Len(t, entries, 2)
}

func TestParseRejectsPathWithSpaces(t *testing.T) {
	const withSpace = `Suite: test
SHA256:
 e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855     0 main/binary amd64/Packages
`
	_, err := release.Parse("Release", []byte(withSpace))
	require.Error(t, err)
	var pathErr *release.PathWithSpacesError
	require.ErrorAs(t, err, &pathErr)
}

func TestRetrieveChecksumFailsWithoutKnownAlgorithm(t *testing.T) {
	f, err := release.Parse("Release", []byte("Suite: test\n"))
	require.NoError(t, err)
	_, _, err = f.RetrieveChecksum()
	require.Error(t, err)
	var noKnown *release.NoKnownChecksumError
	require.ErrorAs(t, err, &noKnown)
}

func TestClassifyPackagesAndSources(t *testing.T) {
	f, err := release.Parse("Release", []byte(sampleRelease))
	require.NoError(t, err)
	_, entries, err := f.RetrieveChecksum()
	require.NoError(t, err)

	var classified []release.ClassifiedEntry
	for _, e := range entries {
		classified = append(classified, release.Classify(e))
	}

	require.Len(t, classified, 2)
	assert.Equal(t, release.KindPackages, classified[0].Kind)
	assert.Equal(t, "main", classified[0].Component)
	assert.Equal(t, "amd64", classified[0].Architecture)

	assert.Equal(t, release.KindSources, classified[1].Kind)
	assert.Equal(t, "main", classified[1].Component)
}

func TestClassifyDebianInstallerAndContentsAndTranslation(t *testing.T) {
	cases := []struct {
		path string
		kind release.EntryKind
	}{
		{"main/debian-installer/binary-amd64/Packages.gz", release.KindPackages},
		{"main/Contents-amd64.gz", release.KindContents},
		{"main/debian-installer/Contents-amd64.gz", release.KindContents},
		{"main/i18n/Translation-en.bz2", release.KindTranslation},
		{"main/binary-amd64/Packages.diff/Index", release.KindDiffIndex},
		{"README", release.KindOther},
	}
	for _, tc := range cases {
		entry := release.ChecksumEntry{Path: tc.path}
		got := release.Classify(entry)
		assert.Equal(t, tc.kind, got.Kind, tc.path)
	}
}

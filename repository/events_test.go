package repository_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dionysius/drepo/repository"
)

func TestPublishEventIsProgressCoversWriteSequenceFamily(t *testing.T) {
	progress := []repository.EventKind{
		repository.EventWriteSequenceBeginWithTotalBytes,
		repository.EventWriteSequenceProgressBytes,
		repository.EventWriteSequenceFinished,
	}
	for _, kind := range progress {
		e := repository.PublishEvent{Kind: kind}
		assert.True(t, e.IsProgress(), kind)
		assert.False(t, e.IsLoggable(), kind)
	}
}

func TestPublishEventIsLoggableCoversEverythingElse(t *testing.T) {
	loggable := []repository.EventKind{
		repository.EventResolvedPoolArtifacts,
		repository.EventPoolArtifactCurrent,
		repository.EventPoolArtifactMissing,
		repository.EventPoolArtifactsToPublish,
		repository.EventPoolArtifactCreated,
		repository.EventIndexFileToWrite,
		repository.EventIndexFileWritten,
		repository.EventVerifyingDestinationPath,
		repository.EventCopyPhaseBegin,
		repository.EventCopyPhaseEnd,
		repository.EventCopyingPath,
		repository.EventCopyIndicesPathNotFound,
		repository.EventPathCopied,
		repository.EventPathCopyNoop,
	}
	for _, kind := range loggable {
		e := repository.PublishEvent{Kind: kind}
		assert.True(t, e.IsLoggable(), kind)
		assert.False(t, e.IsProgress(), kind)
	}
}

func TestPublishEventStringRendersKindSpecificFields(t *testing.T) {
	cases := []struct {
		name     string
		event    repository.PublishEvent
		contains string
	}{
		{
			name:     "resolved pool artifacts",
			event:    repository.PublishEvent{Kind: repository.EventResolvedPoolArtifacts, Count: 42},
			contains: "42",
		},
		{
			name:     "copying path",
			event:    repository.PublishEvent{Kind: repository.EventCopyingPath, Path: "pool/a.deb", Dest: "repo/pool/a.deb"},
			contains: "pool/a.deb -> repo/pool/a.deb",
		},
		{
			name:     "copy phase begin",
			event:    repository.PublishEvent{Kind: repository.EventCopyPhaseBegin, Phase: repository.CopyPhaseSources},
			contains: "sources",
		},
		{
			name:     "path copied",
			event:    repository.PublishEvent{Kind: repository.EventPathCopied, Path: "pool/a.deb", Size: 1024},
			contains: "1024 bytes",
		},
		{
			name:     "write sequence progress",
			event:    repository.PublishEvent{Kind: repository.EventWriteSequenceProgressBytes, Bytes: 2048},
			contains: "2048 bytes",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Contains(t, tc.event.String(), tc.contains)
		})
	}
}

func TestCopyPhaseStringCoversAllRecognizedPhases(t *testing.T) {
	phases := []repository.CopyPhase{
		repository.CopyPhaseBinaryPackages,
		repository.CopyPhaseInstallerBinaryPackages,
		repository.CopyPhaseSources,
		repository.CopyPhaseInstallers,
		repository.CopyPhaseReleaseIndices,
		repository.CopyPhaseReleaseFiles,
	}
	for _, p := range phases {
		assert.NotEqual(t, "unknown", p.String())
	}
	assert.Equal(t, "unknown", repository.CopyPhase(999).String())
}

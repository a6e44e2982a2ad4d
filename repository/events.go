package repository

import "fmt"

// CopyPhase groups the stages a repository mirror/copy operation passes
// through, used to bracket PublishEvents for progress reporting.
type CopyPhase int

// Recognized copy phases, in the order a full repository copy visits them.
const (
	CopyPhaseBinaryPackages CopyPhase = iota
	CopyPhaseInstallerBinaryPackages
	CopyPhaseSources
	CopyPhaseInstallers
	CopyPhaseReleaseIndices
	CopyPhaseReleaseFiles
)

func (p CopyPhase) String() string {
	switch p {
	case CopyPhaseBinaryPackages:
		return "binary packages"
	case CopyPhaseInstallerBinaryPackages:
		return "installer binary packages"
	case CopyPhaseSources:
		return "sources"
	case CopyPhaseInstallers:
		return "installers"
	case CopyPhaseReleaseIndices:
		return "release indices"
	case CopyPhaseReleaseFiles:
		return "release files"
	default:
		return "unknown"
	}
}

// EventKind discriminates the PublishEvent union.
type EventKind int

// The full PublishEvent vocabulary named in the external-interface
// surface.
const (
	EventResolvedPoolArtifacts EventKind = iota
	EventPoolArtifactCurrent
	EventPoolArtifactMissing
	EventPoolArtifactsToPublish
	EventPoolArtifactCreated
	EventIndexFileToWrite
	EventIndexFileWritten
	EventVerifyingDestinationPath
	EventCopyPhaseBegin
	EventCopyPhaseEnd
	EventCopyingPath
	EventCopyIndicesPathNotFound
	EventPathCopied
	EventPathCopyNoop
	EventWriteSequenceBeginWithTotalBytes
	EventWriteSequenceProgressBytes
	EventWriteSequenceFinished
)

// PublishEvent is a single observational event surfaced from the copier.
// Go has no tagged-union/sum type, so this is a flat struct discriminated
// by Kind; callers switch on Kind and read the fields that kind defines.
type PublishEvent struct {
	Kind EventKind

	Count int    // ResolvedPoolArtifacts, PoolArtifactsToPublish
	Path  string // PoolArtifact*, IndexFile*, *Path, CopyingPath source
	Dest  string // CopyingPath destination
	Size  int64  // PoolArtifactCreated, IndexFileWritten, PathCopied
	Phase CopyPhase
	Bytes int64 // WriteSequence*
}

// IsProgress reports true exactly for the WriteSequence* family — the
// events a progress bar should consume.
func (e PublishEvent) IsProgress() bool {
	switch e.Kind {
	case EventWriteSequenceBeginWithTotalBytes, EventWriteSequenceProgressBytes, EventWriteSequenceFinished:
		return true
	default:
		return false
	}
}

// IsLoggable is the negation of IsProgress: every other event is suitable
// for a log line rather than a progress bar.
func (e PublishEvent) IsLoggable() bool {
	return !e.IsProgress()
}

func (e PublishEvent) String() string {
	switch e.Kind {
	case EventResolvedPoolArtifacts:
		return fmt.Sprintf("resolved %d pool artifacts", e.Count)
	case EventPoolArtifactCurrent:
		return fmt.Sprintf("pool artifact current: %s", e.Path)
	case EventPoolArtifactMissing:
		return fmt.Sprintf("pool artifact missing: %s", e.Path)
	case EventPoolArtifactsToPublish:
		return fmt.Sprintf("%d pool artifacts to publish", e.Count)
	case EventPoolArtifactCreated:
		return fmt.Sprintf("pool artifact created: %s (%d bytes)", e.Path, e.Size)
	case EventIndexFileToWrite:
		return fmt.Sprintf("index file to write: %s", e.Path)
	case EventIndexFileWritten:
		return fmt.Sprintf("index file written: %s (%d bytes)", e.Path, e.Size)
	case EventVerifyingDestinationPath:
		return fmt.Sprintf("verifying destination path: %s", e.Path)
	case EventCopyPhaseBegin:
		return fmt.Sprintf("copy phase begin: %s", e.Phase)
	case EventCopyPhaseEnd:
		return fmt.Sprintf("copy phase end: %s", e.Phase)
	case EventCopyingPath:
		return fmt.Sprintf("copying %s -> %s", e.Path, e.Dest)
	case EventCopyIndicesPathNotFound:
		return fmt.Sprintf("copy indices path not found: %s", e.Path)
	case EventPathCopied:
		return fmt.Sprintf("path copied: %s (%d bytes)", e.Path, e.Size)
	case EventPathCopyNoop:
		return fmt.Sprintf("path copy noop: %s", e.Path)
	case EventWriteSequenceBeginWithTotalBytes:
		return fmt.Sprintf("write sequence begin: %d bytes total", e.Bytes)
	case EventWriteSequenceProgressBytes:
		return fmt.Sprintf("write sequence progress: %d bytes", e.Bytes)
	case EventWriteSequenceFinished:
		return "write sequence finished"
	default:
		return "unknown publish event"
	}
}

// ProgressFunc is the callback shape copy_from invokes. Per the
// concurrency model, it's called synchronously from the calling task: it
// must not block significantly, and must not call back into the writer.
type ProgressFunc func(PublishEvent)

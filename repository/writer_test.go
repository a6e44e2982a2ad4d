package repository_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dionysius/drepo/digest"
	"github.com/dionysius/drepo/repository"
)

// scriptedWriter is a Writer whose VerifyPath response is fixed in
// advance and whose WritePath calls are recorded, used to drive CopyFrom
// through each of its branches without a real backend.
type scriptedWriter struct {
	verification repository.PathVerification
	writeCalls   int
	written      []byte
}

func (w *scriptedWriter) VerifyPath(context.Context, string, *repository.ExpectedContent) (repository.PathVerification, error) {
	return w.verification, nil
}

func (w *scriptedWriter) WritePath(_ context.Context, path string, r io.Reader) (repository.Write, error) {
	w.writeCalls++
	data, err := io.ReadAll(r)
	if err != nil {
		return repository.Write{}, err
	}
	w.written = data
	return repository.Write{Path: path, BytesWritten: int64(len(data))}, nil
}

func TestCopyFromNoopWhenDestinationAlreadyVerified(t *testing.T) {
	content := []byte("artifact bytes")
	expected := &repository.ExpectedContent{Size: int64(len(content)), Digest: digestOf(content)}

	resolver := &fixedResolver{data: content}
	writer := &scriptedWriter{verification: repository.PathVerification{
		Path: "dest", State: repository.PathExistsIntegrityVerified, Size: expected.Size,
	}}

	var events []repository.PublishEvent
	result, err := repository.CopyFrom(context.Background(), resolver, "src", expected, writer, "dest", func(e repository.PublishEvent) {
		events = append(events, e)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), result.BytesWritten)
	assert.Equal(t, 0, writer.writeCalls)

	require.Len(t, events, 2)
	assert.Equal(t, repository.EventVerifyingDestinationPath, events[0].Kind)
	assert.Equal(t, repository.EventPathCopyNoop, events[1].Kind)
}

func TestCopyFromWritesWhenDestinationMissing(t *testing.T) {
	content := []byte("artifact bytes")
	expected := &repository.ExpectedContent{Size: int64(len(content)), Digest: digestOf(content)}

	resolver := &fixedResolver{data: content}
	writer := &scriptedWriter{verification: repository.PathVerification{Path: "dest", State: repository.PathMissing}}

	var kinds []repository.EventKind
	result, err := repository.CopyFrom(context.Background(), resolver, "src", expected, writer, "dest", func(e repository.PublishEvent) {
		kinds = append(kinds, e.Kind)
	})
	require.NoError(t, err)
	assert.Equal(t, content, writer.written)
	assert.Equal(t, int64(len(content)), result.BytesWritten)
	assert.Equal(t, 1, writer.writeCalls)
	assert.Equal(t, []repository.EventKind{
		repository.EventVerifyingDestinationPath,
		repository.EventCopyingPath,
		repository.EventPathCopied,
	}, kinds)
}

func TestCopyFromPropagatesIntegrityMismatch(t *testing.T) {
	content := []byte("artifact bytes")
	mutated := append([]byte(nil), content...)
	mutated[0] ^= 0xff

	resolver := &fixedResolver{data: mutated}
	expected := &repository.ExpectedContent{Size: int64(len(content)), Digest: digestOf(content)}
	writer := &scriptedWriter{verification: repository.PathVerification{Path: "dest", State: repository.PathMissing}}

	_, err := repository.CopyFrom(context.Background(), resolver, "src", expected, writer, "dest", nil)
	require.Error(t, err)
	var mismatch *repository.IntegrityMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestProxyWriterFallsBackToInnerWhenNotOverridden(t *testing.T) {
	inner := &scriptedWriter{verification: repository.PathVerification{Path: "dest", State: repository.PathMissing}}
	proxy := &repository.ProxyWriter{Inner: inner}

	v, err := proxy.VerifyPath(context.Background(), "dest", nil)
	require.NoError(t, err)
	assert.Equal(t, repository.PathMissing, v.State)

	_, err = proxy.WritePath(context.Background(), "dest", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	assert.Equal(t, 1, inner.writeCalls)
}

func TestProxyWriterDryRunOverridesWritePath(t *testing.T) {
	inner := &scriptedWriter{verification: repository.PathVerification{Path: "dest", State: repository.PathMissing}}

	var countedBytes int64
	proxy := &repository.ProxyWriter{
		Inner: inner,
		WritePathFunc: func(ctx context.Context, path string, r io.Reader) (repository.Write, error) {
			n, err := io.Copy(io.Discard, r)
			countedBytes = n
			return repository.Write{Path: path, BytesWritten: n}, err
		},
	}

	content := []byte("hello dry run")
	result, err := proxy.WritePath(context.Background(), "dest", bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), result.BytesWritten)
	assert.Equal(t, int64(len(content)), countedBytes)
	assert.Equal(t, 0, inner.writeCalls)
}

var _ digest.Digest

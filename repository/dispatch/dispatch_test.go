package dispatch_test

import (
	"context"
	"testing"

	"github.com/dionysius/drepo/repository"
	"github.com/dionysius/drepo/repository/dispatch"
	"github.com/dionysius/drepo/repository/filesystem"
	"github.com/dionysius/drepo/repository/httpbackend"
	"github.com/dionysius/drepo/repository/nullbackend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderFromStringBarePath(t *testing.T) {
	r, err := dispatch.ReaderFromString("/var/repo", nil)
	require.NoError(t, err)
	assert.IsType(t, &filesystem.Root{}, r)
}

func TestReaderFromStringFileAndHTTP(t *testing.T) {
	r, err := dispatch.ReaderFromString("file:///var/repo", nil)
	require.NoError(t, err)
	assert.IsType(t, &filesystem.Root{}, r)

	r, err = dispatch.ReaderFromString("https://mirror.example/debian", nil)
	require.NoError(t, err)
	assert.IsType(t, &httpbackend.Root{}, r)
}

func TestReaderFromStringUnrecognizedScheme(t *testing.T) {
	_, err := dispatch.ReaderFromString("ftp://mirror.example/debian", nil)
	require.Error(t, err)
	var unrecognized *repository.ReaderUnrecognizedURLError
	require.ErrorAs(t, err, &unrecognized)
}

func TestWriterFromStringNullSink(t *testing.T) {
	w, err := dispatch.WriterFromString(context.Background(), "null://exists-integrity-verified")
	require.NoError(t, err)
	assert.IsType(t, &nullbackend.Sink{}, w)
}

func TestWriterFromStringNullUnknownHost(t *testing.T) {
	_, err := dispatch.WriterFromString(context.Background(), "null://bogus")
	require.Error(t, err)
	var unknown *repository.SinkWriterVerifyBehaviorUnknownError
	require.ErrorAs(t, err, &unknown)
}

func TestWriterFromStringUnrecognizedScheme(t *testing.T) {
	_, err := dispatch.WriterFromString(context.Background(), "ftp://mirror.example/debian")
	require.Error(t, err)
	var unrecognized *repository.WriterUnrecognizedURLError
	require.ErrorAs(t, err, &unrecognized)
}

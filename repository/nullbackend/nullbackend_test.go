package nullbackend_test

import (
	"context"
	"strings"
	"testing"

	"github.com/dionysius/drepo/repository"
	"github.com/dionysius/drepo/repository/nullbackend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBehaviorUnknownHost(t *testing.T) {
	_, err := nullbackend.ParseBehavior("bogus")
	require.Error(t, err)
	var unknown *repository.SinkWriterVerifyBehaviorUnknownError
	require.ErrorAs(t, err, &unknown)
}

func TestSinkReportsConfiguredBehavior(t *testing.T) {
	sink := nullbackend.New(nullbackend.ExistsIntegrityVerified)
	v, err := sink.VerifyPath(context.Background(), "any/path", &repository.ExpectedContent{Size: 10})
	require.NoError(t, err)
	assert.Equal(t, repository.PathExistsIntegrityVerified, v.State)
	assert.Equal(t, int64(10), v.Size)
}

func TestSinkWritePathDiscards(t *testing.T) {
	sink := nullbackend.New(nullbackend.Missing)
	w, err := sink.WritePath(context.Background(), "x", strings.NewReader("some bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("some bytes")), w.BytesWritten)
}
